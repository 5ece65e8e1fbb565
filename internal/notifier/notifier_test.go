package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"QuantDash/internal/model"
)

func TestSendWithRetry(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottoken/sendMessage" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload["chat_id"] != "42" || payload["parse_mode"] != "HTML" {
			t.Errorf("unexpected payload: %v", payload)
		}
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("token", "42", "", nil)
	tn.APIBase = srv.URL
	tn.Backoff = time.Millisecond

	if err := tn.SendWithRetry(context.Background(), "hello", 3); err != nil {
		t.Fatalf("SendWithRetry: %v", err)
	}
	if n := atomic.LoadInt32(&attempts); n != 3 {
		t.Errorf("attempts = %d, want 3", n)
	}
}

func TestSendWithRetryExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("token", "42", "", nil)
	tn.APIBase = srv.URL
	tn.Backoff = time.Millisecond
	if err := tn.SendWithRetry(context.Background(), "hello", 1); err == nil {
		t.Fatal("expected error")
	}
}

func TestStartPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	replies := make(chan string, 1)
	var served int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if atomic.AddInt32(&served, 1) == 1 {
				w.Write([]byte(`{"ok":true,"result":[{"update_id":7,"message":{"text":" /status "}}]}`))
				return
			}
			if r.URL.Query().Get("offset") != "8" {
				t.Errorf("offset = %q, want 8", r.URL.Query().Get("offset"))
			}
			<-r.Context().Done()
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var payload map[string]string
			_ = json.NewDecoder(r.Body).Decode(&payload)
			replies <- payload["text"]
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("token", "42", "", nil)
	tn.APIBase = srv.URL
	done := make(chan struct{})
	go func() {
		tn.StartPolling(ctx, func(cmd string) string { return "got " + cmd })
		close(done)
	}()

	select {
	case reply := <-replies:
		if reply != "got /status" {
			t.Errorf("reply = %q", reply)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reply sent")
	}
	cancel()
	<-done
}

func TestFormatters(t *testing.T) {
	down := model.ProviderStatus{
		Provider: "yahoo", Symbol: "AAPL", Up: false, CheckedAt: time.Now(),
		Latency: 1500 * time.Millisecond, Error: "status 503 <html>", ConsecutiveFailures: 3,
	}
	alert := FormatProbeAlert(down)
	if !strings.Contains(alert, "is down") || !strings.Contains(alert, "&lt;html&gt;") || !strings.Contains(alert, "Consecutive failures: 3") {
		t.Errorf("unexpected alert: %s", alert)
	}
	if !strings.Contains(FormatProbeAlert(model.ProviderStatus{Provider: "yahoo", Up: true, CheckedAt: time.Now()}), "recovered") {
		t.Error("recovery alert should say recovered")
	}
	if !strings.Contains(FormatStatus(model.ProviderStatus{Provider: "yahoo"}), "not probed yet") {
		t.Error("unchecked status should say not probed")
	}
	if !strings.Contains(FormatStatus(down), "yahoo: DOWN") {
		t.Errorf("unexpected status: %s", FormatStatus(down))
	}
}
