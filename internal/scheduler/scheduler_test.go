package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"QuantDash/internal/collector"
	"QuantDash/internal/recorder"
)

type captureNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (c *captureNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, text)
	return nil
}

type captureRecorder struct {
	recorder.NoopRecorder
	probes []*recorder.ProbeEvent
}

func (c *captureRecorder) RecordProbe(evt *recorder.ProbeEvent) error {
	c.probes = append(c.probes, evt)
	return nil
}

type gauge map[string]bool

func (g gauge) SetProviderUp(provider string, up bool) { g[provider] = up }

func TestProbeTransitions(t *testing.T) {
	m := &collector.MockFetcher{Price: 100}
	n := &captureNotifier{}
	rec := &captureRecorder{}
	g := gauge{}
	s := NewScheduler(context.Background(), m, "AAPL", n, rec, nil)
	s.Observer = g

	if st := s.Probe(); !st.Up || st.Bars == 0 {
		t.Fatalf("expected healthy probe, got %+v", st)
	}
	if len(n.msgs) != 0 {
		t.Errorf("healthy first probe should not notify, got %v", n.msgs)
	}

	m.Err = errors.New("connection refused")
	s.Probe()
	st := s.Probe()
	if st.Up || st.ConsecutiveFailures != 2 || !strings.Contains(st.Error, "connection refused") {
		t.Fatalf("unexpected status after failures: %+v", st)
	}
	if len(n.msgs) != 1 || !strings.Contains(n.msgs[0], "is down") {
		t.Errorf("expected exactly one down alert, got %v", n.msgs)
	}
	if g["mock"] {
		t.Error("gauge should report down")
	}

	m.Err = nil
	if st := s.Probe(); !st.Up || st.ConsecutiveFailures != 0 {
		t.Fatalf("expected recovery, got %+v", st)
	}
	if len(n.msgs) != 2 || !strings.Contains(n.msgs[1], "recovered") {
		t.Errorf("expected recovery alert, got %v", n.msgs)
	}
	if len(rec.probes) != 4 {
		t.Errorf("recorded %d probes, want 4", len(rec.probes))
	}
}

func TestProbeEmptyIsDown(t *testing.T) {
	n := &captureNotifier{}
	s := NewScheduler(context.Background(), &collector.MockFetcher{}, "NOPE", n, nil, nil)
	if st := s.Probe(); st.Up {
		t.Fatalf("empty history should count as down: %+v", st)
	}
	if len(n.msgs) != 1 {
		t.Errorf("failed first probe should notify, got %d messages", len(n.msgs))
	}
}

func TestHandleCommand(t *testing.T) {
	s := NewScheduler(context.Background(), &collector.MockFetcher{Price: 50}, "AAPL", nil, nil, nil)
	if reply := s.HandleCommand("/status"); !strings.Contains(reply, "not probed yet") {
		t.Errorf("status before probe: %q", reply)
	}
	if reply := s.HandleCommand("/probe"); !strings.Contains(reply, "mock: UP") {
		t.Errorf("probe reply: %q", reply)
	}
	if reply := s.HandleCommand("/status"); !strings.Contains(reply, "mock: UP") {
		t.Errorf("status after probe: %q", reply)
	}
	if reply := s.HandleCommand("hello"); !strings.Contains(reply, "/status") {
		t.Errorf("help reply: %q", reply)
	}
}

func TestRegisterRejectsBadSpec(t *testing.T) {
	s := NewScheduler(context.Background(), &collector.MockFetcher{}, "AAPL", nil, nil, nil)
	if err := s.Register("not a cron"); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
	if err := s.Register("0 */5 * * * *"); err != nil {
		t.Fatalf("Register: %v", err)
	}
}
