package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"QuantDash/internal/collector"
	"QuantDash/internal/model"
	"QuantDash/internal/recorder"
	"QuantDash/internal/service"
)

var fixedNow = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

type auditLog struct {
	recorder.NoopRecorder
	mu     sync.Mutex
	events []recorder.QueryEvent
}

func (a *auditLog) RecordQuery(evt *recorder.QueryEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, *evt)
	return nil
}

type requestCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *requestCounter) ObserveRequest(route string, status int, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	c.counts[route+" "+http.StatusText(status)]++
}

func closesBars(closes ...float64) []model.PriceBar {
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = model.PriceBar{Date: d.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return bars
}

func newTestAPI(f collector.Fetcher, opts Options) http.Handler {
	svc := service.New(f,
		service.WithClock(func() time.Time { return fixedNow }),
		service.WithTimeout(100*time.Millisecond),
	)
	return NewAPI(svc, opts).Handler()
}

func do(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func TestRoot(t *testing.T) {
	rr := do(t, newTestAPI(&collector.MockFetcher{}, Options{}), "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body map[string]string
	decode(t, rr, &body)
	if !strings.Contains(body["message"], "Welcome") {
		t.Errorf("unexpected body: %v", body)
	}
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	rr := do(t, newTestAPI(&collector.MockFetcher{}, Options{}), "/nope")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestSMAEndpoint(t *testing.T) {
	audit := &auditLog{}
	counter := &requestCounter{}
	h := newTestAPI(&collector.MockFetcher{Bars: closesBars(10, 11, 12, 11, 10)}, Options{Recorder: audit, Requests: counter})

	rr := do(t, h, "/technicals/AAPL/sma?window=3")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Symbol string              `json:"symbol"`
		SMA    map[string]*float64 `json:"sma"`
	}
	decode(t, rr, &body)
	if body.Symbol != "AAPL" || len(body.SMA) != 5 {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
	if body.SMA["2024-01-01"] != nil || body.SMA["2024-01-02"] != nil {
		t.Error("first two dates should be null")
	}
	if v := body.SMA["2024-01-03"]; v == nil || *v != 11 {
		t.Errorf("2024-01-03 = %v, want 11", v)
	}
	if !strings.Contains(rr.Body.String(), `"2024-01-01":null`) {
		t.Errorf("absent values must serialize as null: %s", rr.Body.String())
	}

	if len(audit.events) != 1 {
		t.Fatalf("audit events = %d", len(audit.events))
	}
	evt := audit.events[0]
	if evt.Route != "sma" || evt.Symbol != "AAPL" || evt.Status != 200 || evt.Bars != 5 || evt.RequestID == "" {
		t.Errorf("unexpected audit event: %+v", evt)
	}
	if counter.counts["sma OK"] != 1 {
		t.Errorf("request counts = %v", counter.counts)
	}
}

func TestBBandsEndpoint(t *testing.T) {
	h := newTestAPI(&collector.MockFetcher{Bars: closesBars(2, 4, 4, 4, 5, 5, 7, 9)}, Options{})
	rr := do(t, h, "/technicals/X/bbands?window=8&num_std=1.5")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Bands map[string]struct {
			Middle *float64 `json:"middle"`
			Upper  *float64 `json:"upper"`
			Lower  *float64 `json:"lower"`
		} `json:"bands"`
	}
	decode(t, rr, &body)
	last := body.Bands["2024-01-08"]
	if last.Middle == nil || *last.Middle != 5 || last.Upper == nil || last.Lower == nil {
		t.Fatalf("unexpected last band: %+v", last)
	}
	if d := (*last.Upper - *last.Middle) - (*last.Middle - *last.Lower); d > 1e-9 || d < -1e-9 {
		t.Error("bands should be symmetric")
	}
	if first := body.Bands["2024-01-01"]; first.Middle != nil || first.Upper != nil {
		t.Errorf("first band should be null: %+v", first)
	}
}

func TestMACDAndRSIEndpoints(t *testing.T) {
	h := newTestAPI(&collector.MockFetcher{Bars: closesBars(1, 2, 3, 4, 5, 6, 7)}, Options{})

	rr := do(t, h, "/technicals/X/macd?fast=2&slow=4&signal=3")
	if rr.Code != http.StatusOK {
		t.Fatalf("macd status = %d", rr.Code)
	}
	var macd struct {
		MACD map[string]map[string]*float64 `json:"macd"`
	}
	decode(t, rr, &macd)
	p := macd.MACD["2024-01-07"]
	if p["macd_line"] == nil || p["signal_line"] == nil || p["histogram"] == nil {
		t.Fatalf("incomplete macd point: %v", p)
	}

	rr = do(t, h, "/technicals/X/rsi?window=3")
	if rr.Code != http.StatusOK {
		t.Fatalf("rsi status = %d", rr.Code)
	}
	var rsi struct {
		RSI map[string]*float64 `json:"rsi"`
	}
	decode(t, rr, &rsi)
	if rsi.RSI["2024-01-01"] != nil {
		t.Error("rsi on first date should be null")
	}
	if v := rsi.RSI["2024-01-05"]; v == nil || *v != 100 {
		t.Errorf("rsi = %v, want 100", v)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	m := &collector.MockFetcher{Bars: closesBars(10, 11)}
	h := newTestAPI(m, Options{})
	rr := do(t, h, "/stocks/MSFT/history?start_date=2024-01-01&end=2024-02-01")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body model.HistoryResult
	decode(t, rr, &body)
	if body.Symbol != "MSFT" || len(body.History) != 2 || body.History[1].Date != "2024-01-02" {
		t.Errorf("unexpected body: %+v", body)
	}
	c := m.Calls()[0]
	if c.Start.Format(model.DateLayout) != "2024-01-01" || c.End.Format(model.DateLayout) != "2024-02-01" {
		t.Errorf("range = [%v, %v)", c.Start, c.End)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		fetcher collector.Fetcher
		target  string
		status  int
		msg     string
	}{
		{"history not found", &collector.MockFetcher{}, "/stocks/NOPE/history", 404, "No historical data found for ticker 'NOPE'"},
		{"rsi not found", &collector.MockFetcher{}, "/technicals/NOPE/rsi", 404, "No data for RSI calculation for ticker 'NOPE'"},
		{"info not found", &collector.MockFetcher{}, "/stocks/NOPE/info", 404, "Info not found for ticker 'NOPE'"},
		{"bad window", &collector.MockFetcher{Price: 1}, "/technicals/X/sma?window=abc", 400, "invalid window"},
		{"zero window", &collector.MockFetcher{Price: 1}, "/technicals/X/sma?window=0", 400, "window must be positive"},
		{"bad date", &collector.MockFetcher{Price: 1}, "/stocks/X/history?start=01-02-2024", 400, "invalid start"},
		{"inverted range", &collector.MockFetcher{Price: 1}, "/stocks/X/history?start=2024-02-01&end=2024-01-01", 400, "is after end date"},
		{"upstream", &collector.MockFetcher{Err: errors.New("boom")}, "/technicals/X/macd", 502, "market data provider failed"},
		{"timeout", &collector.MockFetcher{Price: 1, Delay: time.Second}, "/technicals/X/bbands", 504, "timed out"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, newTestAPI(tc.fetcher, Options{}), tc.target)
			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tc.status, rr.Body.String())
			}
			var body map[string]string
			decode(t, rr, &body)
			if !strings.Contains(body["error"], tc.msg) {
				t.Errorf("error = %q, want it to contain %q", body["error"], tc.msg)
			}
		})
	}
}

func TestInfoEndpoint(t *testing.T) {
	m := &collector.MockFetcher{Info: &model.CompanyInfo{Name: "Apple Inc.", Sector: model.OptionalString("Technology")}}
	rr := do(t, newTestAPI(m, Options{}), "/stocks/AAPL/info")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	for _, want := range []string{`"name":"Apple Inc."`, `"sector":"Technology"`, `"industry":null`, `"market_cap":null`} {
		if !strings.Contains(rr.Body.String(), want) {
			t.Errorf("body %s missing %s", rr.Body.String(), want)
		}
	}
}

func TestHealthz(t *testing.T) {
	status := model.ProviderStatus{Provider: "yahoo", Up: true, CheckedAt: fixedNow}
	h := newTestAPI(&collector.MockFetcher{}, Options{Status: func() model.ProviderStatus { return status }})
	rr := do(t, h, "/healthz")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"provider":"yahoo"`) || !strings.Contains(rr.Body.String(), `"up":true`) {
		t.Errorf("unexpected body: %s", rr.Body.String())
	}
}

func TestMetricsRoute(t *testing.T) {
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("quantdash_up 1\n"))
	})
	rr := do(t, newTestAPI(&collector.MockFetcher{}, Options{MetricsHandler: metricsHandler}), "/metrics")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "quantdash_up") {
		t.Errorf("unexpected metrics response: %d %s", rr.Code, rr.Body.String())
	}
}
