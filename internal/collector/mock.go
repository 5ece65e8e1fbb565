package collector

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/guregu/null/v6"

	"QuantDash/internal/model"
)

// HistoryCall records the arguments of one FetchHistory call.
type HistoryCall struct {
	Symbol string
	Start  time.Time
	End    time.Time
}

// MockFetcher returns controllable fixed data for development and testing.
// Bars and Info take precedence; otherwise a positive Price generates a
// deterministic series and a placeholder profile.
type MockFetcher struct {
	Price float64
	Bars  []model.PriceBar
	Info  *model.CompanyInfo
	Err   error
	Delay time.Duration

	mu    sync.Mutex
	calls []HistoryCall
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
	m.mu.Lock()
	m.calls = append(m.calls, HistoryCall{Symbol: symbol, Start: start, End: end})
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Bars != nil {
		out := make([]model.PriceBar, len(m.Bars))
		copy(out, m.Bars)
		return out, nil
	}
	if m.Price <= 0 {
		return nil, nil
	}
	return generateMockBars(m.Price, start, end), nil
}

func (m *MockFetcher) FetchInfo(ctx context.Context, symbol string) (*model.CompanyInfo, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Info != nil {
		info := *m.Info
		return &info, nil
	}
	if m.Price <= 0 {
		return &model.CompanyInfo{}, nil
	}
	return &model.CompanyInfo{
		Name:      "Mock " + strings.ToUpper(symbol) + " Inc.",
		Sector:    null.StringFrom("Technology"),
		Country:   null.StringFrom("United States"),
		MarketCap: null.IntFrom(int64(m.Price * 1e9)),
	}, nil
}

// Calls returns the FetchHistory calls seen so far.
func (m *MockFetcher) Calls() []HistoryCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]HistoryCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockFetcher) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.Delay):
		return nil
	}
}

// generateMockBars emits one bar per weekday in [start, end) following a slow
// sine wave around basePrice.
func generateMockBars(basePrice float64, start, end time.Time) []model.PriceBar {
	var bars []model.PriceBar
	for d, i := model.TruncateDay(start), 0; d.Before(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		p := basePrice * (1 + 0.05*math.Sin(float64(i)/10))
		bars = append(bars, model.PriceBar{
			Date:   d,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		})
		i++
	}
	return bars
}
