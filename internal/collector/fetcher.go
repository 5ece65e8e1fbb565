package collector

import (
	"context"
	"sort"
	"time"

	"QuantDash/internal/model"
)

// Fetcher defines the interface for fetching market data.
//
// FetchHistory returns the daily bars of symbol with dates in [start, end),
// ascending. An unknown symbol yields an empty slice and a nil error; errors are
// reserved for transport and protocol failures.
//
// FetchInfo returns descriptive metadata. An unknown symbol yields an info with
// an empty Name.
type Fetcher interface {
	FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error)
	FetchInfo(ctx context.Context, symbol string) (*model.CompanyInfo, error)
	Name() string
}

// normalizeBars sorts bars by date, keeps the last bar of any duplicated date
// and drops bars outside [start, end).
func normalizeBars(bars []model.PriceBar, start, end time.Time) []model.PriceBar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	out := bars[:0]
	for _, b := range bars {
		if b.Date.Before(start) || !b.Date.Before(end) {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
