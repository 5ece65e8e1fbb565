package collector

import (
	"context"
	"time"

	"QuantDash/internal/model"
)

// FetchObserver receives the outcome of every provider call.
type FetchObserver interface {
	ObserveFetch(provider, op string, elapsed time.Duration, err error)
}

type instrumentedFetcher struct {
	Fetcher
	obs FetchObserver
}

// Instrument wraps f so that every call is reported to obs.
func Instrument(f Fetcher, obs FetchObserver) Fetcher {
	if obs == nil {
		return f
	}
	return &instrumentedFetcher{Fetcher: f, obs: obs}
}

func (f *instrumentedFetcher) FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
	began := time.Now()
	bars, err := f.Fetcher.FetchHistory(ctx, symbol, start, end)
	f.obs.ObserveFetch(f.Name(), "history", time.Since(began), err)
	return bars, err
}

func (f *instrumentedFetcher) FetchInfo(ctx context.Context, symbol string) (*model.CompanyInfo, error) {
	began := time.Now()
	info, err := f.Fetcher.FetchInfo(ctx, symbol)
	f.obs.ObserveFetch(f.Name(), "info", time.Since(began), err)
	return info, err
}
