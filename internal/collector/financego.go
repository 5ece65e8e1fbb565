package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/guregu/null/v6"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/shopspring/decimal"

	"QuantDash/internal/model"
)

// FinanceGoFetcher implements Fetcher on top of the piquette/finance-go client.
// The client has no context support, so each call runs in its own goroutine
// and is abandoned when ctx ends.
type FinanceGoFetcher struct{}

// NewFinanceGoFetcher creates a finance-go backed fetcher.
func NewFinanceGoFetcher() *FinanceGoFetcher { return &FinanceGoFetcher{} }

func (f *FinanceGoFetcher) Name() string { return "financego" }

func (f *FinanceGoFetcher) FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
	return withContext(ctx, func() ([]model.PriceBar, error) {
		return f.history(symbol, start, end)
	})
}

func (f *FinanceGoFetcher) FetchInfo(ctx context.Context, symbol string) (*model.CompanyInfo, error) {
	return withContext(ctx, func() (*model.CompanyInfo, error) {
		eq, err := equity.Get(symbol)
		if err != nil {
			return nil, fmt.Errorf("financego equity: %w", err)
		}
		if eq == nil {
			return &model.CompanyInfo{}, nil
		}
		info := &model.CompanyInfo{Name: eq.LongName}
		if eq.MarketCap > 0 {
			info.MarketCap = null.IntFrom(eq.MarketCap)
		}
		return info, nil
	})
}

func (f *FinanceGoFetcher) history(symbol string, start, end time.Time) ([]model.PriceBar, error) {
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}
	iter := chart.Get(params)

	var bars []model.PriceBar
	for iter.Next() {
		b := iter.Bar()
		bars = append(bars, model.PriceBar{
			Date:   model.TruncateDay(time.Unix(int64(b.Timestamp), 0).UTC()),
			Open:   decimalFloat(b.Open),
			High:   decimalFloat(b.High),
			Low:    decimalFloat(b.Low),
			Close:  decimalFloat(b.Close),
			Volume: int64(b.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("financego chart: %w", err)
	}
	return normalizeBars(bars, start, end), nil
}

func decimalFloat(d decimal.Decimal) float64 {
	v, _ := d.Float64()
	return v
}

func withContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-ch:
		return r.v, r.err
	}
}
