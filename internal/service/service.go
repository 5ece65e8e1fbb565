package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"go.uber.org/zap"

	"QuantDash/internal/calculator"
	"QuantDash/internal/collector"
	"QuantDash/internal/model"
)

const defaultTimeout = 15 * time.Second

// Service answers price history, company info and indicator queries. It holds
// no per-request state and is safe for concurrent use.
type Service struct {
	fetcher collector.Fetcher
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout bounds every provider call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service backed by fetcher.
func New(fetcher collector.Fetcher, opts ...Option) *Service {
	s := &Service{
		fetcher: fetcher,
		timeout: defaultTimeout,
		logger:  zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("service")
	return s
}

// History returns the raw daily bars of symbol.
func (s *Service) History(ctx context.Context, symbol string, r Range) (*model.HistoryResult, error) {
	series, err := s.load(ctx, symbol, r, 0)
	if err != nil {
		return nil, err
	}
	if len(series.Bars) == 0 {
		return nil, notFound(symbol, "No historical data found for ticker '%s'", symbol)
	}
	out := &model.HistoryResult{Symbol: symbol, History: make([]model.HistoryPoint, len(series.Bars))}
	for i, b := range series.Bars {
		out.History[i] = model.HistoryPoint{
			Date:   b.DateKey(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	return out, nil
}

// Info returns the company profile of symbol.
func (s *Service) Info(ctx context.Context, symbol string) (*model.InfoResult, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, invalidArgument(symbol, "ticker is required")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	info, err := s.fetcher.FetchInfo(ctx, symbol)
	if err != nil {
		s.logger.Warn("fetch info failed", zap.String("symbol", symbol), zap.Error(err))
		return nil, upstream(symbol, err)
	}
	if info == nil || info.Name == "" {
		return nil, notFound(symbol, "Info not found for ticker '%s'", symbol)
	}
	return &model.InfoResult{Symbol: symbol, Info: *info}, nil
}

// SMA returns the simple moving average of the close series.
func (s *Service) SMA(ctx context.Context, symbol string, p SMAParams, r Range) (*model.SMAResult, error) {
	if err := p.validate(symbol); err != nil {
		return nil, err
	}
	series, err := s.loadNonEmpty(ctx, symbol, r, p.Window, "SMA")
	if err != nil {
		return nil, err
	}
	values, err := calculator.CalculateSMA(series.Closes(), p.Window)
	if err != nil {
		return nil, invalidArgument(symbol, "sma: %v", err)
	}
	return &model.SMAResult{Symbol: symbol, SMA: shapeSingle(series, values)}, nil
}

// Bollinger returns the Bollinger envelope of the close series.
func (s *Service) Bollinger(ctx context.Context, symbol string, p BandsParams, r Range) (*model.BandsResult, error) {
	if err := p.validate(symbol); err != nil {
		return nil, err
	}
	series, err := s.loadNonEmpty(ctx, symbol, r, p.Window, "Bollinger Bands")
	if err != nil {
		return nil, err
	}
	bands, err := calculator.CalculateBollinger(series.Closes(), p.Window, p.NumStd)
	if err != nil {
		return nil, invalidArgument(symbol, "bollinger: %v", err)
	}
	out := &model.BandsResult{Symbol: symbol, Bands: make(map[string]model.BandPoint, len(series.Bars))}
	for i, b := range series.Bars {
		out.Bands[b.DateKey()] = model.BandPoint{
			Middle: model.Finite(bands.Middle[i]),
			Upper:  model.Finite(bands.Upper[i]),
			Lower:  model.Finite(bands.Lower[i]),
		}
	}
	return out, nil
}

// MACD returns the MACD line, signal line and histogram of the close series.
func (s *Service) MACD(ctx context.Context, symbol string, p MACDParams, r Range) (*model.MACDResult, error) {
	if err := p.validate(symbol); err != nil {
		return nil, err
	}
	series, err := s.loadNonEmpty(ctx, symbol, r, p.Slow, "MACD")
	if err != nil {
		return nil, err
	}
	m, err := calculator.CalculateMACD(series.Closes(), p.Fast, p.Slow, p.Signal)
	if err != nil {
		return nil, invalidArgument(symbol, "macd: %v", err)
	}
	out := &model.MACDResult{Symbol: symbol, MACD: make(map[string]model.MACDPoint, len(series.Bars))}
	for i, b := range series.Bars {
		out.MACD[b.DateKey()] = model.MACDPoint{
			MACDLine:   model.Finite(m.Line[i]),
			SignalLine: model.Finite(m.Signal[i]),
			Histogram:  model.Finite(m.Histogram[i]),
		}
	}
	return out, nil
}

// RSI returns the relative strength index of the close series.
func (s *Service) RSI(ctx context.Context, symbol string, p RSIParams, r Range) (*model.RSIResult, error) {
	if err := p.validate(symbol); err != nil {
		return nil, err
	}
	series, err := s.loadNonEmpty(ctx, symbol, r, p.Window, "RSI")
	if err != nil {
		return nil, err
	}
	values, err := calculator.CalculateRSI(series.Closes(), p.Window)
	if err != nil {
		return nil, invalidArgument(symbol, "rsi: %v", err)
	}
	return &model.RSIResult{Symbol: symbol, RSI: shapeSingle(series, values)}, nil
}

func (s *Service) loadNonEmpty(ctx context.Context, symbol string, r Range, lookback int, indicator string) (*model.PriceSeries, error) {
	series, err := s.load(ctx, symbol, r, lookback)
	if err != nil {
		return nil, err
	}
	if len(series.Bars) == 0 {
		return nil, notFound(symbol, "No data for %s calculation for ticker '%s'", indicator, symbol)
	}
	return series, nil
}

// load resolves the date window and fetches the bars under the provider timeout.
func (s *Service) load(ctx context.Context, symbol string, r Range, lookback int) (*model.PriceSeries, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, invalidArgument(symbol, "ticker is required")
	}
	start, end := r.resolve(s.now(), lookback)
	if start.After(end) {
		return nil, invalidArgument(symbol, "start date %s is after end date %s",
			start.Format(model.DateLayout), end.Format(model.DateLayout))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	began := time.Now()
	bars, err := s.fetcher.FetchHistory(ctx, symbol, start, end)
	if err != nil {
		s.logger.Warn("fetch history failed",
			zap.String("symbol", symbol),
			zap.String("provider", s.fetcher.Name()),
			zap.Duration("elapsed", time.Since(began)),
			zap.Error(err),
		)
		return nil, upstream(symbol, fmt.Errorf("fetch history: %w", err))
	}
	s.logger.Debug("fetched history",
		zap.String("symbol", symbol),
		zap.String("start", start.Format(model.DateLayout)),
		zap.String("end", end.Format(model.DateLayout)),
		zap.Int("bars", len(bars)),
		zap.Duration("elapsed", time.Since(began)),
	)
	return &model.PriceSeries{Symbol: symbol, Bars: bars}, nil
}

func shapeSingle(series *model.PriceSeries, values []float64) map[string]null.Float {
	out := make(map[string]null.Float, len(series.Bars))
	for i, b := range series.Bars {
		out[b.DateKey()] = model.Finite(values[i])
	}
	return out
}
