package service

import (
	"math"
	"time"

	"QuantDash/internal/model"
)

// HistoryDays is the length of the default query window.
const HistoryDays = 365

// Range is an optional [Start, End) date window. Zero bounds are defaulted
// independently: End to today, Start to End minus the default window.
type Range struct {
	Start time.Time
	End   time.Time
}

// resolve fills missing bounds and pads the default start by lookback days so
// that the first requested dates already have a full window behind them.
func (r Range) resolve(now time.Time, lookback int) (time.Time, time.Time) {
	end := r.End
	if end.IsZero() {
		end = now
	}
	end = model.TruncateDay(end)
	start := r.Start
	if start.IsZero() {
		start = end.AddDate(0, 0, -(HistoryDays + lookback))
	}
	return model.TruncateDay(start), end
}

// SMAParams configures a simple moving average query.
type SMAParams struct {
	Window int
}

// BandsParams configures a Bollinger Bands query.
type BandsParams struct {
	Window int
	NumStd float64
}

// MACDParams configures a MACD query.
type MACDParams struct {
	Fast   int
	Slow   int
	Signal int
}

// RSIParams configures an RSI query.
type RSIParams struct {
	Window int
}

func DefaultSMAParams() SMAParams     { return SMAParams{Window: 20} }
func DefaultBandsParams() BandsParams { return BandsParams{Window: 20, NumStd: 2} }
func DefaultMACDParams() MACDParams   { return MACDParams{Fast: 12, Slow: 26, Signal: 9} }
func DefaultRSIParams() RSIParams     { return RSIParams{Window: 14} }

func (p SMAParams) validate(symbol string) error {
	return positive(symbol, "window", p.Window)
}

func (p BandsParams) validate(symbol string) error {
	if err := positive(symbol, "window", p.Window); err != nil {
		return err
	}
	if p.NumStd < 0 || math.IsNaN(p.NumStd) || math.IsInf(p.NumStd, 0) {
		return invalidArgument(symbol, "num_std must be a non-negative number, got %g", p.NumStd)
	}
	return nil
}

func (p MACDParams) validate(symbol string) error {
	if err := positive(symbol, "fast", p.Fast); err != nil {
		return err
	}
	if err := positive(symbol, "slow", p.Slow); err != nil {
		return err
	}
	return positive(symbol, "signal", p.Signal)
}

func (p RSIParams) validate(symbol string) error {
	return positive(symbol, "window", p.Window)
}

func positive(symbol, name string, v int) error {
	if v <= 0 {
		return invalidArgument(symbol, "%s must be positive, got %d", name, v)
	}
	return nil
}
