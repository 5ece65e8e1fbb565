package model

import (
	"math"

	"github.com/guregu/null/v6"
)

// Finite wraps v as a present value, or as absent when v is NaN or ±Inf.
func Finite(v float64) null.Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return null.Float{}
	}
	return null.FloatFrom(v)
}

// HistoryPoint is one bar on the wire.
type HistoryPoint struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// HistoryResult is the raw price history of a symbol.
type HistoryResult struct {
	Symbol  string         `json:"symbol"`
	History []HistoryPoint `json:"history"`
}

// SMAResult maps each date to its simple moving average.
type SMAResult struct {
	Symbol string                `json:"symbol"`
	SMA    map[string]null.Float `json:"sma"`
}

// BandPoint holds the Bollinger envelope at one date. Fields are null until
// the window has filled.
type BandPoint struct {
	Middle null.Float `json:"middle"`
	Upper  null.Float `json:"upper"`
	Lower  null.Float `json:"lower"`
}

// BandsResult maps each date to its Bollinger envelope.
type BandsResult struct {
	Symbol string               `json:"symbol"`
	Bands  map[string]BandPoint `json:"bands"`
}

// MACDPoint holds the MACD triple at one date.
type MACDPoint struct {
	MACDLine   null.Float `json:"macd_line"`
	SignalLine null.Float `json:"signal_line"`
	Histogram  null.Float `json:"histogram"`
}

// MACDResult maps each date to its MACD triple.
type MACDResult struct {
	Symbol string               `json:"symbol"`
	MACD   map[string]MACDPoint `json:"macd"`
}

// RSIResult maps each date to its relative strength index.
type RSIResult struct {
	Symbol string                `json:"symbol"`
	RSI    map[string]null.Float `json:"rsi"`
}
