package model

import "time"

// DateLayout is the wire format of every calendar date.
const DateLayout = "2006-01-02"

// PriceBar represents a single daily candlestick bar.
type PriceBar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// DateKey returns the bar's date as YYYY-MM-DD.
func (b PriceBar) DateKey() string { return b.Date.Format(DateLayout) }

// PriceSeries holds the bars fetched for one symbol, ascending by date.
type PriceSeries struct {
	Symbol string
	Bars   []PriceBar
}

// Closes returns the close column.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// DateKeys returns the date column formatted with DateLayout.
func (s *PriceSeries) DateKeys() []string {
	keys := make([]string, len(s.Bars))
	for i, b := range s.Bars {
		keys[i] = b.DateKey()
	}
	return keys
}

// TruncateDay drops the clock part of t and returns the calendar date at midnight UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
