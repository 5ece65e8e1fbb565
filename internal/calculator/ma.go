package calculator

import (
	"errors"
	"math"
)

// ErrInvalidPeriod is returned when a window or span is not positive.
var ErrInvalidPeriod = errors.New("period must be positive")

// Bands holds the three Bollinger series, index-aligned with the input closes.
type Bands struct {
	Middle []float64
	Upper  []float64
	Lower  []float64
}

// CalculateSMA computes the trailing simple moving average of closes over window.
// Entries before the window has filled are NaN; no partial averages are produced.
func CalculateSMA(closes []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, ErrInvalidPeriod
	}
	out := nanSeries(len(closes))
	for i := window - 1; i < len(closes); i++ {
		out[i] = mean(closes[i-window+1 : i+1])
	}
	return out, nil
}

// CalculateBollinger computes Bollinger Bands around the SMA of closes.
// The band half-width is numStd times the sample standard deviation (n-1
// denominator) of the trailing window, so a window of 1 yields a middle band
// with undefined upper and lower bands.
func CalculateBollinger(closes []float64, window int, numStd float64) (*Bands, error) {
	middle, err := CalculateSMA(closes, window)
	if err != nil {
		return nil, err
	}
	bands := &Bands{
		Middle: middle,
		Upper:  nanSeries(len(closes)),
		Lower:  nanSeries(len(closes)),
	}
	for i := window - 1; i < len(closes); i++ {
		width := numStd * sampleStdDev(closes[i-window+1:i+1], middle[i])
		bands.Upper[i] = middle[i] + width
		bands.Lower[i] = middle[i] - width
	}
	return bands, nil
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func sampleStdDev(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
