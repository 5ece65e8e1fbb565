package calculator

import "math"

// MACD holds the three MACD series, index-aligned with the input closes.
type MACD struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// CalculateEMA computes the exponential moving average of values with the given
// span, seeded with the first value: ema[0] = x[0], ema[t] = a*x[t] + (1-a)*ema[t-1]
// where a = 2/(span+1). NaN inputs carry the previous average forward.
func CalculateEMA(values []float64, span int) ([]float64, error) {
	if span <= 0 {
		return nil, ErrInvalidPeriod
	}
	alpha := 2.0 / float64(span+1)
	out := make([]float64, len(values))
	prev := math.NaN()
	for i, v := range values {
		switch {
		case math.IsNaN(v):
		case math.IsNaN(prev):
			prev = v
		default:
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out, nil
}

// CalculateMACD computes the MACD line (fast EMA minus slow EMA), its signal
// EMA, and the histogram between them. All three are defined from the first close.
func CalculateMACD(closes []float64, fast, slow, signal int) (*MACD, error) {
	fastEMA, err := CalculateEMA(closes, fast)
	if err != nil {
		return nil, err
	}
	slowEMA, err := CalculateEMA(closes, slow)
	if err != nil {
		return nil, err
	}
	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = fastEMA[i] - slowEMA[i]
	}
	sig, err := CalculateEMA(line, signal)
	if err != nil {
		return nil, err
	}
	hist := make([]float64, len(closes))
	for i := range closes {
		hist[i] = line[i] - sig[i]
	}
	return &MACD{Line: line, Signal: sig, Histogram: hist}, nil
}
