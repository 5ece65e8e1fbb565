package calculator

// CalculateRSI computes the relative strength index of closes using simple
// rolling means of gains and losses (not Wilder smoothing).
//
// The rolling means need only one observation, so the window shrinks at the
// start of the series. The first delta has no prior close and counts as zero,
// which makes the first value 0/0 and therefore NaN. A window with losses of
// zero and positive gains saturates at 100.
func CalculateRSI(closes []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, ErrInvalidPeriod
	}
	n := len(closes)
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else if change < 0 {
			losses[i] = -change
		}
	}

	out := make([]float64, n)
	for i := range closes {
		start := max(0, i-window+1)
		avgGain := mean(gains[start : i+1])
		avgLoss := mean(losses[start : i+1])
		rs := avgGain / avgLoss
		out[i] = 100.0 - 100.0/(1.0+rs)
	}
	return out, nil
}
