package builtins

import (
	"math"

	"quantbt/internal/domain"
)

// Indicator helpers shared by the built-in strategies. All functions operate
// on a slice of close prices taken from the trailing window and never look
// past the index they are asked about.

// closes extracts the close prices from a bar window.
func closes(window []domain.Bar) []float64 {
	vals := make([]float64, len(window))
	for i := range window {
		vals[i] = window[i].Close
	}
	return vals
}

// sma returns the simple moving average of vals over period, ending at idx.
// Requires idx+1 >= period.
func sma(vals []float64, period, idx int) float64 {
	sum := 0.0
	for i := idx - period + 1; i <= idx; i++ {
		sum += vals[i]
	}
	return sum / float64(period)
}

// stddev returns the sample standard deviation of vals over period, ending
// at idx. Requires period >= 2 and idx+1 >= period.
func stddev(vals []float64, period, idx int) float64 {
	mean := sma(vals, period, idx)
	sum := 0.0
	for i := idx - period + 1; i <= idx; i++ {
		d := vals[i] - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(period-1))
}

// emaSeries returns the exponential moving average of vals with the given
// span, seeded at vals[0] with alpha = 2/(span+1).
func emaSeries(vals []float64, span int) []float64 {
	if len(vals) == 0 {
		return nil
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out := make([]float64, len(vals))
	out[0] = vals[0]
	for i := 1; i < len(vals); i++ {
		out[i] = alpha*vals[i] + (1-alpha)*out[i-1]
	}
	return out
}

// rsi returns the relative strength index at idx using a rolling mean of
// gains and losses over the last period deltas. Requires idx >= period.
func rsi(vals []float64, period, idx int) float64 {
	var gain, loss float64
	for i := idx - period + 1; i <= idx; i++ {
		d := vals[i] - vals[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		if gain == 0 {
			return math.NaN()
		}
		return 100
	}
	rs := gain / loss
	return 100 - 100/(1+rs)
}

// roc returns the rate of change in percent between idx-period and idx.
// Requires idx >= period.
func roc(vals []float64, period, idx int) float64 {
	base := vals[idx-period]
	return (vals[idx] - base) / base * 100
}
