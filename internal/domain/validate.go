package domain

import (
	"fmt"
	"math"
)

// ValidateSeries checks a bar series for integrity defects before it enters
// a simulation: strictly increasing timestamps, positive finite prices, and
// OHLC consistency. Returns a *DataIntegrityError naming the first offending
// bar, or nil.
func ValidateSeries(series []Bar) error {
	for i := range series {
		b := &series[i]

		for _, pv := range [4]struct {
			name  string
			value float64
		}{
			{"open", b.Open},
			{"high", b.High},
			{"low", b.Low},
			{"close", b.Close},
		} {
			if math.IsNaN(pv.value) || math.IsInf(pv.value, 0) {
				return &DataIntegrityError{Index: i, Reason: fmt.Sprintf("%s price is not finite", pv.name)}
			}
			if pv.value <= 0 {
				return &DataIntegrityError{Index: i, Reason: fmt.Sprintf("%s price %g is not positive", pv.name, pv.value)}
			}
		}

		if b.High < b.Low {
			return &DataIntegrityError{Index: i, Reason: fmt.Sprintf("high %g below low %g", b.High, b.Low)}
		}
		if b.Open > b.High || b.Open < b.Low {
			return &DataIntegrityError{Index: i, Reason: fmt.Sprintf("open %g outside [low, high]", b.Open)}
		}
		if b.Close > b.High || b.Close < b.Low {
			return &DataIntegrityError{Index: i, Reason: fmt.Sprintf("close %g outside [low, high]", b.Close)}
		}

		if i > 0 && !series[i-1].Timestamp.Before(b.Timestamp) {
			return &DataIntegrityError{Index: i, Reason: "timestamps not strictly increasing"}
		}
	}
	return nil
}
