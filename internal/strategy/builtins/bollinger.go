package builtins

import (
	"quantbt/internal/domain"
	"quantbt/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*Bollinger)(nil)

// Bollinger is a volatility-band mean reversion strategy: it enters long
// when the close crosses below the lower band and exits when it crosses
// above the upper band.
//
// Parameters: period (default 20), std_dev (default 2.0).
type Bollinger struct{}

// Name returns "bollinger_bands".
func (Bollinger) Name() string { return "bollinger_bands" }

// Lookback requires period bars before the first signal.
func (Bollinger) Lookback(p domain.Params) int {
	return p.Int("period", 20)
}

// Validate rejects degenerate periods and non-positive band widths.
func (Bollinger) Validate(p domain.Params) error {
	if p.Int("period", 20) < 2 {
		return &domain.InvalidParameterError{Param: "period", Reason: "must be >= 2"}
	}
	if p.Num("std_dev", 2.0) <= 0 {
		return &domain.InvalidParameterError{Param: "std_dev", Reason: "must be > 0"}
	}
	return nil
}

// Signal compares the close against the bands on the current and previous bar.
func (Bollinger) Signal(window []domain.Bar, p domain.Params) domain.Signal {
	period := p.Int("period", 20)
	width := p.Num("std_dev", 2.0)

	vals := closes(window)
	last := len(vals) - 1
	if last < period {
		return domain.Signal{Action: domain.ActionHold}
	}

	band := func(idx int) (lower, upper float64) {
		mid := sma(vals, period, idx)
		dev := stddev(vals, period, idx) * width
		return mid - dev, mid + dev
	}

	currLower, currUpper := band(last)
	prevLower, prevUpper := band(last - 1)

	// Close crosses below the lower band: buy the dip.
	if vals[last-1] >= prevLower && vals[last] < currLower {
		return domain.Signal{Action: domain.ActionEnterLong, Strength: 1}
	}
	// Close crosses above the upper band: take the stretch off.
	if vals[last-1] <= prevUpper && vals[last] > currUpper {
		return domain.Signal{Action: domain.ActionExit}
	}
	return domain.Signal{Action: domain.ActionHold}
}
