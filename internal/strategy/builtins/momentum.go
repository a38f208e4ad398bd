package builtins

import (
	"quantbt/internal/domain"
	"quantbt/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*Momentum)(nil)

// Momentum is a rate-of-change strategy: it enters long when the ROC rises
// through the threshold and exits when momentum turns negative.
//
// Parameters: period (default 14), threshold (percent change, default 5.0).
type Momentum struct{}

// Name returns "momentum".
func (Momentum) Name() string { return "momentum" }

// Lookback requires period+1 bars so the previous bar's ROC is available.
func (Momentum) Lookback(p domain.Params) int {
	return p.Int("period", 14) + 1
}

// Validate rejects degenerate periods.
func (Momentum) Validate(p domain.Params) error {
	if p.Int("period", 14) < 1 {
		return &domain.InvalidParameterError{Param: "period", Reason: "must be >= 1"}
	}
	return nil
}

// Signal compares the rate of change on the current and previous bar.
func (Momentum) Signal(window []domain.Bar, p domain.Params) domain.Signal {
	period := p.Int("period", 14)
	threshold := p.Num("threshold", 5.0)

	vals := closes(window)
	last := len(vals) - 1
	if last < period+1 {
		return domain.Signal{Action: domain.ActionHold}
	}

	curr := roc(vals, period, last)
	prev := roc(vals, period, last-1)

	// Momentum rises through the threshold: buy.
	if prev <= threshold && curr > threshold {
		return domain.Signal{Action: domain.ActionEnterLong, Strength: 1}
	}
	// Momentum turns negative: sell.
	if prev >= 0 && curr < 0 {
		return domain.Signal{Action: domain.ActionExit}
	}
	return domain.Signal{Action: domain.ActionHold}
}
