package builtins

import (
	"quantbt/internal/domain"
	"quantbt/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*Breakout)(nil)

// Breakout enters long when the close breaks above the highest high of the
// trailing channel and exits when it breaks below the lowest low.
//
// Parameters: lookback (default 20), threshold (percent beyond the channel
// edge, default 0).
type Breakout struct{}

// Name returns "breakout".
func (Breakout) Name() string { return "breakout" }

// Lookback requires the channel length in prior bars.
func (Breakout) Lookback(p domain.Params) int {
	return p.Int("lookback", 20)
}

// Validate rejects degenerate channels and negative thresholds.
func (Breakout) Validate(p domain.Params) error {
	if p.Int("lookback", 20) < 1 {
		return &domain.InvalidParameterError{Param: "lookback", Reason: "must be >= 1"}
	}
	if p.Num("threshold", 0) < 0 {
		return &domain.InvalidParameterError{Param: "threshold", Reason: "must be >= 0"}
	}
	return nil
}

// Signal compares the current close against the channel formed by the
// preceding lookback bars (the current bar is excluded from the channel).
func (Breakout) Signal(window []domain.Bar, p domain.Params) domain.Signal {
	lookback := p.Int("lookback", 20)
	threshold := p.Num("threshold", 0)

	last := len(window) - 1
	if last < lookback {
		return domain.Signal{Action: domain.ActionHold}
	}

	highest, lowest := window[last-lookback].High, window[last-lookback].Low
	for i := last - lookback + 1; i < last; i++ {
		if window[i].High > highest {
			highest = window[i].High
		}
		if window[i].Low < lowest {
			lowest = window[i].Low
		}
	}

	resistance := highest * (1 + threshold/100)
	support := lowest * (1 - threshold/100)
	close := window[last].Close

	if close > resistance {
		return domain.Signal{Action: domain.ActionEnterLong, Strength: 1}
	}
	if close < support {
		return domain.Signal{Action: domain.ActionExit}
	}
	return domain.Signal{Action: domain.ActionHold}
}
