package builtins

import (
	"quantbt/internal/domain"
	"quantbt/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*EMACross)(nil)

// EMACross implements an exponential moving average crossover strategy.
//
// Parameters: fast_period (default 12), slow_period (default 26).
type EMACross struct{}

// Name returns "ema_crossover".
func (EMACross) Name() string { return "ema_crossover" }

// Lookback requires slow_period bars of history before the first signal.
func (EMACross) Lookback(p domain.Params) int {
	return p.Int("slow_period", 26)
}

// Validate rejects non-positive periods and fast_period >= slow_period.
func (EMACross) Validate(p domain.Params) error {
	fast := p.Int("fast_period", 12)
	slow := p.Int("slow_period", 26)
	if fast < 1 {
		return &domain.InvalidParameterError{Param: "fast_period", Reason: "must be >= 1"}
	}
	if slow < 2 {
		return &domain.InvalidParameterError{Param: "slow_period", Reason: "must be >= 2"}
	}
	if fast >= slow {
		return &domain.InvalidParameterError{Param: "fast_period", Reason: "must be < slow_period"}
	}
	return nil
}

// Signal detects an EMA crossover between the current and previous bar. The
// EMAs are seeded at the first bar of the window, so values are consistent
// from one bar to the next as the window grows.
func (EMACross) Signal(window []domain.Bar, p domain.Params) domain.Signal {
	fast := p.Int("fast_period", 12)
	slow := p.Int("slow_period", 26)

	vals := closes(window)
	last := len(vals) - 1
	if last < slow {
		return domain.Signal{Action: domain.ActionHold}
	}

	fastEMA := emaSeries(vals, fast)
	slowEMA := emaSeries(vals, slow)

	currFast, prevFast := fastEMA[last], fastEMA[last-1]
	currSlow, prevSlow := slowEMA[last], slowEMA[last-1]

	if prevFast <= prevSlow && currFast > currSlow {
		return domain.Signal{Action: domain.ActionEnterLong, Strength: 1}
	}
	if prevFast >= prevSlow && currFast < currSlow {
		return domain.Signal{Action: domain.ActionExit}
	}
	return domain.Signal{Action: domain.ActionHold}
}
