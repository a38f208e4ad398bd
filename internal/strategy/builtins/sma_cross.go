// Package builtins provides the built-in strategy implementations that ship
// with quantbt. Every strategy is a stateless function of the trailing bar
// window and its parameter set.
package builtins

import (
	"quantbt/internal/domain"
	"quantbt/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACross implements a simple moving average crossover strategy. It signals
// a long entry when the fast SMA crosses above the slow SMA (golden cross)
// and an exit when it crosses back below (death cross).
//
// Parameters: fast_period (default 20), slow_period (default 50).
type SMACross struct{}

// Name returns "sma_crossover".
func (SMACross) Name() string { return "sma_crossover" }

// Lookback requires slow_period bars of history before the first signal.
func (SMACross) Lookback(p domain.Params) int {
	return p.Int("slow_period", 50)
}

// Validate rejects non-positive periods and fast_period >= slow_period.
func (SMACross) Validate(p domain.Params) error {
	fast := p.Int("fast_period", 20)
	slow := p.Int("slow_period", 50)
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

// Signal detects a crossover between the current and previous bar.
func (SMACross) Signal(window []domain.Bar, p domain.Params) domain.Signal {
	fast := p.Int("fast_period", 20)
	slow := p.Int("slow_period", 50)

	vals := closes(window)
	last := len(vals) - 1
	if last < slow {
		return domain.Signal{Action: domain.ActionHold}
	}

	currFast, prevFast := sma(vals, fast, last), sma(vals, fast, last-1)
	currSlow, prevSlow := sma(vals, slow, last), sma(vals, slow, last-1)

	// Golden cross: fast crosses above slow.
	if prevFast <= prevSlow && currFast > currSlow {
		return domain.Signal{Action: domain.ActionEnterLong, Strength: 1}
	}
	// Death cross: fast crosses below slow.
	if prevFast >= prevSlow && currFast < currSlow {
		return domain.Signal{Action: domain.ActionExit}
	}
	return domain.Signal{Action: domain.ActionHold}
}
