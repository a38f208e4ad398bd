package builtins

import (
	"quantbt/internal/domain"
	"quantbt/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*MACD)(nil)

// MACD trades signal-line crossovers of the moving average convergence
// divergence indicator.
//
// Parameters: fast (default 12), slow (default 26), signal (default 9).
type MACD struct{}

// Name returns "macd".
func (MACD) Name() string { return "macd" }

// Lookback requires slow+signal bars before the first signal.
func (MACD) Lookback(p domain.Params) int {
	return p.Int("slow", 26) + p.Int("signal", 9)
}

// Validate rejects non-positive periods and fast >= slow.
func (MACD) Validate(p domain.Params) error {
	fast := p.Int("fast", 12)
	slow := p.Int("slow", 26)
	signal := p.Int("signal", 9)
	if fast < 1 {
		return &domain.InvalidParameterError{Param: "fast", Reason: "must be >= 1"}
	}
	if slow < 2 {
		return &domain.InvalidParameterError{Param: "slow", Reason: "must be >= 2"}
	}
	if signal < 1 {
		return &domain.InvalidParameterError{Param: "signal", Reason: "must be >= 1"}
	}
	if fast >= slow {
		return &domain.InvalidParameterError{Param: "fast", Reason: "must be < slow"}
	}
	return nil
}

// Signal detects the MACD line crossing its signal line.
func (MACD) Signal(window []domain.Bar, p domain.Params) domain.Signal {
	fast := p.Int("fast", 12)
	slow := p.Int("slow", 26)
	signalSpan := p.Int("signal", 9)

	vals := closes(window)
	last := len(vals) - 1
	if last < slow+signalSpan-1 {
		return domain.Signal{Action: domain.ActionHold}
	}

	fastEMA := emaSeries(vals, fast)
	slowEMA := emaSeries(vals, slow)

	macdLine := make([]float64, len(vals))
	for i := range vals {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}
	signalLine := emaSeries(macdLine, signalSpan)

	currMACD, prevMACD := macdLine[last], macdLine[last-1]
	currSig, prevSig := signalLine[last], signalLine[last-1]

	// MACD crosses above its signal line: buy.
	if prevMACD <= prevSig && currMACD > currSig {
		return domain.Signal{Action: domain.ActionEnterLong, Strength: 1}
	}
	// MACD crosses below its signal line: sell.
	if prevMACD >= prevSig && currMACD < currSig {
		return domain.Signal{Action: domain.ActionExit}
	}
	return domain.Signal{Action: domain.ActionHold}
}
