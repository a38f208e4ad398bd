package builtins

import (
	"quantbt/internal/domain"
	"quantbt/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*RSIReversal)(nil)

// RSIReversal trades oscillator reversals: it enters long when the RSI
// crosses back above the oversold level and exits when the RSI falls back
// below the overbought level.
//
// Parameters: period (default 14), oversold (default 30), overbought
// (default 70).
type RSIReversal struct{}

// Name returns "rsi_reversal".
func (RSIReversal) Name() string { return "rsi_reversal" }

// Lookback requires period+1 bars so the previous bar's RSI is available.
func (RSIReversal) Lookback(p domain.Params) int {
	return p.Int("period", 14) + 1
}

// Validate rejects degenerate periods and inverted threshold bands.
func (RSIReversal) Validate(p domain.Params) error {
	period := p.Int("period", 14)
	oversold := p.Num("oversold", 30)
	overbought := p.Num("overbought", 70)
	if period < 2 {
		return &domain.InvalidParameterError{Param: "period", Reason: "must be >= 2"}
	}
	if oversold <= 0 || oversold >= 100 {
		return &domain.InvalidParameterError{Param: "oversold", Reason: "must be in (0, 100)"}
	}
	if overbought <= 0 || overbought >= 100 {
		return &domain.InvalidParameterError{Param: "overbought", Reason: "must be in (0, 100)"}
	}
	if oversold >= overbought {
		return &domain.InvalidParameterError{Param: "oversold", Reason: "must be < overbought"}
	}
	return nil
}

// Signal compares the RSI on the current and previous bar against the bands.
func (RSIReversal) Signal(window []domain.Bar, p domain.Params) domain.Signal {
	period := p.Int("period", 14)
	oversold := p.Num("oversold", 30)
	overbought := p.Num("overbought", 70)

	vals := closes(window)
	last := len(vals) - 1
	if last < period+1 {
		return domain.Signal{Action: domain.ActionHold}
	}

	curr := rsi(vals, period, last)
	prev := rsi(vals, period, last-1)

	// Oversold reversal: RSI crosses back up through the lower band.
	if prev <= oversold && curr > oversold {
		strength := (oversold - prev) / 10
		if strength > 1 {
			strength = 1
		}
		return domain.Signal{Action: domain.ActionEnterLong, Strength: strength}
	}
	// Overbought reversal: RSI crosses back down through the upper band.
	if prev >= overbought && curr < overbought {
		return domain.Signal{Action: domain.ActionExit}
	}
	return domain.Signal{Action: domain.ActionHold}
}
