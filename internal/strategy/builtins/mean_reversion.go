package builtins

import (
	"quantbt/internal/domain"
	"quantbt/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*MeanReversion)(nil)

// MeanReversion enters long when the close deviates more than z_threshold
// standard deviations below its moving average and exits once the z-score
// crosses back above zero.
//
// Parameters: period (default 20), z_threshold (default 2.0).
type MeanReversion struct{}

// Name returns "mean_reversion".
func (MeanReversion) Name() string { return "mean_reversion" }

// Lookback requires period bars before the first signal.
func (MeanReversion) Lookback(p domain.Params) int {
	return p.Int("period", 20)
}

// Validate rejects degenerate periods and non-positive thresholds.
func (MeanReversion) Validate(p domain.Params) error {
	if p.Int("period", 20) < 2 {
		return &domain.InvalidParameterError{Param: "period", Reason: "must be >= 2"}
	}
	if p.Num("z_threshold", 2.0) <= 0 {
		return &domain.InvalidParameterError{Param: "z_threshold", Reason: "must be > 0"}
	}
	return nil
}

// Signal computes the z-score of the close on the current and previous bar.
func (MeanReversion) Signal(window []domain.Bar, p domain.Params) domain.Signal {
	period := p.Int("period", 20)
	zThreshold := p.Num("z_threshold", 2.0)

	vals := closes(window)
	last := len(vals) - 1
	if last < period {
		return domain.Signal{Action: domain.ActionHold}
	}

	z := func(idx int) float64 {
		dev := stddev(vals, period, idx)
		if dev == 0 {
			return 0
		}
		return (vals[idx] - sma(vals, period, idx)) / dev
	}

	curr, prev := z(last), z(last-1)

	// Deep dip below the mean: buy.
	if curr < -zThreshold && prev >= -zThreshold {
		strength := -curr / 3
		if strength > 1 {
			strength = 1
		}
		return domain.Signal{Action: domain.ActionEnterLong, Strength: strength}
	}
	// Reverted to the mean: sell.
	if curr >= 0 && prev < 0 {
		return domain.Signal{Action: domain.ActionExit}
	}
	return domain.Signal{Action: domain.ActionHold}
}
