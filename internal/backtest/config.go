package backtest

import "quantbt/internal/domain"

// Config is the execution surface of the simulator: capital, costs, sizing,
// and default risk exits. All rates are fractions (0.001 = 0.1%).
type Config struct {
	InitialCapital      float64
	CommissionRate      float64 // charged on notional, both entry and exit
	SlippageRate        float64 // adverse fill adjustment, both entry and exit
	MaxPositionFraction float64 // fraction of equity committed per entry

	// Default risk exits as price-distance fractions off the entry fill,
	// applied when a strategy signal carries no explicit levels. 0 disables.
	StopLossPct   float64
	TakeProfitPct float64

	// TakeProfitFirst flips the same-bar tie-break between a stop-loss and a
	// take-profit. The default (false) resolves the stop first: protecting
	// capital takes priority.
	TakeProfitFirst bool
}

// DefaultConfig mirrors the conventional cost assumptions for daily-bar
// crypto/equity backtests: 0.1% commission, 0.05% slippage, 95% sizing.
func DefaultConfig() Config {
	return Config{
		InitialCapital:      10000,
		CommissionRate:      0.001,
		SlippageRate:        0.0005,
		MaxPositionFraction: 0.95,
	}
}

// Validate checks the configuration at run start and returns a
// *domain.InvalidParameterError for the first out-of-range value.
func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return &domain.InvalidParameterError{Param: "initial_capital", Reason: "must be > 0"}
	}
	if c.CommissionRate < 0 {
		return &domain.InvalidParameterError{Param: "commission_rate", Reason: "must be >= 0"}
	}
	if c.SlippageRate < 0 {
		return &domain.InvalidParameterError{Param: "slippage_rate", Reason: "must be >= 0"}
	}
	if c.MaxPositionFraction <= 0 || c.MaxPositionFraction > 1 {
		return &domain.InvalidParameterError{Param: "max_position_fraction", Reason: "must be in (0, 1]"}
	}
	if c.StopLossPct < 0 {
		return &domain.InvalidParameterError{Param: "stop_loss_pct", Reason: "must be >= 0"}
	}
	if c.TakeProfitPct < 0 {
		return &domain.InvalidParameterError{Param: "take_profit_pct", Reason: "must be >= 0"}
	}
	return nil
}
