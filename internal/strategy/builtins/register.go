package builtins

import "quantbt/internal/strategy"

// DefaultRegistry returns a Registry populated with every built-in strategy.
func DefaultRegistry() *strategy.Registry {
	r := strategy.NewRegistry()
	r.Register(SMACross{})
	r.Register(EMACross{})
	r.Register(RSIReversal{})
	r.Register(MACD{})
	r.Register(Bollinger{})
	r.Register(Breakout{})
	r.Register(MeanReversion{})
	r.Register(Momentum{})
	return r
}
