// Package strategy defines the Strategy interface for trading strategies and
// provides a Registry for managing multiple strategy implementations.
package strategy

import (
	"sort"

	"quantbt/internal/domain"
)

// Strategy is the interface that all trading strategies must implement.
//
// Implementations are stateless functions of the trailing bar window: they
// retain no state between calls beyond what is derivable from the window
// itself, which keeps the simulator's causality guarantee enforceable by
// construction. Implementations must not mutate the window they are given.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Lookback returns the number of bars that must precede the first bar
	// the strategy can produce a signal for, given the parameter set.
	Lookback(p domain.Params) int

	// Validate checks the parameter set for logical consistency. It returns
	// a *domain.InvalidParameterError describing the first violation, or nil.
	Validate(p domain.Params) error

	// Signal inspects the trailing window — the full series up to and
	// including the current bar — and returns a trading signal for that bar.
	Signal(window []domain.Bar, p domain.Params) domain.Signal
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
