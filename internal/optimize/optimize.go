// Package optimize runs exhaustive grid searches over strategy parameters,
// scoring each combination with the metrics engine and ranking by a chosen
// objective.
package optimize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"quantbt/internal/backtest"
	"quantbt/internal/domain"
	"quantbt/internal/metrics"
	"quantbt/internal/strategy"
)

// Grid maps parameter names to the candidate values to sweep.
type Grid map[string][]float64

// Combinations expands the grid into the full cartesian product of parameter
// sets. Keys are iterated in sorted order so the expansion is deterministic:
// the last key's values vary fastest. An empty grid yields a single empty
// parameter set; a key with no values yields none.
func (g Grid) Combinations() []domain.Params {
	keys := make([]string, 0, len(g))
	total := 1
	for k, vals := range g {
		keys = append(keys, k)
		total *= len(vals)
	}
	if total == 0 {
		return nil
	}
	sort.Strings(keys)

	combos := make([]domain.Params, 0, total)
	idx := make([]int, len(keys))
	for {
		p := make(domain.Params, len(keys))
		for i, k := range keys {
			p[k] = g[k][idx[i]]
		}
		combos = append(combos, p)

		// Odometer increment, rightmost digit fastest.
		i := len(keys) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(g[keys[i]]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return combos
		}
	}
}

// ParseGrid parses a "k1=v1,v2;k2=v3,v4" string into a Grid.
func ParseGrid(s string) (Grid, error) {
	g := Grid{}
	s = strings.TrimSpace(s)
	if s == "" {
		return g, nil
	}
	for _, axis := range strings.Split(s, ";") {
		kv := strings.SplitN(axis, "=", 2)
		if len(kv) != 2 {
			return nil, &domain.InvalidParameterError{Param: strings.TrimSpace(axis), Reason: "want name=v1,v2,..."}
		}
		key := strings.TrimSpace(kv[0])
		if key == "" {
			return nil, &domain.InvalidParameterError{Param: strings.TrimSpace(axis), Reason: "empty parameter name"}
		}
		var vals []float64
		for _, raw := range strings.Split(kv[1], ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, &domain.InvalidParameterError{Param: key, Reason: fmt.Sprintf("value %q is not numeric", strings.TrimSpace(raw))}
			}
			vals = append(vals, v)
		}
		g[key] = vals
	}
	return g, nil
}

// Objective selects the Report statistic a search ranks by.
type Objective string

const (
	ObjectiveSharpe      Objective = "sharpe_ratio"
	ObjectiveSortino     Objective = "sortino_ratio"
	ObjectiveCalmar      Objective = "calmar_ratio"
	ObjectiveTotalReturn Objective = "total_return"
	ObjectiveProfit      Objective = "profit_factor"
	ObjectiveWinRate     Objective = "win_rate"
)

// Score extracts the objective's value from a report.
func (o Objective) Score(r metrics.Report) float64 {
	switch o {
	case ObjectiveSortino:
		return r.Sortino
	case ObjectiveCalmar:
		return r.Calmar
	case ObjectiveTotalReturn:
		return r.TotalReturn
	case ObjectiveProfit:
		return r.ProfitFactor
	case ObjectiveWinRate:
		return r.WinRate
	default:
		return r.Sharpe
	}
}

// Valid reports whether o names a known objective.
func (o Objective) Valid() bool {
	switch o {
	case ObjectiveSharpe, ObjectiveSortino, ObjectiveCalmar,
		ObjectiveTotalReturn, ObjectiveProfit, ObjectiveWinRate:
		return true
	}
	return false
}

// Result is the outcome of one grid point: the parameter set, its backtest,
// its metrics, and the objective score. Backtest and Report are zero when
// Err is set.
type Result struct {
	Params   domain.Params
	Backtest *domain.BacktestResult
	Report   metrics.Report
	Score    float64
	Err      error
}

// Optimizer sweeps a parameter grid with a fixed worker pool. Each worker
// runs full, independent backtests, so the sweep parallelizes cleanly.
type Optimizer struct {
	sim       *backtest.Simulator
	engine    *metrics.Engine
	objective Objective
	workers   int
	log       *slog.Logger
}

// New creates an Optimizer. workers <= 0 falls back to 1.
func New(sim *backtest.Simulator, engine *metrics.Engine, objective Objective, workers int) (*Optimizer, error) {
	if !objective.Valid() {
		return nil, &domain.InvalidParameterError{Param: "objective", Reason: fmt.Sprintf("unknown objective %q", objective)}
	}
	if workers <= 0 {
		workers = 1
	}
	return &Optimizer{
		sim:       sim,
		engine:    engine,
		objective: objective,
		workers:   workers,
		log:       slog.Default().With("component", "optimizer"),
	}, nil
}

// Stream evaluates every grid combination and delivers results as they
// complete, in no particular order. The channel closes once all combinations
// are done or the context is cancelled. The series is validated once up
// front; a data integrity defect fails the whole sweep.
func (o *Optimizer) Stream(ctx context.Context, series []domain.Bar, strat strategy.Strategy, grid Grid) (<-chan Result, error) {
	if err := domain.ValidateSeries(series); err != nil {
		return nil, err
	}
	combos := grid.Combinations()

	jobs := make(chan domain.Params)
	out := make(chan Result, o.workers)

	var wg sync.WaitGroup
	workers := o.workers
	if workers > len(combos) && len(combos) > 0 {
		workers = len(combos)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for params := range jobs {
				if ctx.Err() != nil {
					return
				}
				res := o.evaluate(series, strat, params)
				select {
				case out <- res:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, params := range combos {
			select {
			case jobs <- params:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(out)
	}()

	return out, nil
}

func (o *Optimizer) evaluate(series []domain.Bar, strat strategy.Strategy, params domain.Params) Result {
	bt, err := o.sim.Run(series, strat, params)
	if err != nil {
		return Result{Params: params, Err: err}
	}
	report := o.engine.Compute(bt)
	return Result{
		Params:   params,
		Backtest: bt,
		Report:   report,
		Score:    o.objective.Score(report),
	}
}

// Run sweeps the grid and returns results ranked by objective score, best
// first, NaN scores last. Combinations rejected by the strategy or short on
// history are kept as skip records (Err set) after the ranked results; any
// other error aborts the sweep.
func (o *Optimizer) Run(ctx context.Context, series []domain.Bar, strat strategy.Strategy, grid Grid) ([]Result, error) {
	stream, err := o.Stream(ctx, series, strat, grid)
	if err != nil {
		return nil, err
	}

	var ranked, skipped []Result
	for res := range stream {
		if res.Err != nil {
			var ipe *domain.InvalidParameterError
			var ide *domain.InsufficientDataError
			if errors.As(res.Err, &ipe) || errors.As(res.Err, &ide) {
				o.log.Warn("skipping combination",
					"params", res.Params.String(),
					"err", res.Err,
				)
				skipped = append(skipped, res)
				continue
			}
			return nil, fmt.Errorf("evaluating %s: %w", res.Params.String(), res.Err)
		}
		ranked = append(ranked, res)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Results arrive in worker-completion order, so ties are broken by the
	// parameter string to keep identical sweeps identically ranked.
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := ranked[i].Score, ranked[j].Score
		switch {
		case math.IsNaN(si) && math.IsNaN(sj):
		case math.IsNaN(si):
			return false
		case math.IsNaN(sj):
			return true
		case si != sj:
			return si > sj
		}
		return ranked[i].Params.String() < ranked[j].Params.String()
	})
	sort.SliceStable(skipped, func(i, j int) bool {
		return skipped[i].Params.String() < skipped[j].Params.String()
	})

	o.log.Info("sweep complete",
		"strategy", strat.Name(),
		"combinations", len(grid.Combinations()),
		"ranked", len(ranked),
		"skipped", len(skipped),
		"objective", string(o.objective),
	)
	return append(ranked, skipped...), nil
}
