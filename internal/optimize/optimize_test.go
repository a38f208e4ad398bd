package optimize

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"quantbt/internal/backtest"
	"quantbt/internal/domain"
	"quantbt/internal/metrics"
)

func TestGridCombinations(t *testing.T) {
	g := Grid{"a": {1, 2, 3}, "b": {10, 20}}
	combos := g.Combinations()
	if len(combos) != 6 {
		t.Fatalf("got %d combinations, want 6", len(combos))
	}

	want := []domain.Params{
		{"a": 1, "b": 10}, {"a": 1, "b": 20},
		{"a": 2, "b": 10}, {"a": 2, "b": 20},
		{"a": 3, "b": 10}, {"a": 3, "b": 20},
	}
	for i := range want {
		for k, v := range want[i] {
			if combos[i][k] != v {
				t.Errorf("combos[%d] = %v, want %v", i, combos[i], want[i])
				break
			}
		}
	}
}

func TestGridCombinationsEdges(t *testing.T) {
	if got := (Grid{}).Combinations(); len(got) != 1 || len(got[0]) != 0 {
		t.Errorf("empty grid gave %v, want one empty params", got)
	}
	if got := (Grid{"a": nil}).Combinations(); got != nil {
		t.Errorf("grid with empty axis gave %v, want nil", got)
	}
}

func TestParseGrid(t *testing.T) {
	g, err := ParseGrid("fast_period=5,10; slow_period=30,50,100")
	if err != nil {
		t.Fatalf("ParseGrid: %v", err)
	}
	if len(g["fast_period"]) != 2 || g["fast_period"][1] != 10 {
		t.Errorf("fast_period axis = %v", g["fast_period"])
	}
	if len(g["slow_period"]) != 3 || g["slow_period"][2] != 100 {
		t.Errorf("slow_period axis = %v", g["slow_period"])
	}

	if g, err := ParseGrid(""); err != nil || len(g) != 0 {
		t.Errorf("empty grid string gave %v, %v", g, err)
	}
	for _, in := range []string{"period", "period=1,x", "=1,2"} {
		if _, err := ParseGrid(in); err == nil {
			t.Errorf("ParseGrid(%q) should fail", in)
		}
	}
}

func TestObjectiveScore(t *testing.T) {
	r := metrics.Report{
		Sharpe: 1, Sortino: 2, Calmar: 3,
		TotalReturn: 4, ProfitFactor: 5, WinRate: 6,
	}
	tests := []struct {
		o    Objective
		want float64
	}{
		{ObjectiveSharpe, 1}, {ObjectiveSortino, 2}, {ObjectiveCalmar, 3},
		{ObjectiveTotalReturn, 4}, {ObjectiveProfit, 5}, {ObjectiveWinRate, 6},
	}
	for _, tt := range tests {
		if got := tt.o.Score(r); got != tt.want {
			t.Errorf("%s.Score = %v, want %v", tt.o, got, tt.want)
		}
	}
	if Objective("drawdown").Valid() {
		t.Error("unknown objective reported valid")
	}
}

// delayedEntry enters long on the first bar its lookback allows and then
// holds, so smaller periods capture more of an uptrend.
type delayedEntry struct{}

func (delayedEntry) Name() string { return "delayed_entry" }

func (delayedEntry) Lookback(p domain.Params) int {
	return p.Int("period", 5)
}

func (delayedEntry) Validate(p domain.Params) error {
	if p.Int("period", 5) <= 0 {
		return &domain.InvalidParameterError{Param: "period", Reason: "must be > 0"}
	}
	return nil
}

func (s delayedEntry) Signal(window []domain.Bar, p domain.Params) domain.Signal {
	if len(window) == s.Lookback(p)+1 {
		return domain.Signal{Action: domain.ActionEnterLong}
	}
	return domain.Signal{Action: domain.ActionHold}
}

func trendBars(n int) []domain.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = domain.Bar{
			Symbol:    "TEST",
			Timestamp: base.AddDate(0, 0, i),
			Open:      c,
			High:      c + 0.5,
			Low:       c - 0.5,
			Close:     c,
			Volume:    1,
		}
	}
	return bars
}

func newOptimizer(t *testing.T, objective Objective, workers int) *Optimizer {
	t.Helper()
	engine, err := metrics.NewEngine(252, 0, 0.95)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	opt, err := New(backtest.NewSimulator(backtest.DefaultConfig()), engine, objective, workers)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return opt
}

func TestRunRanksByObjective(t *testing.T) {
	opt := newOptimizer(t, ObjectiveTotalReturn, 4)
	grid := Grid{"period": {5, 10, 20}}

	ranked, err := opt.Run(context.Background(), trendBars(60), delayedEntry{}, grid)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(ranked) != 3 {
		t.Fatalf("got %d results, want 3", len(ranked))
	}

	// Earlier entry rides more of the uptrend.
	if got := ranked[0].Params.Int("period", 0); got != 5 {
		t.Errorf("best period = %d, want 5", got)
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Errorf("ranking not descending at %d: %v > %v", i, ranked[i].Score, ranked[i-1].Score)
		}
	}
	for _, res := range ranked {
		if res.Err != nil {
			t.Errorf("ranked result carries error: %v", res.Err)
		}
		if res.Backtest == nil {
			t.Error("ranked result missing backtest")
		}
	}
}

func TestRunSkipsRejectedCombinations(t *testing.T) {
	opt := newOptimizer(t, ObjectiveSharpe, 2)

	// period 0 fails validation, period 100 exceeds the 60-bar history.
	grid := Grid{"period": {0, 5, 100}}
	results, err := opt.Run(context.Background(), trendBars(60), delayedEntry{}, grid)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Err != nil || results[0].Params.Int("period", 0) != 5 {
		t.Errorf("first result = %+v, want ranked period 5", results[0])
	}
	for _, res := range results[1:] {
		if res.Err == nil {
			t.Errorf("skip record for %v carries no error", res.Params)
		}
	}

	var ipe *domain.InvalidParameterError
	var ide *domain.InsufficientDataError
	if !errors.As(results[1].Err, &ipe) && !errors.As(results[1].Err, &ide) {
		t.Errorf("skip record error = %v, want typed skip reason", results[1].Err)
	}
}

func TestStreamRejectsCorruptSeries(t *testing.T) {
	opt := newOptimizer(t, ObjectiveSharpe, 2)

	series := trendBars(60)
	series[10].Close = math.NaN()

	var die *domain.DataIntegrityError
	_, err := opt.Stream(context.Background(), series, delayedEntry{}, Grid{"period": {5}})
	if !errors.As(err, &die) {
		t.Fatalf("corrupt series gave %v, want DataIntegrityError", err)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	opt := newOptimizer(t, ObjectiveSharpe, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := opt.Run(ctx, trendBars(60), delayedEntry{}, Grid{"period": {5, 10}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled run gave %v, want context.Canceled", err)
	}
}

func TestRunBreaksScoreTiesByParams(t *testing.T) {
	// The noise axis never reaches the strategy's arithmetic, so every
	// combination scores identically and only the tie-break orders them.
	grid := Grid{"period": {5}, "noise": {3, 1, 2, 4}}
	series := trendBars(60)

	want := []string{
		"noise=1, period=5", "noise=2, period=5",
		"noise=3, period=5", "noise=4, period=5",
	}
	for _, workers := range []int{1, 8} {
		ranked, err := newOptimizer(t, ObjectiveTotalReturn, workers).Run(context.Background(), series, delayedEntry{}, grid)
		if err != nil {
			t.Fatalf("Run(%d workers): %v", workers, err)
		}
		if len(ranked) != len(want) {
			t.Fatalf("got %d results, want %d", len(ranked), len(want))
		}
		for i, res := range ranked {
			if got := res.Params.String(); got != want[i] {
				t.Errorf("workers=%d rank %d = %q, want %q", workers, i, got, want[i])
			}
		}
	}
}

func TestRunIsDeterministicAcrossWorkerCounts(t *testing.T) {
	grid := Grid{"period": {5, 8, 12, 20}}
	series := trendBars(80)

	one, err := newOptimizer(t, ObjectiveTotalReturn, 1).Run(context.Background(), series, delayedEntry{}, grid)
	if err != nil {
		t.Fatalf("Run(1 worker): %v", err)
	}
	many, err := newOptimizer(t, ObjectiveTotalReturn, 8).Run(context.Background(), series, delayedEntry{}, grid)
	if err != nil {
		t.Fatalf("Run(8 workers): %v", err)
	}

	if len(one) != len(many) {
		t.Fatalf("result counts differ: %d vs %d", len(one), len(many))
	}
	for i := range one {
		if one[i].Params.Int("period", -1) != many[i].Params.Int("period", -1) {
			t.Errorf("rank %d differs: %v vs %v", i, one[i].Params, many[i].Params)
		}
		if one[i].Score != many[i].Score {
			t.Errorf("score at rank %d differs: %v vs %v", i, one[i].Score, many[i].Score)
		}
	}
}
