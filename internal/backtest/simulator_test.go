package backtest

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"quantbt/internal/domain"
	"quantbt/internal/strategy/builtins"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func flatBars(n int, price float64) []domain.Bar {
	bars := make([]domain.Bar, n)
	for i := range bars {
		bars[i] = domain.Bar{
			Symbol: "TEST", Timestamp: day(i),
			Open: price, High: price, Low: price, Close: price, Volume: 1,
		}
	}
	return bars
}

func trendBars(n int, start, step float64) []domain.Bar {
	bars := make([]domain.Bar, n)
	for i := range bars {
		c := start + step*float64(i)
		bars[i] = domain.Bar{
			Symbol: "TEST", Timestamp: day(i),
			Open: c, High: c, Low: c, Close: c, Volume: 1,
		}
	}
	return bars
}

// enterHold enters on the very first bar and never signals again; optional
// stop/take-profit levels are attached to the entry signal.
type enterHold struct {
	direction domain.Direction
	stop      float64
	takeProf  float64
}

func (s enterHold) Name() string                   { return "enter-hold" }
func (s enterHold) Lookback(_ domain.Params) int   { return 0 }
func (s enterHold) Validate(_ domain.Params) error { return nil }
func (s enterHold) Signal(window []domain.Bar, _ domain.Params) domain.Signal {
	if len(window) == 1 {
		action := domain.ActionEnterLong
		if s.direction == domain.DirectionShort {
			action = domain.ActionEnterShort
		}
		return domain.Signal{Action: action, StopLoss: s.stop, TakeProfit: s.takeProf}
	}
	return domain.Signal{Action: domain.ActionHold}
}

// lastBarEntry signals an entry only once it can see the whole series.
type lastBarEntry struct{ total int }

func (s lastBarEntry) Name() string                   { return "last-bar-entry" }
func (s lastBarEntry) Lookback(_ domain.Params) int   { return 0 }
func (s lastBarEntry) Validate(_ domain.Params) error { return nil }
func (s lastBarEntry) Signal(window []domain.Bar, _ domain.Params) domain.Signal {
	if len(window) == s.total {
		return domain.Signal{Action: domain.ActionEnterLong}
	}
	return domain.Signal{Action: domain.ActionHold}
}

// enterThenExit enters on the first bar and signals an exit at bar exitAt.
type enterThenExit struct{ exitAt int }

func (s enterThenExit) Name() string                   { return "enter-then-exit" }
func (s enterThenExit) Lookback(_ domain.Params) int   { return 0 }
func (s enterThenExit) Validate(_ domain.Params) error { return nil }
func (s enterThenExit) Signal(window []domain.Bar, _ domain.Params) domain.Signal {
	switch len(window) - 1 {
	case 0:
		return domain.Signal{Action: domain.ActionEnterLong}
	case s.exitAt:
		return domain.Signal{Action: domain.ActionExit}
	}
	return domain.Signal{Action: domain.ActionHold}
}

func TestFlatSeriesYieldsNoTrades(t *testing.T) {
	sim := NewSimulator(DefaultConfig())
	series := flatBars(100, 100)

	res, err := sim.Run(series, builtins.SMACross{}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Trades) != 0 {
		t.Errorf("flat series produced %d trades, want 0", len(res.Trades))
	}
	if len(res.Equity) != len(series) {
		t.Errorf("equity curve has %d points, want %d", len(res.Equity), len(series))
	}
	if res.FinalCapital != res.InitialCapital {
		t.Errorf("final capital %g, want %g (zero return)", res.FinalCapital, res.InitialCapital)
	}
	for i, ep := range res.Equity {
		if ep.Equity != res.InitialCapital {
			t.Fatalf("equity[%d] = %g, want flat at %g", i, ep.Equity, res.InitialCapital)
		}
	}
}

func TestTrendFollowingClosesAtEndOfData(t *testing.T) {
	sim := NewSimulator(DefaultConfig())
	series := trendBars(30, 100, 1) // strictly increasing

	res, err := sim.Run(series, enterHold{direction: domain.DirectionLong}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Trades) != 1 {
		t.Fatalf("got %d trades, want exactly 1", len(res.Trades))
	}
	tr := res.Trades[0]
	if tr.ExitReason != domain.ExitEndOfData {
		t.Errorf("exit reason %q, want end_of_data", tr.ExitReason)
	}
	if tr.NetPnL <= 0 {
		t.Errorf("net pnl %g, want > 0 on a rising series", tr.NetPnL)
	}
	if tr.NetPnL >= tr.GrossPnL {
		t.Errorf("net pnl %g not reduced below gross %g by costs", tr.NetPnL, tr.GrossPnL)
	}
	if res.FinalCapital <= res.InitialCapital {
		t.Errorf("final capital %g did not grow from %g", res.FinalCapital, res.InitialCapital)
	}
}

func TestStopLossExitsAtLevel(t *testing.T) {
	cfg := DefaultConfig()
	sim := NewSimulator(cfg)

	series := flatBars(5, 100)
	// Bar 3 spikes down through the stop but closes well above it.
	series[3].Low = 90
	series[3].Open = 99
	series[3].Close = 99
	series[3].High = 100

	res, err := sim.Run(series, enterHold{direction: domain.DirectionLong, stop: 95}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(res.Trades))
	}
	tr := res.Trades[0]
	if tr.ExitReason != domain.ExitStopLoss {
		t.Fatalf("exit reason %q, want stop_loss", tr.ExitReason)
	}
	wantFill := 95 * (1 - cfg.SlippageRate)
	if math.Abs(tr.ExitPrice-wantFill) > 1e-12 {
		t.Errorf("exit fill %g, want stop level adjusted for slippage %g", tr.ExitPrice, wantFill)
	}
}

func TestStopBeatsTakeProfitByDefault(t *testing.T) {
	series := flatBars(3, 100)
	// Bar 1 sweeps both levels.
	series[1].Low = 90
	series[1].High = 110
	series[1].Open = 100
	series[1].Close = 100

	strat := enterHold{direction: domain.DirectionLong, stop: 95, takeProf: 105}

	res, err := NewSimulator(DefaultConfig()).Run(series, strat, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := res.Trades[0].ExitReason; got != domain.ExitStopLoss {
		t.Errorf("default tie-break exited with %q, want stop_loss", got)
	}

	cfg := DefaultConfig()
	cfg.TakeProfitFirst = true
	res, err = NewSimulator(cfg).Run(series, strat, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := res.Trades[0].ExitReason; got != domain.ExitTakeProfit {
		t.Errorf("TakeProfitFirst tie-break exited with %q, want take_profit", got)
	}
}

func TestSignalExitClosesAtClose(t *testing.T) {
	sim := NewSimulator(DefaultConfig())
	series := trendBars(10, 100, 1)

	res, err := sim.Run(series, enterThenExit{exitAt: 5}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(res.Trades))
	}
	tr := res.Trades[0]
	if tr.ExitReason != domain.ExitSignal {
		t.Errorf("exit reason %q, want signal", tr.ExitReason)
	}
	if !tr.ExitTime.Equal(day(5)) {
		t.Errorf("exit at %v, want bar 5", tr.ExitTime)
	}
}

func TestShortSideProfitsOnDecline(t *testing.T) {
	sim := NewSimulator(DefaultConfig())
	series := trendBars(30, 200, -2) // strictly decreasing

	res, err := sim.Run(series, enterHold{direction: domain.DirectionShort}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(res.Trades))
	}
	tr := res.Trades[0]
	if tr.Direction != domain.DirectionShort {
		t.Fatalf("direction %q, want short", tr.Direction)
	}
	if tr.NetPnL <= 0 {
		t.Errorf("short net pnl %g on a falling series, want > 0", tr.NetPnL)
	}
	if res.FinalCapital <= res.InitialCapital {
		t.Errorf("final capital %g did not grow from %g", res.FinalCapital, res.InitialCapital)
	}
}

func TestEntryOnFinalBarIsSuppressed(t *testing.T) {
	series := trendBars(10, 100, 1)

	res, err := NewSimulator(DefaultConfig()).Run(series, lastBarEntry{total: len(series)}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// A position opened on the last bar would be force-closed at the same
	// timestamp; the entry must not happen at all.
	if len(res.Trades) != 0 {
		t.Fatalf("final-bar entry produced %d trades, want 0", len(res.Trades))
	}
	if res.FinalCapital != res.InitialCapital {
		t.Errorf("final capital %g, want untouched %g", res.FinalCapital, res.InitialCapital)
	}
	if last := res.Equity[len(res.Equity)-1].Equity; last != res.InitialCapital {
		t.Errorf("last equity point %g, want %g", last, res.InitialCapital)
	}
}

func TestShortAdverseMoveMarksEquityNegative(t *testing.T) {
	// Price quadruples against an open short. No margin model backs the
	// position, so the marked account goes below zero and stays there
	// through the end-of-data settlement.
	series := flatBars(6, 100)
	for i := 2; i < len(series); i++ {
		series[i].Open, series[i].High, series[i].Low, series[i].Close = 400, 400, 400, 400
	}

	res, err := NewSimulator(DefaultConfig()).Run(series, enterHold{direction: domain.DirectionShort}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(res.Trades))
	}
	if got := res.Trades[0].ExitReason; got != domain.ExitEndOfData {
		t.Errorf("exit reason %q, want end_of_data", got)
	}
	if res.Trades[0].NetPnL >= 0 {
		t.Errorf("net pnl %g on a tripled short, want < 0", res.Trades[0].NetPnL)
	}

	minEquity := res.Equity[0].Equity
	for _, ep := range res.Equity {
		if ep.Equity < minEquity {
			minEquity = ep.Equity
		}
	}
	if minEquity >= 0 {
		t.Errorf("minimum equity %g, want < 0 without a margin floor", minEquity)
	}
	if res.FinalCapital >= 0 {
		t.Errorf("final capital %g, want < 0", res.FinalCapital)
	}
}

func TestTradeInvariants(t *testing.T) {
	// A zigzag series drives the SMA cross through several full cycles.
	closes := []float64{
		100, 100, 100, 105, 112, 120, 118, 110, 100, 95,
		100, 108, 115, 112, 104, 98, 102, 110, 118, 112,
	}
	series := make([]domain.Bar, len(closes))
	for i, c := range closes {
		series[i] = domain.Bar{
			Symbol: "TEST", Timestamp: day(i),
			Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1,
		}
	}

	params := domain.Params{"fast_period": 2, "slow_period": 3}
	res, err := NewSimulator(DefaultConfig()).Run(series, builtins.SMACross{}, params)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) == 0 {
		t.Fatal("zigzag series produced no trades")
	}
	if len(res.Equity) != len(series) {
		t.Errorf("equity curve has %d points, want %d", len(res.Equity), len(series))
	}

	for i, tr := range res.Trades {
		if !tr.ExitTime.After(tr.EntryTime) {
			t.Errorf("trade %d: exit %v not after entry %v", i, tr.ExitTime, tr.EntryTime)
		}
		identity := tr.GrossPnL - tr.Commission - tr.Slippage
		if math.Abs(tr.NetPnL-identity) > 1e-9 {
			t.Errorf("trade %d: net %g != gross - commission - slippage %g", i, tr.NetPnL, identity)
		}
		// Chronological ledger, no overlapping positions.
		if i > 0 && tr.EntryTime.Before(res.Trades[i-1].ExitTime) {
			t.Errorf("trade %d entered at %v before trade %d exited", i, tr.EntryTime, i-1)
		}
	}
}

func TestRunIsDeterministic(t *testing.T) {
	series := trendBars(40, 100, 0.5)
	params := domain.Params{"fast_period": 2, "slow_period": 3}

	sim := NewSimulator(DefaultConfig())
	a, err := sim.Run(series, builtins.SMACross{}, params)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	b, err := sim.Run(series, builtins.SMACross{}, params)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("identical inputs produced different results")
	}
}

func TestInsufficientData(t *testing.T) {
	sim := NewSimulator(DefaultConfig())

	_, err := sim.Run(flatBars(10, 100), builtins.SMACross{}, nil)
	var ide *domain.InsufficientDataError
	if !errors.As(err, &ide) {
		t.Fatalf("got %v, want *InsufficientDataError", err)
	}
	if ide.Available != 10 || ide.Required != 51 {
		t.Errorf("reported %d/%d, want available 10, required 51", ide.Available, ide.Required)
	}
}

func TestInvalidStrategyParams(t *testing.T) {
	sim := NewSimulator(DefaultConfig())

	_, err := sim.Run(flatBars(100, 100), builtins.SMACross{}, domain.Params{"fast_period": 60, "slow_period": 20})
	var ipe *domain.InvalidParameterError
	if !errors.As(err, &ipe) {
		t.Fatalf("got %v, want *InvalidParameterError", err)
	}
}

func TestDataIntegritySurfaces(t *testing.T) {
	series := flatBars(100, 100)
	series[40].Close = math.NaN()

	_, err := NewSimulator(DefaultConfig()).Run(series, builtins.SMACross{}, nil)
	var die *domain.DataIntegrityError
	if !errors.As(err, &die) {
		t.Fatalf("got %v, want *DataIntegrityError", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero capital", func(c *Config) { c.InitialCapital = 0 }},
		{"negative commission", func(c *Config) { c.CommissionRate = -0.001 }},
		{"negative slippage", func(c *Config) { c.SlippageRate = -1 }},
		{"fraction above one", func(c *Config) { c.MaxPositionFraction = 1.5 }},
		{"negative stop", func(c *Config) { c.StopLossPct = -0.1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			_, err := NewSimulator(cfg).Run(flatBars(100, 100), builtins.SMACross{}, nil)
			var ipe *domain.InvalidParameterError
			if !errors.As(err, &ipe) {
				t.Fatalf("got %v, want *InvalidParameterError", err)
			}
		})
	}
}
