// Package domain defines the core value types shared across the quantbt
// backtesting engine: price bars, strategy signals, positions, trades, and
// backtest results.
package domain

import "time"

// Bar is a single OHLCV observation for a fixed time interval. Bars are
// immutable once ingested; a series is ordered by strictly increasing
// timestamps.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// Action is the kind of instruction a strategy emits for the current bar.
type Action string

const (
	ActionHold       Action = "hold"
	ActionEnterLong  Action = "enter_long"
	ActionEnterShort Action = "enter_short"
	ActionExit       Action = "exit"
)

// Signal is produced by a strategy for a single bar. StopLoss and TakeProfit
// are optional absolute price levels (0 = unset); when set they override the
// simulator's configured default risk exits for the opened position.
type Signal struct {
	Action     Action
	StopLoss   float64
	TakeProfit float64
	Strength   float64 // 0..1, informational
}

// Direction of an open position.
type Direction string

const (
	DirectionFlat  Direction = "flat"
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// Position is the single open position of a simulation run. It is owned and
// mutated exclusively by the simulator.
type Position struct {
	Direction  Direction
	EntryPrice float64
	EntryTime  time.Time
	Size       float64
	StopLoss   float64 // 0 = none
	TakeProfit float64 // 0 = none
}

// Open reports whether the position is currently held.
func (p *Position) Open() bool {
	return p.Direction == DirectionLong || p.Direction == DirectionShort
}

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitSignal     ExitReason = "signal"
	ExitStopLoss   ExitReason = "stop_loss"
	ExitTakeProfit ExitReason = "take_profit"
	ExitEndOfData  ExitReason = "end_of_data"
)

// Trade is one completed open/close cycle. Immutable once created.
// NetPnL = GrossPnL - Commission - Slippage holds exactly: GrossPnL is
// computed at unadjusted reference prices, Slippage is the cost of the
// adverse fill adjustment on both legs, Commission is charged on the filled
// notional of both legs.
type Trade struct {
	EntryTime  time.Time
	ExitTime   time.Time
	Direction  Direction
	EntryPrice float64 // fill price, slippage-adjusted
	ExitPrice  float64 // fill price, slippage-adjusted
	Size       float64
	GrossPnL   float64
	NetPnL     float64
	Commission float64
	Slippage   float64
	ExitReason ExitReason
}

// Duration is the holding time of the trade.
func (t *Trade) Duration() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}

// EquityPoint is one mark-to-market account valuation, one per input bar.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}

// BacktestResult aggregates everything a single simulation run produced.
// It is created once by the simulator and never mutated afterwards.
type BacktestResult struct {
	Strategy       string
	Symbol         string
	Params         Params
	Start          time.Time
	End            time.Time
	InitialCapital float64
	FinalCapital   float64
	Trades         []Trade
	Equity         []EquityPoint
}
