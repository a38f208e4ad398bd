// Package backtest implements the execution simulator: a deterministic
// bar-by-bar replay of a price series against a strategy, producing a trade
// ledger and an equity curve.
package backtest

import (
	"log/slog"
	"math"
	"time"

	"quantbt/internal/domain"
	"quantbt/internal/strategy"
)

// Simulator replays historical bars through a strategy under a fixed cost
// model. A Simulator carries no per-run state; Run may be called repeatedly
// and concurrently.
type Simulator struct {
	cfg Config
	log *slog.Logger
}

// NewSimulator creates a Simulator with the given execution config.
func NewSimulator(cfg Config) *Simulator {
	return &Simulator{
		cfg: cfg,
		log: slog.Default().With("component", "simulator"),
	}
}

// position extends domain.Position with the private bookkeeping needed to
// settle costs exactly on close. Position.EntryPrice holds the
// slippage-adjusted fill; rawEntry keeps the unadjusted reference price.
type position struct {
	domain.Position
	rawEntry   float64 // reference price before slippage
	commission float64 // entry leg
	slippage   float64 // entry leg
	collateral float64 // notional held aside (shorts)
}

// runState is the mutable fold state of one simulation: cash, the open
// position, and the accumulating ledger and equity curve.
type runState struct {
	cash   float64
	pos    position
	trades []domain.Trade
	equity []domain.EquityPoint
}

// Run replays series through strat with the given parameters and returns the
// completed result. The series must be ordered and integrity-clean; the
// strategy sees only bars up to and including the current index. Identical
// inputs always produce an identical result.
func (s *Simulator) Run(series []domain.Bar, strat strategy.Strategy, params domain.Params) (*domain.BacktestResult, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := strat.Validate(params); err != nil {
		return nil, err
	}
	if err := domain.ValidateSeries(series); err != nil {
		return nil, err
	}

	lookback := strat.Lookback(params)
	if lookback < 0 {
		lookback = 0
	}
	if required := lookback + 1; len(series) < required {
		return nil, &domain.InsufficientDataError{Required: required, Available: len(series)}
	}

	st := &runState{
		cash:   s.cfg.InitialCapital,
		equity: make([]domain.EquityPoint, 0, len(series)),
	}

	// The account is flat until the strategy's lookback is satisfied; mark
	// those bars at initial capital so the curve has one point per bar.
	for i := 0; i < lookback; i++ {
		st.equity = append(st.equity, domain.EquityPoint{
			Timestamp: series[i].Timestamp,
			Equity:    st.cash,
		})
	}

	for i := lookback; i < len(series); i++ {
		bar := &series[i]

		// 1. Risk exits take precedence over new signals.
		forcedExit := false
		if st.pos.Open() {
			if level, reason := s.riskExit(&st.pos, bar); reason != "" {
				s.closePosition(st, level, bar.Timestamp, reason)
				forcedExit = true
			}
		}

		// 2. Query the strategy with the trailing window only. Entries on
		// the final bar are suppressed: they could never be held and would
		// be force-closed at the same timestamp.
		if !forcedExit {
			lastBar := i == len(series)-1
			sig := strat.Signal(series[:i+1], params)
			switch sig.Action {
			case domain.ActionEnterLong:
				if !st.pos.Open() && !lastBar {
					s.openPosition(st, domain.DirectionLong, bar, sig)
				}
			case domain.ActionEnterShort:
				if !st.pos.Open() && !lastBar {
					s.openPosition(st, domain.DirectionShort, bar, sig)
				}
			case domain.ActionExit:
				if st.pos.Open() {
					s.closePosition(st, bar.Close, bar.Timestamp, domain.ExitSignal)
				}
			}
		}

		// 3. Mark to market at the close.
		st.equity = append(st.equity, domain.EquityPoint{
			Timestamp: bar.Timestamp,
			Equity:    s.markToMarket(st, bar.Close),
		})
	}

	// Force-close anything still open on the final bar.
	if st.pos.Open() {
		last := &series[len(series)-1]
		s.closePosition(st, last.Close, last.Timestamp, domain.ExitEndOfData)
		st.equity[len(st.equity)-1].Equity = st.cash
	}

	res := &domain.BacktestResult{
		Strategy:       strat.Name(),
		Symbol:         series[0].Symbol,
		Params:         params.Clone(),
		Start:          series[0].Timestamp,
		End:            series[len(series)-1].Timestamp,
		InitialCapital: s.cfg.InitialCapital,
		FinalCapital:   st.equity[len(st.equity)-1].Equity,
		Trades:         st.trades,
		Equity:         st.equity,
	}

	s.log.Debug("run complete",
		"strategy", strat.Name(),
		"symbol", res.Symbol,
		"bars", len(series),
		"trades", len(res.Trades),
		"final", res.FinalCapital,
	)
	return res, nil
}

// riskExit checks the open position's stop-loss and take-profit against the
// bar's range. When both trigger within the same bar, the stop is resolved
// first unless TakeProfitFirst is set. Returns the breached level and the
// exit reason, or (0, "") when neither triggered.
func (s *Simulator) riskExit(pos *position, bar *domain.Bar) (float64, domain.ExitReason) {
	var stopHit, tpHit bool
	if pos.Direction == domain.DirectionLong {
		stopHit = pos.StopLoss > 0 && bar.Low <= pos.StopLoss
		tpHit = pos.TakeProfit > 0 && bar.High >= pos.TakeProfit
	} else {
		stopHit = pos.StopLoss > 0 && bar.High >= pos.StopLoss
		tpHit = pos.TakeProfit > 0 && bar.Low <= pos.TakeProfit
	}

	switch {
	case stopHit && tpHit:
		if s.cfg.TakeProfitFirst {
			return pos.TakeProfit, domain.ExitTakeProfit
		}
		return pos.StopLoss, domain.ExitStopLoss
	case stopHit:
		return pos.StopLoss, domain.ExitStopLoss
	case tpHit:
		return pos.TakeProfit, domain.ExitTakeProfit
	}
	return 0, ""
}

// openPosition commits MaxPositionFraction of current equity at the bar's
// close, adjusted adversely for slippage. Longs pay the notional out of
// cash; shorts post it as collateral.
func (s *Simulator) openPosition(st *runState, dir domain.Direction, bar *domain.Bar, sig domain.Signal) {
	raw := bar.Close
	fill := s.entryFill(raw, dir)

	notional := s.cfg.MaxPositionFraction * st.cash
	size := notional / fill
	commission := s.cfg.CommissionRate * notional
	st.cash -= notional + commission

	stop, tp := sig.StopLoss, sig.TakeProfit
	if stop == 0 && s.cfg.StopLossPct > 0 {
		stop = riskLevel(fill, s.cfg.StopLossPct, dir, true)
	}
	if tp == 0 && s.cfg.TakeProfitPct > 0 {
		tp = riskLevel(fill, s.cfg.TakeProfitPct, dir, false)
	}

	st.pos = position{
		Position: domain.Position{
			Direction:  dir,
			EntryPrice: fill,
			EntryTime:  bar.Timestamp,
			Size:       size,
			StopLoss:   stop,
			TakeProfit: tp,
		},
		rawEntry:   raw,
		commission: commission,
		slippage:   size * math.Abs(fill-raw),
		collateral: notional,
	}
}

// closePosition settles the open position at the given reference price,
// applies exit-leg costs, and appends the completed trade to the ledger.
func (s *Simulator) closePosition(st *runState, rawExit float64, ts time.Time, reason domain.ExitReason) {
	pos := &st.pos

	fillExit := s.exitFill(rawExit, pos.Direction)
	exitNotional := pos.Size * fillExit
	exitCommission := s.cfg.CommissionRate * exitNotional
	exitSlippage := pos.Size * math.Abs(fillExit-rawExit)

	if pos.Direction == domain.DirectionLong {
		st.cash += exitNotional - exitCommission
	} else {
		st.cash += pos.collateral + pos.Size*(pos.EntryPrice-fillExit) - exitCommission
	}

	gross := pos.Size * (rawExit - pos.rawEntry)
	if pos.Direction == domain.DirectionShort {
		gross = -gross
	}
	commission := pos.commission + exitCommission
	slippage := pos.slippage + exitSlippage

	st.trades = append(st.trades, domain.Trade{
		EntryTime:  pos.EntryTime,
		ExitTime:   ts,
		Direction:  pos.Direction,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  fillExit,
		Size:       pos.Size,
		GrossPnL:   gross,
		NetPnL:     gross - commission - slippage,
		Commission: commission,
		Slippage:   slippage,
		ExitReason: reason,
	})
	st.pos = position{}
}

// markToMarket values the account at the given close price.
func (s *Simulator) markToMarket(st *runState, price float64) float64 {
	switch st.pos.Direction {
	case domain.DirectionLong:
		return st.cash + st.pos.Size*price
	case domain.DirectionShort:
		return st.cash + st.pos.collateral + st.pos.Size*(st.pos.EntryPrice-price)
	default:
		return st.cash
	}
}

// entryFill applies adverse slippage to an entry: longs buy higher, shorts
// sell lower.
func (s *Simulator) entryFill(raw float64, dir domain.Direction) float64 {
	if dir == domain.DirectionLong {
		return raw * (1 + s.cfg.SlippageRate)
	}
	return raw * (1 - s.cfg.SlippageRate)
}

// exitFill applies adverse slippage to an exit: longs sell lower, shorts buy
// back higher.
func (s *Simulator) exitFill(raw float64, dir domain.Direction) float64 {
	if dir == domain.DirectionLong {
		return raw * (1 - s.cfg.SlippageRate)
	}
	return raw * (1 + s.cfg.SlippageRate)
}

// riskLevel places a stop or target at a fractional distance from the entry
// fill, on the losing or winning side for the given direction.
func riskLevel(fill, pct float64, dir domain.Direction, isStop bool) float64 {
	below := isStop == (dir == domain.DirectionLong)
	if below {
		return fill * (1 - pct)
	}
	return fill * (1 + pct)
}
