// Package metrics derives standardized return, risk, and trade statistics
// from a completed backtest result.
//
// Undefined quantities (no trades, zero-variance returns) are reported as
// NaN, and a profit factor with no losing trades as +Inf. Callers render
// these sentinels explicitly; they are never silently coerced to zero.
package metrics

import (
	"math"
	"sort"
	"time"

	"quantbt/internal/domain"
)

// Report is the full statistics set computed for one backtest run.
// Percent-scaled fields carry values like -12.5 for -12.5%.
type Report struct {
	// Return metrics.
	TotalReturn float64 // percent
	CAGR        float64 // percent, from elapsed calendar time
	Volatility  float64 // annualized, percent

	// Risk-adjusted ratios.
	Sharpe  float64
	Sortino float64
	Calmar  float64

	// Drawdown and tail risk.
	MaxDrawdown         float64 // percent, <= 0
	MaxDrawdownDuration int     // longest underwater stretch, in bars
	VaR                 float64 // percent, at the configured confidence
	CVaR                float64 // percent
	UlcerIndex          float64

	// Trade statistics.
	TotalTrades          int
	WinRate              float64 // percent
	ProfitFactor         float64 // +Inf when there are no losing trades
	AvgWin               float64
	AvgLoss              float64
	Expectancy           float64 // mean net pnl per trade
	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	AvgTradeDuration     time.Duration
}

// Engine computes Reports under a fixed annualization and tail-risk
// configuration.
type Engine struct {
	periodsPerYear float64
	riskFreeRate   float64 // annual, fraction
	confidence     float64 // VaR/CVaR confidence, in (0, 1)
}

// NewEngine creates a metrics Engine. periodsPerYear is the number of bars
// in a calendar year (252 for daily equity bars, 365 for daily crypto).
func NewEngine(periodsPerYear, riskFreeRate, confidence float64) (*Engine, error) {
	if periodsPerYear <= 0 {
		return nil, &domain.InvalidParameterError{Param: "periods_per_year", Reason: "must be > 0"}
	}
	if confidence <= 0 || confidence >= 1 {
		return nil, &domain.InvalidParameterError{Param: "confidence", Reason: "must be in (0, 1)"}
	}
	return &Engine{
		periodsPerYear: periodsPerYear,
		riskFreeRate:   riskFreeRate,
		confidence:     confidence,
	}, nil
}

// Compute derives the full Report from a backtest result. The result is
// read-only; Compute never mutates it.
func (e *Engine) Compute(res *domain.BacktestResult) Report {
	rets := periodicReturns(res.Equity)
	years := res.End.Sub(res.Start).Hours() / 24 / 365.25

	r := Report{
		TotalReturn: (res.FinalCapital - res.InitialCapital) / res.InitialCapital * 100,
		CAGR:        cagr(res.InitialCapital, res.FinalCapital, years),
		Volatility:  std(rets) * math.Sqrt(e.periodsPerYear) * 100,
		Sharpe:      e.sharpe(rets),
		Sortino:     e.sortino(rets),
		VaR:         quantile(rets, 1-e.confidence) * 100,
		UlcerIndex:  ulcerIndex(res.Equity),
	}
	r.CVaR = cvar(rets, r.VaR/100) * 100
	r.MaxDrawdown, r.MaxDrawdownDuration = maxDrawdown(res.Equity)
	r.Calmar = calmar(r.CAGR, r.MaxDrawdown)

	e.tradeStats(&r, res.Trades)
	return r
}

// periodicReturns converts the equity curve into simple per-bar returns.
func periodicReturns(equity []domain.EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	rets := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev == 0 {
			continue
		}
		rets = append(rets, (equity[i].Equity-prev)/prev)
	}
	return rets
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// std is the sample standard deviation.
func std(vals []float64) float64 {
	if len(vals) < 2 {
		return math.NaN()
	}
	m := mean(vals)
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}

func cagr(initial, final, years float64) float64 {
	if years <= 0 || initial <= 0 || final <= 0 {
		return math.NaN()
	}
	return (math.Pow(final/initial, 1/years) - 1) * 100
}

func (e *Engine) sharpe(rets []float64) float64 {
	sd := std(rets)
	if math.IsNaN(sd) || sd == 0 {
		return math.NaN()
	}
	annualReturn := mean(rets) * e.periodsPerYear
	annualVol := sd * math.Sqrt(e.periodsPerYear)
	return (annualReturn - e.riskFreeRate) / annualVol
}

func (e *Engine) sortino(rets []float64) float64 {
	if len(rets) < 2 {
		return math.NaN()
	}
	var downside []float64
	for _, r := range rets {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	dsd := std(downside)
	if len(downside) == 0 || math.IsNaN(dsd) || dsd == 0 {
		if mean(rets) > 0 {
			return math.Inf(1)
		}
		return math.NaN()
	}
	annualReturn := mean(rets) * e.periodsPerYear
	downsideVol := dsd * math.Sqrt(e.periodsPerYear)
	return (annualReturn - e.riskFreeRate) / downsideVol
}

// maxDrawdown walks the equity curve tracking the running peak. It returns
// the largest peak-to-trough decline (percent, <= 0) and the longest
// underwater stretch in bars.
func maxDrawdown(equity []domain.EquityPoint) (float64, int) {
	if len(equity) < 2 {
		return 0, 0
	}

	peak := equity[0].Equity
	maxDD := 0.0
	maxRun, run := 0, 0

	for _, ep := range equity {
		if ep.Equity > peak {
			peak = ep.Equity
		}
		dd := 0.0
		if peak > 0 {
			dd = (ep.Equity - peak) / peak * 100
		}
		if dd < maxDD {
			maxDD = dd
		}
		if dd < 0 {
			run++
			if run > maxRun {
				maxRun = run
			}
		} else {
			run = 0
		}
	}
	return maxDD, maxRun
}

func calmar(cagrPct, maxDDPct float64) float64 {
	if maxDDPct == 0 || math.IsNaN(cagrPct) {
		return math.NaN()
	}
	return cagrPct / math.Abs(maxDDPct)
}

// quantile returns the q-th empirical quantile (0 <= q <= 1) of vals using
// linear interpolation between order statistics.
func quantile(vals []float64, q float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// cvar is the mean of returns at or below the VaR threshold.
func cvar(rets []float64, varThreshold float64) float64 {
	if len(rets) == 0 || math.IsNaN(varThreshold) {
		return math.NaN()
	}
	var tail []float64
	for _, r := range rets {
		if r <= varThreshold {
			tail = append(tail, r)
		}
	}
	if len(tail) == 0 {
		return varThreshold
	}
	return mean(tail)
}

// ulcerIndex is the root-mean-square of percentage drawdowns.
func ulcerIndex(equity []domain.EquityPoint) float64 {
	if len(equity) < 2 {
		return math.NaN()
	}
	peak := equity[0].Equity
	sum := 0.0
	for _, ep := range equity {
		if ep.Equity > peak {
			peak = ep.Equity
		}
		dd := 0.0
		if peak > 0 {
			dd = (ep.Equity - peak) / peak * 100
		}
		sum += dd * dd
	}
	return math.Sqrt(sum / float64(len(equity)))
}

// tradeStats fills the trade-statistics block. With zero trades every float
// statistic is NaN (undefined) and the counters are zero.
func (e *Engine) tradeStats(r *Report, trades []domain.Trade) {
	r.TotalTrades = len(trades)
	if len(trades) == 0 {
		r.WinRate = math.NaN()
		r.ProfitFactor = math.NaN()
		r.AvgWin = math.NaN()
		r.AvgLoss = math.NaN()
		r.Expectancy = math.NaN()
		return
	}

	var wins, losses []float64
	var grossProfit, grossLoss, netSum float64
	var consecWins, consecLosses int
	var totalDuration time.Duration

	for _, t := range trades {
		netSum += t.NetPnL
		totalDuration += t.Duration()
		if t.NetPnL > 0 {
			wins = append(wins, t.NetPnL)
			grossProfit += t.NetPnL
			consecWins++
			consecLosses = 0
			if consecWins > r.MaxConsecutiveWins {
				r.MaxConsecutiveWins = consecWins
			}
		} else {
			if t.NetPnL < 0 {
				losses = append(losses, t.NetPnL)
				grossLoss -= t.NetPnL
			}
			consecLosses++
			consecWins = 0
			if consecLosses > r.MaxConsecutiveLosses {
				r.MaxConsecutiveLosses = consecLosses
			}
		}
	}

	r.WinRate = float64(len(wins)) / float64(len(trades)) * 100
	r.Expectancy = netSum / float64(len(trades))
	r.AvgTradeDuration = totalDuration / time.Duration(len(trades))

	if grossLoss > 0 {
		r.ProfitFactor = grossProfit / grossLoss
	} else {
		r.ProfitFactor = math.Inf(1)
	}
	r.AvgWin = mean(wins)
	r.AvgLoss = mean(losses)
}
