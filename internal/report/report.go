// Package report renders backtest results and metric reports as text
// summaries, CSV exports, and JSON documents.
package report

import (
	"fmt"
	"math"
	"strings"

	"quantbt/internal/domain"
	"quantbt/internal/metrics"
)

// FormatFloat renders a metric value with the given precision. NaN renders
// as "undefined" and infinities as "inf"/"-inf" so sentinel values stay
// visible instead of leaking as zeros.
func FormatFloat(v float64, prec int) string {
	switch {
	case math.IsNaN(v):
		return "undefined"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	default:
		return fmt.Sprintf("%.*f", prec, v)
	}
}

// FormatSummary renders a human-readable report for one backtest run.
func FormatSummary(res *domain.BacktestResult, rep metrics.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Backtest: %s on %s\n", res.Strategy, res.Symbol)
	if len(res.Params) > 0 {
		fmt.Fprintf(&b, "Params:   %s\n", res.Params.String())
	}
	fmt.Fprintf(&b, "Period:   %s .. %s (%d bars)\n",
		res.Start.Format("2006-01-02"), res.End.Format("2006-01-02"), len(res.Equity))
	fmt.Fprintf(&b, "Capital:  %.2f -> %.2f\n", res.InitialCapital, res.FinalCapital)
	b.WriteString("\n")

	rows := []struct {
		label string
		value string
	}{
		{"Total return", FormatFloat(rep.TotalReturn, 2) + "%"},
		{"CAGR", FormatFloat(rep.CAGR, 2) + "%"},
		{"Volatility (ann.)", FormatFloat(rep.Volatility, 2) + "%"},
		{"Sharpe ratio", FormatFloat(rep.Sharpe, 2)},
		{"Sortino ratio", FormatFloat(rep.Sortino, 2)},
		{"Calmar ratio", FormatFloat(rep.Calmar, 2)},
		{"Max drawdown", FormatFloat(rep.MaxDrawdown, 2) + "%"},
		{"Drawdown duration", fmt.Sprintf("%d bars", rep.MaxDrawdownDuration)},
		{"VaR", FormatFloat(rep.VaR, 2) + "%"},
		{"CVaR", FormatFloat(rep.CVaR, 2) + "%"},
		{"Ulcer index", FormatFloat(rep.UlcerIndex, 2)},
		{"Trades", fmt.Sprintf("%d", rep.TotalTrades)},
		{"Win rate", FormatFloat(rep.WinRate, 2) + "%"},
		{"Profit factor", FormatFloat(rep.ProfitFactor, 2)},
		{"Avg win", FormatFloat(rep.AvgWin, 2)},
		{"Avg loss", FormatFloat(rep.AvgLoss, 2)},
		{"Expectancy", FormatFloat(rep.Expectancy, 2)},
		{"Max consec. wins", fmt.Sprintf("%d", rep.MaxConsecutiveWins)},
		{"Max consec. losses", fmt.Sprintf("%d", rep.MaxConsecutiveLosses)},
		{"Avg trade duration", rep.AvgTradeDuration.String()},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "%-20s %s\n", row.label, row.value)
	}
	return b.String()
}
