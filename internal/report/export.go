package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"time"

	"quantbt/internal/domain"
	"quantbt/internal/metrics"
	"quantbt/internal/optimize"
)

// WriteRankedCSV writes an optimizer's ranked results as CSV, one row per
// parameter combination, best first. Sentinel scores render as
// "undefined"/"inf" rather than breaking the numeric column.
func WriteRankedCSV(w io.Writer, objective string, ranked []optimize.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"rank", objective, "total_return", "max_drawdown", "total_trades", "params",
	}); err != nil {
		return err
	}
	for i, res := range ranked {
		row := []string{
			strconv.Itoa(i + 1),
			FormatFloat(res.Score, 6),
			FormatFloat(res.Report.TotalReturn, 4),
			FormatFloat(res.Report.MaxDrawdown, 4),
			strconv.Itoa(res.Report.TotalTrades),
			res.Params.String(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTradesCSV writes the trade ledger as CSV, one row per completed trade.
func WriteTradesCSV(w io.Writer, trades []domain.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"entry_time", "exit_time", "direction", "entry_price", "exit_price",
		"size", "gross_pnl", "net_pnl", "commission", "slippage", "exit_reason",
	}); err != nil {
		return err
	}
	for _, t := range trades {
		row := []string{
			t.EntryTime.Format(time.RFC3339),
			t.ExitTime.Format(time.RFC3339),
			string(t.Direction),
			strconv.FormatFloat(t.EntryPrice, 'f', -1, 64),
			strconv.FormatFloat(t.ExitPrice, 'f', -1, 64),
			strconv.FormatFloat(t.Size, 'f', -1, 64),
			strconv.FormatFloat(t.GrossPnL, 'f', -1, 64),
			strconv.FormatFloat(t.NetPnL, 'f', -1, 64),
			strconv.FormatFloat(t.Commission, 'f', -1, 64),
			strconv.FormatFloat(t.Slippage, 'f', -1, 64),
			string(t.ExitReason),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEquityCSV writes the equity curve as CSV, one row per bar.
func WriteEquityCSV(w io.Writer, equity []domain.EquityPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "equity"}); err != nil {
		return err
	}
	for _, ep := range equity {
		row := []string{
			ep.Timestamp.Format(time.RFC3339),
			strconv.FormatFloat(ep.Equity, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the run header, the metric report, and the trade ledger
// as one JSON document. NaN metrics render as null and infinities as the
// string "inf"; encoding/json rejects them as numbers.
func WriteJSON(w io.Writer, res *domain.BacktestResult, rep metrics.Report) error {
	doc := map[string]any{
		"strategy":        res.Strategy,
		"symbol":          res.Symbol,
		"params":          res.Params,
		"start":           res.Start.Format(time.RFC3339),
		"end":             res.End.Format(time.RFC3339),
		"initial_capital": res.InitialCapital,
		"final_capital":   res.FinalCapital,
		"metrics":         metricsDoc(rep),
		"trades":          tradesDoc(res.Trades),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func metricsDoc(rep metrics.Report) map[string]any {
	return map[string]any{
		"total_return":           jsonNumber(rep.TotalReturn),
		"cagr":                   jsonNumber(rep.CAGR),
		"volatility":             jsonNumber(rep.Volatility),
		"sharpe_ratio":           jsonNumber(rep.Sharpe),
		"sortino_ratio":          jsonNumber(rep.Sortino),
		"calmar_ratio":           jsonNumber(rep.Calmar),
		"max_drawdown":           jsonNumber(rep.MaxDrawdown),
		"max_drawdown_duration":  rep.MaxDrawdownDuration,
		"var":                    jsonNumber(rep.VaR),
		"cvar":                   jsonNumber(rep.CVaR),
		"ulcer_index":            jsonNumber(rep.UlcerIndex),
		"total_trades":           rep.TotalTrades,
		"win_rate":               jsonNumber(rep.WinRate),
		"profit_factor":          jsonNumber(rep.ProfitFactor),
		"avg_win":                jsonNumber(rep.AvgWin),
		"avg_loss":               jsonNumber(rep.AvgLoss),
		"expectancy":             jsonNumber(rep.Expectancy),
		"max_consecutive_wins":   rep.MaxConsecutiveWins,
		"max_consecutive_losses": rep.MaxConsecutiveLosses,
		"avg_trade_duration":     rep.AvgTradeDuration.String(),
	}
}

func tradesDoc(trades []domain.Trade) []map[string]any {
	out := make([]map[string]any, 0, len(trades))
	for _, t := range trades {
		out = append(out, map[string]any{
			"entry_time":  t.EntryTime.Format(time.RFC3339),
			"exit_time":   t.ExitTime.Format(time.RFC3339),
			"direction":   string(t.Direction),
			"entry_price": t.EntryPrice,
			"exit_price":  t.ExitPrice,
			"size":        t.Size,
			"gross_pnl":   t.GrossPnL,
			"net_pnl":     t.NetPnL,
			"commission":  t.Commission,
			"slippage":    t.Slippage,
			"exit_reason": string(t.ExitReason),
		})
	}
	return out
}

// jsonNumber maps float sentinels to JSON-safe values.
func jsonNumber(v float64) any {
	switch {
	case math.IsNaN(v):
		return nil
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	default:
		return v
	}
}
