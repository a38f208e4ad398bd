package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"quantbt/internal/domain"
	"quantbt/internal/metrics"
	"quantbt/internal/optimize"
)

func sampleResult() *domain.BacktestResult {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	return &domain.BacktestResult{
		Strategy:       "sma_crossover",
		Symbol:         "AAPL",
		Params:         domain.Params{"fast_period": 10, "slow_period": 30},
		Start:          start,
		End:            start.AddDate(0, 3, 0),
		InitialCapital: 10000,
		FinalCapital:   10800,
		Trades: []domain.Trade{
			{
				EntryTime:  start.AddDate(0, 1, 0),
				ExitTime:   start.AddDate(0, 2, 0),
				Direction:  domain.DirectionLong,
				EntryPrice: 100.05,
				ExitPrice:  109.9,
				Size:       95,
				GrossPnL:   940.5,
				NetPnL:     900,
				Commission: 20.5,
				Slippage:   20,
				ExitReason: domain.ExitSignal,
			},
		},
		Equity: []domain.EquityPoint{
			{Timestamp: start, Equity: 10000},
			{Timestamp: start.AddDate(0, 3, 0), Equity: 10800},
		},
	}
}

func TestFormatFloatSentinels(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{1.23456, "1.23"},
		{math.NaN(), "undefined"},
		{math.Inf(1), "inf"},
		{math.Inf(-1), "-inf"},
	}
	for _, tt := range tests {
		if got := FormatFloat(tt.v, 2); got != tt.want {
			t.Errorf("FormatFloat(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestFormatSummaryRendersSentinels(t *testing.T) {
	rep := metrics.Report{
		TotalReturn:  8,
		Sharpe:       math.NaN(),
		ProfitFactor: math.Inf(1),
		TotalTrades:  1,
	}

	out := FormatSummary(sampleResult(), rep)
	if !strings.Contains(out, "sma_crossover on AAPL") {
		t.Errorf("summary missing header:\n%s", out)
	}
	if !strings.Contains(out, "undefined") {
		t.Errorf("NaN metric not rendered as undefined:\n%s", out)
	}
	if !strings.Contains(out, "inf") {
		t.Errorf("+Inf metric not rendered as inf:\n%s", out)
	}
	if !strings.Contains(out, "fast_period=10") {
		t.Errorf("params not rendered:\n%s", out)
	}
}

func TestWriteTradesCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTradesCSV(&buf, sampleResult().Trades); err != nil {
		t.Fatalf("WriteTradesCSV: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading back csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1 trade", len(rows))
	}
	if rows[0][0] != "entry_time" || rows[0][10] != "exit_reason" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][2] != "long" || rows[1][10] != "signal" {
		t.Errorf("unexpected trade row: %v", rows[1])
	}
}

func TestWriteEquityCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEquityCSV(&buf, sampleResult().Equity); err != nil {
		t.Fatalf("WriteEquityCSV: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading back csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2 points", len(rows))
	}
	if rows[1][1] != "10000" {
		t.Errorf("first equity = %q, want 10000", rows[1][1])
	}
}

func TestWriteRankedCSV(t *testing.T) {
	ranked := []optimize.Result{
		{
			Params: domain.Params{"fast_period": 5, "slow_period": 30},
			Report: metrics.Report{TotalReturn: 12.5, MaxDrawdown: -4.2, TotalTrades: 7},
			Score:  1.8,
		},
		{
			Params: domain.Params{"fast_period": 10, "slow_period": 30},
			Report: metrics.Report{TotalReturn: 3.1, MaxDrawdown: -6.0, TotalTrades: 4},
			Score:  math.NaN(),
		},
	}

	var buf bytes.Buffer
	if err := WriteRankedCSV(&buf, "sharpe_ratio", ranked); err != nil {
		t.Fatalf("WriteRankedCSV: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading back csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if rows[0][1] != "sharpe_ratio" {
		t.Errorf("objective column = %q, want sharpe_ratio", rows[0][1])
	}
	if rows[1][0] != "1" || rows[1][5] != "fast_period=5, slow_period=30" {
		t.Errorf("best row = %v", rows[1])
	}
	if rows[2][1] != "undefined" {
		t.Errorf("NaN score = %q, want undefined", rows[2][1])
	}
}

func TestWriteJSONHandlesSentinels(t *testing.T) {
	rep := metrics.Report{
		TotalReturn:  8,
		Sharpe:       math.NaN(),
		ProfitFactor: math.Inf(1),
		TotalTrades:  1,
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleResult(), rep); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	m, ok := doc["metrics"].(map[string]any)
	if !ok {
		t.Fatalf("metrics block missing: %v", doc)
	}
	if m["sharpe_ratio"] != nil {
		t.Errorf("sharpe_ratio = %v, want null", m["sharpe_ratio"])
	}
	if m["profit_factor"] != "inf" {
		t.Errorf("profit_factor = %v, want \"inf\"", m["profit_factor"])
	}
	if m["total_return"] != 8.0 {
		t.Errorf("total_return = %v, want 8", m["total_return"])
	}

	trades, ok := doc["trades"].([]any)
	if !ok || len(trades) != 1 {
		t.Fatalf("trades block = %v, want 1 trade", doc["trades"])
	}
}
