// Sweep a strategy's parameter grid over cached bar history and print the
// top combinations ranked by the chosen objective.
//
// Usage:
//
//	go build -o bin/quantbt-optimize ./cmd/quantbt-optimize/
//	bin/quantbt-optimize -symbol AAPL -strategy sma_crossover \
//	    -grid "fast_period=5,10,20;slow_period=30,50" -objective sharpe_ratio
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"quantbt/internal/backtest"
	"quantbt/internal/config"
	"quantbt/internal/domain"
	"quantbt/internal/marketdata"
	"quantbt/internal/metrics"
	"quantbt/internal/optimize"
	"quantbt/internal/report"
	"quantbt/internal/store"
	"quantbt/internal/strategy/builtins"
	"quantbt/internal/util"
)

func main() {
	symbol := flag.String("symbol", "", "symbol to optimize on (required)")
	stratName := flag.String("strategy", "", "strategy name (required)")
	gridStr := flag.String("grid", "", "parameter grid, e.g. fast_period=5,10;slow_period=30,50 (required)")
	objective := flag.String("objective", "", "ranking objective (default from config)")
	workers := flag.Int("workers", 0, "worker goroutines (default from config)")
	top := flag.Int("top", 10, "number of ranked results to print")
	csvPath := flag.String("csv", "", "write the full ranked table to this CSV file")
	period := flag.String("period", "1y", "history to test, e.g. 6m, 2y")
	cfgPath := flag.String("config", defaultConfigPath(), "path to config file")
	flag.Parse()

	if *symbol == "" || *stratName == "" || *gridStr == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	util.SetDefault(util.NewLogger(cfg.Logging.Level))

	strat, ok := builtins.DefaultRegistry().Get(*stratName)
	if !ok {
		log.Fatalf("unknown strategy %q", *stratName)
	}
	grid, err := optimize.ParseGrid(*gridStr)
	if err != nil {
		log.Fatalf("invalid -grid: %v", err)
	}

	obj := optimize.Objective(cfg.Optimize.Objective)
	if *objective != "" {
		obj = optimize.Objective(*objective)
	}
	nWorkers := cfg.Optimize.Workers
	if *workers > 0 {
		nWorkers = *workers
	}

	end := time.Now().UTC()
	start, err := util.ParsePeriod(*period, end)
	if err != nil {
		log.Fatalf("invalid -period: %v", err)
	}
	series, err := loadBars(cfg, strings.ToUpper(*symbol), start, end)
	if err != nil {
		log.Fatalf("loading bars: %v", err)
	}

	engine, err := metrics.NewEngine(cfg.Backtest.PeriodsPerYear, cfg.Backtest.RiskFreeRate, cfg.Backtest.Confidence)
	if err != nil {
		log.Fatalf("metrics config: %v", err)
	}
	sim := backtest.NewSimulator(backtest.Config{
		InitialCapital:      cfg.Backtest.InitialCapital,
		CommissionRate:      cfg.Backtest.CommissionRate,
		SlippageRate:        cfg.Backtest.SlippageRate,
		MaxPositionFraction: cfg.Backtest.MaxPositionFraction,
		StopLossPct:         cfg.Backtest.StopLossPct,
		TakeProfitPct:       cfg.Backtest.TakeProfitPct,
		TakeProfitFirst:     cfg.Backtest.TakeProfitFirst,
	})

	opt, err := optimize.New(sim, engine, obj, nWorkers)
	if err != nil {
		log.Fatalf("optimizer: %v", err)
	}

	results, err := opt.Run(context.Background(), series, strat, grid)
	if err != nil {
		log.Fatalf("sweep failed: %v", err)
	}

	var ranked []optimize.Result
	for _, res := range results {
		if res.Err == nil {
			ranked = append(ranked, res)
		}
	}
	if len(ranked) == 0 {
		log.Fatal("no combination produced a result")
	}
	if skipped := len(results) - len(ranked); skipped > 0 {
		log.Printf("%d combinations skipped", skipped)
	}

	fmt.Printf("%-4s  %-12s  %-10s  %-8s  %s\n", "rank", string(obj), "return%", "trades", "params")
	for i, res := range ranked {
		if i >= *top {
			break
		}
		fmt.Printf("%-4d  %-12s  %-10s  %-8d  %s\n",
			i+1,
			report.FormatFloat(res.Score, 3),
			report.FormatFloat(res.Report.TotalReturn, 2),
			res.Report.TotalTrades,
			res.Params.String(),
		)
	}

	if *csvPath != "" {
		f, err := os.Create(*csvPath)
		if err != nil {
			log.Fatalf("creating %s: %v", *csvPath, err)
		}
		if err := report.WriteRankedCSV(f, string(obj), ranked); err != nil {
			f.Close()
			log.Fatalf("writing ranked csv: %v", err)
		}
		if err := f.Close(); err != nil {
			log.Fatalf("closing %s: %v", *csvPath, err)
		}
	}
}

// loadBars reads the series from the local store, falling back to Alpaca
// when credentials are configured and the cache is cold.
func loadBars(cfg *config.Config, symbol string, start, end time.Time) ([]domain.Bar, error) {
	bars := store.NewParquetStore(cfg.Storage.DataDir)

	if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
		series, err := bars.ReadBars(context.Background(), symbol, start, end)
		if err != nil {
			return nil, err
		}
		if len(series) == 0 {
			return nil, fmt.Errorf("no cached bars for %s and no alpaca credentials to fetch them", symbol)
		}
		return series, nil
	}

	remote := marketdata.NewAlpacaSource(
		cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL,
		cfg.Data.RateLimitPerMin,
	)
	source := marketdata.NewCachedSource(remote, bars,
		time.Duration(cfg.Data.CacheSlackDays)*24*time.Hour)
	return source.DailyBars(context.Background(), symbol, start, end)
}

func defaultConfigPath() string {
	if p := os.Getenv("QUANTBT_CONFIG"); p != "" {
		return p
	}
	return "config/quantbt.yaml"
}
