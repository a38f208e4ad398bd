// Run a single backtest of one strategy over cached bar history and print
// the metric report.
//
// Usage:
//
//	go build -o bin/quantbt-backtest ./cmd/quantbt-backtest/
//	bin/quantbt-backtest -symbol AAPL -strategy sma_crossover \
//	    -params "fast_period=10,slow_period=30" -period 2y
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
	"quantbt/internal/report"
	"quantbt/internal/store"
	"quantbt/internal/strategy/builtins"
	"quantbt/internal/util"
)

func main() {
	symbol := flag.String("symbol", "", "symbol to backtest (required)")
	stratName := flag.String("strategy", "", "strategy name (required, see -list)")
	paramStr := flag.String("params", "", "strategy parameters, e.g. fast_period=10,slow_period=30")
	period := flag.String("period", "1y", "history to test, e.g. 30d, 6m, 2y")
	format := flag.String("format", "text", "output format: text or json")
	tradesCSV := flag.String("trades-csv", "", "write the trade ledger to this CSV file")
	equityCSV := flag.String("equity-csv", "", "write the equity curve to this CSV file")
	save := flag.Bool("save", false, "persist the run to the SQLite run store")
	list := flag.Bool("list", false, "list available strategies and exit")
	cfgPath := flag.String("config", defaultConfigPath(), "path to config file")
	flag.Parse()

	registry := builtins.DefaultRegistry()
	if *list {
		for _, name := range registry.List() {
			fmt.Println(name)
		}
		return
	}
	if *symbol == "" || *stratName == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	util.SetDefault(util.NewLogger(cfg.Logging.Level))

	strat, ok := registry.Get(*stratName)
	if !ok {
		log.Fatalf("unknown strategy %q (use -list)", *stratName)
	}
	params, err := domain.ParseParams(*paramStr)
	if err != nil {
		log.Fatalf("invalid -params: %v", err)
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

	sim := backtest.NewSimulator(simConfig(cfg))
	res, err := sim.Run(series, strat, params)
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	engine, err := metrics.NewEngine(cfg.Backtest.PeriodsPerYear, cfg.Backtest.RiskFreeRate, cfg.Backtest.Confidence)
	if err != nil {
		log.Fatalf("metrics config: %v", err)
	}
	rep := engine.Compute(res)

	switch *format {
	case "json":
		if err := report.WriteJSON(os.Stdout, res, rep); err != nil {
			log.Fatalf("writing json: %v", err)
		}
	default:
		fmt.Print(report.FormatSummary(res, rep))
	}

	if *tradesCSV != "" {
		if err := writeFile(*tradesCSV, func(f *os.File) error {
			return report.WriteTradesCSV(f, res.Trades)
		}); err != nil {
			log.Fatalf("writing trades csv: %v", err)
		}
	}
	if *equityCSV != "" {
		if err := writeFile(*equityCSV, func(f *os.File) error {
			return report.WriteEquityCSV(f, res.Equity)
		}); err != nil {
			log.Fatalf("writing equity csv: %v", err)
		}
	}

	if *save {
		runs, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("opening run store: %v", err)
		}
		defer runs.Close()
		id, err := runs.SaveRun(context.Background(), res)
		if err != nil {
			log.Fatalf("saving run: %v", err)
		}
		log.Printf("saved run %s", id)
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

func simConfig(cfg *config.Config) backtest.Config {
	return backtest.Config{
		InitialCapital:      cfg.Backtest.InitialCapital,
		CommissionRate:      cfg.Backtest.CommissionRate,
		SlippageRate:        cfg.Backtest.SlippageRate,
		MaxPositionFraction: cfg.Backtest.MaxPositionFraction,
		StopLossPct:         cfg.Backtest.StopLossPct,
		TakeProfitPct:       cfg.Backtest.TakeProfitPct,
		TakeProfitFirst:     cfg.Backtest.TakeProfitFirst,
	}
}

func writeFile(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func defaultConfigPath() string {
	if p := os.Getenv("QUANTBT_CONFIG"); p != "" {
		return p
	}
	return "config/quantbt.yaml"
}
