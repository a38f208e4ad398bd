// Fetch daily bar history from Alpaca into the local Parquet store.
//
// Usage:
//
//	go build -o bin/quantbt-fetch ./cmd/quantbt-fetch/
//	bin/quantbt-fetch -symbols AAPL,MSFT -period 2y
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"quantbt/internal/config"
	"quantbt/internal/marketdata"
	"quantbt/internal/store"
	"quantbt/internal/util"
)

func main() {
	symbols := flag.String("symbols", "", "comma-separated symbols to fetch (required)")
	period := flag.String("period", "1y", "history to fetch, e.g. 30d, 2w, 6m, 1y")
	cfgPath := flag.String("config", defaultConfigPath(), "path to config file")
	flag.Parse()

	if *symbols == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	util.SetDefault(util.NewLogger(cfg.Logging.Level))

	if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
		log.Fatal("alpaca credentials not configured (set APCA_API_KEY_ID / APCA_API_SECRET_KEY)")
	}

	end := time.Now().UTC()
	start, err := util.ParsePeriod(*period, end)
	if err != nil {
		log.Fatalf("invalid -period: %v", err)
	}

	bars := store.NewParquetStore(cfg.Storage.DataDir)
	remote := marketdata.NewAlpacaSource(
		cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL,
		cfg.Data.RateLimitPerMin,
	)
	source := marketdata.NewCachedSource(remote, bars,
		time.Duration(cfg.Data.CacheSlackDays)*24*time.Hour)

	ctx := context.Background()
	for _, sym := range strings.Split(*symbols, ",") {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		fetched, err := source.DailyBars(ctx, sym, start, end)
		if err != nil {
			log.Fatalf("fetching %s: %v", sym, err)
		}
		log.Printf("%s: %d bars", sym, len(fetched))
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("QUANTBT_CONFIG"); p != "" {
		return p
	}
	return "config/quantbt.yaml"
}
