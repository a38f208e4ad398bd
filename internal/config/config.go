// Package config loads the quantbt YAML configuration and applies
// environment variable overrides.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the quantbt toolchain.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Logging  Logging        `yaml:"logging"`
	Data     DataConfig     `yaml:"data"`
	Backtest BacktestConfig `yaml:"backtest"`
	Optimize OptimizeConfig `yaml:"optimize"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
}

// DataConfig controls bar fetching and the local cache.
type DataConfig struct {
	RateLimitPerMin int `yaml:"rate_limit_per_min"`
	CacheSlackDays  int `yaml:"cache_slack_days"`
}

// BacktestConfig holds the simulator cost model and the metrics conventions.
type BacktestConfig struct {
	InitialCapital      float64 `yaml:"initial_capital"`
	CommissionRate      float64 `yaml:"commission_rate"`
	SlippageRate        float64 `yaml:"slippage_rate"`
	MaxPositionFraction float64 `yaml:"max_position_fraction"`
	StopLossPct         float64 `yaml:"stop_loss_pct"`
	TakeProfitPct       float64 `yaml:"take_profit_pct"`
	TakeProfitFirst     bool    `yaml:"take_profit_first"`

	PeriodsPerYear float64 `yaml:"periods_per_year"`
	RiskFreeRate   float64 `yaml:"risk_free_rate"`
	Confidence     float64 `yaml:"confidence"`
}

// OptimizeConfig controls grid-search execution.
type OptimizeConfig struct {
	Workers   int    `yaml:"workers"`
	Objective string `yaml:"objective"`
}

// Default returns the configuration used when no file is present: local
// ./data storage, daily-equity metrics conventions, conservative costs.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/quantbt.db",
		},
		Logging: Logging{Level: "info"},
		Data: DataConfig{
			RateLimitPerMin: 200,
			CacheSlackDays:  4,
		},
		Backtest: BacktestConfig{
			InitialCapital:      10000,
			CommissionRate:      0.001,
			SlippageRate:        0.0005,
			MaxPositionFraction: 0.95,
			PeriodsPerYear:      252,
			RiskFreeRate:        0.02,
			Confidence:          0.95,
		},
		Optimize: OptimizeConfig{
			Workers:   4,
			Objective: "sharpe_ratio",
		},
	}
}

// Load reads the YAML configuration file at path over the defaults and then
// applies environment variable overrides. A missing file is not an error:
// the defaults plus environment are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
