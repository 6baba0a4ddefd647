package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// StockEntry is one caller-supplied stock identifier with an optional
// display name. The code may carry a .TW/.TWO suffix; bare codes are
// resolved against the provider on first update.
type StockEntry struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// Config holds all application configuration.
type Config struct {
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	DataSource struct {
		YahooBaseURL string `yaml:"yahoo_base_url"`
		FeedBaseURL  string `yaml:"feed_base_url"`
	} `yaml:"data_source"`
	Update struct {
		LookbackDays  int `yaml:"lookback_days"`  // trailing window kept per stock
		PaddingDays   int `yaml:"padding_days"`   // extra calendar days on a from-scratch fetch
		FreshnessDays int `yaml:"freshness_days"` // max trading-day lag still considered fresh
		KeepDays      int `yaml:"keep_days"`      // retention horizon for cleanup
		MinSpacingMS  int `yaml:"min_spacing_ms"` // minimum spacing between fetch calls
		MaxRetries    int `yaml:"max_retries"`
		Workers       int `yaml:"workers"`
	} `yaml:"update"`
	Correlation struct {
		Windows     []int   `yaml:"windows"`      // trading-day lookbacks, e.g. [120, 60, 20]
		MinCoverage float64 `yaml:"min_coverage"` // aligned-data fraction below which a window is insufficient
		TopN        int     `yaml:"top_n"`
	} `yaml:"correlation"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron"`
	} `yaml:"schedule"`
	Stocks []StockEntry `yaml:"stocks"`
	Proxy  string       `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("YAHOO_BASE_URL"); v != "" {
		cfg.DataSource.YahooBaseURL = v
	}
	if v := os.Getenv("FEED_BASE_URL"); v != "" {
		cfg.DataSource.FeedBaseURL = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("UPDATE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Update.Workers = n
		}
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		cfg.Schedule.DailyCron = v
	}

	// Defaults
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/stockcorr.db"
	}
	if cfg.DataSource.YahooBaseURL == "" {
		cfg.DataSource.YahooBaseURL = "https://query1.finance.yahoo.com"
	}
	if cfg.DataSource.FeedBaseURL == "" {
		cfg.DataSource.FeedBaseURL = "https://www.tpex.org.tw/www/zh-tw/afterTrading/dailyQuotes"
	}
	if cfg.Update.LookbackDays == 0 {
		cfg.Update.LookbackDays = 120
	}
	if cfg.Update.PaddingDays == 0 {
		cfg.Update.PaddingDays = 60
	}
	if cfg.Update.FreshnessDays == 0 {
		cfg.Update.FreshnessDays = 1
	}
	if cfg.Update.KeepDays == 0 {
		cfg.Update.KeepDays = cfg.Update.LookbackDays
	}
	if cfg.Update.MinSpacingMS == 0 {
		cfg.Update.MinSpacingMS = 500
	}
	if cfg.Update.MaxRetries == 0 {
		cfg.Update.MaxRetries = 3
	}
	if cfg.Update.Workers == 0 {
		cfg.Update.Workers = 1
	}
	if len(cfg.Correlation.Windows) == 0 {
		cfg.Correlation.Windows = []int{120, 60, 20}
	}
	if cfg.Correlation.MinCoverage == 0 {
		cfg.Correlation.MinCoverage = 0.7
	}
	if cfg.Correlation.TopN == 0 {
		cfg.Correlation.TopN = 20
	}
	if cfg.Schedule.DailyCron == "" {
		cfg.Schedule.DailyCron = "0 0 18 * * 1-5"
	}

	// Ranking compares windows longest first.
	sort.Sort(sort.Reverse(sort.IntSlice(cfg.Correlation.Windows)))

	return cfg, nil
}

// MinSpacing returns the fetch spacing as a duration.
func (c *Config) MinSpacing() time.Duration {
	return time.Duration(c.Update.MinSpacingMS) * time.Millisecond
}

// Validate checks that all required fields are consistent.
func (c *Config) Validate() error {
	if c.Database.SQLitePath == "" {
		return fmt.Errorf("database.sqlite_path is required")
	}
	if c.Update.LookbackDays <= 0 {
		return fmt.Errorf("update.lookback_days must be positive")
	}
	if c.Update.Workers <= 0 {
		return fmt.Errorf("update.workers must be positive")
	}
	for _, w := range c.Correlation.Windows {
		if w <= 0 {
			return fmt.Errorf("correlation.windows must all be positive, got %d", w)
		}
	}
	if c.Correlation.MinCoverage <= 0 || c.Correlation.MinCoverage > 1 {
		return fmt.Errorf("correlation.min_coverage must be in (0, 1], got %g", c.Correlation.MinCoverage)
	}
	return nil
}
