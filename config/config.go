package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Trading TradingConfig `yaml:"trading"`
	Feed    FeedConfig    `yaml:"feed"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// TradingConfig controls strategy-independent trading parameters.
type TradingConfig struct {
	InitialCapital float64 `yaml:"initial_capital"`
	RiskPct        float64 `yaml:"risk_pct"` // fraction of equity risked per entry
	Strategy       string  `yaml:"strategy"`
}

// FeedConfig holds the market data source settings.
type FeedConfig struct {
	BaseURL     string `yaml:"base_url"`
	PollSeconds int    `yaml:"poll_seconds"` // paper/live polling interval
}

// StorageConfig controls where runs and ledgers are persisted.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // SQLite file path, ":memory:", or "" to disable
}

// LogConfig controls log format and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML file and a .env if present. Missing config file
// is not an error: defaults apply.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// run on defaults
	case err != nil:
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)
	return &cfg, nil
}

// PollInterval returns the paper/live polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Feed.PollSeconds) * time.Second
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("SCALPER_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("SCALPER_FEED_URL"); v != "" {
		cfg.Feed.BaseURL = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Trading.InitialCapital <= 0 {
		cfg.Trading.InitialCapital = 10000
	}
	if cfg.Trading.RiskPct <= 0 {
		cfg.Trading.RiskPct = 0.07
	}
	if cfg.Trading.Strategy == "" {
		cfg.Trading.Strategy = "mike"
	}
	if cfg.Feed.PollSeconds <= 0 {
		cfg.Feed.PollSeconds = 60
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "gapscalp.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
