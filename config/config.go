package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kcdavs/linebacker/internal/backtest"
	"github.com/kcdavs/linebacker/internal/domain"
)

// Config is the full configuration of the binary.
type Config struct {
	Backtest BacktestConfig `yaml:"backtest"`
	Data     DataConfig     `yaml:"data"`
	Feed     FeedConfig     `yaml:"feed"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// BacktestConfig mirrors backtest.Config in YAML form. Zero values fall
// back to the engine defaults; pointers distinguish "unset" from a real
// false/zero.
type BacktestConfig struct {
	EdgeEVThreshold   *float64 `yaml:"edge_ev_threshold"`
	EdgeFairThreshold *float64 `yaml:"edge_fair_threshold"`
	SelectionPolicy   string   `yaml:"selection_policy"` // edge | top-n
	TopN              int      `yaml:"top_n"`
	OneBetPerGame     *bool    `yaml:"one_bet_per_game"`
	StakingMode       string   `yaml:"staking_mode"` // flat | kelly
	FlatAmount        float64  `yaml:"flat_amount"`
	KellyMultiplier   float64  `yaml:"kelly_multiplier"`
	StartingBankroll  float64  `yaml:"starting_bankroll"`
	MinTrainRows      int      `yaml:"min_train_rows"`
	Markets           []string `yaml:"markets"` // spread | moneyline
	BankrollFloor     *float64 `yaml:"bankroll_floor"`
}

// DataConfig points at the historical CSV exports.
type DataConfig struct {
	GamesCSV  string `yaml:"games_csv"`
	QuotesCSV string `yaml:"quotes_csv"`
}

// FeedConfig holds the odds API base URL used by score mode.
type FeedConfig struct {
	OddsBase string `yaml:"odds_base"`
}

// StorageConfig controls where runs are persisted.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // SQLite file path, or ":memory:"
}

// LogConfig controls log format and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML file and the .env file if present. Values from the
// environment override the YAML for the keys that map to one.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// Engine translates the YAML section into an engine configuration,
// starting from the engine defaults and overriding only what was set.
// Validation happens in backtest.New.
func (c *Config) Engine() backtest.Config {
	cfg := backtest.DefaultConfig()
	b := c.Backtest

	if b.EdgeEVThreshold != nil {
		cfg.EdgeEVThreshold = *b.EdgeEVThreshold
	}
	if b.EdgeFairThreshold != nil {
		cfg.EdgeFairThreshold = *b.EdgeFairThreshold
	}
	if b.SelectionPolicy != "" {
		cfg.SelectionPolicy = b.SelectionPolicy
	}
	if b.TopN > 0 {
		cfg.TopN = b.TopN
	}
	if b.OneBetPerGame != nil {
		cfg.OneBetPerGame = *b.OneBetPerGame
	}
	if b.StakingMode != "" {
		cfg.Staking.Mode = b.StakingMode
	}
	if b.FlatAmount > 0 {
		cfg.Staking.FlatAmount = b.FlatAmount
	}
	if b.KellyMultiplier > 0 {
		cfg.Staking.KellyMultiplier = b.KellyMultiplier
	}
	if b.StartingBankroll > 0 {
		cfg.StartingBankroll = b.StartingBankroll
	}
	if b.MinTrainRows > 0 {
		cfg.MinTrainRows = b.MinTrainRows
	}
	if len(b.Markets) > 0 {
		cfg.Markets = nil
		for _, m := range b.Markets {
			cfg.Markets = append(cfg.Markets, domain.MarketType(m))
		}
	}
	if b.BankrollFloor != nil {
		cfg.BankrollFloor = domain.Priced(*b.BankrollFloor)
	}
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("ODDS_BASE"); v != "" {
		cfg.Feed.OddsBase = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Data.GamesCSV == "" {
		cfg.Data.GamesCSV = "data/games.csv"
	}
	if cfg.Data.QuotesCSV == "" {
		cfg.Data.QuotesCSV = "data/quotes.csv"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "linebacker.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
