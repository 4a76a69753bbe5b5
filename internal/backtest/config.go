package backtest

import (
	"fmt"

	"github.com/kcdavs/linebacker/internal/domain"
)

// Selection policies.
const (
	PolicyEdge = "edge"  // every candidate clearing both thresholds, best first
	PolicyTopN = "top-n" // only the best N per week
)

// Staking modes.
const (
	StakingFlat  = "flat"
	StakingKelly = "kelly"
)

// StakingConfig sizes each pick. Exactly one mode is active for a run.
type StakingConfig struct {
	Mode            string
	FlatAmount      float64 // flat: fixed dollar stake per pick
	KellyMultiplier float64 // kelly: risk-aversion dial in (0,1], 0.5 = half-Kelly
}

// Config is the immutable parameter set of a run, threaded explicitly
// through the selector, staking policy and driver — nothing reads
// process-wide state once a run starts.
type Config struct {
	EdgeEVThreshold   float64
	EdgeFairThreshold float64
	SelectionPolicy   string
	TopN              int
	OneBetPerGame     bool
	Staking           StakingConfig
	StartingBankroll  float64
	MinTrainRows      int
	Markets           []domain.MarketType

	// BankrollFloor, when set, stops the run after any week that leaves the
	// bankroll at or below it. Unset preserves the pure-accounting behavior:
	// the bankroll may go arbitrarily negative.
	BankrollFloor domain.Price
}

// DefaultConfig returns the reference policy parameters.
func DefaultConfig() Config {
	return Config{
		EdgeEVThreshold:   0.05,
		EdgeFairThreshold: 0.02,
		SelectionPolicy:   PolicyTopN,
		TopN:              3,
		OneBetPerGame:     true,
		Staking: StakingConfig{
			Mode:            StakingFlat,
			FlatAmount:      100,
			KellyMultiplier: 0.5,
		},
		StartingBankroll: 1000,
		MinTrainRows:     200,
		Markets:          []domain.MarketType{domain.MarketSpread, domain.MarketMoneyline},
	}
}

// Validate fails fast on configuration errors; a bad policy never silently
// falls back to a default one.
func (c Config) Validate() error {
	switch c.SelectionPolicy {
	case PolicyEdge:
	case PolicyTopN:
		if c.TopN <= 0 {
			return fmt.Errorf("backtest.Config: top-n policy needs a positive N, got %d", c.TopN)
		}
	default:
		return fmt.Errorf("backtest.Config: unknown selection policy %q", c.SelectionPolicy)
	}

	switch c.Staking.Mode {
	case StakingFlat:
		if c.Staking.FlatAmount <= 0 {
			return fmt.Errorf("backtest.Config: flat staking needs a positive amount, got %v", c.Staking.FlatAmount)
		}
	case StakingKelly:
		if c.Staking.KellyMultiplier <= 0 || c.Staking.KellyMultiplier > 1 {
			return fmt.Errorf("backtest.Config: kelly multiplier must be in (0,1], got %v", c.Staking.KellyMultiplier)
		}
	default:
		return fmt.Errorf("backtest.Config: unknown staking mode %q", c.Staking.Mode)
	}

	if c.EdgeEVThreshold <= 0 {
		return fmt.Errorf("backtest.Config: edge-ev threshold must be positive, got %v", c.EdgeEVThreshold)
	}
	if c.EdgeFairThreshold <= 0 {
		return fmt.Errorf("backtest.Config: edge-fair threshold must be positive, got %v", c.EdgeFairThreshold)
	}
	if c.StartingBankroll <= 0 {
		return fmt.Errorf("backtest.Config: starting bankroll must be positive, got %v", c.StartingBankroll)
	}
	if c.MinTrainRows < 0 {
		return fmt.Errorf("backtest.Config: min train rows must be >= 0, got %d", c.MinTrainRows)
	}
	if len(c.Markets) == 0 {
		return fmt.Errorf("backtest.Config: at least one market required")
	}
	for _, m := range c.Markets {
		if m != domain.MarketSpread && m != domain.MarketMoneyline {
			return fmt.Errorf("backtest.Config: unknown market %q", m)
		}
	}
	return nil
}
