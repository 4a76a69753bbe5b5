package backtest

import (
	"errors"
	"fmt"

	"github.com/kcdavs/linebacker/internal/domain"
)

// ErrInvalidArgument marks programmer/config misuse of the staking policy —
// distinct from the data-quality gaps the engine absorbs silently.
var ErrInvalidArgument = errors.New("invalid argument")

// Stake sizes one selected candidate under the configured policy. The
// result is never negative. Flat staking ignores probability, odds and
// bankroll entirely; Kelly staking requires a present win probability and
// priced odds and refuses to default either.
func Stake(pWin, odds domain.Price, bankroll float64, cfg StakingConfig) (float64, error) {
	switch cfg.Mode {
	case StakingFlat:
		return cfg.FlatAmount, nil
	case StakingKelly:
		if !pWin.OK {
			return 0, fmt.Errorf("backtest.Stake: kelly staking without win probability: %w", ErrInvalidArgument)
		}
		if !odds.OK {
			return 0, fmt.Errorf("backtest.Stake: kelly staking without priced odds: %w", ErrInvalidArgument)
		}
		stake := bankroll * cfg.KellyMultiplier * domain.KellyFraction(pWin.V, odds)
		if stake < 0 { // depleted bankroll: no position, not a short
			stake = 0
		}
		return stake, nil
	default:
		return 0, fmt.Errorf("backtest.Stake: unknown staking mode %q: %w", cfg.Mode, ErrInvalidArgument)
	}
}
