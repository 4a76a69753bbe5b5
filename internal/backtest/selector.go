package backtest

import (
	"sort"

	"github.com/kcdavs/linebacker/internal/domain"
)

// SelectWeek applies the dual-edge gate, the one-bet-per-game discipline and
// the ranking policy to one week's candidates. Output order is significant:
// staking and reporting preserve it. The sort is stable, so equal edges keep
// candidate generation order.
func SelectWeek(candidates []domain.Candidate, cfg Config) []domain.Candidate {
	filtered := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.EdgeEV >= cfg.EdgeEVThreshold && c.EdgeFair >= cfg.EdgeFairThreshold {
			filtered = append(filtered, c)
		}
	}

	if cfg.OneBetPerGame {
		filtered = dedupeByGame(filtered)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].EdgeFair > filtered[j].EdgeFair
	})

	if cfg.SelectionPolicy == PolicyTopN && len(filtered) > cfg.TopN {
		filtered = filtered[:cfg.TopN]
	}
	return filtered
}

// dedupeByGame keeps, per game, the single candidate with the highest
// EdgeFair (first one wins ties), preventing correlated double-exposure to
// the same contest across markets, sides and books. Input order survives.
func dedupeByGame(candidates []domain.Candidate) []domain.Candidate {
	best := make(map[string]int, len(candidates))
	for i, c := range candidates {
		id := c.Game.ID()
		j, seen := best[id]
		if !seen || c.EdgeFair > candidates[j].EdgeFair {
			best[id] = i
		}
	}

	out := make([]domain.Candidate, 0, len(best))
	for i, c := range candidates {
		if best[c.Game.ID()] == i {
			out = append(out, c)
		}
	}
	return out
}
