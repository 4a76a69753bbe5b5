// Package estimator provides the reference probability model: additive
// team ratings fitted on point margins with a logistic link. It exists so
// the engine runs end to end out of the box; any model satisfying
// ports.Estimator can replace it.
package estimator

import (
	"context"
	"math"

	"github.com/kcdavs/linebacker/internal/domain"
	"github.com/kcdavs/linebacker/internal/ports"
)

const (
	// logisticScale maps a predicted point margin to a win probability.
	// Roughly one standard deviation of NFL game margins per unit.
	logisticScale = 7.0

	// srsIterations is enough for the opponent adjustment to converge on
	// a season's worth of rows; the fixed count keeps Fit deterministic.
	srsIterations = 25
)

// Ratings is a stateless Estimator. Every Fit builds a fresh model from
// the rows it is handed and nothing else.
type Ratings struct{}

func New() *Ratings { return &Ratings{} }

type teamStats struct {
	games     int
	marginSum float64
	opponents []string
}

// Fit computes a simple rating system over the training rows: each team's
// rating starts at its average margin and is iteratively adjusted by the
// average rating of its opponents. Home-field advantage is the mean home
// margin across all rows.
func (e *Ratings) Fit(ctx context.Context, train []domain.GameRecord, market domain.MarketType) (ports.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := make(map[string]*teamStats)
	add := func(team, opp string, margin float64) {
		s := stats[team]
		if s == nil {
			s = &teamStats{}
			stats[team] = s
		}
		s.games++
		s.marginSum += margin
		s.opponents = append(s.opponents, opp)
	}

	var homeMarginSum float64
	var played int
	for _, r := range train {
		if !r.Game.Played {
			continue
		}
		margin := float64(r.Game.Margin())
		add(r.Game.HomeTeam, r.Game.AwayTeam, margin)
		add(r.Game.AwayTeam, r.Game.HomeTeam, -margin)
		homeMarginSum += margin
		played++
	}

	m := &ratingsModel{market: market, ratings: make(map[string]float64, len(stats))}
	if played == 0 {
		return m, nil
	}
	m.homeAdv = homeMarginSum / float64(played)

	for team, s := range stats {
		m.ratings[team] = s.marginSum / float64(s.games)
	}
	for i := 0; i < srsIterations; i++ {
		next := make(map[string]float64, len(stats))
		for team, s := range stats {
			var oppSum float64
			for _, opp := range s.opponents {
				oppSum += m.ratings[opp]
			}
			next[team] = s.marginSum/float64(s.games) + oppSum/float64(s.games)
		}
		m.ratings = next
	}
	return m, nil
}

type ratingsModel struct {
	market  domain.MarketType
	ratings map[string]float64
	homeAdv float64
}

// Predict returns the home-side probability per row. Rows with a team the
// model never saw in training come back missing; for spreads the consensus
// home line is part of the input, so a row without one is missing too.
func (m *ratingsModel) Predict(rows []domain.GameRecord) ([]domain.Price, error) {
	out := make([]domain.Price, len(rows))
	for i, row := range rows {
		home, okHome := m.ratings[row.Game.HomeTeam]
		away, okAway := m.ratings[row.Game.AwayTeam]
		if !okHome || !okAway {
			continue
		}
		margin := home - away + m.homeAdv

		switch m.market {
		case domain.MarketMoneyline:
			out[i] = domain.Priced(logistic(margin / logisticScale))
		case domain.MarketSpread:
			q, ok := row.Quote(domain.MarketSpread, domain.ConsensusBook)
			if !ok || !q.LineHome.OK {
				continue
			}
			// cover probability: predicted margin against the posted line
			out[i] = domain.Priced(logistic((margin + q.LineHome.V) / logisticScale))
		}
	}
	return out, nil
}

func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
