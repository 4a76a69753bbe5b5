package estimator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcdavs/linebacker/internal/domain"
)

func played(week int, home, away string, homeScore, awayScore int) domain.GameRecord {
	return domain.GameRecord{Game: domain.Game{
		Season: 2023, Week: week,
		HomeTeam: home, AwayTeam: away,
		HomeScore: homeScore, AwayScore: awayScore,
		Played: true,
	}}
}

// balancedPair gives both teams identical ratings and a home-field
// advantage of exactly 3 points.
func balancedPair() []domain.GameRecord {
	return []domain.GameRecord{
		played(1, "KC", "BUF", 23, 20),
		played(2, "BUF", "KC", 23, 20),
	}
}

func TestFit_StrongerTeamIsFavored(t *testing.T) {
	train := []domain.GameRecord{
		played(1, "KC", "BUF", 30, 20),
		played(2, "BUF", "KC", 17, 27),
		played(3, "KC", "DAL", 31, 21),
		played(4, "DAL", "BUF", 20, 23),
	}

	model, err := New().Fit(context.Background(), train, domain.MarketMoneyline)
	require.NoError(t, err)

	probs, err := model.Predict([]domain.GameRecord{
		played(5, "DAL", "KC", 0, 0), // KC away, still favored
		played(5, "KC", "DAL", 0, 0),
	})
	require.NoError(t, err)
	require.True(t, probs[0].OK)
	require.True(t, probs[1].OK)
	assert.Less(t, probs[0].V, 0.5)
	assert.Greater(t, probs[1].V, 0.5)
	// home field makes the same matchup stronger for the host
	assert.Greater(t, probs[1].V, 1-probs[0].V)
}

func TestFit_HomeAdvantageAlone(t *testing.T) {
	model, err := New().Fit(context.Background(), balancedPair(), domain.MarketMoneyline)
	require.NoError(t, err)

	probs, err := model.Predict([]domain.GameRecord{played(3, "KC", "BUF", 0, 0)})
	require.NoError(t, err)
	require.True(t, probs[0].OK)
	// equal ratings, +3 home edge on a 7-point scale
	assert.InDelta(t, logistic(3.0/7.0), probs[0].V, 1e-12)
}

func TestPredict_UnseenTeamIsMissing(t *testing.T) {
	model, err := New().Fit(context.Background(), balancedPair(), domain.MarketMoneyline)
	require.NoError(t, err)

	probs, err := model.Predict([]domain.GameRecord{played(3, "KC", "DEN", 0, 0)})
	require.NoError(t, err)
	assert.False(t, probs[0].OK)
}

func TestPredict_SpreadUsesConsensusLine(t *testing.T) {
	model, err := New().Fit(context.Background(), balancedPair(), domain.MarketSpread)
	require.NoError(t, err)

	withLine := func(line float64) domain.GameRecord {
		r := played(3, "KC", "BUF", 0, 0)
		r.Quotes = []domain.Quote{{
			Book:     domain.ConsensusBook,
			Market:   domain.MarketSpread,
			LineHome: domain.Priced(line),
			LineAway: domain.Priced(-line),
		}}
		return r
	}

	probs, err := model.Predict([]domain.GameRecord{withLine(-3), withLine(0), withLine(3)})
	require.NoError(t, err)
	require.True(t, probs[0].OK)
	// line exactly offsets the predicted margin: a coin flip
	assert.InDelta(t, 0.5, probs[0].V, 1e-12)
	// the friendlier the line, the higher the cover probability
	assert.Greater(t, probs[1].V, probs[0].V)
	assert.Greater(t, probs[2].V, probs[1].V)
}

func TestPredict_SpreadWithoutLineIsMissing(t *testing.T) {
	model, err := New().Fit(context.Background(), balancedPair(), domain.MarketSpread)
	require.NoError(t, err)

	probs, err := model.Predict([]domain.GameRecord{played(3, "KC", "BUF", 0, 0)})
	require.NoError(t, err)
	assert.False(t, probs[0].OK)
}

func TestFit_Deterministic(t *testing.T) {
	train := []domain.GameRecord{
		played(1, "KC", "BUF", 30, 20),
		played(2, "DAL", "PHI", 14, 28),
		played(3, "BUF", "DAL", 24, 17),
		played(4, "PHI", "KC", 21, 27),
	}
	rows := []domain.GameRecord{
		played(5, "KC", "PHI", 0, 0),
		played(5, "BUF", "DAL", 0, 0),
	}

	first, err := New().Fit(context.Background(), train, domain.MarketMoneyline)
	require.NoError(t, err)
	second, err := New().Fit(context.Background(), train, domain.MarketMoneyline)
	require.NoError(t, err)

	p1, err := first.Predict(rows)
	require.NoError(t, err)
	p2, err := second.Predict(rows)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestFit_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Fit(ctx, balancedPair(), domain.MarketMoneyline)
	assert.ErrorIs(t, err, context.Canceled)
}
