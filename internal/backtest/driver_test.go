package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcdavs/linebacker/internal/domain"
	"github.com/kcdavs/linebacker/internal/estimator"
	"github.com/kcdavs/linebacker/internal/ports"
)

// fakeEstimator returns a fixed home probability for every row and records
// the training partition of every Fit call.
type fakeEstimator struct {
	pHome   float64
	fitKeys [][]domain.WeekKey
}

type fakeModel struct {
	pHome float64
}

func (e *fakeEstimator) Fit(_ context.Context, train []domain.GameRecord, _ domain.MarketType) (ports.Model, error) {
	keys := make([]domain.WeekKey, len(train))
	for i, r := range train {
		keys[i] = r.Game.Key()
	}
	e.fitKeys = append(e.fitKeys, keys)
	return &fakeModel{pHome: e.pHome}, nil
}

func (m *fakeModel) Predict(rows []domain.GameRecord) ([]domain.Price, error) {
	out := make([]domain.Price, len(rows))
	for i := range rows {
		out[i] = domain.Priced(m.pHome)
	}
	return out, nil
}

func mlRecord(season, week int, home, away string, homeScore, awayScore int, oddsHome, oddsAway float64) domain.GameRecord {
	return domain.GameRecord{
		Game: domain.Game{
			Season: season, Week: week,
			HomeTeam: home, AwayTeam: away,
			HomeScore: homeScore, AwayScore: awayScore,
			Played: true,
		},
		Quotes: []domain.Quote{{
			Book:     domain.ConsensusBook,
			Market:   domain.MarketMoneyline,
			OddsHome: domain.Priced(oddsHome),
			OddsAway: domain.Priced(oddsAway),
		}},
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Markets = []domain.MarketType{domain.MarketMoneyline}
	cfg.MinTrainRows = 1
	cfg.SelectionPolicy = PolicyEdge
	return cfg
}

func TestRun_FlatStakeEndToEnd(t *testing.T) {
	// week 1 seeds training; week 2 wins at +120; week 3 loses.
	// 1000 → +100×1.2 → 1120 → −100 → 1020, exactly.
	history := []domain.GameRecord{
		mlRecord(2023, 1, "KC", "BUF", 24, 20, 120, -140),
		mlRecord(2023, 2, "KC", "DAL", 27, 17, 120, -140),
		mlRecord(2023, 3, "KC", "PHI", 13, 20, 120, -140),
	}

	d, err := New(testConfig(), &fakeEstimator{pHome: 0.55})
	require.NoError(t, err)

	res, err := d.Run(context.Background(), history)
	require.NoError(t, err)

	require.Len(t, res.Trajectory, 3)
	assert.Equal(t, 1000.0, res.Trajectory[0].Bankroll) // week 1: no training data yet
	assert.Equal(t, 1120.0, res.Trajectory[1].Bankroll)
	assert.Equal(t, 1020.0, res.Trajectory[2].Bankroll)
	assert.Equal(t, 1020.0, res.FinalBankroll())

	require.Len(t, res.Ledger, 2)
	assert.Equal(t, domain.ResultWin, res.Ledger[0].Result)
	assert.InDelta(t, 120.0, res.Ledger[0].Payout, 1e-9)
	assert.Equal(t, domain.ResultLoss, res.Ledger[1].Result)
	assert.Equal(t, -100.0, res.Ledger[1].Payout)

	wins, losses, pushes := res.Record()
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)
	assert.Equal(t, 0, pushes)
}

func TestRun_TrainingPartitionNeverContainsFutureRows(t *testing.T) {
	var history []domain.GameRecord
	for season := 2022; season <= 2023; season++ {
		for week := 1; week <= 6; week++ {
			history = append(history,
				mlRecord(season, week, "KC", "BUF", 21, 20, 120, -140),
				mlRecord(season, week, "DAL", "PHI", 10, 24, -110, -110),
			)
		}
	}

	est := &fakeEstimator{pHome: 0.55}
	d, err := New(testConfig(), est)
	require.NoError(t, err)

	_, err = d.Run(context.Background(), history)
	require.NoError(t, err)

	// weeks with enough history fit once per market; each fit call must
	// have seen strictly earlier keys only, and each later call a superset
	require.NotEmpty(t, est.fitKeys)
	evalWeeks := weekKeys(history)
	fitIdx := 0
	for _, week := range evalWeeks {
		if week == (domain.WeekKey{Season: 2022, Week: 1}) {
			continue // skipped: no training rows
		}
		require.Less(t, fitIdx, len(est.fitKeys))
		for _, key := range est.fitKeys[fitIdx] {
			assert.True(t, key.Before(week),
				"training row %v leaked into evaluation week %v", key, week)
		}
		fitIdx++
	}
}

func TestRun_InsufficientHistoryIsANoOp(t *testing.T) {
	history := []domain.GameRecord{
		mlRecord(2023, 1, "KC", "BUF", 24, 20, 120, -140),
		mlRecord(2023, 2, "KC", "DAL", 27, 17, 120, -140),
	}
	cfg := testConfig()
	cfg.MinTrainRows = 200

	d, err := New(cfg, &fakeEstimator{pHome: 0.55})
	require.NoError(t, err)

	res, err := d.Run(context.Background(), history)
	require.NoError(t, err)

	assert.Empty(t, res.Ledger)
	assert.Equal(t, 2, res.Dropped.SkippedWeeks)
	require.Len(t, res.Trajectory, 2)
	for _, snap := range res.Trajectory {
		assert.Equal(t, 1000.0, snap.Bankroll)
	}
}

func TestRun_IdenticalInputsIdenticalResults(t *testing.T) {
	var history []domain.GameRecord
	for week := 1; week <= 8; week++ {
		score := 20 + week%3
		history = append(history, mlRecord(2023, week, "KC", "BUF", score, 21, 115, -135))
	}

	run := func() domain.RunResult {
		d, err := New(testConfig(), &fakeEstimator{pHome: 0.56})
		require.NoError(t, err)
		res, err := d.Run(context.Background(), history)
		require.NoError(t, err)
		for i := range res.Ledger {
			res.Ledger[i].ID = "" // pick IDs are the only per-run value
		}
		return res
	}

	first := run()
	second := run()
	assert.Equal(t, first.Trajectory, second.Trajectory)
	assert.Equal(t, first.Ledger, second.Ledger)
}

func TestRun_CancelledContextReturnsPartialResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, err := New(testConfig(), &fakeEstimator{pHome: 0.55})
	require.NoError(t, err)

	res, err := d.Run(ctx, []domain.GameRecord{mlRecord(2023, 1, "KC", "BUF", 24, 20, 120, -140)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Ledger)
}

func TestRun_MissingQuoteDegradesCoverage(t *testing.T) {
	history := []domain.GameRecord{
		mlRecord(2023, 1, "KC", "BUF", 24, 20, 120, -140),
		{Game: domain.Game{Season: 2023, Week: 2, HomeTeam: "KC", AwayTeam: "DAL",
			HomeScore: 30, AwayScore: 3, Played: true}}, // no quote at all
	}

	d, err := New(testConfig(), &fakeEstimator{pHome: 0.55})
	require.NoError(t, err)

	res, err := d.Run(context.Background(), history)
	require.NoError(t, err)
	assert.Empty(t, res.Ledger)
	assert.Equal(t, 1, res.Dropped.MissingQuote)
}

func TestRun_CountsUnusableQuoteOncePerGame(t *testing.T) {
	// zero odds price neither side; the whole (game, market) is one drop,
	// not one per side
	degenerate := domain.GameRecord{
		Game: domain.Game{Season: 2023, Week: 2, HomeTeam: "KC", AwayTeam: "DAL",
			HomeScore: 30, AwayScore: 3, Played: true},
		Quotes: []domain.Quote{{
			Book:     domain.ConsensusBook,
			Market:   domain.MarketMoneyline,
			OddsHome: domain.Priced(0),
			OddsAway: domain.Priced(-110),
		}},
	}
	history := []domain.GameRecord{
		mlRecord(2023, 1, "KC", "BUF", 24, 20, 120, -140),
		degenerate,
	}

	d, err := New(testConfig(), &fakeEstimator{pHome: 0.55})
	require.NoError(t, err)

	res, err := d.Run(context.Background(), history)
	require.NoError(t, err)
	assert.Empty(t, res.Ledger)
	assert.Equal(t, 1, res.Dropped.MissingQuote)
}

func TestScore_SpreadBoardWithRatingsEstimator(t *testing.T) {
	train := []domain.GameRecord{
		{Game: domain.Game{Season: 2023, Week: 1, HomeTeam: "KC", AwayTeam: "BUF",
			HomeScore: 30, AwayScore: 20, Played: true}},
		{Game: domain.Game{Season: 2023, Week: 2, HomeTeam: "BUF", AwayTeam: "KC",
			HomeScore: 17, AwayScore: 27, Played: true}},
		{Game: domain.Game{Season: 2023, Week: 3, HomeTeam: "KC", AwayTeam: "DAL",
			HomeScore: 31, AwayScore: 21, Played: true}},
		{Game: domain.Game{Season: 2023, Week: 4, HomeTeam: "DAL", AwayTeam: "BUF",
			HomeScore: 20, AwayScore: 23, Played: true}},
	}

	books := []domain.Quote{
		{Book: "betonline", Market: domain.MarketSpread,
			OddsHome: domain.Priced(-105), OddsAway: domain.Priced(-115),
			LineHome: domain.Priced(-2.5), LineAway: domain.Priced(2.5)},
		{Book: "heritage", Market: domain.MarketSpread,
			OddsHome: domain.Priced(-110), OddsAway: domain.Priced(-110),
			LineHome: domain.Priced(-2.5), LineAway: domain.Priced(2.5)},
	}
	upcoming := domain.GameRecord{
		Game:   domain.Game{Season: 2023, Week: 5, HomeTeam: "KC", AwayTeam: "DAL"},
		Quotes: append(books, domain.Consensus(books)), // as the live board delivers it
	}

	cfg := testConfig()
	cfg.Markets = []domain.MarketType{domain.MarketSpread}

	d, err := New(cfg, estimator.New())
	require.NoError(t, err)

	picks, err := d.Score(context.Background(), train, []domain.GameRecord{upcoming})
	require.NoError(t, err)
	require.Len(t, picks, 1)
	assert.Equal(t, domain.MarketSpread, picks[0].Market)
	assert.Equal(t, domain.SideHome, picks[0].Side)
	assert.Equal(t, "betonline", picks[0].Book) // best price, highest edge-fair
	assert.Greater(t, picks[0].PModel, 0.5)
	assert.Equal(t, 100.0, picks[0].Stake)
}

func TestScore_PricesUpcomingWeekPerBook(t *testing.T) {
	var history []domain.GameRecord
	for week := 1; week <= 5; week++ {
		history = append(history, mlRecord(2023, week, "KC", "BUF", 24, 20, 120, -140))
	}

	upcoming := domain.GameRecord{
		Game: domain.Game{Season: 2023, Week: 6, HomeTeam: "KC", AwayTeam: "DEN"},
		Quotes: []domain.Quote{
			{Book: "betonline", Market: domain.MarketMoneyline,
				OddsHome: domain.Priced(125), OddsAway: domain.Priced(-145)},
			{Book: "heritage", Market: domain.MarketMoneyline,
				OddsHome: domain.Priced(118), OddsAway: domain.Priced(-138)},
		},
	}

	d, err := New(testConfig(), &fakeEstimator{pHome: 0.55})
	require.NoError(t, err)

	picks, err := d.Score(context.Background(), history, []domain.GameRecord{upcoming})
	require.NoError(t, err)
	// one bet per game keeps the single best-priced book side
	require.Len(t, picks, 1)
	assert.Equal(t, "betonline", picks[0].Book)
	assert.Equal(t, domain.SideHome, picks[0].Side)
	assert.Equal(t, 100.0, picks[0].Stake)
	assert.NotEmpty(t, picks[0].ID)
}
