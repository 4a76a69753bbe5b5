package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/kcdavs/linebacker/internal/domain"
	"github.com/kcdavs/linebacker/internal/ports"
)

// Driver runs the walk-forward evaluation: for every (season, week) in
// strict chronological order it retrains the estimator on strictly earlier
// rows, prices the week's candidates, selects and stakes picks, settles them
// against realized outcomes and compounds the bankroll. The loop is
// sequential by construction — week k+1's training set contains week k's
// games, and the bankroll is a running scalar owned here and nowhere else.
type Driver struct {
	cfg Config
	est ports.Estimator
}

// New validates the configuration and builds a driver. Configuration errors
// surface here, before any data is touched.
func New(cfg Config, est ports.Estimator) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if est == nil {
		return nil, fmt.Errorf("backtest.New: nil estimator")
	}
	return &Driver{cfg: cfg, est: est}, nil
}

// Run walks the full history and returns the bankroll trajectory and bet
// ledger. On context cancellation it returns the partial result through the
// last fully settled week together with the context's error — no week is
// ever half-applied.
func (d *Driver) Run(ctx context.Context, history []domain.GameRecord) (domain.RunResult, error) {
	rows := make([]domain.GameRecord, len(history))
	copy(rows, history)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Game.Key().Before(rows[j].Game.Key())
	})

	res := domain.RunResult{
		StartingBankroll: d.cfg.StartingBankroll,
		SelectionPolicy:  d.cfg.SelectionPolicy,
		StakingMode:      d.cfg.Staking.Mode,
	}
	bankroll := d.cfg.StartingBankroll

	for _, week := range weekKeys(rows) {
		if err := ctx.Err(); err != nil {
			slog.Warn("run cancelled, returning partial result", "week", week)
			return res, err
		}

		train, test := partition(rows, week)
		if len(train) < d.cfg.MinTrainRows || len(test) == 0 {
			res.Dropped.SkippedWeeks++
			slog.Info("insufficient history, no bets this week",
				"week", week, "train_rows", len(train), "min", d.cfg.MinTrainRows)
			res.Trajectory = append(res.Trajectory, domain.Snapshot{
				Season: week.Season, Week: week.Week, Bankroll: bankroll,
			})
			continue
		}

		candidates, err := d.weekCandidates(ctx, train, test, false, &res.Dropped)
		if err != nil {
			return res, err
		}

		selected := SelectWeek(candidates, d.cfg)

		var weekPnL float64
		settled := 0
		for _, c := range selected {
			if !c.Game.Played {
				res.Dropped.MissingOutcome++
				continue
			}
			stake, err := Stake(domain.Priced(c.PModel), c.Odds, bankroll, d.cfg.Staking)
			if err != nil {
				return res, err
			}
			pick := domain.Pick{ID: uuid.NewString(), Candidate: c, Stake: stake}
			bet := domain.Settle(pick, c.Game.Margin())
			res.Ledger = append(res.Ledger, bet)
			weekPnL += bet.Payout
			settled++
		}

		bankroll += weekPnL
		res.Trajectory = append(res.Trajectory, domain.Snapshot{
			Season: week.Season, Week: week.Week, Bankroll: bankroll,
		})

		slog.Debug("week settled",
			"week", week,
			"candidates", len(candidates),
			"picks", settled,
			"pnl", fmt.Sprintf("%.2f", weekPnL),
			"bankroll", fmt.Sprintf("%.2f", bankroll),
		)

		if d.cfg.BankrollFloor.OK && bankroll <= d.cfg.BankrollFloor.V {
			slog.Warn("bankroll floor reached, stopping run",
				"week", week, "bankroll", bankroll, "floor", d.cfg.BankrollFloor.V)
			break
		}
	}

	logDrops(res.Dropped)
	return res, nil
}

// Score prices an upcoming (unplayed) week against every available book:
// the estimator trains on all completed history and the picks come back
// unsettled. Insufficient history yields no picks, not an error.
func (d *Driver) Score(ctx context.Context, history, upcoming []domain.GameRecord) ([]domain.Pick, error) {
	if len(upcoming) == 0 {
		return nil, nil
	}

	cutoff := upcoming[0].Game.Key()
	for _, r := range upcoming[1:] {
		if r.Game.Key().Before(cutoff) {
			cutoff = r.Game.Key()
		}
	}

	var train []domain.GameRecord
	for _, r := range history {
		if r.Game.Played && r.Game.Key().Before(cutoff) {
			train = append(train, r)
		}
	}
	if len(train) < d.cfg.MinTrainRows {
		slog.Info("insufficient history for scoring", "train_rows", len(train), "min", d.cfg.MinTrainRows)
		return nil, nil
	}

	var drops domain.DropCounters
	candidates, err := d.weekCandidates(ctx, train, upcoming, true, &drops)
	if err != nil {
		return nil, err
	}

	var picks []domain.Pick
	for _, c := range SelectWeek(candidates, d.cfg) {
		stake, err := Stake(domain.Priced(c.PModel), c.Odds, d.cfg.StartingBankroll, d.cfg.Staking)
		if err != nil {
			return nil, err
		}
		picks = append(picks, domain.Pick{ID: uuid.NewString(), Candidate: c, Stake: stake})
	}

	logDrops(drops)
	return picks, nil
}

// weekCandidates prices one evaluation slice: per market, one Fit on the
// training partition and one Predict over the slice, then a candidate per
// (game, side) — per book when perBook is set, against the consensus quote
// otherwise. Missing inputs increment counters and drop the row.
func (d *Driver) weekCandidates(
	ctx context.Context,
	train, test []domain.GameRecord,
	perBook bool,
	drops *domain.DropCounters,
) ([]domain.Candidate, error) {
	var out []domain.Candidate

	for _, market := range d.cfg.Markets {
		model, err := d.est.Fit(ctx, train, market)
		if err != nil {
			return nil, fmt.Errorf("backtest: fit %s: %w", market, err)
		}
		probs, err := model.Predict(test)
		if err != nil {
			return nil, fmt.Errorf("backtest: predict %s: %w", market, err)
		}
		if len(probs) != len(test) {
			return nil, fmt.Errorf("backtest: estimator returned %d probabilities for %d rows", len(probs), len(test))
		}

		for i, row := range test {
			pHome := probs[i]
			if !pHome.OK {
				drops.MissingEstimate++
				continue
			}

			var quotes []domain.Quote
			if perBook {
				quotes = row.BookQuotes(market)
			} else if q, ok := row.Quote(market, domain.ConsensusBook); ok {
				quotes = []domain.Quote{q}
			}

			// one counter tick per (game, market), however many books or
			// sides were unusable
			usable := false
			for _, q := range quotes {
				if !q.TwoSided() {
					continue
				}
				sides := []struct {
					side domain.Side
					p    domain.Price
				}{
					{domain.SideHome, pHome},
					{domain.SideAway, domain.Priced(1 - pHome.V)},
				}
				for _, s := range sides {
					c, ok := domain.NewCandidate(row.Game, q, s.side, s.p)
					if !ok {
						continue
					}
					out = append(out, c)
					usable = true
				}
			}
			if !usable {
				drops.MissingQuote++
			}
		}
	}
	return out, nil
}

// partition splits the history around one evaluation week: training rows are
// strictly earlier than the week's key, test rows are exactly the week. This
// is the causality invariant of the whole engine — a training row with a key
// at or past the evaluation key is a silent look-ahead bug.
func partition(rows []domain.GameRecord, week domain.WeekKey) (train, test []domain.GameRecord) {
	for _, r := range rows {
		key := r.Game.Key()
		switch {
		case key.Before(week):
			train = append(train, r)
		case key == week:
			test = append(test, r)
		}
	}
	return train, test
}

// weekKeys returns the distinct chronological keys of the history, ordered.
func weekKeys(rows []domain.GameRecord) []domain.WeekKey {
	seen := make(map[domain.WeekKey]bool)
	var keys []domain.WeekKey
	for _, r := range rows {
		key := r.Game.Key()
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}

func logDrops(d domain.DropCounters) {
	if d.MissingQuote+d.MissingEstimate+d.MissingOutcome+d.SkippedWeeks == 0 {
		return
	}
	slog.Info("rows dropped for missing data",
		"missing_quote", d.MissingQuote,
		"missing_estimate", d.MissingEstimate,
		"missing_outcome", d.MissingOutcome,
		"skipped_weeks", d.SkippedWeeks,
	)
}
