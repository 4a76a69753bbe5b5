// Package storage persists finished runs to SQLite: one summary row per
// run plus its full bankroll trajectory and bet ledger, so runs under
// different policies can be compared after the fact.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kcdavs/linebacker/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at        DATETIME NOT NULL,
    selection_policy  TEXT     NOT NULL,
    staking_mode      TEXT     NOT NULL,
    starting_bankroll REAL     NOT NULL,
    final_bankroll    REAL     NOT NULL,
    wins              INTEGER  NOT NULL DEFAULT 0,
    losses            INTEGER  NOT NULL DEFAULT 0,
    pushes            INTEGER  NOT NULL DEFAULT 0,
    total_staked      REAL     NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS trajectory (
    run_id   INTEGER NOT NULL REFERENCES runs(id),
    season   INTEGER NOT NULL,
    week     INTEGER NOT NULL,
    bankroll REAL    NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger (
    run_id    INTEGER NOT NULL REFERENCES runs(id),
    pick_id   TEXT    NOT NULL,
    season    INTEGER NOT NULL,
    week      INTEGER NOT NULL,
    home_team TEXT    NOT NULL,
    away_team TEXT    NOT NULL,
    market    TEXT    NOT NULL,
    side      TEXT    NOT NULL,
    book      TEXT    NOT NULL,
    odds      REAL    NOT NULL,
    line      REAL,
    p_model   REAL    NOT NULL,
    edge_ev   REAL    NOT NULL,
    edge_fair REAL    NOT NULL,
    stake     REAL    NOT NULL,
    result    TEXT    NOT NULL,
    payout    REAL    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trajectory_run ON trajectory(run_id);
CREATE INDEX IF NOT EXISTS idx_ledger_run     ON ledger(run_id);
CREATE INDEX IF NOT EXISTS idx_ledger_week    ON ledger(season, week);
`

// SQLiteStore implements ports.RunStore using SQLite (pure Go, no CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at the given path and
// applies the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// SaveRun writes the run summary, trajectory and ledger in one transaction
// and returns the new run ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, res domain.RunResult) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	wins, losses, pushes := res.Record()
	out, err := tx.ExecContext(ctx, `
		INSERT INTO runs
			(created_at, selection_policy, staking_mode, starting_bankroll,
			 final_bankroll, wins, losses, pushes, total_staked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC(),
		res.SelectionPolicy,
		res.StakingMode,
		res.StartingBankroll,
		res.FinalBankroll(),
		wins, losses, pushes,
		res.TotalStaked(),
	)
	if err != nil {
		return 0, fmt.Errorf("storage.SaveRun: insert run: %w", err)
	}
	runID, err := out.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage.SaveRun: run id: %w", err)
	}

	trajStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO trajectory (run_id, season, week, bankroll) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("storage.SaveRun: prepare trajectory: %w", err)
	}
	defer trajStmt.Close()
	for _, snap := range res.Trajectory {
		if _, err := trajStmt.ExecContext(ctx, runID, snap.Season, snap.Week, snap.Bankroll); err != nil {
			return 0, fmt.Errorf("storage.SaveRun: insert snapshot %d-%d: %w", snap.Season, snap.Week, err)
		}
	}

	betStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger
			(run_id, pick_id, season, week, home_team, away_team, market, side,
			 book, odds, line, p_model, edge_ev, edge_fair, stake, result, payout)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("storage.SaveRun: prepare ledger: %w", err)
	}
	defer betStmt.Close()
	for _, bet := range res.Ledger {
		var line *float64
		if bet.Line.OK {
			v := bet.Line.V
			line = &v
		}
		if _, err := betStmt.ExecContext(ctx,
			runID,
			bet.ID,
			bet.Game.Season,
			bet.Game.Week,
			bet.Game.HomeTeam,
			bet.Game.AwayTeam,
			string(bet.Market),
			string(bet.Side),
			bet.Book,
			bet.Odds.Or(0),
			line,
			bet.PModel,
			bet.EdgeEV,
			bet.EdgeFair,
			bet.Stake,
			string(bet.Result),
			bet.Payout,
		); err != nil {
			return 0, fmt.Errorf("storage.SaveRun: insert bet %s: %w", bet.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return runID, nil
}

// LoadRun reads a persisted run back, trajectory and ledger included.
func (s *SQLiteStore) LoadRun(ctx context.Context, runID int64) (domain.RunResult, error) {
	var res domain.RunResult
	err := s.db.QueryRowContext(ctx,
		`SELECT selection_policy, staking_mode, starting_bankroll FROM runs WHERE id = ?`,
		runID,
	).Scan(&res.SelectionPolicy, &res.StakingMode, &res.StartingBankroll)
	if err != nil {
		return res, fmt.Errorf("storage.LoadRun: run %d: %w", runID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT season, week, bankroll FROM trajectory WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return res, fmt.Errorf("storage.LoadRun: trajectory: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var snap domain.Snapshot
		if err := rows.Scan(&snap.Season, &snap.Week, &snap.Bankroll); err != nil {
			return res, fmt.Errorf("storage.LoadRun: scan snapshot: %w", err)
		}
		res.Trajectory = append(res.Trajectory, snap)
	}
	if err := rows.Err(); err != nil {
		return res, err
	}

	bets, err := s.db.QueryContext(ctx, `
		SELECT pick_id, season, week, home_team, away_team, market, side,
		       book, odds, line, p_model, edge_ev, edge_fair, stake, result, payout
		FROM ledger WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return res, fmt.Errorf("storage.LoadRun: ledger: %w", err)
	}
	defer bets.Close()
	for bets.Next() {
		var b domain.SettledBet
		var market, side, result string
		var odds float64
		var line sql.NullFloat64
		if err := bets.Scan(
			&b.ID, &b.Game.Season, &b.Game.Week, &b.Game.HomeTeam, &b.Game.AwayTeam,
			&market, &side, &b.Book, &odds, &line, &b.PModel,
			&b.EdgeEV, &b.EdgeFair, &b.Stake, &result, &b.Payout,
		); err != nil {
			return res, fmt.Errorf("storage.LoadRun: scan bet: %w", err)
		}
		b.Market = domain.MarketType(market)
		b.Side = domain.Side(side)
		b.Result = domain.BetResult(result)
		b.Odds = domain.Priced(odds)
		if line.Valid {
			b.Line = domain.Priced(line.Float64)
		}
		res.Ledger = append(res.Ledger, b)
	}
	return res, bets.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
