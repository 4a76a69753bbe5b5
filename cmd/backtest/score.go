package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/kcdavs/linebacker/config"
	"github.com/kcdavs/linebacker/internal/adapters/oddsfeed"
	"github.com/kcdavs/linebacker/internal/backtest"
	"github.com/kcdavs/linebacker/internal/domain"
	"github.com/kcdavs/linebacker/internal/ports"
)

// runScore prices one upcoming week against the live per-book board and
// prints the picks without settling anything.
func runScore(
	ctx context.Context,
	cfg *config.Config,
	driver *backtest.Driver,
	reporter ports.Reporter,
	history []domain.GameRecord,
	season, week int,
) {
	if season == 0 || week == 0 {
		slog.Error("score mode needs -season and -week")
		os.Exit(1)
	}
	if cfg.Feed.OddsBase == "" {
		slog.Error("score mode needs feed.odds_base in the config (or ODDS_BASE)")
		os.Exit(1)
	}

	var board ports.QuoteFeed = oddsfeed.NewClient(cfg.Feed.OddsBase)
	upcoming, err := board.CurrentQuotes(ctx, season, week)
	if err != nil {
		slog.Error("failed to fetch the board", "err", err)
		os.Exit(1)
	}
	slog.Info("board fetched", "season", season, "week", week, "games", len(upcoming))

	picks, err := driver.Score(ctx, history, upcoming)
	if err != nil {
		slog.Error("scoring failed", "err", err)
		os.Exit(1)
	}

	if err := reporter.ReportPicks(ctx, picks); err != nil {
		slog.Warn("reporter error", "err", err)
	}
}
