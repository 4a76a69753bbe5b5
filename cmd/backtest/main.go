package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kcdavs/linebacker/config"
	"github.com/kcdavs/linebacker/internal/adapters/feed"
	"github.com/kcdavs/linebacker/internal/adapters/notify"
	"github.com/kcdavs/linebacker/internal/adapters/storage"
	"github.com/kcdavs/linebacker/internal/backtest"
	"github.com/kcdavs/linebacker/internal/domain"
	"github.com/kcdavs/linebacker/internal/estimator"
	"github.com/kcdavs/linebacker/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	mode := flag.String("mode", "backtest", "backtest: walk the full history | score: price the upcoming week")
	season := flag.Int("season", 0, "season to score (score mode)")
	week := flag.Int("week", 0, "week to score (score mode)")
	table := flag.Bool("table", false, "print full tables (default: compact 1-line)")
	noStore := flag.Bool("no-store", false, "skip persisting the run")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("linebacker starting",
		"config", *configPath,
		"mode", *mode,
		"games", cfg.Data.GamesCSV,
		"quotes", cfg.Data.QuotesCSV,
	)

	history, err := feed.Load(cfg.Data.GamesCSV, cfg.Data.QuotesCSV)
	if err != nil {
		slog.Error("failed to load history", "err", err)
		os.Exit(1)
	}

	driver, err := backtest.New(cfg.Engine(), estimator.New())
	if err != nil {
		slog.Error("bad engine configuration", "err", err)
		os.Exit(1)
	}

	reporter := notify.NewConsole(*table)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "score":
		runScore(ctx, cfg, driver, reporter, history, *season, *week)
	case "backtest":
		runBacktest(ctx, cfg, driver, reporter, history, *noStore)
	default:
		slog.Error("unknown mode", "mode", *mode)
		os.Exit(1)
	}
}

func runBacktest(
	ctx context.Context,
	cfg *config.Config,
	driver *backtest.Driver,
	reporter ports.Reporter,
	history []domain.GameRecord,
	noStore bool,
) {
	res, err := driver.Run(ctx, history)
	if err != nil {
		slog.Error("run aborted", "err", err)
		os.Exit(1)
	}

	if err := reporter.Report(ctx, res); err != nil {
		slog.Warn("reporter error", "err", err)
	}

	if noStore {
		return
	}
	var store ports.RunStore
	store, err = storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	runID, err := store.SaveRun(ctx, res)
	if err != nil {
		slog.Error("failed to persist run", "err", err)
		os.Exit(1)
	}
	slog.Info("run persisted", "run_id", runID, "dsn", cfg.Storage.DSN)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
