package ports

import (
	"context"

	"github.com/kcdavs/linebacker/internal/domain"
)

// Reporter renders a finished run for a human.
type Reporter interface {
	Report(ctx context.Context, res domain.RunResult) error
	// ReportPicks renders unsettled picks (score mode: outcomes unknown).
	ReportPicks(ctx context.Context, picks []domain.Pick) error
}

// QuoteFeed supplies per-book quotes for games that have not been played,
// used when scoring the upcoming week against live books.
type QuoteFeed interface {
	CurrentQuotes(ctx context.Context, season, week int) ([]domain.GameRecord, error)
}
