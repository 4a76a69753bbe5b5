package ports

import (
	"context"

	"github.com/kcdavs/linebacker/internal/domain"
)

// RunStore persists completed runs for downstream reporting.
type RunStore interface {
	// SaveRun writes the trajectory and ledger of a run and returns its ID.
	SaveRun(ctx context.Context, res domain.RunResult) (int64, error)
	Close() error
}
