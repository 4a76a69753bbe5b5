package ports

import (
	"context"

	"github.com/kcdavs/linebacker/internal/domain"
)

// Model is the trained state produced by one Fit call. Predict returns the
// home-side probability (win for moneyline, cover for spread) per input row,
// in row order; rows the model cannot price come back missing, never zero.
type Model interface {
	Predict(rows []domain.GameRecord) ([]domain.Price, error)
}

// Estimator is the opaque probability-estimator capability. The engine
// retrains it every week on the training partition it supplies; a conforming
// implementation keeps no memory of prior weeks beyond those rows.
type Estimator interface {
	Fit(ctx context.Context, train []domain.GameRecord, market domain.MarketType) (Model, error)
}
