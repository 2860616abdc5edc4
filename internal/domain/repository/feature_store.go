package repository

import (
	"context"
	"time"

	"FeatureMill/internal/domain/models"
)

// Timeframe represents bar resolution buckets.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
)

// FeatureStore provides read-only access to assembled feature rows for the
// query API.
type FeatureStore interface {
	GetFeatureRows(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.FeatureRow, error)
	GetLatestNBars(ctx context.Context, symbol string, n int, tf Timeframe) ([]models.Bar, error)
	Health(ctx context.Context) error
}
