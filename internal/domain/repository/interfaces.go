package repository

import (
	"context"
	"time"

	"FeatureMill/internal/domain/models"
)

// MarketStream is a live feed of bar closes, typically backed by a websocket
// subscription.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Bar, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// HistoricalFeed serves bar history from the exchange REST API, used to fill
// the range between the last stored bar and the live stream.
type HistoricalFeed interface {
	Bars(ctx context.Context, symbol, resolution string, from, to time.Time) ([]*models.Bar, error)
}

// MarketSource serves historical bars and order book snapshots for one
// symbol, time-ordered.
type MarketSource interface {
	Bars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error)
	Snapshots(ctx context.Context, symbol string, from, to time.Time) ([]models.OrderBookSnapshot, error)
}

// Publisher pushes bars and sweep results to downstream consumers.
type Publisher interface {
	PublishBar(ctx context.Context, b *models.Bar) error
	PublishBarBatch(ctx context.Context, bars []*models.Bar) error
	PublishResult(ctx context.Context, r *models.SweepResult) error
	Close() error
}

// Storage persists ingested bars and the produced feature tables and sweep
// results.
type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	StoreBar(ctx context.Context, b *models.Bar) error
	StoreBarBatch(ctx context.Context, bars []*models.Bar) error
	StoreFeatureRows(ctx context.Context, table string, rows []models.FeatureRow) error
	StoreSweepResults(ctx context.Context, results []models.SweepResult) error
	Health(ctx context.Context) error // ping
	Close() error
}

type Metrics interface {
	RecordMessageSent(backend, symbol string)
	RecordFeatureRows(symbol string, n int)
	RecordSweepCell(state string)
	RecordCacheLookup(hit bool)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
