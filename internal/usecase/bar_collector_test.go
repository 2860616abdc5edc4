package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"FeatureMill/internal/domain/models"
)

type collectorStream struct {
	barCh chan *models.Bar
	errCh chan error
}

func newCollectorStream() *collectorStream {
	return &collectorStream{barCh: make(chan *models.Bar), errCh: make(chan error)}
}

func (s *collectorStream) Connect(ctx context.Context) error   { return nil }
func (s *collectorStream) Subscribe(ctx context.Context) error { return nil }
func (s *collectorStream) Read(ctx context.Context) (<-chan *models.Bar, <-chan error) {
	return s.barCh, s.errCh
}
func (s *collectorStream) Reconnect(ctx context.Context) error { return nil }
func (s *collectorStream) Close() error                        { return nil }
func (s *collectorStream) IsConnected() bool                   { return true }

type collectorStorage struct {
	mu          sync.Mutex
	batches     [][]*models.Bar
	featureRows [][]models.FeatureRow
	results     [][]models.SweepResult
}

func (s *collectorStorage) Init(ctx context.Context) error { return nil }
func (s *collectorStorage) StoreBar(ctx context.Context, b *models.Bar) error {
	return s.StoreBarBatch(ctx, []*models.Bar{b})
}
func (s *collectorStorage) StoreBarBatch(ctx context.Context, bars []*models.Bar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, bars)
	return nil
}
func (s *collectorStorage) StoreFeatureRows(ctx context.Context, table string, rows []models.FeatureRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.featureRows = append(s.featureRows, rows)
	return nil
}
func (s *collectorStorage) StoreSweepResults(ctx context.Context, results []models.SweepResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, results)
	return nil
}
func (s *collectorStorage) Health(ctx context.Context) error { return nil }
func (s *collectorStorage) Close() error                     { return nil }

type collectorMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func newCollectorMetrics() *collectorMetrics {
	return &collectorMetrics{errors: make(map[string]int)}
}

func (m *collectorMetrics) RecordMessageSent(backend, symbol string)     {}
func (m *collectorMetrics) RecordFeatureRows(symbol string, n int)       {}
func (m *collectorMetrics) RecordSweepCell(state string)                 {}
func (m *collectorMetrics) RecordCacheLookup(hit bool)                   {}
func (m *collectorMetrics) RecordLastPrice(symbol string, price float64) {}
func (m *collectorMetrics) RecordLatency(op string, seconds float64)     {}
func (m *collectorMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *collectorMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

type historicalStub struct {
	mu    sync.Mutex
	calls []string
	bars  []*models.Bar
	err   error
}

func (h *historicalStub) Bars(ctx context.Context, symbol, resolution string, from, to time.Time) ([]*models.Bar, error) {
	h.mu.Lock()
	h.calls = append(h.calls, symbol)
	h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	out := make([]*models.Bar, len(h.bars))
	for i, b := range h.bars {
		cp := *b
		cp.Symbol = symbol
		out[i] = &cp
	}
	return out, nil
}

func backfillBars(n int) []*models.Bar {
	bars := make([]*models.Bar, n)
	for i := range bars {
		bars[i] = &models.Bar{
			EpochTime: int64(1700000000 + i*300),
			Open:      100, High: 101, Low: 99, Close: 100.5,
			Volume: 10,
		}
	}
	return bars
}

func TestCollectorBackfillOnStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &collectorStorage{}
	metrics := newCollectorMetrics()
	proc := NewBarProcessor(nil, store, metrics, "clickhouse", 100, time.Second)
	hist := &historicalStub{bars: backfillBars(5)}

	c := NewBarCollector(newCollectorStream(), proc, metrics, nil,
		WithBackfill(hist, []string{"AAPL", "MSFT"}, "5", time.Hour))
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Shutdown(ctx)

	if got := len(hist.calls); got != 2 {
		t.Fatalf("backfill calls = %d, want 2", got)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.batches) != 2 {
		t.Fatalf("stored batches = %d, want 2", len(store.batches))
	}
	for _, batch := range store.batches {
		if len(batch) != 5 {
			t.Fatalf("batch size = %d, want 5", len(batch))
		}
	}
}

func TestCollectorBackfillFailureIsNotFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &collectorStorage{}
	metrics := newCollectorMetrics()
	proc := NewBarProcessor(nil, store, metrics, "clickhouse", 100, time.Second)
	hist := &historicalStub{err: errors.New("upstream down")}

	c := NewBarCollector(newCollectorStream(), proc, metrics, nil,
		WithBackfill(hist, []string{"AAPL"}, "5", time.Hour))
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Shutdown(ctx)

	if got := metrics.errorCount("backfill"); got != 1 {
		t.Fatalf("backfill errors = %d, want 1", got)
	}
	if len(store.batches) != 0 {
		t.Fatalf("stored batches = %d, want 0", len(store.batches))
	}
}

func TestCollectorWithoutBackfill(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &collectorStorage{}
	metrics := newCollectorMetrics()
	proc := NewBarProcessor(nil, store, metrics, "clickhouse", 100, time.Second)

	c := NewBarCollector(newCollectorStream(), proc, metrics, nil)
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Shutdown(ctx)

	if len(store.batches) != 0 {
		t.Fatalf("stored batches = %d, want 0", len(store.batches))
	}
}
