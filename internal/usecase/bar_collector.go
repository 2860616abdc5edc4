package usecase

import (
	"context"
	"time"

	"FeatureMill/internal/domain/models"
	drepo "FeatureMill/internal/domain/repository"
	mid "FeatureMill/internal/middleware"
)

// BarCollector collects bar closes from the market stream and processes them.
type BarCollector struct {
	stream  drepo.MarketStream
	proc    *BarProcessor
	metrics drepo.Metrics
	pipe    *mid.RealtimePipeline

	backfill   drepo.HistoricalFeed
	symbols    []string
	resolution string
	window     time.Duration
}

type CollectorOption func(*BarCollector)

// WithBackfill enables a REST gap-fill of the trailing window on startup,
// before the live subscription begins.
func WithBackfill(h drepo.HistoricalFeed, symbols []string, resolution string, window time.Duration) CollectorOption {
	return func(c *BarCollector) {
		c.backfill = h
		c.symbols = symbols
		c.resolution = resolution
		c.window = window
	}
}

// NewBarCollector creates a new BarCollector instance.
func NewBarCollector(stream drepo.MarketStream, proc *BarProcessor, metrics drepo.Metrics, pipe *mid.RealtimePipeline, opts ...CollectorOption) *BarCollector {
	c := &BarCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsConnected returns true if the market stream is connected.
func (c *BarCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *BarCollector) Start(ctx context.Context) error {
	if err := c.runBackfill(ctx); err != nil {
		// Backfill failure is not fatal; the live stream still starts.
		c.metrics.RecordError("backfill")
	}
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	barCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, barCh, errCh)
	return nil
}

func (c *BarCollector) runBackfill(ctx context.Context) error {
	if c.backfill == nil || c.window <= 0 {
		return nil
	}
	to := time.Now()
	from := to.Add(-c.window)
	for _, symbol := range c.symbols {
		bars, err := c.backfill.Bars(ctx, symbol, c.resolution, from, to)
		if err != nil {
			return err
		}
		if len(bars) == 0 {
			continue
		}
		if err := c.proc.ProcessBatch(ctx, bars); err != nil {
			return err
		}
	}
	return nil
}

func (c *BarCollector) consume(ctx context.Context, barCh <-chan *models.Bar, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case b := <-barCh:
			if b == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, b)
			} else {
				_ = c.proc.Process(ctx, b)
			}
			c.metrics.RecordLastPrice(b.Symbol, b.Close)
		}
	}
}

func (c *BarCollector) Stop() error { return c.stream.Close() }

// Processor returns the underlying BarProcessor for lifecycle management.
func (c *BarCollector) Processor() *BarProcessor { return c.proc }

// Shutdown stops pipeline and closes stream.
func (c *BarCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
