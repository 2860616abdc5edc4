package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"FeatureMill/internal/domain/models"
	"FeatureMill/internal/domain/repository"
	"FeatureMill/internal/schema"
	"FeatureMill/internal/services/model"
	"FeatureMill/pkg/logger"
)

// SweepRequest describes one full grid sweep over a symbol and range.
type SweepRequest struct {
	Symbol        string
	From, To      time.Time
	IndicatorSets []models.IndicatorParameterSet
	Grid          ModelGrid
	HorizonBars   int
}

func (r SweepRequest) validate() error {
	if r.Symbol == "" {
		return fmt.Errorf("sweep: symbol is required")
	}
	if !r.To.After(r.From) {
		return fmt.Errorf("sweep: empty time range [%s, %s]", r.From, r.To)
	}
	if len(r.IndicatorSets) == 0 {
		return fmt.Errorf("sweep: no indicator parameter sets declared")
	}
	if r.HorizonBars <= 0 {
		return fmt.Errorf("sweep: horizon must be positive, got %d", r.HorizonBars)
	}
	return r.Grid.Validate()
}

// Sweep drives the grid: each cell fetches its feature table through the
// shared cache, builds the target, fits and scores a model. Cells run
// concurrently under a bounded pool; a failing cell never aborts siblings.
type Sweep struct {
	registry *schema.Registry
	cache    *FeatureCache
	trainer  model.Trainer
	log      *logger.Logger
	metrics  repository.Metrics
	workers  int
	deadline time.Duration
}

type SweepOption func(*Sweep)

func WithWorkers(n int) SweepOption {
	return func(s *Sweep) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithDeadline caps the whole sweep: once it passes, no new cell is
// scheduled and the partial results are returned. Zero disables the cap.
func WithDeadline(d time.Duration) SweepOption {
	return func(s *Sweep) { s.deadline = d }
}

func WithSweepMetrics(m repository.Metrics) SweepOption {
	return func(s *Sweep) { s.metrics = m }
}

func NewSweep(reg *schema.Registry, cache *FeatureCache, trainer model.Trainer, log *logger.Logger, opts ...SweepOption) *Sweep {
	s := &Sweep{
		registry: reg,
		cache:    cache,
		trainer:  trainer,
		log:      log,
		workers:  4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FeatureTable returns the assembled table for one indicator set through the
// shared cache. After a sweep over the same range this is a pure cache hit.
func (s *Sweep) FeatureTable(ctx context.Context, symbol string, from, to time.Time, set models.IndicatorParameterSet) ([]models.FeatureRow, error) {
	return s.cache.Get(ctx, symbol, from, to, set)
}

// Run executes every grid cell and returns one result per cell, ranked by
// metric. Structural problems (malformed grid, empty range declaration) fail
// before any cell is scheduled. Cancelling ctx stops scheduling; in-flight
// cells finish on a detached context.
func (s *Sweep) Run(ctx context.Context, req SweepRequest) ([]models.SweepResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	it := NewCellIterator(req.IndicatorSets, req.Grid)
	results := make([]models.SweepResult, it.Total())

	var started time.Time
	if s.deadline > 0 {
		started = time.Now()
	}

	s.log.Info("sweep started",
		logger.String("symbol", req.Symbol),
		logger.Int("indicator_sets", len(req.IndicatorSets)),
		logger.Int("cells", it.Total()),
		logger.Int("workers", s.workers))

	cellCtx := context.WithoutCancel(ctx)
	g := new(errgroup.Group)
	g.SetLimit(s.workers)

	var mu sync.Mutex
	scheduled := 0
	for {
		cell, ok := it.Next()
		if !ok {
			break
		}
		if ctx.Err() != nil || (s.deadline > 0 && time.Since(started) > s.deadline) {
			results[cell.Seq] = models.SweepResult{
				Indicator: cell.Indicator,
				Model:     cell.Model,
				State:     models.CellPending,
			}
			continue
		}
		scheduled++
		g.Go(func() error {
			res := s.runCell(cellCtx, req, cell)
			mu.Lock()
			results[cell.Seq] = res
			mu.Unlock()
			return nil
		})
	}
	g.Wait() // cell errors are folded into results, never returned

	done, failed, skipped := 0, 0, 0
	for _, r := range results {
		switch r.State {
		case models.CellDone:
			done++
		case models.CellFailed:
			failed++
		default:
			skipped++
		}
	}
	s.log.Info("sweep finished",
		logger.String("symbol", req.Symbol),
		logger.Int("scheduled", scheduled),
		logger.Int("done", done),
		logger.Int("failed", failed),
		logger.Int("skipped", skipped))

	Rank(results)
	return results, ctx.Err()
}

// runCell walks one cell through the state machine. Every failure is
// terminal for the cell only.
func (s *Sweep) runCell(ctx context.Context, req SweepRequest, cell Cell) models.SweepResult {
	res := models.SweepResult{
		Indicator: cell.Indicator,
		Model:     cell.Model,
		State:     models.CellPending,
	}
	fail := func(err error) models.SweepResult {
		res.State = models.CellFailed
		res.Cause = err.Error()
		if s.metrics != nil {
			s.metrics.RecordSweepCell(string(models.CellFailed))
		}
		s.log.Warn("grid cell failed",
			logger.String("cell", res.Cell()),
			logger.Error(err))
		return res
	}
	step := func(state models.CellState) {
		res.State = state
		if s.metrics != nil {
			s.metrics.RecordSweepCell(string(state))
		}
	}

	step(models.CellFeatureBuilding)
	rows, err := s.cache.Get(ctx, req.Symbol, req.From, req.To, cell.Indicator)
	if err != nil {
		return fail(fmt.Errorf("feature building: %w", err))
	}

	step(models.CellModelFitting)
	ds, err := s.buildDataset(rows, req.HorizonBars)
	if err != nil {
		return fail(fmt.Errorf("dataset: %w", err))
	}
	report, err := s.trainer.Fit(ctx, ds, cell.Model)
	if err != nil {
		return fail(fmt.Errorf("model fitting: %w", err))
	}

	step(models.CellScored)
	res.Metric = report.Metric
	res.ModelRef = report.ModelRef

	step(models.CellDone)
	return res
}

// buildDataset derives labels from the close column and projects rows onto
// the full registry schema.
func (s *Sweep) buildDataset(rows []models.FeatureRow, horizon int) (*model.Dataset, error) {
	closeCol, err := s.registry.Resolve("close")
	if err != nil {
		return nil, err
	}
	closes := make([]float64, len(rows))
	for i, row := range rows {
		closes[i] = row.Values[closeCol]
	}
	labels := model.Categorize(model.ForwardPercentChange(closes, horizon))
	return model.BuildDataset(rows, s.registry.Columns(), labels)
}

// Rank orders results best-first by metric; completed cells precede failed
// and unscheduled ones. Equal metrics fall back to the smaller model key,
// then the smaller indicator key, so the best pick is reproducible.
func Rank(results []models.SweepResult) {
	sort.SliceStable(results, func(a, b int) bool {
		ra, rb := results[a], results[b]
		da, db := ra.State == models.CellDone, rb.State == models.CellDone
		if da != db {
			return da
		}
		if !da {
			return false // keep relative order of non-done cells
		}
		if ra.Metric != rb.Metric {
			return ra.Metric > rb.Metric
		}
		if ra.Model.Key() != rb.Model.Key() {
			return ra.Model.Key() < rb.Model.Key()
		}
		return ra.Indicator.Key() < rb.Indicator.Key()
	})
}
