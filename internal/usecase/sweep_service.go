package usecase

import (
	"context"
	"fmt"
	"time"

	"FeatureMill/internal/domain/models"
	"FeatureMill/internal/domain/repository"
	"FeatureMill/pkg/cache"
	"FeatureMill/pkg/logger"
	"FeatureMill/pkg/queue"
)

// SweepMsgType is the queue message type for sweep runs.
const SweepMsgType = "sweep.run"

const (
	sweepStatusQueued  = "queued"
	sweepStatusRunning = "running"
	sweepStatusDone    = "done"
	sweepStatusPartial = "partial"
	sweepStatusFailed  = "failed"
)

// SweepJobPayload travels through the job queue.
type SweepJobPayload struct {
	ID          string `json:"id"`
	Symbol      string `json:"symbol"`
	From        int64  `json:"from"`
	To          int64  `json:"to"`
	HorizonBars int    `json:"horizon_bars"`
}

// SweepStatus is the externally visible state of one submitted sweep. A
// deadline or cancellation mid-run yields state "partial" with the count of
// cells that never ran.
type SweepStatus struct {
	ID      string               `json:"id"`
	State   string               `json:"state"`
	Cells   int                  `json:"cells"`
	Pending int                  `json:"pending,omitempty"`
	Error   string               `json:"error,omitempty"`
	Results []models.SweepResult `json:"results,omitempty"`
}

func sweepCacheKey(id string) string { return "sweep:" + id }

// SweepService accepts sweep submissions over the API, runs them off a job
// queue, and keeps their status and ranked results in the cache. The grid
// declaration comes from static configuration.
type SweepService struct {
	sweep   *Sweep
	sets    []models.IndicatorParameterSet
	grid    ModelGrid
	horizon int
	queue   queue.QueueService
	cache   cache.Service
	storage repository.Storage
	pub     repository.Publisher
	log     *logger.Logger
	ttl     time.Duration
}

func NewSweepService(
	sweep *Sweep,
	sets []models.IndicatorParameterSet,
	grid ModelGrid,
	horizon int,
	q queue.QueueService,
	c cache.Service,
	storage repository.Storage,
	pub repository.Publisher,
	log *logger.Logger,
) *SweepService {
	return &SweepService{
		sweep:   sweep,
		sets:    sets,
		grid:    grid,
		horizon: horizon,
		queue:   q,
		cache:   c,
		storage: storage,
		pub:     pub,
		log:     log,
		ttl:     24 * time.Hour,
	}
}

// Request builds a SweepRequest from the declared grid configuration.
func (s *SweepService) Request(symbol string, from, to time.Time) SweepRequest {
	return SweepRequest{
		Symbol:        symbol,
		From:          from,
		To:            to,
		IndicatorSets: s.sets,
		Grid:          s.grid,
		HorizonBars:   s.horizon,
	}
}

// Submit validates the request, queues it, and returns the sweep id.
// Malformed grids are rejected here, before anything runs.
func (s *SweepService) Submit(ctx context.Context, symbol string, from, to time.Time) (string, error) {
	req := s.Request(symbol, from, to)
	if err := req.validate(); err != nil {
		return "", err
	}

	id := fmt.Sprintf("sweep-%s-%d", symbol, time.Now().UnixNano())
	status := SweepStatus{ID: id, State: sweepStatusQueued, Cells: len(s.sets) * s.grid.Size()}
	if err := s.cache.Set(ctx, sweepCacheKey(id), status, s.ttl); err != nil {
		return "", fmt.Errorf("record sweep status: %w", err)
	}

	payload := SweepJobPayload{
		ID:          id,
		Symbol:      symbol,
		From:        from.Unix(),
		To:          to.Unix(),
		HorizonBars: s.horizon,
	}
	if s.queue == nil {
		// No queue configured: run in the background, detached from the
		// request context.
		go func() {
			if err := s.Execute(context.WithoutCancel(ctx), payload); err != nil {
				s.log.Error("inline sweep failed", logger.String("id", id), logger.Error(err))
			}
		}()
	} else if err := s.queue.PublishMessage(ctx, SweepMsgType, payload); err != nil {
		return "", fmt.Errorf("enqueue sweep: %w", err)
	}
	s.log.Info("sweep submitted",
		logger.String("id", id),
		logger.String("symbol", symbol),
		logger.Int("cells", status.Cells))
	return id, nil
}

// Execute runs a queued sweep, persists results and publishes the ranked
// best cell.
func (s *SweepService) Execute(ctx context.Context, p SweepJobPayload) error {
	req := s.Request(p.Symbol, time.Unix(p.From, 0), time.Unix(p.To, 0))
	if p.HorizonBars > 0 {
		req.HorizonBars = p.HorizonBars
	}
	s.setStatus(ctx, SweepStatus{ID: p.ID, State: sweepStatusRunning, Cells: len(s.sets) * s.grid.Size()})

	results, err := s.sweep.Run(ctx, req)
	if err != nil && len(results) == 0 {
		s.setStatus(ctx, SweepStatus{ID: p.ID, State: sweepStatusFailed, Error: err.Error()})
		return fmt.Errorf("sweep %s: %w", p.ID, err)
	}

	done, pending := 0, 0
	for _, r := range results {
		switch r.State {
		case models.CellDone:
			done++
		case models.CellPending:
			pending++
		}
	}

	if s.storage != nil {
		if serr := s.storage.StoreSweepResults(ctx, results); serr != nil {
			s.log.Error("store sweep results", logger.String("id", p.ID), logger.Error(serr))
		}
		if done > 0 {
			s.persistFeatureTables(ctx, p.ID, req)
		}
	}
	if s.pub != nil && len(results) > 0 && results[0].State == models.CellDone {
		if perr := s.pub.PublishResult(ctx, &results[0]); perr != nil {
			s.log.Error("publish best result", logger.String("id", p.ID), logger.Error(perr))
		}
	}

	state := sweepStatusDone
	if pending > 0 {
		state = sweepStatusPartial
	}
	s.setStatus(ctx, SweepStatus{
		ID:      p.ID,
		State:   state,
		Cells:   len(results),
		Pending: pending,
		Results: results,
	})
	return nil
}

// persistFeatureTables writes the assembled table of every indicator set to
// the feature sink. The sweep already built them, so each load is a cache
// hit.
func (s *SweepService) persistFeatureTables(ctx context.Context, id string, req SweepRequest) {
	for _, set := range req.IndicatorSets {
		rows, err := s.sweep.FeatureTable(ctx, req.Symbol, req.From, req.To, set)
		if err != nil {
			s.log.Error("load feature table",
				logger.String("id", id),
				logger.String("set", set.Name),
				logger.Error(err))
			continue
		}
		if err := s.storage.StoreFeatureRows(ctx, "", rows); err != nil {
			s.log.Error("store feature rows",
				logger.String("id", id),
				logger.String("set", set.Name),
				logger.Error(err))
		}
	}
}

// Status returns the recorded state of one sweep, or false when unknown.
func (s *SweepService) Status(ctx context.Context, id string) (SweepStatus, bool) {
	var st SweepStatus
	if err := s.cache.Get(ctx, sweepCacheKey(id), &st); err != nil {
		return SweepStatus{}, false
	}
	return st, true
}

func (s *SweepService) setStatus(ctx context.Context, st SweepStatus) {
	if err := s.cache.Set(ctx, sweepCacheKey(st.ID), st, s.ttl); err != nil {
		s.log.Error("update sweep status", logger.String("id", st.ID), logger.Error(err))
	}
}

// SweepJob adapts SweepService to the queue's Job interface.
type SweepJob struct {
	svc *SweepService
}

func NewSweepJob(svc *SweepService) *SweepJob { return &SweepJob{svc: svc} }

func (j *SweepJob) Name() string { return "sweep_runner" }

func (j *SweepJob) Type() string { return SweepMsgType }

func (j *SweepJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[SweepJobPayload](payload)
	if err != nil {
		return fmt.Errorf("sweep payload: %w", err)
	}
	return j.svc.Execute(ctx, *p)
}

var _ queue.Job = (*SweepJob)(nil)
