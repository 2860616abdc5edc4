package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"FeatureMill/internal/domain/models"
	"FeatureMill/internal/services/model"
)

func testGrid(nEstimators ...int) ModelGrid {
	return ModelGrid{
		NEstimators:     nEstimators,
		MaxDepth:        []int{4},
		MinSamplesSplit: []int{2},
		MinSamplesLeaf:  []int{1},
		NFeatures:       []int{0},
	}
}

func TestModelGridValidate(t *testing.T) {
	if err := testGrid(10).Validate(); err != nil {
		t.Fatalf("valid grid rejected: %v", err)
	}
	bad := testGrid(10)
	bad.MaxDepth = nil
	if err := bad.Validate(); err == nil {
		t.Fatalf("empty candidate list must be rejected")
	}
	bad = testGrid(0)
	if err := bad.Validate(); err == nil {
		t.Fatalf("non-positive n_estimators must be rejected")
	}
}

func TestGridEnumerationDeterministic(t *testing.T) {
	g := ModelGrid{
		NEstimators:     []int{10, 20},
		MaxDepth:        []int{3, 6},
		MinSamplesSplit: []int{2},
		MinSamplesLeaf:  []int{1, 4},
		NFeatures:       []int{0, 8},
	}
	a := g.Enumerate()
	b := g.Enumerate()
	if len(a) != g.Size() {
		t.Fatalf("expected %d combinations, got %d", g.Size(), len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("index %d: enumeration must be stable", i)
		}
	}
	// lexicographic by parameter name: max_depth varies slowest
	if a[0].MaxDepth != 3 || a[len(a)-1].MaxDepth != 6 {
		t.Fatalf("unexpected enumeration order: %v ... %v", a[0], a[len(a)-1])
	}
}

func TestCellIteratorCount(t *testing.T) {
	sets := []models.IndicatorParameterSet{testIndicatorSet("a"), testIndicatorSet("b")}
	it := NewCellIterator(sets, testGrid(10, 20, 30))
	if it.Total() != 6 {
		t.Fatalf("2 sets x 3 combos must yield 6 cells, got %d", it.Total())
	}
	seen := 0
	prevSeq := -1
	for {
		cell, ok := it.Next()
		if !ok {
			break
		}
		if cell.Seq != prevSeq+1 {
			t.Fatalf("sequence must be contiguous, got %d after %d", cell.Seq, prevSeq)
		}
		prevSeq = cell.Seq
		seen++
	}
	if seen != 6 {
		t.Fatalf("iterator yielded %d cells, want 6", seen)
	}
}

// stubTrainer scores cells by n_estimators and fails a chosen value.
type stubTrainer struct {
	failOn int
}

func (s stubTrainer) Fit(ctx context.Context, ds *model.Dataset, params models.ModelParameterSet) (model.FitReport, error) {
	if params.NEstimators == s.failOn {
		return model.FitReport{}, fmt.Errorf("synthetic failure for %d estimators", params.NEstimators)
	}
	return model.FitReport{
		Metric:   float64(params.NEstimators) / 100,
		ModelRef: fmt.Sprintf("stub-%d", params.NEstimators),
	}, nil
}

func newTestSweep(t *testing.T, trainer model.Trainer) *Sweep {
	t.Helper()
	src := &stubSource{bars: testBars(60)}
	a, reg := newTestAssembler(t, src)
	cache := NewFeatureCache(a, nil)
	return NewSweep(reg, cache, trainer, newTestLogger(t), WithWorkers(2))
}

func testSweepRequest(sets ...models.IndicatorParameterSet) SweepRequest {
	return SweepRequest{
		Symbol:        "TEST",
		From:          testRange.from,
		To:            testRange.to,
		IndicatorSets: sets,
		Grid:          testGrid(10, 20, 30),
		HorizonBars:   2,
	}
}

func TestSweepFailureIsolation(t *testing.T) {
	s := newTestSweep(t, stubTrainer{failOn: 20})
	setB := testIndicatorSet("b")
	setB.Variants[0].RSIPeriod = 9

	results, err := s.Run(context.Background(), testSweepRequest(testIndicatorSet("a"), setB))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %d", len(results))
	}
	done, failed := 0, 0
	for _, r := range results {
		switch r.State {
		case models.CellDone:
			done++
		case models.CellFailed:
			failed++
			if r.Cause == "" {
				t.Fatalf("failed cell must record its cause")
			}
		default:
			t.Fatalf("unexpected state %s", r.State)
		}
	}
	if done != 4 || failed != 2 {
		t.Fatalf("expected 4 done and 2 failed, got %d/%d", done, failed)
	}
	// ranked: all done cells precede failures, best metric first
	for i := 0; i < done; i++ {
		if results[i].State != models.CellDone {
			t.Fatalf("rank %d: done cells must come first", i)
		}
		if i > 0 && results[i].Metric > results[i-1].Metric {
			t.Fatalf("rank %d: metrics must be non-increasing", i)
		}
	}
}

func TestSweepDeterministicResults(t *testing.T) {
	s1 := newTestSweep(t, stubTrainer{})
	s2 := newTestSweep(t, stubTrainer{})
	req := testSweepRequest(testIndicatorSet("a"))

	r1, err := s1.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	r2, err := s2.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(r1) != len(r2) {
		t.Fatalf("result counts differ")
	}
	for i := range r1 {
		if r1[i].State != r2[i].State || r1[i].Metric != r2[i].Metric ||
			r1[i].Model != r2[i].Model {
			t.Fatalf("index %d: repeated sweeps must agree", i)
		}
	}
}

func TestSweepCancelledBeforeStart(t *testing.T) {
	s := newTestSweep(t, stubTrainer{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := s.Run(ctx, testSweepRequest(testIndicatorSet("a")))
	if err == nil {
		t.Fatalf("expected the context error alongside partial results")
	}
	if len(results) != 3 {
		t.Fatalf("expected one result per cell, got %d", len(results))
	}
	for i, r := range results {
		if r.State != models.CellPending {
			t.Fatalf("cell %d: unscheduled cells stay pending, got %s", i, r.State)
		}
	}
}

// slowTrainer holds every fit long enough for a sweep deadline to lapse.
type slowTrainer struct {
	delay time.Duration
}

func (s slowTrainer) Fit(ctx context.Context, ds *model.Dataset, params models.ModelParameterSet) (model.FitReport, error) {
	time.Sleep(s.delay)
	return model.FitReport{Metric: 0.5, ModelRef: "slow"}, nil
}

func TestSweepDeadlineReturnsPartialResults(t *testing.T) {
	src := &stubSource{bars: testBars(60)}
	a, reg := newTestAssembler(t, src)
	fc := NewFeatureCache(a, nil)
	s := NewSweep(reg, fc, slowTrainer{delay: 150 * time.Millisecond}, newTestLogger(t),
		WithWorkers(1), WithDeadline(50*time.Millisecond))

	// Three cells on one worker: the first two pass the deadline check
	// before any fit finishes, the third is only considered after the
	// first fit, past the deadline.
	results, err := s.Run(context.Background(), testSweepRequest(testIndicatorSet("a")))
	if err != nil {
		t.Fatalf("deadline is not an error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected one result per cell, got %d", len(results))
	}
	done, pending := 0, 0
	for i, r := range results {
		switch r.State {
		case models.CellDone:
			done++
		case models.CellPending:
			pending++
		default:
			t.Fatalf("cell %d: unexpected state %s (%s)", i, r.State, r.Cause)
		}
	}
	if done != 2 || pending != 1 {
		t.Fatalf("expected 2 done and 1 pending, got %d done %d pending", done, pending)
	}
	// ranking keeps completed cells ahead of the unscheduled one
	if results[len(results)-1].State != models.CellPending {
		t.Fatalf("pending cells must rank last, got %s", results[len(results)-1].State)
	}
}

func TestSweepRejectsMalformedRequest(t *testing.T) {
	s := newTestSweep(t, stubTrainer{})
	req := testSweepRequest(testIndicatorSet("a"))
	req.Symbol = ""
	if _, err := s.Run(context.Background(), req); err == nil {
		t.Fatalf("missing symbol must be rejected")
	}

	req = testSweepRequest(testIndicatorSet("a"))
	req.To = req.From
	if _, err := s.Run(context.Background(), req); err == nil {
		t.Fatalf("empty range must be rejected")
	}

	req = testSweepRequest(testIndicatorSet("a"))
	req.HorizonBars = 0
	if _, err := s.Run(context.Background(), req); err == nil {
		t.Fatalf("non-positive horizon must be rejected")
	}
}

func TestRankTieBreak(t *testing.T) {
	mkModel := func(ne int) models.ModelParameterSet {
		return models.ModelParameterSet{NEstimators: ne, MaxDepth: 4, MinSamplesSplit: 2, MinSamplesLeaf: 1}
	}
	results := []models.SweepResult{
		{Model: mkModel(30), State: models.CellDone, Metric: 0.5},
		{Model: mkModel(10), State: models.CellFailed},
		{Model: mkModel(20), State: models.CellDone, Metric: 0.5},
		{Model: mkModel(5), State: models.CellDone, Metric: 0.9},
	}
	Rank(results)

	if results[0].Metric != 0.9 {
		t.Fatalf("best metric must rank first")
	}
	// equal metrics: smaller model key wins (n_estimators=20 < 30 lexicographically)
	if results[1].Model.NEstimators != 20 || results[2].Model.NEstimators != 30 {
		t.Fatalf("tie must break on the model key: got %d then %d",
			results[1].Model.NEstimators, results[2].Model.NEstimators)
	}
	if results[3].State != models.CellFailed {
		t.Fatalf("failed cells rank last")
	}
	// deterministic under re-ranking
	Rank(results)
	if results[1].Model.NEstimators != 20 {
		t.Fatalf("ranking must be idempotent")
	}
}

// guard against accidental key drift: enumeration order must match the
// documented name order in ModelParameterSet.Key.
func TestEnumerationMatchesKeyOrder(t *testing.T) {
	g := ModelGrid{
		NEstimators:     []int{1, 2},
		MaxDepth:        []int{1, 2},
		MinSamplesSplit: []int{1, 2},
		MinSamplesLeaf:  []int{1, 2},
		NFeatures:       []int{1, 2},
	}
	combos := g.Enumerate()
	for i := 1; i < len(combos); i++ {
		if combos[i-1].Key() >= combos[i].Key() {
			t.Fatalf("enumeration must be strictly increasing by key: %q then %q",
				combos[i-1].Key(), combos[i].Key())
		}
	}
}
