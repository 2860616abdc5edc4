package usecase

import (
	"context"
	"testing"
	"time"

	"FeatureMill/internal/domain/models"
	"FeatureMill/pkg/cache"
)

func newTestSweepService(t *testing.T) *SweepService {
	t.Helper()
	sweep := newTestSweep(t, stubTrainer{})
	sets := []models.IndicatorParameterSet{testIndicatorSet("a")}
	return NewSweepService(sweep, sets, testGrid(10, 20), 2, nil, cache.NewMemoryCache(), nil, nil, newTestLogger(t))
}

func TestSweepServiceExecuteRecordsResults(t *testing.T) {
	svc := newTestSweepService(t)
	ctx := context.Background()

	payload := SweepJobPayload{
		ID:     "sweep-test-1",
		Symbol: "TEST",
		From:   testRange.from.Unix(),
		To:     testRange.to.Unix(),
	}
	if err := svc.Execute(ctx, payload); err != nil {
		t.Fatalf("execute: %v", err)
	}

	st, ok := svc.Status(ctx, "sweep-test-1")
	if !ok {
		t.Fatalf("status must be recorded")
	}
	if st.State != sweepStatusDone {
		t.Fatalf("expected done, got %s", st.State)
	}
	if len(st.Results) != 2 {
		t.Fatalf("expected 2 cell results, got %d", len(st.Results))
	}
	if st.Results[0].State != models.CellDone {
		t.Fatalf("ranked results start with completed cells")
	}
}

func TestSweepServiceExecutePersistsFeatureTables(t *testing.T) {
	store := &collectorStorage{}
	sweep := newTestSweep(t, stubTrainer{})
	sets := []models.IndicatorParameterSet{testIndicatorSet("a")}
	svc := NewSweepService(sweep, sets, testGrid(10, 20), 2, nil, cache.NewMemoryCache(), store, nil, newTestLogger(t))
	ctx := context.Background()

	payload := SweepJobPayload{
		ID:     "sweep-test-2",
		Symbol: "TEST",
		From:   testRange.from.Unix(),
		To:     testRange.to.Unix(),
	}
	if err := svc.Execute(ctx, payload); err != nil {
		t.Fatalf("execute: %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.results) != 1 {
		t.Fatalf("expected one sweep result batch, got %d", len(store.results))
	}
	if len(store.featureRows) != len(sets) {
		t.Fatalf("expected one feature table per indicator set, got %d", len(store.featureRows))
	}
	if len(store.featureRows[0]) != 60 {
		t.Fatalf("expected one persisted row per bar, got %d", len(store.featureRows[0]))
	}
}

func TestSweepServiceCancelledRunReportsPartial(t *testing.T) {
	svc := newTestSweepService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	payload := SweepJobPayload{
		ID:     "sweep-test-3",
		Symbol: "TEST",
		From:   testRange.from.Unix(),
		To:     testRange.to.Unix(),
	}
	if err := svc.Execute(ctx, payload); err != nil {
		t.Fatalf("execute: %v", err)
	}

	st, ok := svc.Status(context.Background(), "sweep-test-3")
	if !ok {
		t.Fatalf("status must be recorded")
	}
	if st.State != sweepStatusPartial {
		t.Fatalf("expected partial, got %s", st.State)
	}
	if st.Pending != 2 {
		t.Fatalf("expected 2 pending cells, got %d", st.Pending)
	}
}

func TestSweepServiceSubmitValidates(t *testing.T) {
	svc := newTestSweepService(t)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, "", testRange.from, testRange.to); err == nil {
		t.Fatalf("missing symbol must be rejected at submission")
	}
	if _, err := svc.Submit(ctx, "TEST", testRange.to, testRange.from); err == nil {
		t.Fatalf("inverted range must be rejected at submission")
	}
}

func TestSweepServiceStatusUnknown(t *testing.T) {
	svc := newTestSweepService(t)
	if _, ok := svc.Status(context.Background(), "no-such-sweep"); ok {
		t.Fatalf("unknown id must report not found")
	}
}

func TestSweepServiceSubmitRunsInline(t *testing.T) {
	svc := newTestSweepService(t)
	ctx := context.Background()

	id, err := svc.Submit(ctx, "TEST", testRange.from, testRange.to)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		st, ok := svc.Status(ctx, id)
		if ok && st.State == sweepStatusDone {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("sweep did not finish, last state %+v", st)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
