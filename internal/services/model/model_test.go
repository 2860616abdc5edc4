package model

import (
	"context"
	"errors"
	"math"
	"testing"

	"FeatureMill/internal/domain/models"
)

func TestForwardPercentChange(t *testing.T) {
	close := []float64{100, 110, 121, 133.1}
	out := ForwardPercentChange(close, 2)
	if math.Abs(out[0]-21) > 1e-9 {
		t.Fatalf("index 0: got %v", out[0])
	}
	if math.Abs(out[1]-21) > 1e-9 {
		t.Fatalf("index 1: got %v", out[1])
	}
	for i := 2; i < 4; i++ {
		if !models.IsUnavailable(out[i]) {
			t.Fatalf("index %d has no future bar, got %v", i, out[i])
		}
	}
}

func TestCategorizeFlatSeries(t *testing.T) {
	labels := Categorize([]float64{1, 1, 1, 1})
	for i, l := range labels {
		if l != ClassFlat {
			t.Fatalf("index %d: zero spread must be flat, got %v", i, l)
		}
	}
}

func TestCategorizeBuckets(t *testing.T) {
	// mean 0, population sd 1
	pct := []float64{-1, -1, 1, 1}
	labels := Categorize(pct)
	for i, l := range labels {
		if l != ClassFlat {
			t.Fatalf("index %d: |d| == sd belongs to flat, got %v", i, l)
		}
	}

	// an outlier lands in a strong class
	pct = []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 50}
	labels = Categorize(pct)
	if labels[9] != ClassStrongUp {
		t.Fatalf("outlier must be strong up, got %v", labels[9])
	}
}

func TestCategorizePreservesUnavailable(t *testing.T) {
	pct := []float64{1, models.Unavailable(), 3}
	labels := Categorize(pct)
	if !models.IsUnavailable(labels[1]) {
		t.Fatalf("unavailable input must stay unavailable")
	}
	if models.IsUnavailable(labels[0]) || models.IsUnavailable(labels[2]) {
		t.Fatalf("defined inputs must be labeled")
	}
}

func TestWeightedF1Perfect(t *testing.T) {
	truth := []int{0, 1, 2, 3, 4, 2, 2}
	if got := WeightedF1(truth, truth); got != 1 {
		t.Fatalf("perfect prediction must score 1, got %v", got)
	}
}

func TestWeightedF1Known(t *testing.T) {
	truth := []int{0, 0, 1, 1}
	pred := []int{0, 1, 1, 1}
	// class 0: p=1, r=0.5, f1=2/3; class 1: p=2/3, r=1, f1=0.8
	want := (2.0/3.0)*0.5 + 0.8*0.5
	if got := WeightedF1(truth, pred); math.Abs(got-want) > 1e-12 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestBuildDatasetDropsIncompleteRows(t *testing.T) {
	cols := []string{"a", "b"}
	rows := []models.FeatureRow{
		{Values: map[string]float64{"a": 1, "b": 2}},
		{Values: map[string]float64{"a": models.Unavailable(), "b": 2}}, // warm-up
		{Values: map[string]float64{"a": 3, "b": 4}},
		{Values: map[string]float64{"a": 5, "b": 6}},
	}
	labels := []float64{0, 1, 2, models.Unavailable()}
	ds, err := BuildDataset(rows, cols, labels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("expected 2 usable rows, got %d", ds.Len())
	}
	if ds.Y[0] != 0 || ds.Y[1] != 2 {
		t.Fatalf("unexpected labels %v", ds.Y)
	}
}

func TestBuildDatasetEmpty(t *testing.T) {
	rows := []models.FeatureRow{{Values: map[string]float64{"a": models.Unavailable()}}}
	_, err := BuildDataset(rows, []string{"a"}, []float64{1})
	if !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
}

func TestSplitChronological(t *testing.T) {
	ds := &Dataset{
		Columns: []string{"a"},
		X:       [][]float64{{1}, {2}, {3}, {4}, {5}},
		Y:       []int{0, 0, 0, 1, 1},
	}
	train, test := ds.Split(0.8)
	if train.Len() != 4 || test.Len() != 1 {
		t.Fatalf("expected 4/1 split, got %d/%d", train.Len(), test.Len())
	}
	if test.X[0][0] != 5 {
		t.Fatalf("test rows must come from the tail")
	}
}

func TestCorrelationSelectorTopK(t *testing.T) {
	// column 0 tracks the label, column 1 is noise-ish, column 2 constant
	ds := &Dataset{
		Columns: []string{"signal", "noise", "constant"},
		X: [][]float64{
			{0, 5, 7}, {1, 3, 7}, {2, 8, 7}, {3, 1, 7},
			{0, 9, 7}, {1, 2, 7}, {2, 6, 7}, {3, 4, 7},
		},
		Y: []int{0, 1, 2, 3, 0, 1, 2, 3},
	}
	keep, err := CorrelationSelector{}.Select(ds, 1)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(keep) != 1 || keep[0] != 0 {
		t.Fatalf("expected the perfectly correlated column, got %v", keep)
	}
}

func TestCorrelationSelectorKeepAll(t *testing.T) {
	ds := &Dataset{
		Columns: []string{"a", "b"},
		X:       [][]float64{{1, 2}, {3, 4}},
		Y:       []int{0, 1},
	}
	keep, err := CorrelationSelector{}.Select(ds, 0)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(keep) != 2 {
		t.Fatalf("k=0 must keep every column, got %v", keep)
	}
}

func trainingDataset(n int) *Dataset {
	ds := &Dataset{Columns: []string{"x1", "x2", "x3"}}
	for i := 0; i < n; i++ {
		a := float64(i % 4)
		b := float64((i * 7) % 5)
		c := float64((i * 3) % 6)
		ds.X = append(ds.X, []float64{a, b, c})
		ds.Y = append(ds.Y, int(a)) // x1 fully determines the class
	}
	return ds
}

func TestForestDeterministicForSeed(t *testing.T) {
	ds := trainingDataset(80)
	params := models.ModelParameterSet{
		NEstimators: 10, MaxDepth: 5, MinSamplesSplit: 2, MinSamplesLeaf: 1,
	}
	f1, err := FitForest(context.Background(), ds, params, 42)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	f2, err := FitForest(context.Background(), ds, params, 42)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	p1 := f1.PredictAll(ds.X)
	p2 := f2.PredictAll(ds.X)
	for i := range p1 {
		if p1[i] != p2[i] {
			t.Fatalf("row %d: same seed must reproduce predictions (%d vs %d)", i, p1[i], p2[i])
		}
	}
}

func TestForestLearnsSeparableSignal(t *testing.T) {
	ds := trainingDataset(120)
	params := models.ModelParameterSet{
		NEstimators: 20, MaxDepth: 6, MinSamplesSplit: 2, MinSamplesLeaf: 1,
	}
	f, err := FitForest(context.Background(), ds, params, 7)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	acc := Accuracy(ds.Y, f.PredictAll(ds.X))
	if acc < 0.9 {
		t.Fatalf("separable signal should be learned, accuracy %v", acc)
	}
}

func TestLocalTrainerFit(t *testing.T) {
	ds := trainingDataset(100)
	tr := NewLocalTrainer(WithSeed(3), WithSplitRatio(0.8))
	report, err := tr.Fit(context.Background(), ds, models.ModelParameterSet{
		NEstimators: 15, MaxDepth: 5, MinSamplesSplit: 2, MinSamplesLeaf: 1, NFeatures: 2,
	})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if report.Metric < 0 || report.Metric > 1 {
		t.Fatalf("metric out of range: %v", report.Metric)
	}
	if report.ModelRef == "" {
		t.Fatalf("expected a model reference")
	}
}
