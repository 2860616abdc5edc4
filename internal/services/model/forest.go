package model

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"FeatureMill/internal/domain/models"
)

// Forest is a random forest classifier fitted over a dense dataset. A fixed
// seed makes both the bootstrap draws and the per-node feature subsampling
// reproducible.
type Forest struct {
	trees   []*treeNode
	columns []string
	params  models.ModelParameterSet
}

// FitForest trains params.NEstimators trees on bootstrap resamples of ds.
func FitForest(ctx context.Context, ds *Dataset, params models.ModelParameterSet, seed int64) (*Forest, error) {
	if ds.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	if params.NEstimators <= 0 {
		return nil, fmt.Errorf("n_estimators must be positive, got %d", params.NEstimators)
	}

	cfg := treeConfig{
		maxDepth:        params.MaxDepth,
		minSamplesSplit: params.MinSamplesSplit,
		minSamplesLeaf:  params.MinSamplesLeaf,
		featuresPerNode: int(math.Ceil(math.Sqrt(float64(len(ds.Columns))))),
	}
	if cfg.minSamplesSplit < 2 {
		cfg.minSamplesSplit = 2
	}
	if cfg.minSamplesLeaf < 1 {
		cfg.minSamplesLeaf = 1
	}

	f := &Forest{
		trees:   make([]*treeNode, params.NEstimators),
		columns: append([]string(nil), ds.Columns...),
		params:  params,
	}
	for t := 0; t < params.NEstimators; t++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fit cancelled after %d trees: %w", t, err)
		}
		rng := rand.New(rand.NewSource(seed + int64(t)))
		idx := make([]int, ds.Len())
		for i := range idx {
			idx[i] = rng.Intn(ds.Len())
		}
		f.trees[t] = growTree(ds, idx, cfg, rng, 0)
	}
	return f, nil
}

// Predict majority-votes the trees; ties go to the smaller class id.
func (f *Forest) Predict(vec []float64) int {
	var votes [NumClasses]int
	for _, t := range f.trees {
		votes[t.predict(vec)]++
	}
	best := 0
	for c := 1; c < NumClasses; c++ {
		if votes[c] > votes[best] {
			best = c
		}
	}
	return best
}

// PredictAll classifies every row of X.
func (f *Forest) PredictAll(X [][]float64) []int {
	out := make([]int, len(X))
	for i, vec := range X {
		out[i] = f.Predict(vec)
	}
	return out
}

// Columns returns the feature names the forest was fitted on.
func (f *Forest) Columns() []string { return f.columns }

// Ref is a short reproducible identity for the fitted artifact.
func (f *Forest) Ref() string {
	return fmt.Sprintf("forest[%s;cols=%d]", f.params.Key(), len(f.columns))
}
