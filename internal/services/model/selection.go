package model

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ErrNoUsableColumns marks a selection that leaves zero informative
// features, which makes the grid cell unfittable.
var ErrNoUsableColumns = errors.New("feature selection produced no usable columns")

// FeatureSelector picks the column indexes to fit on. Implementations must
// be deterministic for identical inputs.
type FeatureSelector interface {
	Select(ds *Dataset, k int) ([]int, error)
}

// CorrelationSelector ranks columns by absolute Pearson correlation with the
// label and keeps the top k. k <= 0 keeps every column.
type CorrelationSelector struct{}

func (CorrelationSelector) Select(ds *Dataset, k int) ([]int, error) {
	if ds.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	if k <= 0 || k >= len(ds.Columns) {
		all := make([]int, len(ds.Columns))
		for i := range all {
			all[i] = i
		}
		return all, nil
	}

	y := make([]float64, ds.Len())
	for i, label := range ds.Y {
		y[i] = float64(label)
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, 0, len(ds.Columns))
	col := make([]float64, ds.Len())
	for j := range ds.Columns {
		for i := range ds.X {
			col[i] = ds.X[i][j]
		}
		r := stat.Correlation(col, y, nil)
		if math.IsNaN(r) {
			// Constant column, carries no signal.
			continue
		}
		ranked = append(ranked, scored{idx: j, score: math.Abs(r)})
	}
	if len(ranked) == 0 {
		return nil, fmt.Errorf("%d candidate columns: %w", len(ds.Columns), ErrNoUsableColumns)
	}

	// Equal scores fall back to column order so the pick is stable.
	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].score != ranked[b].score {
			return ranked[a].score > ranked[b].score
		}
		return ranked[a].idx < ranked[b].idx
	})
	if k > len(ranked) {
		k = len(ranked)
	}
	keep := make([]int, k)
	for i := 0; i < k; i++ {
		keep[i] = ranked[i].idx
	}
	sort.Ints(keep)
	return keep, nil
}
