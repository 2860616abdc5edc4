package usecase

import (
	"fmt"

	"FeatureMill/internal/domain/models"
)

// ModelGrid declares the candidate values per model parameter. Enumeration
// is lexicographic over parameter names (max_depth, min_samples_leaf,
// min_samples_split, n_estimators, n_features) with values taken in declared
// order, so a grid always unrolls the same way.
type ModelGrid struct {
	NEstimators     []int `yaml:"n_estimators"`
	MaxDepth        []int `yaml:"max_depth"`
	MinSamplesSplit []int `yaml:"min_samples_split"`
	MinSamplesLeaf  []int `yaml:"min_samples_leaf"`
	NFeatures       []int `yaml:"n_features"` // 0 disables selection
}

// Validate rejects malformed grids before any cell runs.
func (g ModelGrid) Validate() error {
	for name, vals := range map[string][]int{
		"n_estimators":      g.NEstimators,
		"max_depth":         g.MaxDepth,
		"min_samples_split": g.MinSamplesSplit,
		"min_samples_leaf":  g.MinSamplesLeaf,
		"n_features":        g.NFeatures,
	} {
		if len(vals) == 0 {
			return fmt.Errorf("model grid: %s has no candidate values", name)
		}
	}
	for _, v := range g.NEstimators {
		if v <= 0 {
			return fmt.Errorf("model grid: n_estimators must be positive, got %d", v)
		}
	}
	for _, v := range g.NFeatures {
		if v < 0 {
			return fmt.Errorf("model grid: n_features must be >= 0, got %d", v)
		}
	}
	return nil
}

// Size is the number of parameter combinations the grid unrolls to.
func (g ModelGrid) Size() int {
	return len(g.NEstimators) * len(g.MaxDepth) * len(g.MinSamplesSplit) *
		len(g.MinSamplesLeaf) * len(g.NFeatures)
}

// Enumerate unrolls the cross-product in the documented order.
func (g ModelGrid) Enumerate() []models.ModelParameterSet {
	out := make([]models.ModelParameterSet, 0, g.Size())
	for _, md := range g.MaxDepth {
		for _, msl := range g.MinSamplesLeaf {
			for _, mss := range g.MinSamplesSplit {
				for _, ne := range g.NEstimators {
					for _, nf := range g.NFeatures {
						out = append(out, models.ModelParameterSet{
							NEstimators:     ne,
							MaxDepth:        md,
							MinSamplesSplit: mss,
							MinSamplesLeaf:  msl,
							NFeatures:       nf,
						})
					}
				}
			}
		}
	}
	return out
}

// Cell is one (indicator set, model parameters) pair with its position in
// the enumeration.
type Cell struct {
	Seq       int
	Indicator models.IndicatorParameterSet
	Model     models.ModelParameterSet
}

// CellIterator walks the grid lazily: indicator sets in declared order,
// model combinations in enumeration order.
type CellIterator struct {
	sets   []models.IndicatorParameterSet
	params []models.ModelParameterSet
	i, j   int
	seq    int
}

func NewCellIterator(sets []models.IndicatorParameterSet, grid ModelGrid) *CellIterator {
	return &CellIterator{sets: sets, params: grid.Enumerate()}
}

// Next yields the next cell, or false when the grid is exhausted.
func (it *CellIterator) Next() (Cell, bool) {
	if it.i >= len(it.sets) || it.j >= len(it.params) {
		return Cell{}, false
	}
	c := Cell{Seq: it.seq, Indicator: it.sets[it.i], Model: it.params[it.j]}
	it.seq++
	it.j++
	if it.j == len(it.params) {
		it.j = 0
		it.i++
	}
	return c, true
}

// Total is the number of cells the iterator will yield from the start.
func (it *CellIterator) Total() int { return len(it.sets) * len(it.params) }
