package model

import (
	"errors"
	"fmt"

	"FeatureMill/internal/domain/models"
)

// ErrEmptyDataset marks a training set with no usable rows after warm-up
// rows and unlabeled rows are dropped.
var ErrEmptyDataset = errors.New("no usable training rows")

// Dataset is a dense matrix view over feature rows, time-ordered, with one
// integer class label per row.
type Dataset struct {
	Columns []string
	X       [][]float64
	Y       []int
}

func (d *Dataset) Len() int { return len(d.Y) }

// BuildDataset projects feature rows onto the given columns and pairs them
// with labels. Rows with any unavailable feature value or an unavailable
// label are dropped, so the matrix is dense.
func BuildDataset(rows []models.FeatureRow, columns []string, labels []float64) (*Dataset, error) {
	if len(rows) != len(labels) {
		return nil, fmt.Errorf("rows/labels length mismatch: %d vs %d", len(rows), len(labels))
	}
	ds := &Dataset{Columns: columns}
	for i, row := range rows {
		if models.IsUnavailable(labels[i]) {
			continue
		}
		vec := make([]float64, len(columns))
		usable := true
		for j, col := range columns {
			v, ok := row.Values[col]
			if !ok || models.IsUnavailable(v) {
				usable = false
				break
			}
			vec[j] = v
		}
		if !usable {
			continue
		}
		ds.X = append(ds.X, vec)
		ds.Y = append(ds.Y, int(labels[i]))
	}
	if ds.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	return ds, nil
}

// Project returns a copy of the dataset restricted to the column indexes in
// keep, preserving row order.
func (d *Dataset) Project(keep []int) *Dataset {
	out := &Dataset{
		Columns: make([]string, len(keep)),
		X:       make([][]float64, len(d.X)),
		Y:       d.Y,
	}
	for j, idx := range keep {
		out.Columns[j] = d.Columns[idx]
	}
	for i, row := range d.X {
		vec := make([]float64, len(keep))
		for j, idx := range keep {
			vec[j] = row[idx]
		}
		out.X[i] = vec
	}
	return out
}

// Split partitions the dataset chronologically: the first ratio share of
// rows trains, the remainder tests.
func (d *Dataset) Split(ratio float64) (train, test *Dataset) {
	cut := int(float64(d.Len()) * ratio)
	if cut < 1 {
		cut = 1
	}
	if cut >= d.Len() {
		cut = d.Len() - 1
	}
	train = &Dataset{Columns: d.Columns, X: d.X[:cut], Y: d.Y[:cut]}
	test = &Dataset{Columns: d.Columns, X: d.X[cut:], Y: d.Y[cut:]}
	return train, test
}
