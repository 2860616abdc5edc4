package models

import "math"

// Unavailable is the explicit "not computable yet" marker used for warm-up
// windows, empty-book ratios and zero-range divisions. It is NaN so it can
// never be confused with a legitimate zero.
func Unavailable() float64 { return math.NaN() }

// IsUnavailable reports whether v is the unavailable marker.
func IsUnavailable(v float64) bool { return math.IsNaN(v) }

// UnavailableSeries returns a slice of length n filled with the marker.
func UnavailableSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = Unavailable()
	}
	return out
}

// FeatureRow is one assembled row of the feature table, keyed by
// (Symbol, EpochTime). Values always holds the full set of registered
// column names; gaps are the unavailable marker, never missing keys.
type FeatureRow struct {
	Symbol    string
	EpochTime int64
	Values    map[string]float64
}

// Clone returns a deep copy of the row.
func (r FeatureRow) Clone() FeatureRow {
	vals := make(map[string]float64, len(r.Values))
	for k, v := range r.Values {
		vals[k] = v
	}
	return FeatureRow{Symbol: r.Symbol, EpochTime: r.EpochTime, Values: vals}
}
