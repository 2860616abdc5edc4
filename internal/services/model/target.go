package model

import (
	"gonum.org/v1/gonum/stat"

	"FeatureMill/internal/domain/models"
)

// Target labels: forward percent change bucketed by how many standard
// deviations it sits from the mean move.
const (
	ClassStrongDown = 0
	ClassDown       = 1
	ClassFlat       = 2
	ClassUp         = 3
	ClassStrongUp   = 4
)

// NumClasses is the label cardinality produced by Categorize.
const NumClasses = 5

// ForwardPercentChange returns the percent change of close over horizon
// bars. The trailing horizon entries are unavailable since their future is
// out of range.
func ForwardPercentChange(close []float64, horizon int) []float64 {
	out := models.UnavailableSeries(len(close))
	if horizon <= 0 {
		return out
	}
	for i := 0; i+horizon < len(close); i++ {
		if models.IsUnavailable(close[i]) || models.IsUnavailable(close[i+horizon]) || close[i] == 0 {
			continue
		}
		out[i] = (close[i+horizon] - close[i]) / close[i] * 100
	}
	return out
}

// Categorize buckets percent changes into five classes by distance from the
// mean in population standard deviations. A degenerate series with zero
// spread maps every defined entry to the flat class. Unavailable inputs stay
// unavailable.
func Categorize(pct []float64) []float64 {
	defined := make([]float64, 0, len(pct))
	for _, v := range pct {
		if !models.IsUnavailable(v) {
			defined = append(defined, v)
		}
	}
	out := models.UnavailableSeries(len(pct))
	if len(defined) == 0 {
		return out
	}
	mean := stat.Mean(defined, nil)
	sd := stat.PopStdDev(defined, nil)

	for i, v := range pct {
		if models.IsUnavailable(v) {
			continue
		}
		out[i] = float64(bucket(v, mean, sd))
	}
	return out
}

func bucket(v, mean, sd float64) int {
	if sd == 0 {
		return ClassFlat
	}
	switch d := v - mean; {
	case d < -2*sd:
		return ClassStrongDown
	case d < -sd:
		return ClassDown
	case d <= sd:
		return ClassFlat
	case d <= 2*sd:
		return ClassUp
	default:
		return ClassStrongUp
	}
}
