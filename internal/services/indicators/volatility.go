package indicators

import (
	"math"

	"FeatureMill/internal/domain/models"
)

// trueRange computes the per-bar true range. The first bar has no prior
// close and is unavailable.
func trueRange(high, low, close []float64) []float64 {
	n := len(close)
	out := models.UnavailableSeries(n)
	for i := 1; i < n; i++ {
		hl := high[i] - low[i]
		hc := math.Abs(high[i] - close[i-1])
		lc := math.Abs(low[i] - close[i-1])
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// ATR computes the average true range with Wilder smoothing.
func ATR(high, low, close []float64, period int) []float64 {
	return wilderSmooth(trueRange(high, low, close), period)
}
