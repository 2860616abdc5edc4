package indicators

import (
	"fmt"

	"FeatureMill/internal/domain/models"
)

// DefaultFibLevels are the retracement ratios evaluated per window.
var DefaultFibLevels = []float64{0.236, 0.382, 0.5, 0.618, 0.786}

// FibLevelName returns the column stem for a retracement ratio,
// e.g. 0.236 -> "fib_level_236".
func FibLevelName(level float64) string {
	return fmt.Sprintf("fib_level_%d", int(level*1000))
}

// Fibonacci computes rolling-window retracement levels: for each bar, the
// window high/low define the swing and each ratio maps to
// low + (high-low)*ratio. Returns one aligned series per ratio, keyed by
// FibLevelName.
func Fibonacci(high, low []float64, window int, levels []float64) map[string][]float64 {
	n := len(high)
	hh := rollingMax(high, window)
	ll := rollingMin(low, window)
	out := make(map[string][]float64, len(levels))
	for _, lv := range levels {
		series := models.UnavailableSeries(n)
		for i := 0; i < n; i++ {
			if models.IsUnavailable(hh[i]) || models.IsUnavailable(ll[i]) {
				continue
			}
			series[i] = ll[i] + (hh[i]-ll[i])*lv
		}
		out[FibLevelName(lv)] = series
	}
	return out
}
