package indicators

import (
	"math"

	"FeatureMill/internal/domain/models"
)

func sqrt(v float64) float64 { return math.Sqrt(v) }

// ema computes an exponential moving average with the standard decay
// alpha = 2/(N+1), seeded by the simple average of the first N defined
// values. The first N-1 outputs are the unavailable marker.
//
// All EMA-style recurrences in this package go through here or through
// wilderSmooth; families must not hand-roll their own decay.
func ema(vals []float64, period int) []float64 {
	out := models.UnavailableSeries(len(vals))
	if period <= 0 || len(vals) < period {
		return out
	}
	alpha := 2.0 / (float64(period) + 1.0)
	seedAt := -1
	defined := 0
	sum := 0.0
	for i, v := range vals {
		if models.IsUnavailable(v) {
			if seedAt >= 0 {
				break
			}
			defined = 0
			sum = 0
			continue
		}
		if seedAt < 0 {
			defined++
			sum += v
			if defined == period {
				out[i] = sum / float64(period)
				seedAt = i
			}
			continue
		}
		out[i] = alpha*v + (1-alpha)*out[i-1]
	}
	return out
}

// wilderSmooth computes Wilder's smoothing with alpha = 1/N, seeded by the
// simple average of the first N defined values. Used by RSI, ATR and ADX.
func wilderSmooth(vals []float64, period int) []float64 {
	out := models.UnavailableSeries(len(vals))
	if period <= 0 || len(vals) < period {
		return out
	}
	alpha := 1.0 / float64(period)
	seedAt := -1
	defined := 0
	sum := 0.0
	for i, v := range vals {
		if models.IsUnavailable(v) {
			if seedAt >= 0 {
				break
			}
			defined = 0
			sum = 0
			continue
		}
		if seedAt < 0 {
			defined++
			sum += v
			if defined == period {
				out[i] = sum / float64(period)
				seedAt = i
			}
			continue
		}
		out[i] = alpha*v + (1-alpha)*out[i-1]
	}
	return out
}

// shiftForward moves values later in time by n positions: out[i] = vals[i-n].
// The first n entries become unavailable.
func shiftForward(vals []float64, n int) []float64 {
	out := models.UnavailableSeries(len(vals))
	if n < 0 {
		return out
	}
	for i := n; i < len(vals); i++ {
		out[i] = vals[i-n]
	}
	return out
}
