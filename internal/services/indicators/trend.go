package indicators

import (
	"math"

	"FeatureMill/internal/domain/models"
)

// ADX computes the average directional index with Wilder smoothing of the
// directional movements and the true range. Defined once both the DI lines
// and the DX smoothing have warmed up (about two periods of history).
func ADX(high, low, close []float64, period int) []float64 {
	n := len(close)
	out := models.UnavailableSeries(n)
	if period <= 0 || n < 2*period {
		return out
	}
	plusDM := models.UnavailableSeries(n)
	minusDM := models.UnavailableSeries(n)
	tr := trueRange(high, low, close)
	for i := 1; i < n; i++ {
		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		pd, md := 0.0, 0.0
		if up > down && up > 0 {
			pd = up
		}
		if down > up && down > 0 {
			md = down
		}
		plusDM[i], minusDM[i] = pd, md
	}
	smPlus := wilderSmooth(plusDM, period)
	smMinus := wilderSmooth(minusDM, period)
	smTR := wilderSmooth(tr, period)

	dx := models.UnavailableSeries(n)
	for i := 0; i < n; i++ {
		if models.IsUnavailable(smPlus[i]) || models.IsUnavailable(smMinus[i]) || models.IsUnavailable(smTR[i]) {
			continue
		}
		if smTR[i] == 0 {
			continue
		}
		plusDI := 100 * smPlus[i] / smTR[i]
		minusDI := 100 * smMinus[i] / smTR[i]
		sum := plusDI + minusDI
		if sum == 0 {
			continue
		}
		dx[i] = 100 * math.Abs(plusDI-minusDI) / sum
	}
	return wilderSmooth(dx, period)
}

// EMAPair computes the short/long EMA pair over the close series.
func EMAPair(close []float64, short, long int) (shortEMA, longEMA []float64) {
	return ema(close, short), ema(close, long)
}

// Parabolic SAR acceleration parameters (standard Wilder values).
const (
	sarAccelStart = 0.02
	sarAccelStep  = 0.02
	sarAccelMax   = 0.2
)

// SAR computes the parabolic stop-and-reverse. The first bar has no prior
// extreme and is unavailable.
func SAR(high, low []float64) []float64 {
	n := len(high)
	out := models.UnavailableSeries(n)
	if n < 2 {
		return out
	}
	// initial trend from the first move
	uptrend := high[1] >= high[0]
	af := sarAccelStart
	var sar, ep float64
	if uptrend {
		sar, ep = low[0], high[1]
	} else {
		sar, ep = high[0], low[1]
	}
	out[1] = sar
	for i := 2; i < n; i++ {
		sar = sar + af*(ep-sar)
		if uptrend {
			// SAR may not enter the prior two bars' range
			if sar > low[i-1] {
				sar = low[i-1]
			}
			if sar > low[i-2] {
				sar = low[i-2]
			}
			if low[i] < sar {
				uptrend = false
				sar = ep
				ep = low[i]
				af = sarAccelStart
			} else if high[i] > ep {
				ep = high[i]
				af = math.Min(af+sarAccelStep, sarAccelMax)
			}
		} else {
			if sar < high[i-1] {
				sar = high[i-1]
			}
			if sar < high[i-2] {
				sar = high[i-2]
			}
			if high[i] > sar {
				uptrend = true
				sar = ep
				ep = high[i]
				af = sarAccelStart
			} else if low[i] < ep {
				ep = low[i]
				af = math.Min(af+sarAccelStep, sarAccelMax)
			}
		}
		out[i] = sar
	}
	return out
}
