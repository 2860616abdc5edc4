package indicators

import "FeatureMill/internal/domain/models"

// VWAP computes the cumulative volume-weighted average price over the
// typical price. Bars before the first traded volume are unavailable.
func VWAP(high, low, close, volume []float64) []float64 {
	n := len(close)
	out := models.UnavailableSeries(n)
	var cumPV, cumV float64
	for i := 0; i < n; i++ {
		tp := (high[i] + low[i] + close[i]) / 3
		cumPV += tp * volume[i]
		cumV += volume[i]
		if cumV == 0 {
			continue
		}
		out[i] = cumPV / cumV
	}
	return out
}

// OBV computes on-balance volume. The first bar seeds the running total
// with its own volume.
func OBV(close, volume []float64) []float64 {
	n := len(close)
	out := models.UnavailableSeries(n)
	if n == 0 {
		return out
	}
	acc := volume[0]
	out[0] = acc
	for i := 1; i < n; i++ {
		switch {
		case close[i] > close[i-1]:
			acc += volume[i]
		case close[i] < close[i-1]:
			acc -= volume[i]
		}
		out[i] = acc
	}
	return out
}

// VolumePctChange computes the percent change of volume versus the previous
// bar. The first bar, and any bar following zero volume, is unavailable.
func VolumePctChange(volume []float64) []float64 {
	n := len(volume)
	out := models.UnavailableSeries(n)
	for i := 1; i < n; i++ {
		if volume[i-1] == 0 {
			continue
		}
		out[i] = (volume[i] - volume[i-1]) / volume[i-1] * 100
	}
	return out
}

// VolumePctChangeFromMean computes the percent deviation of volume from its
// trailing rolling mean over the given window.
func VolumePctChangeFromMean(volume []float64, window int) []float64 {
	n := len(volume)
	out := models.UnavailableSeries(n)
	mean := sma(volume, window)
	for i := 0; i < n; i++ {
		if models.IsUnavailable(mean[i]) || mean[i] == 0 {
			continue
		}
		out[i] = (volume[i] - mean[i]) / mean[i] * 100
	}
	return out
}
