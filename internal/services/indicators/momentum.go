package indicators

import (
	"math"

	"FeatureMill/internal/domain/models"
)

// RSI computes the relative strength index with Wilder smoothing of average
// gains and losses. Output is defined from index period onward (period price
// changes are needed before the seed average exists).
func RSI(close []float64, period int) []float64 {
	n := len(close)
	out := models.UnavailableSeries(n)
	if period <= 0 || n < period+1 {
		return out
	}
	gains := models.UnavailableSeries(n)
	losses := models.UnavailableSeries(n)
	for i := 1; i < n; i++ {
		d := close[i] - close[i-1]
		if d > 0 {
			gains[i], losses[i] = d, 0
		} else {
			gains[i], losses[i] = 0, -d
		}
	}
	avgGain := wilderSmooth(gains, period)
	avgLoss := wilderSmooth(losses, period)
	for i := 0; i < n; i++ {
		if models.IsUnavailable(avgGain[i]) || models.IsUnavailable(avgLoss[i]) {
			continue
		}
		if avgLoss[i] == 0 {
			if avgGain[i] == 0 {
				out[i] = 50 // flat window: no direction either way
			} else {
				out[i] = 100
			}
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// Stochastic computes the fast %K over the high/low window and %D as the SMA
// of %K. A zero high-low range yields the unavailable marker, not a division
// fault.
func Stochastic(high, low, close []float64, kPeriod, dPeriod int) (k, d []float64) {
	n := len(close)
	k = models.UnavailableSeries(n)
	if kPeriod <= 0 || n < kPeriod {
		return k, models.UnavailableSeries(n)
	}
	hh := rollingMax(high, kPeriod)
	ll := rollingMin(low, kPeriod)
	for i := kPeriod - 1; i < n; i++ {
		rng := hh[i] - ll[i]
		if rng == 0 {
			continue
		}
		k[i] = 100 * (close[i] - ll[i]) / rng
	}
	d = sma(k, dPeriod)
	return k, d
}

// CCI computes the commodity channel index over the typical price.
func CCI(high, low, close []float64, period int) []float64 {
	n := len(close)
	out := models.UnavailableSeries(n)
	if period <= 0 || n < period {
		return out
	}
	tp := make([]float64, n)
	for i := 0; i < n; i++ {
		tp[i] = (high[i] + low[i] + close[i]) / 3
	}
	for i := period - 1; i < n; i++ {
		window := tp[i-period+1 : i+1]
		m := windowMean(window)
		var dev float64
		for _, v := range window {
			dev += math.Abs(v - m)
		}
		dev /= float64(period)
		if dev == 0 {
			continue
		}
		out[i] = (tp[i] - m) / (0.015 * dev)
	}
	return out
}
