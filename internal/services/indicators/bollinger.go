package indicators

import "FeatureMill/internal/domain/models"

// bollingerK is the band width in standard deviations.
const bollingerK = 2.0

// Bollinger computes upper/middle/lower bands over the close series.
// The middle band is the SMA over the window; the bands sit k population
// standard deviations away. Zero variance collapses all three onto the mean.
func Bollinger(close []float64, period int) (upper, middle, lower []float64) {
	n := len(close)
	upper = models.UnavailableSeries(n)
	middle = models.UnavailableSeries(n)
	lower = models.UnavailableSeries(n)
	if period <= 0 || n < period {
		return
	}
	for i := period - 1; i < n; i++ {
		window := close[i-period+1 : i+1]
		m := windowMean(window)
		sd := windowStdDevPop(window)
		middle[i] = m
		upper[i] = m + bollingerK*sd
		lower[i] = m - bollingerK*sd
	}
	return
}
