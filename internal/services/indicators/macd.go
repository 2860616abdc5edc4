package indicators

import "FeatureMill/internal/domain/models"

// MACD computes the moving-average convergence/divergence line, its signal
// line and the histogram. The line is EMA(fast) - EMA(slow); the signal is
// an EMA of the line over the signal period; the histogram is line - signal.
func MACD(close []float64, fast, slow, signal int) (line, sig, hist []float64) {
	n := len(close)
	line = models.UnavailableSeries(n)
	emaFast := ema(close, fast)
	emaSlow := ema(close, slow)
	for i := 0; i < n; i++ {
		if models.IsUnavailable(emaFast[i]) || models.IsUnavailable(emaSlow[i]) {
			continue
		}
		line[i] = emaFast[i] - emaSlow[i]
	}
	sig = ema(line, signal)
	hist = models.UnavailableSeries(n)
	for i := 0; i < n; i++ {
		if models.IsUnavailable(line[i]) || models.IsUnavailable(sig[i]) {
			continue
		}
		hist[i] = line[i] - sig[i]
	}
	return
}
