package candles

import (
	"fmt"

	"FeatureMill/internal/domain/models"
)

// shapeLags is the number of lagged copies (_prev_1, _prev_2) carried for
// each per-bar shape descriptor.
const shapeLags = 2

// Shapes computes per-bar candlestick descriptors and their lagged variants
// over a time-ordered bar slice. Output slices align with the input; lagged
// columns are unavailable for the first lag rows, and the body-to-length
// ratio is unavailable when the candle has zero range.
func Shapes(bars []models.Bar) map[string][]float64 {
	n := len(bars)
	length := make([]float64, n)
	body := make([]float64, n)
	mid := make([]float64, n)
	green := make([]float64, n)
	ratio := models.UnavailableSeries(n)
	for i, b := range bars {
		length[i] = b.High - b.Low
		body[i] = abs(b.Close - b.Open)
		mid[i] = (b.Open + b.Close) / 2
		if b.Close > b.Open {
			green[i] = 1
		}
		if length[i] != 0 {
			ratio[i] = body[i] / length[i]
		}
	}

	out := map[string][]float64{
		"candlestick_length":   length,
		"body_length":          body,
		"body_mid_point":       mid,
		"is_green":             green,
		"body_to_length_ratio": ratio,
	}

	// carry the previous candles' descriptors into the current row
	for lag := 1; lag <= shapeLags; lag++ {
		for _, stem := range []string{"candlestick_length", "body_length", "body_mid_point", "is_green", "body_to_length_ratio"} {
			src := out[stem]
			shifted := models.UnavailableSeries(n)
			for i := lag; i < n; i++ {
				shifted[i] = src[i-lag]
			}
			out[fmt.Sprintf("%s_prev_%d", stem, lag)] = shifted
		}
	}

	gap := models.UnavailableSeries(n)
	for i := 1; i < n; i++ {
		gap[i] = bars[i].Open - bars[i-1].Close
	}
	out["candlestick_gap"] = gap

	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
