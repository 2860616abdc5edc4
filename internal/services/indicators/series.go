package indicators

import (
	"FeatureMill/internal/domain/models"

	"gonum.org/v1/gonum/stat"
)

// Series is a column-oriented view over one symbol's time-ordered bars.
// All indicator families read from it and never mutate it.
type Series struct {
	Symbol string
	Epoch  []int64
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64
}

// NewSeries builds a column view from bars. Bars must already be ordered by
// EpochTime ascending.
func NewSeries(bars []models.Bar) Series {
	n := len(bars)
	s := Series{
		Epoch:  make([]int64, n),
		Open:   make([]float64, n),
		High:   make([]float64, n),
		Low:    make([]float64, n),
		Close:  make([]float64, n),
		Volume: make([]float64, n),
	}
	if n > 0 {
		s.Symbol = bars[0].Symbol
	}
	for i, b := range bars {
		s.Epoch[i] = b.EpochTime
		s.Open[i] = b.Open
		s.High[i] = b.High
		s.Low[i] = b.Low
		s.Close[i] = b.Close
		s.Volume[i] = b.Volume
	}
	return s
}

// Len returns the number of bars in the series.
func (s Series) Len() int { return len(s.Close) }

// rollingMax returns the trailing maximum over window w. The first w-1
// entries are the unavailable marker.
func rollingMax(vals []float64, w int) []float64 {
	out := models.UnavailableSeries(len(vals))
	if w <= 0 {
		return out
	}
	for i := w - 1; i < len(vals); i++ {
		m := vals[i-w+1]
		for j := i - w + 2; j <= i; j++ {
			if vals[j] > m {
				m = vals[j]
			}
		}
		out[i] = m
	}
	return out
}

// rollingMin returns the trailing minimum over window w.
func rollingMin(vals []float64, w int) []float64 {
	out := models.UnavailableSeries(len(vals))
	if w <= 0 {
		return out
	}
	for i := w - 1; i < len(vals); i++ {
		m := vals[i-w+1]
		for j := i - w + 2; j <= i; j++ {
			if vals[j] < m {
				m = vals[j]
			}
		}
		out[i] = m
	}
	return out
}

// sma returns the trailing simple moving average over window w. Inputs that
// are themselves unavailable poison the window: the output stays unavailable
// until w consecutive defined values have been seen.
func sma(vals []float64, w int) []float64 {
	out := models.UnavailableSeries(len(vals))
	if w <= 0 {
		return out
	}
	defined := 0
	sum := 0.0
	for i, v := range vals {
		if models.IsUnavailable(v) {
			defined = 0
			sum = 0
			continue
		}
		defined++
		sum += v
		if defined > w {
			sum -= vals[i-w]
		}
		if defined >= w {
			out[i] = sum / float64(w)
		}
	}
	return out
}

// windowMean computes the mean of a fully-defined window using gonum.
func windowMean(window []float64) float64 {
	return stat.Mean(window, nil)
}

// windowStdDevPop computes the population standard deviation of a window.
// Population (not sample) variance matches the Bollinger convention where a
// flat window collapses the bands exactly onto the mean.
func windowStdDevPop(window []float64) float64 {
	m := stat.Mean(window, nil)
	var acc float64
	for _, v := range window {
		d := v - m
		acc += d * d
	}
	if len(window) == 0 {
		return 0
	}
	v := acc / float64(len(window))
	if v < 0 {
		v = 0
	}
	return sqrt(v)
}
