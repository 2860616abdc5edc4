package indicators

import "FeatureMill/internal/domain/models"

// IchimokuResult holds the five Ichimoku lines plus the cloud position flag.
// Leading spans are projected forward by the displacement, so their value at
// bar t derives from bar t-displacement; the lagging span at bar t is the
// close from displacement bars earlier. No line reads future bars.
type IchimokuResult struct {
	ConversionLine []float64
	BaseLine       []float64
	LeadingSpanA   []float64
	LeadingSpanB   []float64
	LaggingSpan    []float64
	AboveCloud     []float64 // 1 above, 0 not, unavailable during warm-up
}

// Ichimoku computes the Ichimoku cloud components. Conversion and base lines
// are rolling high-low midpoints over their periods; span A is the midpoint
// of those two, span B the midpoint over the spanB period, both displaced
// forward.
func Ichimoku(high, low, close []float64, conversion, base, spanB, displacement int) IchimokuResult {
	n := len(close)
	mid := func(period int) []float64 {
		hh := rollingMax(high, period)
		ll := rollingMin(low, period)
		out := models.UnavailableSeries(n)
		for i := 0; i < n; i++ {
			if models.IsUnavailable(hh[i]) || models.IsUnavailable(ll[i]) {
				continue
			}
			out[i] = (hh[i] + ll[i]) / 2
		}
		return out
	}

	conv := mid(conversion)
	baseLine := mid(base)

	spanARaw := models.UnavailableSeries(n)
	for i := 0; i < n; i++ {
		if models.IsUnavailable(conv[i]) || models.IsUnavailable(baseLine[i]) {
			continue
		}
		spanARaw[i] = (conv[i] + baseLine[i]) / 2
	}
	spanA := shiftForward(spanARaw, displacement)
	spanBLine := shiftForward(mid(spanB), displacement)
	lagging := shiftForward(close, displacement)

	above := models.UnavailableSeries(n)
	for i := 0; i < n; i++ {
		if models.IsUnavailable(spanA[i]) || models.IsUnavailable(spanBLine[i]) {
			continue
		}
		top := spanA[i]
		if spanBLine[i] > top {
			top = spanBLine[i]
		}
		if close[i] > top {
			above[i] = 1
		} else {
			above[i] = 0
		}
	}

	return IchimokuResult{
		ConversionLine: conv,
		BaseLine:       baseLine,
		LeadingSpanA:   spanA,
		LeadingSpanB:   spanBLine,
		LaggingSpan:    lagging,
		AboveCloud:     above,
	}
}
