package indicators

import (
	"context"
	"math"
	"testing"
	"time"

	"FeatureMill/internal/domain/models"
)

func flatSeries(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func TestBollingerFlatSeries(t *testing.T) {
	close := flatSeries(30, 100)
	upper, middle, lower := Bollinger(close, 10)

	for i := 0; i < 9; i++ {
		if !models.IsUnavailable(upper[i]) || !models.IsUnavailable(middle[i]) || !models.IsUnavailable(lower[i]) {
			t.Fatalf("index %d: expected unavailable during warm-up", i)
		}
	}
	for i := 9; i < 30; i++ {
		if upper[i] != 100 || middle[i] != 100 || lower[i] != 100 {
			t.Fatalf("index %d: flat series must collapse bands onto the mean, got %v %v %v",
				i, upper[i], middle[i], lower[i])
		}
	}
}

func TestBollingerTooShort(t *testing.T) {
	upper, _, _ := Bollinger(flatSeries(5, 100), 10)
	for i, v := range upper {
		if !models.IsUnavailable(v) {
			t.Fatalf("index %d: expected unavailable for short series, got %v", i, v)
		}
	}
}

func TestRSIFlatSeriesIsNeutral(t *testing.T) {
	rsi := RSI(flatSeries(20, 50), 7)
	for i := 0; i < 7; i++ {
		if !models.IsUnavailable(rsi[i]) {
			t.Fatalf("index %d: expected warm-up marker, got %v", i, rsi[i])
		}
	}
	for i := 7; i < 20; i++ {
		if rsi[i] != 50 {
			t.Fatalf("index %d: flat series must read 50, got %v", i, rsi[i])
		}
	}
}

func TestRSIAllGainsSaturates(t *testing.T) {
	close := make([]float64, 15)
	for i := range close {
		close[i] = float64(100 + i)
	}
	rsi := RSI(close, 5)
	for i := 5; i < 15; i++ {
		if rsi[i] != 100 {
			t.Fatalf("index %d: monotone gains must read 100, got %v", i, rsi[i])
		}
	}
}

func TestEMAWarmupAndSeed(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5, 6}
	out := ema(vals, 3)
	for i := 0; i < 2; i++ {
		if !models.IsUnavailable(out[i]) {
			t.Fatalf("index %d: expected warm-up marker", i)
		}
	}
	if out[2] != 2 {
		t.Fatalf("seed must be the simple average of the first window, got %v", out[2])
	}
	// alpha = 2/(3+1) = 0.5
	want := 0.5*4 + 0.5*2.0
	if math.Abs(out[3]-want) > 1e-12 {
		t.Fatalf("expected %v, got %v", want, out[3])
	}
}

func TestWilderSmoothUsesInversePeriodDecay(t *testing.T) {
	vals := []float64{1, 2, 3, 4}
	out := wilderSmooth(vals, 2)
	if out[1] != 1.5 {
		t.Fatalf("seed must be the simple average, got %v", out[1])
	}
	// alpha = 1/2, distinct from the EMA's 2/(N+1)
	want := 0.5*3 + 0.5*1.5
	if math.Abs(out[2]-want) > 1e-12 {
		t.Fatalf("expected %v, got %v", want, out[2])
	}
}

func TestStochasticZeroRange(t *testing.T) {
	flat := flatSeries(12, 10)
	k, d := Stochastic(flat, flat, flat, 5, 3)
	for i := range k {
		if !models.IsUnavailable(k[i]) {
			t.Fatalf("index %d: zero high-low range must be unavailable, got %v", i, k[i])
		}
		if !models.IsUnavailable(d[i]) {
			t.Fatalf("index %d: %%D over unavailable %%K must stay unavailable", i)
		}
	}
}

func TestIchimokuDisplacementNeverLooksAhead(t *testing.T) {
	n := 40
	high := make([]float64, n)
	low := make([]float64, n)
	close := make([]float64, n)
	for i := 0; i < n; i++ {
		high[i] = float64(10 + i)
		low[i] = float64(8 + i)
		close[i] = float64(9 + i)
	}
	d := 5
	res := Ichimoku(high, low, close, 3, 6, 9, d)
	for i := 0; i < d; i++ {
		if !models.IsUnavailable(res.LaggingSpan[i]) {
			t.Fatalf("index %d: lagging span must be unavailable before displacement", i)
		}
	}
	for i := d; i < n; i++ {
		if res.LaggingSpan[i] != close[i-d] {
			t.Fatalf("index %d: lagging span must be the close from %d bars back", i, d)
		}
	}
}

func TestEngineOutputsAlignWithSeries(t *testing.T) {
	n := 60
	bars := make([]models.Bar, n)
	base := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	for i := range bars {
		p := 100 + float64(i%7)
		bars[i] = models.Bar{
			Symbol:    "TEST",
			EpochTime: base.Add(time.Duration(i) * 5 * time.Minute).Unix(),
			Open:      p,
			High:      p + 1,
			Low:       p - 1,
			Close:     p + 0.5,
			Volume:    1000 + float64(i),
		}
	}
	var set models.IndicatorParameterSet
	set.Name = "test"
	for v := range set.Variants {
		set.Variants[v] = models.IndicatorParams{
			BollingerPeriod: 5 + v, RSIPeriod: 5 + v,
			MACDFast: 3 + v, MACDSlow: 10 + v, MACDSignal: 3,
			StochasticK: 5, StochasticD: 3, ADXPeriod: 5,
			EMAShort: 3 + v, EMALong: 8 + v, ATRPeriod: 5, CCIPeriod: 5,
			IchimokuConversion: 3, IchimokuBase: 6, IchimokuSpanB: 9, IchimokuDisplacement: 6,
			FibonacciWindow: 10,
		}
	}
	eng := NewEngine(set, Config{
		HorizonWindows: HorizonWindows(5, 8, 5),
		VolumeWindows:  []int{3, 5},
		Location:       time.UTC,
	})
	out, err := eng.Compute(context.Background(), NewSeries(bars))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("expected indicator columns")
	}
	for name, vals := range out {
		if len(vals) != n {
			t.Fatalf("column %s: length %d, want %d", name, len(vals), n)
		}
	}
	// one column per variant for parameterized families
	for _, stem := range []string{"rsi", "bollinger_upperband", "macd", "atr"} {
		for v := 1; v <= models.VariantCount; v++ {
			name := stem + "_param" + string(rune('0'+v))
			if _, ok := out[name]; !ok {
				t.Fatalf("missing column %s", name)
			}
		}
	}
}

func TestEngineDeterministic(t *testing.T) {
	n := 40
	bars := make([]models.Bar, n)
	for i := range bars {
		p := 50 + float64((i*13)%11)
		bars[i] = models.Bar{
			Symbol: "TEST", EpochTime: int64(1700000000 + i*300),
			Open: p, High: p + 2, Low: p - 2, Close: p + 1, Volume: 500,
		}
	}
	var set models.IndicatorParameterSet
	for v := range set.Variants {
		set.Variants[v] = models.IndicatorParams{
			BollingerPeriod: 5, RSIPeriod: 5, MACDFast: 3, MACDSlow: 8, MACDSignal: 3,
			StochasticK: 5, StochasticD: 3, ADXPeriod: 5, EMAShort: 3, EMALong: 8,
			ATRPeriod: 5, CCIPeriod: 5, IchimokuConversion: 3, IchimokuBase: 6,
			IchimokuSpanB: 9, IchimokuDisplacement: 6, FibonacciWindow: 10,
		}
	}
	eng := NewEngine(set, Config{HorizonWindows: HorizonWindows(5, 8, 5), VolumeWindows: []int{3}})
	a, err := eng.Compute(context.Background(), NewSeries(bars))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	b, err := eng.Compute(context.Background(), NewSeries(bars))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("column sets differ: %d vs %d", len(a), len(b))
	}
	for name, av := range a {
		bv, ok := b[name]
		if !ok {
			t.Fatalf("column %s missing on second run", name)
		}
		for i := range av {
			ua, ub := models.IsUnavailable(av[i]), models.IsUnavailable(bv[i])
			if ua != ub || (!ua && av[i] != bv[i]) {
				t.Fatalf("column %s index %d differs: %v vs %v", name, i, av[i], bv[i])
			}
		}
	}
}
