package indicators

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FeatureMill/internal/domain/models"

	"golang.org/x/sync/errgroup"
)

// Config carries the parameter-independent settings shared by every variant:
// horizon windows, volume windows, retracement ratios and the market clock.
type Config struct {
	HorizonWindows map[string]int
	VolumeWindows  []int
	FibLevels      []float64
	Location       *time.Location
}

// Engine computes every indicator family for one parameter set. Each family
// is a pure function over a trailing window of the series; families run in
// parallel and emit into a result map keyed by column name.
type Engine struct {
	set models.IndicatorParameterSet
	cfg Config
}

// NewEngine builds an engine for one parameter set.
func NewEngine(set models.IndicatorParameterSet, cfg Config) *Engine {
	if len(cfg.FibLevels) == 0 {
		cfg.FibLevels = DefaultFibLevels
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Engine{set: set, cfg: cfg}
}

// variantName suffixes a column stem with the 1-based variant index.
func variantName(stem string, v int) string { return fmt.Sprintf("%s_param%d", stem, v+1) }

// Compute evaluates all families over the series and returns column-aligned
// value slices. Every slice has the series length, with warm-up positions
// carrying the unavailable marker.
func (e *Engine) Compute(ctx context.Context, s Series) (map[string][]float64, error) {
	out := make(map[string][]float64)
	var mu sync.Mutex
	put := func(vals map[string][]float64) {
		mu.Lock()
		for k, v := range vals {
			out[k] = v
		}
		mu.Unlock()
	}

	g, _ := errgroup.WithContext(ctx)

	for v := 0; v < models.VariantCount; v++ {
		v := v
		p := e.set.Variants[v]
		g.Go(func() error {
			res := make(map[string][]float64)

			upper, middle, lower := Bollinger(s.Close, p.BollingerPeriod)
			res[variantName("bollinger_upperband", v)] = upper
			res[variantName("bollinger_middleband", v)] = middle
			res[variantName("bollinger_lowerband", v)] = lower

			res[variantName("rsi", v)] = RSI(s.Close, p.RSIPeriod)

			line, sig, hist := MACD(s.Close, p.MACDFast, p.MACDSlow, p.MACDSignal)
			res[variantName("macd", v)] = line
			res[variantName("macd_signal", v)] = sig
			res[variantName("macd_hist", v)] = hist

			k, d := Stochastic(s.High, s.Low, s.Close, p.StochasticK, p.StochasticD)
			res[variantName("stochastic_k", v)] = k
			res[variantName("stochastic_d", v)] = d

			res[variantName("adx", v)] = ADX(s.High, s.Low, s.Close, p.ADXPeriod)

			short, long := EMAPair(s.Close, p.EMAShort, p.EMALong)
			res[variantName("ema_short", v)] = short
			res[variantName("ema_long", v)] = long

			res[variantName("atr", v)] = ATR(s.High, s.Low, s.Close, p.ATRPeriod)
			res[variantName("cci", v)] = CCI(s.High, s.Low, s.Close, p.CCIPeriod)

			ich := Ichimoku(s.High, s.Low, s.Close,
				p.IchimokuConversion, p.IchimokuBase, p.IchimokuSpanB, p.IchimokuDisplacement)
			res[variantName("ichimoku_conversion_line", v)] = ich.ConversionLine
			res[variantName("ichimoku_base_line", v)] = ich.BaseLine
			res[variantName("ichimoku_leading_span_a", v)] = ich.LeadingSpanA
			res[variantName("ichimoku_leading_span_b", v)] = ich.LeadingSpanB
			res[variantName("ichimoku_lagging_span", v)] = ich.LaggingSpan
			res[variantName("ichimoku_price_above_cloud", v)] = ich.AboveCloud

			for stem, vals := range Fibonacci(s.High, s.Low, p.FibonacciWindow, e.cfg.FibLevels) {
				res[variantName(stem, v)] = vals
			}

			put(res)
			return nil
		})
	}

	// parameter-independent families
	g.Go(func() error {
		res := map[string][]float64{
			"vwap": VWAP(s.High, s.Low, s.Close, s.Volume),
			"obv":  OBV(s.Close, s.Volume),
			"sar":  SAR(s.High, s.Low),
		}
		res["volume_pct_change_last_interval"] = VolumePctChange(s.Volume)
		for _, w := range e.cfg.VolumeWindows {
			res[fmt.Sprintf("volume_pct_change_mean_%d", w)] = VolumePctChangeFromMean(s.Volume, w)
		}
		for name, vals := range HighLow(s.High, s.Low, e.cfg.HorizonWindows) {
			res[name] = vals
		}
		hour, weekday, month, quarter := Calendar(s.Epoch, e.cfg.Location)
		res["hour_of_day"] = hour
		res["day_of_week"] = weekday
		res["month_of_year"] = month
		res["quarter_of_year"] = quarter
		put(res)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// all outputs must align with the input series
	for name, vals := range out {
		if len(vals) != s.Len() {
			return nil, fmt.Errorf("indicator %s: length %d != series %d", name, len(vals), s.Len())
		}
	}
	return out, nil
}
