package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"FeatureMill/internal/domain/models"
	"FeatureMill/internal/schema"
	"FeatureMill/internal/services/book"
	"FeatureMill/internal/services/candles"
	"FeatureMill/internal/services/indicators"
	applogger "FeatureMill/pkg/logger"
)

func newTestLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

// testRegistry declares every column the pipeline emits with the test
// engine configuration.
func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	entries := []schema.Entry{
		{Name: "open"}, {Name: "high"}, {Name: "low"}, {Name: "close"}, {Name: "volume"},
	}
	for _, stem := range []string{
		"bollinger_upperband", "bollinger_middleband", "bollinger_lowerband",
		"rsi", "macd", "macd_signal", "macd_hist",
		"stochastic_k", "stochastic_d", "adx",
		"ema_short", "ema_long", "atr", "cci",
		"ichimoku_conversion_line", "ichimoku_base_line",
		"ichimoku_leading_span_a", "ichimoku_leading_span_b",
		"ichimoku_lagging_span", "ichimoku_price_above_cloud",
		"fib_level_236", "fib_level_382", "fib_level_500", "fib_level_618", "fib_level_786",
	} {
		entries = append(entries, schema.Entry{Name: stem, Variants: models.VariantCount})
	}
	for _, name := range []string{
		"vwap", "obv", "sar", "volume_pct_change_last_interval",
		"volume_pct_change_mean_3", "volume_pct_change_mean_5",
		"high_1h", "low_1h", "high_5h", "low_5h", "high_1d", "low_1d",
		"high_3d", "low_3d", "high_5d", "low_5d", "high_14d", "low_14d",
		"high_52w", "low_52w",
		"hour_of_day", "day_of_week", "month_of_year", "quarter_of_year",
		"candlestick_gap",
	} {
		entries = append(entries, schema.Entry{Name: name})
	}
	for _, stem := range []string{
		"candlestick_length", "body_length", "body_mid_point", "is_green", "body_to_length_ratio",
	} {
		entries = append(entries,
			schema.Entry{Name: stem},
			schema.Entry{Name: stem + "_prev_1"},
			schema.Entry{Name: stem + "_prev_2"})
	}
	for _, name := range candles.PatternNames {
		entries = append(entries, schema.Entry{Name: name})
	}
	for _, name := range book.ColumnNames {
		entries = append(entries, schema.Entry{Name: name})
	}
	r, err := schema.FromTable(entries)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return r
}

func testIndicatorConfig() indicators.Config {
	return indicators.Config{
		HorizonWindows: map[string]int{
			"1h": 2, "5h": 3, "1d": 4, "3d": 5, "5d": 6, "14d": 8, "52w": 10,
		},
		VolumeWindows: []int{3, 5},
		Location:      time.UTC,
	}
}

func testIndicatorSet(name string) models.IndicatorParameterSet {
	set := models.IndicatorParameterSet{Name: name}
	for v := range set.Variants {
		set.Variants[v] = models.IndicatorParams{
			BollingerPeriod: 5 + v, RSIPeriod: 5,
			MACDFast: 3, MACDSlow: 8, MACDSignal: 3,
			StochasticK: 5, StochasticD: 3, ADXPeriod: 3,
			EMAShort: 3, EMALong: 8, ATRPeriod: 5, CCIPeriod: 5,
			IchimokuConversion: 3, IchimokuBase: 6, IchimokuSpanB: 9, IchimokuDisplacement: 4,
			FibonacciWindow: 6,
		}
	}
	return set
}

func testBars(n int) []models.Bar {
	bars := make([]models.Bar, n)
	base := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	for i := range bars {
		p := 100 + float64((i*13)%11)
		bars[i] = models.Bar{
			Symbol:    "TEST",
			EpochTime: base.Add(time.Duration(i) * 5 * time.Minute).Unix(),
			Open:      p,
			High:      p + 2,
			Low:       p - 2,
			Close:     p + 1,
			Volume:    1000 + float64(i%9)*10,
		}
	}
	return bars
}

// stubSource serves fixture bars and snapshots and counts bar loads. A
// non-zero delay holds each load so concurrent callers overlap.
type stubSource struct {
	bars      []models.Bar
	skipSnaps map[int64]bool
	delay     time.Duration
	barCalls  atomic.Int64
}

func (s *stubSource) Bars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	s.barCalls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.bars, nil
}

func (s *stubSource) Snapshots(ctx context.Context, symbol string, from, to time.Time) ([]models.OrderBookSnapshot, error) {
	out := make([]models.OrderBookSnapshot, 0, len(s.bars))
	for _, b := range s.bars {
		if s.skipSnaps[b.EpochTime] {
			continue
		}
		out = append(out, models.OrderBookSnapshot{
			Symbol:    b.Symbol,
			EpochTime: b.EpochTime,
			Bids:      []models.BookLevel{{Price: b.Close - 0.5, Qty: 10}, {Price: b.Close - 1, Qty: 5}},
			Asks:      []models.BookLevel{{Price: b.Close + 0.5, Qty: 8}},
		})
	}
	return out, nil
}

func newTestAssembler(t *testing.T, source *stubSource) (*Assembler, *schema.Registry) {
	t.Helper()
	reg := testRegistry(t)
	a := NewAssembler(reg, source, newTestLogger(t), WithIndicatorConfig(testIndicatorConfig()))
	return a, reg
}

var testRange = struct{ from, to time.Time }{
	from: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
	to:   time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
}

func TestAssembleRowPerBarWithFullSchema(t *testing.T) {
	src := &stubSource{bars: testBars(40)}
	a, reg := newTestAssembler(t, src)

	rows, err := a.Assemble(context.Background(), "TEST", testRange.from, testRange.to, testIndicatorSet("s"))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(rows) != 40 {
		t.Fatalf("expected one row per bar, got %d", len(rows))
	}
	for i, row := range rows {
		if len(row.Values) != reg.Len() {
			t.Fatalf("row %d carries %d values, want %d", i, len(row.Values), reg.Len())
		}
		for _, col := range reg.Columns() {
			if _, ok := row.Values[col]; !ok {
				t.Fatalf("row %d missing column %s", i, col)
			}
		}
	}
	if rows[0].EpochTime != src.bars[0].EpochTime {
		t.Fatalf("rows must follow bar order")
	}
}

func TestAssembleIdempotent(t *testing.T) {
	src := &stubSource{bars: testBars(40)}
	a, _ := newTestAssembler(t, src)
	set := testIndicatorSet("s")

	first, err := a.Assemble(context.Background(), "TEST", testRange.from, testRange.to, set)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	second, err := a.Assemble(context.Background(), "TEST", testRange.from, testRange.to, set)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("row counts differ")
	}
	for i := range first {
		for col, v1 := range first[i].Values {
			v2 := second[i].Values[col]
			u1, u2 := models.IsUnavailable(v1), models.IsUnavailable(v2)
			if u1 != u2 || (!u1 && v1 != v2) {
				t.Fatalf("row %d column %s differs: %v vs %v", i, col, v1, v2)
			}
		}
	}
}

func TestAssembleIngestionGap(t *testing.T) {
	src := &stubSource{bars: nil}
	a, _ := newTestAssembler(t, src)

	rows, err := a.Assemble(context.Background(), "TEST", testRange.from, testRange.to, testIndicatorSet("s"))
	if !errors.Is(err, ErrIngestionGap) {
		t.Fatalf("expected ErrIngestionGap, got %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Fatalf("gap must return an empty, non-nil row slice")
	}
}

func TestAssembleMissingSnapshotKeepsRow(t *testing.T) {
	bars := testBars(40)
	missing := bars[20].EpochTime
	src := &stubSource{bars: bars, skipSnaps: map[int64]bool{missing: true}}
	a, reg := newTestAssembler(t, src)

	rows, err := a.Assemble(context.Background(), "TEST", testRange.from, testRange.to, testIndicatorSet("s"))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	spread, err := reg.Resolve("spread")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !models.IsUnavailable(rows[20].Values[spread]) {
		t.Fatalf("missing snapshot must leave book columns unavailable")
	}
	if models.IsUnavailable(rows[19].Values[spread]) {
		t.Fatalf("neighbor rows keep their book columns")
	}
	rng, err := reg.Resolve("intraday_price_range")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if models.IsUnavailable(rows[20].Values[rng]) {
		t.Fatalf("bar-derived columns survive a missing snapshot")
	}
}

func TestAssembleUnknownColumnIsFatal(t *testing.T) {
	// registry missing the pattern columns
	entries := []schema.Entry{{Name: "close"}}
	reg, err := schema.FromTable(entries)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	src := &stubSource{bars: testBars(20)}
	a := NewAssembler(reg, src, newTestLogger(t), WithIndicatorConfig(testIndicatorConfig()))

	_, err = a.Assemble(context.Background(), "TEST", testRange.from, testRange.to, testIndicatorSet("s"))
	if !errors.Is(err, schema.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestFeatureCacheSingleComputationPerKey(t *testing.T) {
	src := &stubSource{bars: testBars(40)}
	a, _ := newTestAssembler(t, src)
	cache := NewFeatureCache(a, nil)
	set := testIndicatorSet("s")

	first, err := cache.Get(context.Background(), "TEST", testRange.from, testRange.to, set)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	second, err := cache.Get(context.Background(), "TEST", testRange.from, testRange.to, set)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if src.barCalls.Load() != 1 {
		t.Fatalf("expected one assembly, saw %d bar loads", src.barCalls.Load())
	}
	if &first[0] != &second[0] {
		t.Fatalf("cached table must be shared")
	}
	if cache.Len() != 1 {
		t.Fatalf("expected one cached table, got %d", cache.Len())
	}
}

func TestFeatureCacheConcurrentRequestersShareOneFlight(t *testing.T) {
	src := &stubSource{bars: testBars(40), delay: 50 * time.Millisecond}
	a, _ := newTestAssembler(t, src)
	cache := NewFeatureCache(a, nil)
	set := testIndicatorSet("s")

	const requesters = 8
	var wg sync.WaitGroup
	tables := make([][]models.FeatureRow, requesters)
	errs := make([]error, requesters)
	for i := 0; i < requesters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tables[i], errs[i] = cache.Get(context.Background(), "TEST", testRange.from, testRange.to, set)
		}(i)
	}
	wg.Wait()

	for i := 0; i < requesters; i++ {
		if errs[i] != nil {
			t.Fatalf("requester %d: %v", i, errs[i])
		}
		if len(tables[i]) != 40 {
			t.Fatalf("requester %d: got %d rows, want 40", i, len(tables[i]))
		}
	}
	if got := src.barCalls.Load(); got != 1 {
		t.Fatalf("expected one assembly across %d concurrent requesters, saw %d bar loads", requesters, got)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected one cached table, got %d", cache.Len())
	}
}

func TestFeatureCacheKeyedByParameterSet(t *testing.T) {
	src := &stubSource{bars: testBars(40)}
	a, _ := newTestAssembler(t, src)
	cache := NewFeatureCache(a, nil)

	setA := testIndicatorSet("a")
	setB := testIndicatorSet("b")
	setB.Variants[0].RSIPeriod = 9

	if _, err := cache.Get(context.Background(), "TEST", testRange.from, testRange.to, setA); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := cache.Get(context.Background(), "TEST", testRange.from, testRange.to, setB); err != nil {
		t.Fatalf("get: %v", err)
	}
	if src.barCalls.Load() != 2 {
		t.Fatalf("distinct parameter sets must assemble separately, saw %d loads", src.barCalls.Load())
	}
}
