package candles

import (
	"testing"

	"FeatureMill/internal/domain/models"
)

func TestShapesBasicDescriptors(t *testing.T) {
	bars := []models.Bar{
		{Open: 10, High: 12, Low: 9, Close: 11},
		{Open: 11, High: 11, Low: 11, Close: 11}, // zero range
		{Open: 11, High: 13, Low: 10, Close: 10.5},
	}
	out := Shapes(bars)

	if out["candlestick_length"][0] != 3 {
		t.Fatalf("length: got %v", out["candlestick_length"][0])
	}
	if out["body_length"][0] != 1 {
		t.Fatalf("body: got %v", out["body_length"][0])
	}
	if out["body_mid_point"][0] != 10.5 {
		t.Fatalf("midpoint: got %v", out["body_mid_point"][0])
	}
	if out["is_green"][0] != 1 || out["is_green"][2] != 0 {
		t.Fatalf("is_green: got %v, %v", out["is_green"][0], out["is_green"][2])
	}
	if !models.IsUnavailable(out["body_to_length_ratio"][1]) {
		t.Fatalf("zero-range candle must have unavailable ratio")
	}
}

func TestShapesLagsAndGap(t *testing.T) {
	bars := []models.Bar{
		{Open: 10, High: 12, Low: 9, Close: 11},
		{Open: 11.5, High: 12, Low: 11, Close: 11.8},
		{Open: 11.8, High: 13, Low: 11.5, Close: 12.5},
	}
	out := Shapes(bars)

	if !models.IsUnavailable(out["candlestick_length_prev_1"][0]) {
		t.Fatalf("first row has no lag-1 value")
	}
	if !models.IsUnavailable(out["candlestick_length_prev_2"][1]) {
		t.Fatalf("second row has no lag-2 value")
	}
	if out["candlestick_length_prev_1"][1] != out["candlestick_length"][0] {
		t.Fatalf("lag-1 must carry the prior value")
	}
	if out["candlestick_length_prev_2"][2] != out["candlestick_length"][0] {
		t.Fatalf("lag-2 must carry the value from two bars back")
	}
	if !models.IsUnavailable(out["candlestick_gap"][0]) {
		t.Fatalf("first row has no gap")
	}
	if out["candlestick_gap"][1] != 0.5 {
		t.Fatalf("gap: got %v", out["candlestick_gap"][1])
	}
}

func TestPatternDoji(t *testing.T) {
	bars := []models.Bar{
		{Open: 100, High: 105, Low: 95, Close: 100.2}, // body 0.2 over range 10
		{Open: 100, High: 105, Low: 95, Close: 103},   // body too large
	}
	out := Patterns(bars)
	if out["pattern_doji"][0] != 100 {
		t.Fatalf("expected doji, got %v", out["pattern_doji"][0])
	}
	if out["pattern_doji"][1] != 0 {
		t.Fatalf("expected no doji, got %v", out["pattern_doji"][1])
	}
}

func TestPatternHammerAndShootingStar(t *testing.T) {
	hammer := models.Bar{Open: 100, High: 100.5, Low: 96, Close: 100.4}
	star := models.Bar{Open: 100.4, High: 104, Low: 100, Close: 100.1}
	out := Patterns([]models.Bar{hammer, star})

	if out["pattern_hammer"][0] != 100 {
		t.Fatalf("expected hammer, got %v", out["pattern_hammer"][0])
	}
	if out["pattern_shooting_star"][1] != -100 {
		t.Fatalf("expected shooting star, got %v", out["pattern_shooting_star"][1])
	}
}

func TestPatternEngulfing(t *testing.T) {
	bars := []models.Bar{
		{Open: 102, High: 103, Low: 99, Close: 100},  // red
		{Open: 99.5, High: 104, Low: 99, Close: 103}, // green engulfing
	}
	out := Patterns(bars)
	if !models.IsUnavailable(out["pattern_bullish_engulfing"][0]) {
		t.Fatalf("first row of a two-bar pattern must be unavailable")
	}
	if out["pattern_bullish_engulfing"][1] != 100 {
		t.Fatalf("expected bullish engulfing, got %v", out["pattern_bullish_engulfing"][1])
	}
	if out["pattern_bearish_engulfing"][1] != 0 {
		t.Fatalf("expected no bearish engulfing, got %v", out["pattern_bearish_engulfing"][1])
	}
}

func TestPatternThreeBlackCrows(t *testing.T) {
	bars := []models.Bar{
		{Open: 110, High: 111, Low: 104, Close: 105},
		{Open: 108, High: 109, Low: 101, Close: 102},
		{Open: 105, High: 106, Low: 98, Close: 99},
	}
	out := Patterns(bars)
	if !models.IsUnavailable(out["pattern_three_black_crows"][1]) {
		t.Fatalf("three-bar pattern needs two prior bars")
	}
	if out["pattern_three_black_crows"][2] != -100 {
		t.Fatalf("expected three black crows, got %v", out["pattern_three_black_crows"][2])
	}
}
