package candles

import "FeatureMill/internal/domain/models"

// Pattern recognizers emit talib-style scores: +100 bullish, -100 bearish,
// 0 absent. Multi-bar patterns are unavailable until enough prior bars exist.

// PatternNames lists the emitted pattern columns.
var PatternNames = []string{
	"pattern_doji",
	"pattern_hammer",
	"pattern_inverted_hammer",
	"pattern_shooting_star",
	"pattern_bullish_engulfing",
	"pattern_bearish_engulfing",
	"pattern_harami",
	"pattern_piercing_line",
	"pattern_morning_star",
	"pattern_evening_star",
	"pattern_three_black_crows",
}

// Patterns recognizes candlestick patterns over a time-ordered bar slice.
func Patterns(bars []models.Bar) map[string][]float64 {
	n := len(bars)
	out := make(map[string][]float64, len(PatternNames))
	for _, name := range PatternNames {
		out[name] = models.UnavailableSeries(n)
	}

	for i := range bars {
		c := bars[i]

		out["pattern_doji"][i] = score(isDoji(c), 100)
		out["pattern_hammer"][i] = score(isHammer(c), 100)
		out["pattern_inverted_hammer"][i] = score(isInvertedHammer(c), 100)
		out["pattern_shooting_star"][i] = score(isShootingStar(c), -100)

		if i >= 1 {
			p := bars[i-1]
			out["pattern_bullish_engulfing"][i] = score(isBullishEngulfing(p, c), 100)
			out["pattern_bearish_engulfing"][i] = score(isBearishEngulfing(p, c), -100)
			out["pattern_harami"][i] = score(isHarami(p, c), 100)
			out["pattern_piercing_line"][i] = score(isPiercingLine(p, c), 100)
		}
		if i >= 2 {
			a, b := bars[i-2], bars[i-1]
			out["pattern_morning_star"][i] = score(isMorningStar(a, b, c), 100)
			out["pattern_evening_star"][i] = score(isEveningStar(a, b, c), -100)
			out["pattern_three_black_crows"][i] = score(isThreeBlackCrows(a, b, c), -100)
		}
	}
	return out
}

func score(hit bool, v float64) float64 {
	if hit {
		return v
	}
	return 0
}

func bodyOf(b models.Bar) float64 { return abs(b.Close - b.Open) }

func rangeOf(b models.Bar) float64 { return b.High - b.Low }

func isGreen(b models.Bar) bool { return b.Close > b.Open }

func isRed(b models.Bar) bool { return b.Close < b.Open }

// isDoji: body under 10% of the candle range.
func isDoji(c models.Bar) bool {
	r := rangeOf(c)
	if r == 0 {
		return false
	}
	return bodyOf(c)/r < 0.10
}

// isHammer: small body near the top with a lower shadow at least twice the
// body.
func isHammer(c models.Bar) bool {
	body := bodyOf(c)
	r := rangeOf(c)
	if r == 0 || body == 0 {
		return false
	}
	lowerShadow := min(c.Open, c.Close) - c.Low
	upperShadow := c.High - max(c.Open, c.Close)
	return lowerShadow >= 2*body && upperShadow <= body && body/r < 0.4
}

// isInvertedHammer: mirror of the hammer, long upper shadow.
func isInvertedHammer(c models.Bar) bool {
	body := bodyOf(c)
	r := rangeOf(c)
	if r == 0 || body == 0 {
		return false
	}
	lowerShadow := min(c.Open, c.Close) - c.Low
	upperShadow := c.High - max(c.Open, c.Close)
	return upperShadow >= 2*body && lowerShadow <= body && body/r < 0.4
}

// isShootingStar: inverted-hammer shape after a green bar context is left to
// the model; the shape test alone requires a red close in the lower half.
func isShootingStar(c models.Bar) bool {
	return isInvertedHammer(c) && isRed(c)
}

func isBullishEngulfing(p, c models.Bar) bool {
	return isRed(p) && isGreen(c) && c.Open <= p.Close && c.Close >= p.Open
}

func isBearishEngulfing(p, c models.Bar) bool {
	return isGreen(p) && isRed(c) && c.Open >= p.Close && c.Close <= p.Open
}

// isHarami: current body contained within the previous body.
func isHarami(p, c models.Bar) bool {
	return max(c.Open, c.Close) <= max(p.Open, p.Close) &&
		min(c.Open, c.Close) >= min(p.Open, p.Close) &&
		bodyOf(p) > 0 && bodyOf(c) < bodyOf(p)
}

// isPiercingLine: green candle opening below the prior red close and closing
// above its body midpoint.
func isPiercingLine(p, c models.Bar) bool {
	if !isRed(p) || !isGreen(c) {
		return false
	}
	mid := (p.Open + p.Close) / 2
	return c.Open < p.Close && c.Close > mid && c.Close < p.Open
}

func isMorningStar(a, b, c models.Bar) bool {
	if !isRed(a) || !isGreen(c) {
		return false
	}
	if bodyOf(b) >= bodyOf(a)*0.5 {
		return false
	}
	return c.Close > (a.Open+a.Close)/2
}

func isEveningStar(a, b, c models.Bar) bool {
	if !isGreen(a) || !isRed(c) {
		return false
	}
	if bodyOf(b) >= bodyOf(a)*0.5 {
		return false
	}
	return c.Close < (a.Open+a.Close)/2
}

func isThreeBlackCrows(a, b, c models.Bar) bool {
	return isRed(a) && isRed(b) && isRed(c) &&
		b.Close < a.Close && c.Close < b.Close &&
		b.Open < a.Open && c.Open < b.Open
}
