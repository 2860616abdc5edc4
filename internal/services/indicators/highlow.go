package indicators

// HorizonWindows maps horizon labels to trailing bar counts for the series'
// native granularity. Windows are derived from the bar interval and the
// market's operating hours, mirroring an exchange that trades a fixed number
// of hours per day and days per week.
func HorizonWindows(intervalMin, opsHoursDaily, opsDaysWeekly int) map[string]int {
	if intervalMin <= 0 {
		intervalMin = 5
	}
	barsPerHour := 60 / intervalMin
	hours := func(h int) int { return h * barsPerHour }
	return map[string]int{
		"1h":  hours(1),
		"5h":  hours(5),
		"1d":  hours(opsHoursDaily),
		"3d":  hours(opsHoursDaily * 3),
		"5d":  hours(opsHoursDaily * 5),
		"14d": hours(opsHoursDaily * 14),
		"52w": hours(opsHoursDaily * opsDaysWeekly * 52),
	}
}

// HighLow computes trailing high/low extremes for each labeled horizon
// window. Keys in the result are "high_<label>" and "low_<label>".
func HighLow(high, low []float64, windows map[string]int) map[string][]float64 {
	out := make(map[string][]float64, 2*len(windows))
	for label, w := range windows {
		out["high_"+label] = rollingMax(high, w)
		out["low_"+label] = rollingMin(low, w)
	}
	return out
}
