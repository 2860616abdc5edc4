package indicators

import "time"

// Calendar derives hour/day/month/quarter features from epoch timestamps in
// the given location. These are always defined: no warm-up applies.
func Calendar(epoch []int64, loc *time.Location) (hour, weekday, month, quarter []float64) {
	if loc == nil {
		loc = time.UTC
	}
	n := len(epoch)
	hour = make([]float64, n)
	weekday = make([]float64, n)
	month = make([]float64, n)
	quarter = make([]float64, n)
	for i, ts := range epoch {
		t := time.Unix(ts, 0).In(loc)
		hour[i] = float64(t.Hour())
		weekday[i] = float64(int(t.Weekday()))
		m := int(t.Month())
		month[i] = float64(m)
		quarter[i] = float64((m-1)/3 + 1)
	}
	return
}
