package sync

import "time"

// Interval is a half-open time range [Begin, End) used to keep a single
// remote request within the service's query limits.
type Interval struct {
	Begin time.Time
	End   time.Time
}

// IntervalGenerator yields contiguous intervals covering [start, now).
// Each interval spans at most the configured number of days and the final
// interval ends exactly at now. The sequence is empty when start >= now.
type IntervalGenerator struct {
	next time.Time
	now  time.Time
	step time.Duration
}

func GenIntervals(start, now time.Time, days int) *IntervalGenerator {
	return &IntervalGenerator{
		next: start,
		now:  now,
		step: time.Duration(days) * 24 * time.Hour,
	}
}

func (g *IntervalGenerator) Next() (Interval, bool) {
	if !g.next.Before(g.now) {
		return Interval{}, false
	}
	end := g.next.Add(g.step)
	if end.After(g.now) {
		end = g.now
	}
	result := Interval{Begin: g.next, End: end}
	g.next = end
	return result, true
}
