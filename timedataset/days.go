package timedataset

import "time"

// Days is an ordered run of calendar days
type Days []time.Time

// First returns the zero time for an empty run
func (d Days) First() time.Time {
	if len(d) == 0 {
		return time.Time{}
	}
	return d[0]
}

// Last returns the zero time for an empty run
func (d Days) Last() time.Time {
	if len(d) == 0 {
		return time.Time{}
	}
	return d[len(d)-1]
}

// Span counts the calendar days from the first to the last day inclusive, so a run
// without gaps has a span equal to its length
func (d Days) Span() int {
	if len(d) == 0 {
		return 0
	}
	return int((d.Last().Sub(d.First())+Day/2)/Day) + 1
}

// Next extends the run by n calendar days past its last day. AddDate keeps local
// midnights aligned across daylight saving changes.
func (d Days) Next(n int) []time.Time {
	res := []time.Time{}
	if len(d) == 0 {
		return res
	}
	last := d.Last()
	for i := 1; i <= n; i++ {
		res = append(res, last.AddDate(0, 0, i))
	}
	return res
}
