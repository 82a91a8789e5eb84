package schedule

import "time"

// The single boundary between civil time and UTC: stored instants are UTC,
// work-hour and slot arithmetic is civil in one configured zone, and the two
// meet only through the helpers in this file.

const dateLayout = "2006-01-02"

// ParseDate interprets s ("YYYY-MM-DD") as a civil date in loc, returning
// the instant of local midnight.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, loc)
}

// DayBoundsUTC returns the UTC instants of local 00:00:00.000 and
// 23:59:59.999 for date's civil day in loc. The zone offset is resolved for
// each boundary independently, so a day crossing a DST transition still maps
// to the correct pair of instants even though its wall-clock span is 23 or
// 25 hours.
func DayBoundsUTC(date time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := date.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	end := time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), loc)
	return start.UTC(), end.UTC()
}

// RangeBoundsUTC bounds an inclusive civil date range [from, to] for storage
// queries: local start-of-day of from through local end-of-day of to.
func RangeBoundsUTC(from, to time.Time, loc *time.Location) (time.Time, time.Time) {
	start, _ := DayBoundsUTC(from, loc)
	_, end := DayBoundsUTC(to, loc)
	return start, end
}
