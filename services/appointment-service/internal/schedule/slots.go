package schedule

import (
	"iter"
	"time"
)

// Slot is one candidate booking interval within an operational day. Start and
// End are instants in the configured civil zone; slots are computed on demand
// and never persisted.
type Slot struct {
	Start time.Time
	End   time.Time
}

// Date returns the slot's civil date as "YYYY-MM-DD".
func (s Slot) Date() string {
	return s.Start.Format(dateLayout)
}

// Slots yields the candidate slots for the inclusive civil date range
// [from, to], ordered by date then start time. Non-operational weekdays are
// skipped. Within an operational day, slots step by SlotDuration from
// WorkHoursStart; a slot whose end would pass WorkHoursEnd is dropped, never
// truncated, while a slot ending exactly at WorkHoursEnd is kept.
//
// The sequence is lazy and restartable: ranging over it twice yields the
// same slots. A from after to yields nothing.
func (c Config) Slots(from, to time.Time) iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		fy, fm, fd := from.In(c.Location).Date()
		ly, lm, ld := to.In(c.Location).Date()
		day := time.Date(fy, fm, fd, 0, 0, 0, 0, c.Location)
		last := time.Date(ly, lm, ld, 0, 0, 0, 0, c.Location)

		for !day.After(last) {
			if c.operational(day.Weekday()) {
				y, m, d := day.Date()
				dayEnd := time.Date(y, m, d, c.WorkHoursEnd, 0, 0, 0, c.Location)
				t := time.Date(y, m, d, c.WorkHoursStart, 0, 0, 0, c.Location)
				for {
					end := t.Add(c.SlotDuration)
					if end.After(dayEnd) {
						break
					}
					if !yield(Slot{Start: t, End: end}) {
						return
					}
					t = end
				}
			}
			day = day.AddDate(0, 0, 1)
		}
	}
}
