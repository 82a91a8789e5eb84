package schedule

import (
	"fmt"
	"time"
)

// RejectCode identifies why a proposed booking was refused. Codes are stable
// and machine-readable so callers can branch on them.
type RejectCode string

const (
	RejectInvalidRange        RejectCode = "invalid_range"
	RejectMisalignedSlot      RejectCode = "misaligned_slot"
	RejectOutsideWorkingHours RejectCode = "outside_working_hours"
	RejectSlotConflict        RejectCode = "slot_conflict"
)

// RejectionError is a booking refused by the validator. These are
// caller-input errors, never system faults, and are surfaced unmodified: a
// misaligned booking is rejected, never rounded or truncated to fit.
type RejectionError struct {
	Code   RejectCode
	Detail string
}

func (e *RejectionError) Error() string {
	return string(e.Code) + ": " + e.Detail
}

func rejectf(code RejectCode, format string, args ...any) *RejectionError {
	return &RejectionError{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// ValidateBooking decides whether a proposed [start, end) may be booked given
// the user's existing bookings, short-circuiting on the first failure:
//
//  1. start must precede end.
//  2. the booking must occupy exactly one canonical slot: its length equals
//     SlotDuration and its start minute falls on a slot boundary.
//  3. the booking must lie within the working hours of its local day.
//  4. it must not overlap any existing booking of the same user.
//
// The existing intervals are fetched by the caller; a superset window is
// fine, overlap decides.
func (c Config) ValidateBooking(start, end time.Time, existing []Interval) error {
	if !start.Before(end) {
		return rejectf(RejectInvalidRange, "start time %s is not before end time %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	local := start.In(c.Location)
	if end.Sub(start) != c.SlotDuration ||
		local.Minute()%c.slotMinutes() != 0 ||
		local.Second() != 0 || local.Nanosecond() != 0 {
		return rejectf(RejectMisalignedSlot, "booking must cover exactly one %d-minute slot on a slot boundary",
			c.slotMinutes())
	}

	y, m, d := local.Date()
	dayStart := time.Date(y, m, d, c.WorkHoursStart, 0, 0, 0, c.Location)
	dayEnd := time.Date(y, m, d, c.WorkHoursEnd, 0, 0, 0, c.Location)
	if start.Before(dayStart) || end.After(dayEnd) {
		return rejectf(RejectOutsideWorkingHours, "booking must fall within working hours %02d:00-%02d:00",
			c.WorkHoursStart, c.WorkHoursEnd)
	}

	for _, b := range existing {
		if Overlaps(start, end, b.Start, b.End) {
			return rejectf(RejectSlotConflict, "slot overlaps an existing booking from %s to %s",
				b.Start.Format(time.RFC3339), b.End.Format(time.RFC3339))
		}
	}
	return nil
}
