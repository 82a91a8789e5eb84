package schedule

import "iter"

// SlotAvailability is a generated slot with its computed occupancy.
type SlotAvailability struct {
	Slot
	Available bool
}

// MarkAvailability walks the generated slots and marks each one occupied if
// it overlaps any of the busy intervals. Occupancy is a boolean OR over all
// overlaps, so duplicate or back-to-back bookings of the same interval do
// not double-count. Slot and busy times may be in different zones; overlap
// compares instants.
func MarkAvailability(slots iter.Seq[Slot], busy []Interval) []SlotAvailability {
	var out []SlotAvailability
	for s := range slots {
		out = append(out, SlotAvailability{
			Slot:      s,
			Available: !overlapsAny(s.Start, s.End, busy),
		})
	}
	return out
}
