package model

import "time"

// Appointment times are stored as UTC instants; civil-time interpretation
// happens in the schedule package only.
type Appointment struct {
	ID          string
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	UserID      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
