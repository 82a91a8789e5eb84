package schedule

import (
	"fmt"
	"time"

	"github.com/nayeem-hasan/apptbook/libs/config"
)

// Config carries the operational scheduling parameters. It is loaded once at
// startup and read-only afterwards; a Config that fails Validate must never
// reach the scheduling functions.
type Config struct {
	// WorkHoursStart and WorkHoursEnd bound the daily booking window,
	// as local hours of day (9 and 17 mean 09:00-17:00).
	WorkHoursStart int
	WorkHoursEnd   int

	// SlotDuration is the length of one bookable slot.
	SlotDuration time.Duration

	// MaxSlotsPerAppointment bounds how many contiguous slots a single
	// appointment may span. Parsed and validated, but the booking validator
	// currently requires exactly one slot; multi-slot appointments are an
	// extension point.
	MaxSlotsPerAppointment int

	// OperationalDays are the weekdays on which bookings are permitted.
	OperationalDays []time.Weekday

	// Location is the single civil timezone all work-hour arithmetic
	// happens in. Stored instants are always UTC.
	Location *time.Location
}

// ConfigFromEnv assembles the scheduling configuration from the environment.
// Absent or malformed values are a startup-fatal configuration error.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	var err error

	if cfg.WorkHoursStart, err = config.RequiredInt("WORK_HOURS_START"); err != nil {
		return Config{}, err
	}
	if cfg.WorkHoursEnd, err = config.RequiredInt("WORK_HOURS_END"); err != nil {
		return Config{}, err
	}
	slotMinutes, err := config.RequiredInt("SLOT_DURATION_MINUTES")
	if err != nil {
		return Config{}, err
	}
	cfg.SlotDuration = time.Duration(slotMinutes) * time.Minute
	if cfg.MaxSlotsPerAppointment, err = config.RequiredInt("MAX_SLOTS_PER_APPOINTMENT"); err != nil {
		return Config{}, err
	}
	if cfg.OperationalDays, err = config.RequiredWeekdays("OPERATIONAL_DAYS"); err != nil {
		return Config{}, err
	}

	tz := config.String("BOOKING_TIMEZONE", "UTC")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return Config{}, fmt.Errorf("BOOKING_TIMEZONE: unknown timezone %q", tz)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.WorkHoursStart < 0 || c.WorkHoursStart > 23 {
		return fmt.Errorf("work hours start must be within 0-23 (got %d)", c.WorkHoursStart)
	}
	if c.WorkHoursEnd < 0 || c.WorkHoursEnd > 23 {
		return fmt.Errorf("work hours end must be within 0-23 (got %d)", c.WorkHoursEnd)
	}
	if c.WorkHoursStart >= c.WorkHoursEnd {
		return fmt.Errorf("work hours start %d must be before end %d", c.WorkHoursStart, c.WorkHoursEnd)
	}
	if c.SlotDuration <= 0 {
		return fmt.Errorf("slot duration must be positive (got %s)", c.SlotDuration)
	}
	if c.SlotDuration%time.Minute != 0 {
		return fmt.Errorf("slot duration must be whole minutes (got %s)", c.SlotDuration)
	}
	window := time.Duration(c.WorkHoursEnd-c.WorkHoursStart) * time.Hour
	if window%c.SlotDuration != 0 {
		return fmt.Errorf("slot duration %s does not divide the %s working window evenly", c.SlotDuration, window)
	}
	if c.MaxSlotsPerAppointment <= 0 {
		return fmt.Errorf("max slots per appointment must be positive (got %d)", c.MaxSlotsPerAppointment)
	}
	if len(c.OperationalDays) == 0 {
		return fmt.Errorf("at least one operational day is required")
	}
	for _, d := range c.OperationalDays {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("operational day out of range: %d", d)
		}
	}
	if c.Location == nil {
		return fmt.Errorf("timezone location is required")
	}
	return nil
}

func (c Config) slotMinutes() int {
	return int(c.SlotDuration / time.Minute)
}

func (c Config) operational(d time.Weekday) bool {
	for _, day := range c.OperationalDays {
		if day == d {
			return true
		}
	}
	return false
}
