package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nayeem-hasan/apptbook/services/appointment-service/internal/model"
	"github.com/nayeem-hasan/apptbook/services/appointment-service/internal/schedule"
)

// Collaborator contract errors. Implementations of the interfaces below must
// return these (possibly wrapped) so the orchestrator can branch; anything
// else is treated as a storage failure and surfaced as-is.
var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrUserNotFound        = errors.New("user not found")

	// ErrStorageConflict is a storage-level uniqueness or exclusion
	// violation. Validate-then-insert is not atomic, so two concurrent
	// bookings for the same slot can both pass the overlap check; the
	// database constraint is the backstop and the orchestrator reports it
	// as a slot conflict.
	ErrStorageConflict = errors.New("conflicting appointment exists")
)

// AppointmentStore is the appointment-storage capability.
type AppointmentStore interface {
	Create(ctx context.Context, appt model.Appointment) (model.Appointment, error)
	GetByID(ctx context.Context, id string) (model.Appointment, error)
	List(ctx context.Context) ([]model.Appointment, error)
	// ListByUserBetween returns the user's appointments intersecting
	// [from, to), ordered by start time.
	ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]model.Appointment, error)
	Update(ctx context.Context, appt model.Appointment) (model.Appointment, error)
	Delete(ctx context.Context, id string) error
}

// UserDirectory is the user-lookup capability.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (model.User, error)
}

// Service sequences the scheduling decisions against the collaborators. The
// decision functions themselves are pure; Service is safe for concurrent use.
type Service struct {
	cfg    schedule.Config
	store  AppointmentStore
	users  UserDirectory
	logger *slog.Logger

	revalidateOnUpdate bool
}

type Options struct {
	// RevalidateOnUpdate re-runs the booking validator when an update
	// changes the time range. When false only start<end is still enforced;
	// the storage overlap constraint remains in effect either way.
	RevalidateOnUpdate bool
}

func NewService(cfg schedule.Config, store AppointmentStore, users UserDirectory, logger *slog.Logger, opts Options) *Service {
	return &Service{
		cfg:                cfg,
		store:              store,
		users:              users,
		logger:             logger,
		revalidateOnUpdate: opts.RevalidateOnUpdate,
	}
}

type CreateParams struct {
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	UserID      string
}

// Create validates the proposed booking against the user's existing
// appointments and persists it. A storage conflict surfaces as a
// slot_conflict rejection, covering the race two concurrent requests can win
// past the validator.
func (s *Service) Create(ctx context.Context, p CreateParams) (model.Appointment, error) {
	if _, err := s.users.GetByID(ctx, p.UserID); err != nil {
		return model.Appointment{}, err
	}

	start := p.StartTime.UTC()
	end := p.EndTime.UTC()

	existing, err := s.bookedIntervals(ctx, p.UserID, start, "")
	if err != nil {
		return model.Appointment{}, err
	}
	if err := s.cfg.ValidateBooking(start, end, existing); err != nil {
		return model.Appointment{}, err
	}

	appt, err := s.store.Create(ctx, model.Appointment{
		Title:       p.Title,
		Description: p.Description,
		StartTime:   start,
		EndTime:     end,
		UserID:      p.UserID,
	})
	if err != nil {
		if errors.Is(err, ErrStorageConflict) {
			return model.Appointment{}, &schedule.RejectionError{
				Code:   schedule.RejectSlotConflict,
				Detail: "slot was booked concurrently",
			}
		}
		return model.Appointment{}, err
	}

	s.logger.Info("appointment scheduled",
		"appointment_id", appt.ID,
		"user_id", appt.UserID,
		"start_time", appt.StartTime.Format(time.RFC3339),
	)
	return appt, nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Appointment, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]model.Appointment, error) {
	return s.store.List(ctx)
}

// UpdateParams carries partial updates; nil fields are left unchanged.
type UpdateParams struct {
	Title       *string
	Description *string
	StartTime   *time.Time
	EndTime     *time.Time
	UserID      *string
}

func (s *Service) Update(ctx context.Context, id string, p UpdateParams) (model.Appointment, error) {
	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}

	if p.UserID != nil && *p.UserID != appt.UserID {
		if _, err := s.users.GetByID(ctx, *p.UserID); err != nil {
			return model.Appointment{}, err
		}
		appt.UserID = *p.UserID
	}
	if p.Title != nil {
		appt.Title = *p.Title
	}
	if p.Description != nil {
		appt.Description = *p.Description
	}

	timeChanged := false
	if p.StartTime != nil {
		appt.StartTime = p.StartTime.UTC()
		timeChanged = true
	}
	if p.EndTime != nil {
		appt.EndTime = p.EndTime.UTC()
		timeChanged = true
	}

	if timeChanged {
		if !appt.StartTime.Before(appt.EndTime) {
			return model.Appointment{}, &schedule.RejectionError{
				Code:   schedule.RejectInvalidRange,
				Detail: "start time must be before end time",
			}
		}
		if s.revalidateOnUpdate {
			existing, err := s.bookedIntervals(ctx, appt.UserID, appt.StartTime, appt.ID)
			if err != nil {
				return model.Appointment{}, err
			}
			if err := s.cfg.ValidateBooking(appt.StartTime, appt.EndTime, existing); err != nil {
				return model.Appointment{}, err
			}
		}
	}

	updated, err := s.store.Update(ctx, appt)
	if err != nil {
		if errors.Is(err, ErrStorageConflict) {
			return model.Appointment{}, &schedule.RejectionError{
				Code:   schedule.RejectSlotConflict,
				Detail: "updated time overlaps an existing booking",
			}
		}
		return model.Appointment{}, err
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("appointment deleted", "appointment_id", id)
	return nil
}

// AvailableSlots generates the candidate slots for the inclusive civil date
// range and marks each one against the user's stored bookings. Identical
// inputs with no intervening writes yield identical output.
func (s *Service) AvailableSlots(ctx context.Context, userID string, fromDate, toDate time.Time) ([]schedule.SlotAvailability, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	from, to := schedule.RangeBoundsUTC(fromDate, toDate, s.cfg.Location)
	appts, err := s.store.ListByUserBetween(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	busy := make([]schedule.Interval, 0, len(appts))
	for _, a := range appts {
		busy = append(busy, schedule.Interval{Start: a.StartTime, End: a.EndTime})
	}
	return schedule.MarkAvailability(s.cfg.Slots(fromDate, toDate), busy), nil
}

// bookedIntervals fetches the user's bookings for the civil day containing
// start, excluding excludeID (for update-time revalidation). Working hours
// never cross midnight, so the day window is a superset of anything a valid
// booking could overlap.
func (s *Service) bookedIntervals(ctx context.Context, userID string, start time.Time, excludeID string) ([]schedule.Interval, error) {
	from, to := schedule.DayBoundsUTC(start, s.cfg.Location)
	appts, err := s.store.ListByUserBetween(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	intervals := make([]schedule.Interval, 0, len(appts))
	for _, a := range appts {
		if excludeID != "" && a.ID == excludeID {
			continue
		}
		intervals = append(intervals, schedule.Interval{Start: a.StartTime, End: a.EndTime})
	}
	return intervals, nil
}
