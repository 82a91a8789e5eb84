package booking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nayeem-hasan/apptbook/services/appointment-service/internal/model"
	"github.com/nayeem-hasan/apptbook/services/appointment-service/internal/schedule"
)

const (
	testUserID  = "3f1e9c1a-0000-4000-8000-000000000001"
	otherUserID = "3f1e9c1a-0000-4000-8000-000000000002"
)

type fakeStore struct {
	appts  map[string]model.Appointment
	nextID int

	// createErr, when set, fails the next Create. Lets tests exercise the
	// losing side of the validate-then-insert race.
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{appts: map[string]model.Appointment{}}
}

func (f *fakeStore) Create(_ context.Context, appt model.Appointment) (model.Appointment, error) {
	if f.createErr != nil {
		err := f.createErr
		f.createErr = nil
		return model.Appointment{}, err
	}
	// Mirrors the database exclusion constraint: no overlapping rows per user.
	for _, existing := range f.appts {
		if existing.UserID == appt.UserID &&
			schedule.Overlaps(appt.StartTime, appt.EndTime, existing.StartTime, existing.EndTime) {
			return model.Appointment{}, fmt.Errorf("exclusion violated: %w", ErrStorageConflict)
		}
	}
	f.nextID++
	appt.ID = fmt.Sprintf("appt-%d", f.nextID)
	appt.CreatedAt = time.Now().UTC()
	appt.UpdatedAt = appt.CreatedAt
	f.appts[appt.ID] = appt
	return appt, nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (model.Appointment, error) {
	appt, ok := f.appts[id]
	if !ok {
		return model.Appointment{}, ErrAppointmentNotFound
	}
	return appt, nil
}

func (f *fakeStore) List(_ context.Context) ([]model.Appointment, error) {
	out := make([]model.Appointment, 0, len(f.appts))
	for _, appt := range f.appts {
		out = append(out, appt)
	}
	return out, nil
}

func (f *fakeStore) ListByUserBetween(_ context.Context, userID string, from, to time.Time) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, appt := range f.appts {
		if appt.UserID == userID && appt.StartTime.Before(to) && appt.EndTime.After(from) {
			out = append(out, appt)
		}
	}
	return out, nil
}

func (f *fakeStore) Update(_ context.Context, appt model.Appointment) (model.Appointment, error) {
	if _, ok := f.appts[appt.ID]; !ok {
		return model.Appointment{}, ErrAppointmentNotFound
	}
	for id, existing := range f.appts {
		if id != appt.ID && existing.UserID == appt.UserID &&
			schedule.Overlaps(appt.StartTime, appt.EndTime, existing.StartTime, existing.EndTime) {
			return model.Appointment{}, fmt.Errorf("exclusion violated: %w", ErrStorageConflict)
		}
	}
	appt.UpdatedAt = time.Now().UTC()
	f.appts[appt.ID] = appt
	return appt, nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	if _, ok := f.appts[id]; !ok {
		return ErrAppointmentNotFound
	}
	delete(f.appts, id)
	return nil
}

type fakeUsers struct {
	known map[string]model.User
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (model.User, error) {
	u, ok := f.known[id]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	return u, nil
}

func testService(t *testing.T, opts Options) (*Service, *fakeStore) {
	t.Helper()
	cfg := schedule.Config{
		WorkHoursStart:         9,
		WorkHoursEnd:           17,
		SlotDuration:           30 * time.Minute,
		MaxSlotsPerAppointment: 1,
		OperationalDays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
		},
		Location: time.UTC,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	store := newFakeStore()
	users := &fakeUsers{known: map[string]model.User{
		testUserID:  {ID: testUserID, Name: "Asha", Email: "asha@example.com"},
		otherUserID: {ID: otherUserID, Name: "Birger", Email: "birger@example.com"},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(cfg, store, users, logger, opts), store
}

func wednesdaySlot(hour, minute int) (time.Time, time.Time) {
	start := time.Date(2026, 1, 28, hour, minute, 0, 0, time.UTC)
	return start, start.Add(30 * time.Minute)
}

func TestCreate(t *testing.T) {
	svc, store := testService(t, Options{RevalidateOnUpdate: true})
	start, end := wednesdaySlot(10, 0)

	appt, err := svc.Create(context.Background(), CreateParams{
		Title:     "Checkup",
		StartTime: start,
		EndTime:   end,
		UserID:    testUserID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if appt.ID == "" {
		t.Fatal("expected assigned id")
	}
	if _, ok := store.appts[appt.ID]; !ok {
		t.Fatal("appointment not persisted")
	}
}

func TestCreate_UnknownUser(t *testing.T) {
	svc, _ := testService(t, Options{})
	start, end := wednesdaySlot(10, 0)

	_, err := svc.Create(context.Background(), CreateParams{
		Title: "Checkup", StartTime: start, EndTime: end,
		UserID: "3f1e9c1a-0000-4000-8000-0000000000ff",
	})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestCreate_ValidatorConflict(t *testing.T) {
	svc, _ := testService(t, Options{})
	start, end := wednesdaySlot(10, 0)

	if _, err := svc.Create(context.Background(), CreateParams{
		Title: "First", StartTime: start, EndTime: end, UserID: testUserID,
	}); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := svc.Create(context.Background(), CreateParams{
		Title: "Second", StartTime: start, EndTime: end, UserID: testUserID,
	})
	var rej *schedule.RejectionError
	if !errors.As(err, &rej) || rej.Code != schedule.RejectSlotConflict {
		t.Fatalf("expected slot_conflict rejection, got %v", err)
	}
}

func TestCreate_DifferentUsersShareSlot(t *testing.T) {
	svc, _ := testService(t, Options{})
	start, end := wednesdaySlot(10, 0)

	for _, userID := range []string{testUserID, otherUserID} {
		if _, err := svc.Create(context.Background(), CreateParams{
			Title: "Checkup", StartTime: start, EndTime: end, UserID: userID,
		}); err != nil {
			t.Fatalf("create for %s: %v", userID, err)
		}
	}
}

func TestCreate_StorageConflictBecomesRejection(t *testing.T) {
	svc, store := testService(t, Options{})
	start, end := wednesdaySlot(10, 0)

	// The validator passes (the read sees an empty calendar) but the insert
	// loses a race; the constraint error must come back as a slot conflict.
	store.createErr = fmt.Errorf("exclusion violated: %w", ErrStorageConflict)

	_, err := svc.Create(context.Background(), CreateParams{
		Title: "Late", StartTime: start, EndTime: end, UserID: testUserID,
	})
	var rej *schedule.RejectionError
	if !errors.As(err, &rej) || rej.Code != schedule.RejectSlotConflict {
		t.Fatalf("expected slot_conflict rejection, got %v", err)
	}
}

func TestGetAndList(t *testing.T) {
	svc, _ := testService(t, Options{})
	aStart, aEnd := wednesdaySlot(10, 0)
	bStart, bEnd := wednesdaySlot(11, 0)

	created, err := svc.Create(context.Background(), CreateParams{
		Title: "First", StartTime: aStart, EndTime: aEnd, UserID: testUserID,
	})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateParams{
		Title: "Second", StartTime: bStart, EndTime: bEnd, UserID: testUserID,
	}); err != nil {
		t.Fatalf("create second: %v", err)
	}

	got, err := svc.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "First" || !got.StartTime.Equal(aStart) {
		t.Fatalf("unexpected appointment: %+v", got)
	}
	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}

	all, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 appointments, got %d", len(all))
	}
}

func TestUpdate_Revalidates(t *testing.T) {
	svc, _ := testService(t, Options{RevalidateOnUpdate: true})
	aStart, aEnd := wednesdaySlot(10, 0)
	bStart, bEnd := wednesdaySlot(11, 0)

	first, err := svc.Create(context.Background(), CreateParams{
		Title: "First", StartTime: aStart, EndTime: aEnd, UserID: testUserID,
	})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := svc.Create(context.Background(), CreateParams{
		Title: "Second", StartTime: bStart, EndTime: bEnd, UserID: testUserID,
	})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	// Moving the second onto the first must be rejected.
	_, err = svc.Update(context.Background(), second.ID, UpdateParams{
		StartTime: &aStart, EndTime: &aEnd,
	})
	var rej *schedule.RejectionError
	if !errors.As(err, &rej) || rej.Code != schedule.RejectSlotConflict {
		t.Fatalf("expected slot_conflict rejection, got %v", err)
	}

	// Re-saving the first at its own time must not conflict with itself.
	if _, err := svc.Update(context.Background(), first.ID, UpdateParams{
		StartTime: &aStart, EndTime: &aEnd,
	}); err != nil {
		t.Fatalf("update onto own slot: %v", err)
	}
}

func TestUpdate_RevalidationDisabled(t *testing.T) {
	svc, _ := testService(t, Options{RevalidateOnUpdate: false})
	start, end := wednesdaySlot(10, 0)

	appt, err := svc.Create(context.Background(), CreateParams{
		Title: "Flexible", StartTime: start, EndTime: end, UserID: testUserID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Misaligned and outside working hours, but revalidation is off.
	newStart := time.Date(2026, 1, 28, 19, 10, 0, 0, time.UTC)
	newEnd := newStart.Add(50 * time.Minute)
	if _, err := svc.Update(context.Background(), appt.ID, UpdateParams{
		StartTime: &newStart, EndTime: &newEnd,
	}); err != nil {
		t.Fatalf("update with revalidation off: %v", err)
	}

	// Start before end still holds regardless.
	bad := newStart.Add(-time.Hour)
	_, err = svc.Update(context.Background(), appt.ID, UpdateParams{
		StartTime: &newStart, EndTime: &bad,
	})
	var rej *schedule.RejectionError
	if !errors.As(err, &rej) || rej.Code != schedule.RejectInvalidRange {
		t.Fatalf("expected invalid_range rejection, got %v", err)
	}
}

func TestUpdate_PartialFields(t *testing.T) {
	svc, _ := testService(t, Options{RevalidateOnUpdate: true})
	start, end := wednesdaySlot(10, 0)

	appt, err := svc.Create(context.Background(), CreateParams{
		Title: "Before", Description: "desc", StartTime: start, EndTime: end, UserID: testUserID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	title := "After"
	updated, err := svc.Update(context.Background(), appt.ID, UpdateParams{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "After" || updated.Description != "desc" {
		t.Fatalf("unexpected fields after partial update: %+v", updated)
	}
	if !updated.StartTime.Equal(start) {
		t.Fatal("start time should be unchanged")
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _ := testService(t, Options{})
	title := "x"
	_, err := svc.Update(context.Background(), "missing", UpdateParams{Title: &title})
	if !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc, store := testService(t, Options{})
	start, end := wednesdaySlot(10, 0)

	appt, err := svc.Create(context.Background(), CreateParams{
		Title: "Gone soon", StartTime: start, EndTime: end, UserID: testUserID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(context.Background(), appt.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := store.appts[appt.ID]; ok {
		t.Fatal("appointment still present after delete")
	}
	if err := svc.Delete(context.Background(), appt.ID); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestAvailableSlots_ReflectsBooking(t *testing.T) {
	svc, _ := testService(t, Options{})
	start, end := wednesdaySlot(10, 0)
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)

	if _, err := svc.Create(context.Background(), CreateParams{
		Title: "Busy", StartTime: start, EndTime: end, UserID: testUserID,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	slots, err := svc.AvailableSlots(context.Background(), testUserID, day, day)
	if err != nil {
		t.Fatalf("available slots: %v", err)
	}
	if len(slots) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(slots))
	}
	for _, s := range slots {
		booked := s.Start.Equal(start)
		if booked == s.Available {
			t.Fatalf("slot %s availability wrong: %v", s.Start.Format(time.RFC3339), s.Available)
		}
	}

	// Another user's calendar is unaffected.
	other, err := svc.AvailableSlots(context.Background(), otherUserID, day, day)
	if err != nil {
		t.Fatalf("available slots for other user: %v", err)
	}
	for _, s := range other {
		if !s.Available {
			t.Fatalf("slot %s should be free for other user", s.Start.Format(time.RFC3339))
		}
	}
}

func TestAvailableSlots_UnknownUser(t *testing.T) {
	svc, _ := testService(t, Options{})
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)

	_, err := svc.AvailableSlots(context.Background(), "3f1e9c1a-0000-4000-8000-0000000000ff", day, day)
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
