package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nayeem-hasan/apptbook/libs/db"
	"github.com/nayeem-hasan/apptbook/services/appointment-service/internal/booking"
	"github.com/nayeem-hasan/apptbook/services/appointment-service/internal/model"
	"github.com/nayeem-hasan/apptbook/services/appointment-service/internal/outbox"
)

const appointmentColumns = `id, title, description, start_time, end_time, user_id, created_at, updated_at`

// AppointmentRepository persists appointments and writes lifecycle events to
// the outbox in the same transaction. The appointments_no_overlap exclusion
// constraint is the storage-level backstop against double booking; its
// violation surfaces as booking.ErrStorageConflict.
type AppointmentRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewAppointmentRepository(pool *db.Pool, outboxRepo *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, outbox: outboxRepo}
}

func (r *AppointmentRepository) Create(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO appointments (title, description, start_time, end_time, user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, appt.Title, appt.Description, appt.StartTime, appt.EndTime, appt.UserID).
		Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		return model.Appointment{}, mapPgError(err)
	}

	if err := r.insertEvent(ctx, tx, outbox.EventAppointmentScheduled, appt); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *AppointmentRepository) List(ctx context.Context) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		ORDER BY start_time
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func (r *AppointmentRepository) ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE user_id = $1
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time
	`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func (r *AppointmentRepository) Update(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		UPDATE appointments
		SET title = $2,
			description = $3,
			start_time = $4,
			end_time = $5,
			user_id = $6,
			updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, appt.ID, appt.Title, appt.Description, appt.StartTime, appt.EndTime, appt.UserID).
		Scan(&appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		return model.Appointment{}, mapPgError(err)
	}

	if err := r.insertEvent(ctx, tx, outbox.EventAppointmentUpdated, appt); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		DELETE FROM appointments
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id)
	appt, err := scanAppointment(row)
	if err != nil {
		return err
	}

	if err := r.insertEvent(ctx, tx, outbox.EventAppointmentDeleted, appt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *AppointmentRepository) insertEvent(ctx context.Context, tx pgx.Tx, eventType string, appt model.Appointment) error {
	payload, err := json.Marshal(map[string]any{
		"appointment_id": appt.ID,
		"user_id":        appt.UserID,
		"title":          appt.Title,
		"start_time":     appt.StartTime.UTC().Format(time.RFC3339),
		"end_time":       appt.EndTime.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("build %s payload: %w", eventType, err)
	}
	return r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       payload,
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (model.Appointment, error) {
	var appt model.Appointment
	err := row.Scan(
		&appt.ID,
		&appt.Title,
		&appt.Description,
		&appt.StartTime,
		&appt.EndTime,
		&appt.UserID,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return model.Appointment{}, mapPgError(err)
	}
	return appt, nil
}

func scanAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

// mapPgError translates driver errors into the collaborator contract:
// exclusion/unique violations mean a conflicting booking, foreign key
// violations mean the referenced user vanished, no rows means the
// appointment does not exist.
func mapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return booking.ErrAppointmentNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23P01", "23505":
			return fmt.Errorf("%w: %s", booking.ErrStorageConflict, pgErr.ConstraintName)
		case "23503":
			return booking.ErrUserNotFound
		}
	}
	return err
}
