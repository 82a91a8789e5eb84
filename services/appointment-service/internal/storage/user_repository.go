package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/nayeem-hasan/apptbook/libs/db"
	"github.com/nayeem-hasan/apptbook/services/appointment-service/internal/booking"
	"github.com/nayeem-hasan/apptbook/services/appointment-service/internal/model"
)

// UserRepository is the read-only user-lookup capability; account management
// is not this service's concern.
type UserRepository struct {
	pool *db.Pool
}

func NewUserRepository(pool *db.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (model.User, error) {
	var user model.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email
		FROM users
		WHERE id = $1
	`, id).Scan(&user.ID, &user.Name, &user.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, booking.ErrUserNotFound
		}
		return model.User{}, err
	}
	return user, nil
}
