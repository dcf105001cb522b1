package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/chileapi/internal/domain/user"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	observer
}

func NewUsersRepo(pool *pgxpool.Pool, obs DBObserver) *UsersRepo {
	return &UsersRepo{pool: pool, observer: observer{obs: obs}}
}

const userColumns = `id, email, password_hash, name, is_active, last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.IsActive,
		&u.LastLoginAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) FindUserByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	err := r.observe("users.find_by_email", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		return err
	})
	return u, err
}

func (r *UsersRepo) FindUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}

	var u user.User
	err := r.observe("users.find_by_id", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return err
	})
	return u, err
}

func (r *UsersRepo) InsertUser(ctx context.Context, email, passwordHash, name string) (user.User, error) {
	var u user.User
	err := r.observe("users.insert", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, `
			INSERT INTO users (id, email, password_hash, name)
			VALUES ($1, $2, $3, $4)
			RETURNING `+userColumns,
			uuid.NewString(), email, passwordHash, name,
		))
		return err
	})
	if IsUniqueViolation(err) {
		return user.User{}, user.ErrEmailTaken
	}
	return u, err
}

func (r *UsersRepo) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	return r.observe("users.update_last_login", func() error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE users SET last_login_at = $2, updated_at = NOW()
			WHERE id = $1
		`, userID, at)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}
		return nil
	})
}

func (r *UsersRepo) SetActive(ctx context.Context, userID string, active bool) error {
	return r.observe("users.set_active", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, userID, active)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}
		return nil
	})
}
