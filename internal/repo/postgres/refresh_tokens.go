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

type RefreshTokensRepo struct {
	pool *pgxpool.Pool
	observer
}

func NewRefreshTokensRepo(pool *pgxpool.Pool, obs DBObserver) *RefreshTokensRepo {
	return &RefreshTokensRepo{pool: pool, observer: observer{obs: obs}}
}

func (r *RefreshTokensRepo) InsertRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	return r.observe("refresh_tokens.insert", func() error {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at)
			VALUES ($1, $2, $3, $4)
		`, uuid.NewString(), userID, tokenHash, expiresAt)
		return err
	})
}

func (r *RefreshTokensRepo) FindRefreshTokenByHash(ctx context.Context, tokenHash string) (user.RefreshToken, error) {
	var row user.RefreshToken
	err := r.observe("refresh_tokens.find_by_hash", func() error {
		err := r.pool.QueryRow(ctx, `
			SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
			FROM refresh_tokens
			WHERE token_hash = $1
		`, tokenHash).Scan(
			&row.ID,
			&row.UserID,
			&row.TokenHash,
			&row.ExpiresAt,
			&row.RevokedAt,
			&row.CreatedAt,
		)
		if errors.Is(err, pgx.ErrNoRows) {
			return user.ErrRefreshTokenNotFound
		}
		return err
	})
	return row, err
}

// RevokeRefreshToken only touches a live row, so of two concurrent callers
// exactly one sees true.
func (r *RefreshTokensRepo) RevokeRefreshToken(ctx context.Context, id string) (bool, error) {
	var revoked bool
	err := r.observe("refresh_tokens.revoke", func() error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE refresh_tokens
			SET revoked_at = NOW()
			WHERE id = $1 AND revoked_at IS NULL
		`, id)
		if err != nil {
			return err
		}
		revoked = tag.RowsAffected() > 0
		return nil
	})
	return revoked, err
}

// DeleteExpired removes tokens that can no longer be used.
func (r *RefreshTokensRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := r.observe("refresh_tokens.delete_expired", func() error {
		tag, err := r.pool.Exec(ctx,
			`DELETE FROM refresh_tokens WHERE expires_at < $1 OR revoked_at < $1`, before)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})
	return n, err
}
