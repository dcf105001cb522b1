package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/chileapi/internal/domain/user"
	"github.com/google/uuid"
)

type RefreshTokensRepo struct {
	mu     sync.Mutex
	items  map[string]user.RefreshToken // id -> row
	byHash map[string]string            // token hash -> id
}

func NewRefreshTokensRepo() *RefreshTokensRepo {
	return &RefreshTokensRepo{
		items:  make(map[string]user.RefreshToken),
		byHash: make(map[string]string),
	}
}

func (r *RefreshTokensRepo) InsertRefreshToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	row := user.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[row.ID] = row
	r.byHash[tokenHash] = row.ID

	return nil
}

func (r *RefreshTokensRepo) FindRefreshTokenByHash(_ context.Context, tokenHash string) (user.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byHash[tokenHash]
	if !ok {
		return user.RefreshToken{}, user.ErrRefreshTokenNotFound
	}

	return r.items[id], nil
}

func (r *RefreshTokensRepo) RevokeRefreshToken(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.items[id]
	if !ok || row.RevokedAt != nil {
		return false, nil
	}

	now := time.Now().UTC()
	row.RevokedAt = &now
	r.items[id] = row

	return true, nil
}

// ForUser lists every stored token of a user, newest last.
func (r *RefreshTokensRepo) ForUser(userID string) []user.RefreshToken {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]user.RefreshToken, 0)
	for _, row := range r.items {
		if row.UserID == userID {
			out = append(out, row)
		}
	}

	return out
}
