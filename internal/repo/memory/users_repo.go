package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/chileapi/internal/domain/user"
	"github.com/google/uuid"
)

// UsersRepo keeps users in process memory. Email uniqueness is checked and
// the row inserted under the same lock.
type UsersRepo struct {
	mu      sync.RWMutex
	items   map[string]user.User // id -> user
	byEmail map[string]string    // email -> id
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items:   make(map[string]user.User),
		byEmail: make(map[string]string),
	}
}

func (r *UsersRepo) FindUserByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return r.items[id], nil
}

func (r *UsersRepo) FindUserByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func (r *UsersRepo) InsertUser(_ context.Context, email, passwordHash, name string) (user.User, error) {
	now := time.Now().UTC()
	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[email]; taken {
		return user.User{}, user.ErrEmailTaken
	}

	r.items[u.ID] = u
	r.byEmail[email] = u.ID

	return u, nil
}

func (r *UsersRepo) UpdateLastLogin(_ context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[userID]
	if !ok {
		return user.ErrNotFound
	}

	u.LastLoginAt = &at
	u.UpdatedAt = at
	r.items[userID] = u

	return nil
}

// SetActive toggles the account flag. Used by admin tooling and tests.
func (r *UsersRepo) SetActive(_ context.Context, userID string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[userID]
	if !ok {
		return user.ErrNotFound
	}

	u.IsActive = active
	r.items[userID] = u

	return nil
}

func (r *UsersRepo) Ping(context.Context) error {
	return nil
}
