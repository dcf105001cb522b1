package user

import (
	"errors"
	"time"
)

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // never expose hash in JSON
	Name         string     `json:"name"`
	IsActive     bool       `json:"isActive"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// RefreshToken is the persisted form of an issued refresh token. Only the
// hash of the raw value is stored.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

func (t RefreshToken) Usable(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

var (
	ErrNotFound             = errors.New("user not found")
	ErrEmailTaken           = errors.New("email already used")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
)
