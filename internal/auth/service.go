package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/geocoder89/chileapi/internal/domain/user"
	"github.com/geocoder89/chileapi/internal/security"
)

type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (user.User, error)
	FindUserByID(ctx context.Context, id string) (user.User, error)
	InsertUser(ctx context.Context, email, passwordHash, name string) (user.User, error)
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
}

type RefreshTokenStore interface {
	InsertRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	FindRefreshTokenByHash(ctx context.Context, tokenHash string) (user.RefreshToken, error)
	// RevokeRefreshToken reports false when the token was already revoked.
	RevokeRefreshToken(ctx context.Context, id string) (bool, error)
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Session is the result of a successful register, login or refresh.
// RefreshToken is the raw value and is not recoverable afterwards.
type Session struct {
	User             user.User
	AccessToken      string
	AccessExpiresAt  time.Time
	ExpiresIn        time.Duration
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type Service struct {
	users     UserStore
	tokens    RefreshTokenStore
	jwt       *Manager
	log       *slog.Logger
	cost      int
	now       func() time.Time
	dummyOnce sync.Once
	dummyHash string
}

type Option func(*Service)

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithBcryptCost sets the work factor for new hashes. Values below
// security.MinCost are raised.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(users UserStore, tokens RefreshTokenStore, jwtManager *Manager, opts ...Option) *Service {
	s := &Service{
		users:  users,
		tokens: tokens,
		jwt:    jwtManager,
		log:    slog.Default(),
		cost:   security.MinCost,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" || strings.TrimSpace(in.Name) == "" {
		return Session{}, invalid("body", "email, password and name are required")
	}

	email := security.NormalizeEmail(in.Email)
	if !security.IsValidEmail(email) {
		return Session{}, invalid("email", "must be a valid email address")
	}

	if !security.IsValidPassword(in.Password) {
		return Session{}, invalid("password", "must be 8-128 characters with at least one letter and one digit")
	}

	name := security.SanitizeString(in.Name)
	if utf8.RuneCountInString(name) < 2 {
		return Session{}, invalid("name", "must be at least 2 characters")
	}

	_, err := s.users.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		return Session{}, ErrConflict
	case !errors.Is(err, user.ErrNotFound):
		return Session{}, s.internal(ctx, "register: lookup user", err)
	}

	hash, err := security.HashPassword(in.Password, s.cost)
	if err != nil {
		return Session{}, s.internal(ctx, "register: hash password", err)
	}

	u, err := s.users.InsertUser(ctx, email, hash, name)
	if err != nil {
		// lost the race between the lookup and the insert
		if errors.Is(err, user.ErrEmailTaken) {
			return Session{}, ErrConflict
		}
		return Session{}, s.internal(ctx, "register: insert user", err)
	}

	return s.issue(ctx, u)
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return Session{}, invalid("body", "email and password are required")
	}

	email = security.NormalizeEmail(email)
	if !security.IsValidEmail(email) {
		return Session{}, invalid("email", "must be a valid email address")
	}

	u, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			return Session{}, s.internal(ctx, "login: lookup user", err)
		}

		// burn the same bcrypt time as a real comparison
		_ = security.CheckPassword(s.dummy(), password)
		return Session{}, ErrInvalidCredentials
	}

	if !u.IsActive {
		_ = security.CheckPassword(s.dummy(), password)
		return Session{}, ErrInvalidCredentials
	}

	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		if !errors.Is(err, security.ErrPasswordMismatch) {
			s.log.WarnContext(ctx, "login: stored hash unusable", "user_id", u.ID, "err", err)
		}
		return Session{}, ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, u.ID, now); err != nil {
		return Session{}, s.internal(ctx, "login: update last login", err)
	}
	u.LastLoginAt = &now

	return s.issue(ctx, u)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (s *Service) Refresh(ctx context.Context, raw string) (Session, error) {
	if strings.TrimSpace(raw) == "" {
		return Session{}, ErrInvalidRefreshToken
	}

	row, err := s.tokens.FindRefreshTokenByHash(ctx, HashRefreshToken(raw))
	if err != nil {
		if errors.Is(err, user.ErrRefreshTokenNotFound) {
			return Session{}, ErrInvalidRefreshToken
		}
		return Session{}, s.internal(ctx, "refresh: lookup token", err)
	}

	if !row.Usable(s.now()) {
		return Session{}, ErrInvalidRefreshToken
	}

	revoked, err := s.tokens.RevokeRefreshToken(ctx, row.ID)
	if err != nil {
		return Session{}, s.internal(ctx, "refresh: revoke token", err)
	}
	if !revoked {
		// a concurrent refresh already rotated it
		return Session{}, ErrInvalidRefreshToken
	}

	u, err := s.users.FindUserByID(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Session{}, ErrInvalidRefreshToken
		}
		return Session{}, s.internal(ctx, "refresh: lookup user", err)
	}

	if !u.IsActive {
		return Session{}, ErrInvalidRefreshToken
	}

	return s.issue(ctx, u)
}

// Logout revokes the presented refresh token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	row, err := s.tokens.FindRefreshTokenByHash(ctx, HashRefreshToken(raw))
	if err != nil {
		if errors.Is(err, user.ErrRefreshTokenNotFound) {
			return nil
		}
		return s.internal(ctx, "logout: lookup token", err)
	}

	if _, err := s.tokens.RevokeRefreshToken(ctx, row.ID); err != nil {
		return s.internal(ctx, "logout: revoke token", err)
	}

	return nil
}

func (s *Service) Me(ctx context.Context, userID string) (user.User, error) {
	u, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrInvalidCredentials
		}
		return user.User{}, s.internal(ctx, "me: lookup user", err)
	}

	return u, nil
}

func (s *Service) issue(ctx context.Context, u user.User) (Session, error) {
	access, accessExp, err := s.jwt.GenerateAccessToken(u.ID, u.Email, u.Name)
	if err != nil {
		return Session{}, s.internal(ctx, "issue: sign access token", err)
	}

	raw, refreshExp, err := s.jwt.GenerateRefreshToken()
	if err != nil {
		return Session{}, s.internal(ctx, "issue: generate refresh token", err)
	}

	if err := s.tokens.InsertRefreshToken(ctx, u.ID, HashRefreshToken(raw), refreshExp); err != nil {
		return Session{}, s.internal(ctx, "issue: persist refresh token", err)
	}

	return Session{
		User:             u,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		ExpiresIn:        s.jwt.AccessTTL(),
		RefreshToken:     raw,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *Service) internal(ctx context.Context, msg string, err error) error {
	s.log.ErrorContext(ctx, msg, "err", err)
	return ErrInternal
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := security.HashPassword("dummy-password-0", s.cost)
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}
