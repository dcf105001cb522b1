package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrEntryNotFound is returned by a Store when no entry exists for a key.
	ErrEntryNotFound = errors.New("cache entry not found")

	ErrInvalidRequest = errors.New("invalid cache request")
)

// Entry is one cached upstream payload. ExpiresAt is absolute; an entry with
// ExpiresAt <= now is never served.
type Entry struct {
	Key       string
	Payload   json.RawMessage
	DataType  string
	ExpiresAt time.Time
	HitCount  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e Entry) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Store persists cache entries. UpsertCacheEntry fully replaces an existing
// entry and resets its hit count.
type Store interface {
	GetCacheEntry(ctx context.Context, key string) (Entry, error)
	UpsertCacheEntry(ctx context.Context, key string, payload json.RawMessage, dataType string, expiresAt time.Time) error
	IncrementHit(ctx context.Context, key string) error
}

type Request struct {
	Key      string
	DataType string
	TTL      time.Duration
}

func (r Request) validate() error {
	if r.Key == "" {
		return errors.Join(ErrInvalidRequest, errors.New("empty key"))
	}
	if r.TTL <= 0 {
		return errors.Join(ErrInvalidRequest, errors.New("ttl must be positive"))
	}
	return nil
}

// Fetcher produces a fresh, JSON-serialisable value on a miss.
type Fetcher func(ctx context.Context) (any, error)
