package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// LookupObserver records cache outcomes. *observability.Prom satisfies it.
type LookupObserver interface {
	ObserveCacheLookup(dataType, result string)
}

type Engine struct {
	store   Store
	log     *slog.Logger
	now     func() time.Time
	metrics LookupObserver
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

func WithMetrics(m LookupObserver) Option {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		log:   slog.Default(),
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// GetOrFetch serves a fresh cached payload for req.Key, or calls fetch,
// stores the result for req.TTL and returns it. Fetch errors are returned
// unchanged and nothing is written. Concurrent misses on the same key each
// fetch under their own context; the last write wins.
func (e *Engine) GetOrFetch(ctx context.Context, req Request, fetch Fetcher) (json.RawMessage, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	entry, err := e.store.GetCacheEntry(ctx, req.Key)
	switch {
	case err == nil && entry.Fresh(e.now()):
		if err := e.store.IncrementHit(ctx, req.Key); err != nil {
			e.log.WarnContext(ctx, "cache: increment hit failed", "key", req.Key, "err", err)
		}
		e.observe(req.DataType, "hit")
		return entry.Payload, nil

	case err != nil && !errors.Is(err, ErrEntryNotFound):
		e.log.WarnContext(ctx, "cache: lookup failed, treating as miss", "key", req.Key, "err", err)
		e.observe(req.DataType, "error")

	default:
		e.observe(req.DataType, "miss")
	}

	return e.fill(ctx, req, fetch)
}

func (e *Engine) fill(ctx context.Context, req Request, fetch Fetcher) (json.RawMessage, error) {
	v, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cache: encode %s: %w", req.Key, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	expiresAt := e.now().UTC().Add(req.TTL)
	if err := e.store.UpsertCacheEntry(ctx, req.Key, payload, req.DataType, expiresAt); err != nil {
		e.log.ErrorContext(ctx, "cache: store entry failed", "key", req.Key, "err", err)
	}

	return payload, nil
}

func (e *Engine) observe(dataType, result string) {
	if e.metrics != nil {
		e.metrics.ObserveCacheLookup(dataType, result)
	}
}

// Get is GetOrFetch with a typed fetcher; the payload, cached or fresh, is
// decoded into T.
func Get[T any](ctx context.Context, e *Engine, req Request, fetch func(ctx context.Context) (T, error)) (T, error) {
	var out T

	payload, err := e.GetOrFetch(ctx, req, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal(payload, &out); err != nil {
		return out, fmt.Errorf("cache: decode %s: %w", req.Key, err)
	}
	return out, nil
}
