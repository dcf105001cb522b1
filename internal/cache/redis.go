package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// hash fields
const (
	fieldPayload   = "p"
	fieldDataType  = "t"
	fieldExpiresAt = "e"
	fieldHits      = "h"
	fieldCreatedAt = "c"
)

// Redis stores each entry as a hash that redis itself expires at ExpiresAt.
// The caller owns the client lifecycle.
type Redis struct {
	client       *redis.Client
	prefix       string
	queryTimeout time.Duration
}

type RedisOption func(*Redis)

func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

func WithQueryTimeout(d time.Duration) RedisOption {
	return func(r *Redis) { r.queryTimeout = d }
}

func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		client:       client,
		prefix:       "chileapi:cache",
		queryTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *Redis) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, r.queryTimeout)
}

func (r *Redis) GetCacheEntry(ctx context.Context, key string) (Entry, error) {
	qctx, cancel := r.queryCtx(ctx)
	defer cancel()

	fields, err := r.client.HGetAll(qctx, r.key(key)).Result()
	if err != nil {
		return Entry{}, err
	}

	payload, ok := fields[fieldPayload]
	if !ok {
		// missing, or a bare hit counter left behind by a racing IncrementHit
		return Entry{}, ErrEntryNotFound
	}

	e := Entry{
		Key:      key,
		Payload:  json.RawMessage(payload),
		DataType: fields[fieldDataType],
	}

	if ms, err := strconv.ParseInt(fields[fieldExpiresAt], 10, 64); err == nil {
		e.ExpiresAt = time.UnixMilli(ms).UTC()
	}
	if ms, err := strconv.ParseInt(fields[fieldCreatedAt], 10, 64); err == nil {
		e.CreatedAt = time.UnixMilli(ms).UTC()
	}
	if h, err := strconv.ParseInt(fields[fieldHits], 10, 64); err == nil {
		e.HitCount = h
	}

	return e, nil
}

func (r *Redis) UpsertCacheEntry(ctx context.Context, key string, payload json.RawMessage, dataType string, expiresAt time.Time) error {
	qctx, cancel := r.queryCtx(ctx)
	defer cancel()

	k := r.key(key)
	now := time.Now().UTC().UnixMilli()

	pipe := r.client.TxPipeline()
	pipe.Del(qctx, k)
	pipe.HSet(qctx, k,
		fieldPayload, []byte(payload),
		fieldDataType, dataType,
		fieldExpiresAt, expiresAt.UnixMilli(),
		fieldHits, 0,
		fieldCreatedAt, now,
	)
	pipe.PExpireAt(qctx, k, expiresAt)
	_, err := pipe.Exec(qctx)
	return err
}

func (r *Redis) IncrementHit(ctx context.Context, key string) error {
	qctx, cancel := r.queryCtx(ctx)
	defer cancel()

	k := r.key(key)

	n, err := r.client.Exists(qctx, k).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEntryNotFound
	}

	return r.client.HIncrBy(qctx, k, fieldHits, 1).Err()
}

func (r *Redis) Ping(ctx context.Context) error {
	qctx, cancel := r.queryCtx(ctx)
	defer cancel()

	return r.client.Ping(qctx).Err()
}
