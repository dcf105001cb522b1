package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/geocoder89/chileapi/internal/cache"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CacheEntriesRepo is the cache_entries backed cache.Store.
type CacheEntriesRepo struct {
	pool *pgxpool.Pool
	observer
}

func NewCacheEntriesRepo(pool *pgxpool.Pool, obs DBObserver) *CacheEntriesRepo {
	return &CacheEntriesRepo{pool: pool, observer: observer{obs: obs}}
}

var _ cache.Store = (*CacheEntriesRepo)(nil)

func (r *CacheEntriesRepo) GetCacheEntry(ctx context.Context, key string) (cache.Entry, error) {
	var e cache.Entry
	err := r.observe("cache_entries.get", func() error {
		var data []byte
		err := r.pool.QueryRow(ctx, `
			SELECT cache_key, data, data_type, expires_at, hit_count, created_at, updated_at
			FROM cache_entries
			WHERE cache_key = $1
		`, key).Scan(
			&e.Key,
			&data,
			&e.DataType,
			&e.ExpiresAt,
			&e.HitCount,
			&e.CreatedAt,
			&e.UpdatedAt,
		)
		if errors.Is(err, pgx.ErrNoRows) {
			return cache.ErrEntryNotFound
		}
		e.Payload = json.RawMessage(data)
		return err
	})
	return e, err
}

func (r *CacheEntriesRepo) UpsertCacheEntry(ctx context.Context, key string, payload json.RawMessage, dataType string, expiresAt time.Time) error {
	return r.observe("cache_entries.upsert", func() error {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO cache_entries (cache_key, data, data_type, expires_at, hit_count)
			VALUES ($1, $2, $3, $4, 0)
			ON CONFLICT (cache_key) DO UPDATE
			SET data = EXCLUDED.data,
			    data_type = EXCLUDED.data_type,
			    expires_at = EXCLUDED.expires_at,
			    hit_count = 0,
			    updated_at = NOW()
		`, key, string(payload), dataType, expiresAt)
		return err
	})
}

func (r *CacheEntriesRepo) IncrementHit(ctx context.Context, key string) error {
	return r.observe("cache_entries.increment_hit", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE cache_entries SET hit_count = hit_count + 1 WHERE cache_key = $1`, key)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return cache.ErrEntryNotFound
		}
		return nil
	})
}

// DeleteExpired drops entries that expired before the given instant.
func (r *CacheEntriesRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := r.observe("cache_entries.delete_expired", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM cache_entries WHERE expires_at < $1`, before)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})
	return n, err
}

type DataTypeStats struct {
	DataType  string `json:"dataType"`
	Entries   int64  `json:"entries"`
	Live      int64  `json:"live"`
	TotalHits int64  `json:"totalHits"`
}

// Stats summarises the cache per data type.
func (r *CacheEntriesRepo) Stats(ctx context.Context, now time.Time) ([]DataTypeStats, error) {
	var out []DataTypeStats
	err := r.observe("cache_entries.stats", func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT data_type,
			       COUNT(*),
			       COUNT(*) FILTER (WHERE expires_at > $1),
			       COALESCE(SUM(hit_count), 0)
			FROM cache_entries
			GROUP BY data_type
			ORDER BY data_type
		`, now)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var s DataTypeStats
			if err := rows.Scan(&s.DataType, &s.Entries, &s.Live, &s.TotalHits); err != nil {
				return err
			}
			out = append(out, s)
		}
		return rows.Err()
	})
	return out, err
}

func (r *CacheEntriesRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
