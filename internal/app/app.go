// Package app assembles the cache, upstream and feeds layers shared by the
// API and warmer binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/chileapi/internal/cache"
	"github.com/geocoder89/chileapi/internal/config"
	"github.com/geocoder89/chileapi/internal/db"
	"github.com/geocoder89/chileapi/internal/feeds"
	"github.com/geocoder89/chileapi/internal/observability"
	"github.com/geocoder89/chileapi/internal/redisclient"
	"github.com/geocoder89/chileapi/internal/repo/postgres"
	"github.com/geocoder89/chileapi/internal/upstream"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

const memorySweepInterval = time.Minute

var ErrUnknownBackend = errors.New("unknown cache backend")

// Stack is the wired data path. Pool is set whenever Postgres was opened;
// CacheRepo only for the postgres backend.
type Stack struct {
	Pool      *pgxpool.Pool
	Redis     *redisclient.Client
	Store     cache.Store
	CacheRepo *postgres.CacheEntriesRepo
	Engine    *cache.Engine
	Feeds     *feeds.Service

	// Ping checks the cache store.
	Ping func(ctx context.Context) error
}

type Options struct {
	// OpenDB opens Postgres and runs migrations even when the cache backend
	// doesn't need it.
	OpenDB bool
}

// Build wires the data path. ctx bounds background work such as the memory
// store sweeper, so it should live as long as the process.
func Build(ctx context.Context, cfg config.Config, log *slog.Logger, prom *observability.Prom, opts Options) (*Stack, error) {
	s := &Stack{}

	if opts.OpenDB || cfg.CacheBackend == BackendPostgres {
		pool, err := db.NewPool(ctx, cfg.DBURL, db.PoolConfig{})
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		s.Pool = pool

		if err := db.Migrate(ctx, pool); err != nil {
			s.Close()
			return nil, fmt.Errorf("db migrate: %w", err)
		}
	}

	switch cfg.CacheBackend {
	case BackendPostgres:
		s.CacheRepo = postgres.NewCacheEntriesRepo(s.Pool, prom)
		s.Store = s.CacheRepo
		s.Ping = s.CacheRepo.Ping

	case BackendRedis:
		s.Redis = redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := s.Redis.Ping(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		store := cache.NewRedis(s.Redis.Raw())
		s.Store = store
		s.Ping = store.Ping

	case BackendMemory:
		store := cache.NewMemory()
		go store.RunSweeper(ctx, memorySweepInterval, log)
		s.Store = store
		s.Ping = store.Ping

	default:
		s.Close()
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.CacheBackend)
	}

	s.Engine = cache.NewEngine(s.Store, cache.WithLogger(log), cache.WithMetrics(prom))

	clientOpts := []upstream.Option{
		upstream.WithTimeout(cfg.UpstreamTimeout),
		upstream.WithObserver(prom),
	}
	if cfg.UpstreamBreakerThreshold > 0 {
		clientOpts = append(clientOpts, upstream.WithBreaker(upstream.NewBreaker(upstream.BreakerConfig{
			FailureThreshold: cfg.UpstreamBreakerThreshold,
			Cooldown:         cfg.UpstreamBreakerCooldown,
		})))
	}
	client := upstream.NewClient(cfg.UpstreamBaseURL, clientOpts...)
	s.Feeds = feeds.NewService(s.Engine, client)

	log.Info("data path ready", "cache_backend", cfg.CacheBackend, "upstream", cfg.UpstreamBaseURL)
	return s, nil
}

func (s *Stack) Close() {
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
}
