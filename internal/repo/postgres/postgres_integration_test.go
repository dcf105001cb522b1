package postgres_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/chileapi/internal/auth"
	"github.com/geocoder89/chileapi/internal/cache"
	"github.com/geocoder89/chileapi/internal/db"
	"github.com/geocoder89/chileapi/internal/domain/user"
	"github.com/geocoder89/chileapi/internal/repo/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
)

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dsn, db.PoolConfig{})
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if _, err := pool.Exec(ctx, `TRUNCATE refresh_tokens, users, cache_entries RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	return pool
}

func TestUsersRepo_UniqueEmail(t *testing.T) {
	pool := setupPool(t)
	repo := postgres.NewUsersRepo(pool, nil)
	ctx := context.Background()

	u, err := repo.InsertUser(ctx, "a@b.com", "hash", "Jo")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !u.IsActive || u.ID == "" {
		t.Fatalf("user: %+v", u)
	}

	if _, err := repo.InsertUser(ctx, "a@b.com", "hash2", "Other"); !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	at := time.Now().UTC().Truncate(time.Microsecond)
	if err := repo.UpdateLastLogin(ctx, u.ID, at); err != nil {
		t.Fatalf("last login: %v", err)
	}
	got, err := repo.FindUserByEmail(ctx, "a@b.com")
	if err != nil || got.LastLoginAt == nil || !got.LastLoginAt.Equal(at) {
		t.Fatalf("find: %+v, %v", got, err)
	}

	if _, err := repo.FindUserByID(ctx, "not-a-uuid"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRefreshTokensRepo_ConcurrentRevokeHasOneWinner(t *testing.T) {
	pool := setupPool(t)
	users := postgres.NewUsersRepo(pool, nil)
	tokens := postgres.NewRefreshTokensRepo(pool, nil)
	ctx := context.Background()

	u, err := users.InsertUser(ctx, "r@b.com", "hash", "Jo")
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}

	hash := auth.HashRefreshToken("raw-token")
	if err := tokens.InsertRefreshToken(ctx, u.ID, hash, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("insert token: %v", err)
	}
	row, err := tokens.FindRefreshTokenByHash(ctx, hash)
	if err != nil {
		t.Fatalf("find: %v", err)
	}

	var wg sync.WaitGroup
	results := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := tokens.RevokeRefreshToken(ctx, row.ID)
			if err != nil {
				t.Errorf("revoke: %v", err)
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for ok := range results {
		if ok {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one successful revoke, got %d", winners)
	}
}

func TestCacheEntriesRepo_AsEngineStore(t *testing.T) {
	pool := setupPool(t)
	repo := postgres.NewCacheEntriesRepo(pool, nil)
	ctx := context.Background()

	engine := cache.NewEngine(repo)
	req := cache.Request{Key: "holidays:2026", DataType: "holidays", TTL: time.Hour}

	calls := 0
	fetch := func(context.Context) (any, error) {
		calls++
		return []map[string]string{{"date": "2026-01-01", "title": "Año Nuevo"}}, nil
	}

	for i := 0; i < 3; i++ {
		if _, err := engine.GetOrFetch(ctx, req, fetch); err != nil {
			t.Fatalf("get or fetch: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("calls: %d", calls)
	}

	e, err := repo.GetCacheEntry(ctx, "holidays:2026")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e.HitCount != 2 {
		t.Fatalf("hits: %d", e.HitCount)
	}

	var items []map[string]string
	if err := json.Unmarshal(e.Payload, &items); err != nil || items[0]["title"] != "Año Nuevo" {
		t.Fatalf("payload: %s, %v", e.Payload, err)
	}

	stats, err := repo.Stats(ctx, time.Now())
	if err != nil || len(stats) != 1 || stats[0].TotalHits != 2 || stats[0].Live != 1 {
		t.Fatalf("stats: %+v, %v", stats, err)
	}

	if err := repo.IncrementHit(ctx, "missing"); !errors.Is(err, cache.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}

	n, err := repo.DeleteExpired(ctx, time.Now().Add(2*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("delete expired: %d, %v", n, err)
	}
}
