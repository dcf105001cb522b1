package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Memory is an in-process Store. Entries are kept until overwritten or
// swept; expired entries are simply not fresh.
type Memory struct {
	mu  sync.RWMutex
	m   map[string]Entry
	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		m:   make(map[string]Entry),
		now: time.Now,
	}
}

func (c *Memory) GetCacheEntry(_ context.Context, key string) (Entry, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return Entry{}, ErrEntryNotFound
	}

	e.Payload = append(json.RawMessage(nil), e.Payload...)
	return e, nil
}

func (c *Memory) UpsertCacheEntry(_ context.Context, key string, payload json.RawMessage, dataType string, expiresAt time.Time) error {
	now := c.now().UTC()

	c.mu.Lock()
	defer c.mu.Unlock()

	created := now
	if old, ok := c.m[key]; ok {
		created = old.CreatedAt
	}

	c.m[key] = Entry{
		Key:       key,
		Payload:   append(json.RawMessage(nil), payload...),
		DataType:  dataType,
		ExpiresAt: expiresAt,
		CreatedAt: created,
		UpdatedAt: now,
	}
	return nil
}

func (c *Memory) IncrementHit(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.m[key]
	if !ok {
		return ErrEntryNotFound
	}
	e.HitCount++
	c.m[key] = e
	return nil
}

// Sweep drops entries that expired before now and reports how many were removed.
func (c *Memory) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.m {
		if !e.Fresh(now) {
			delete(c.m, k)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (c *Memory) RunSweeper(ctx context.Context, every time.Duration, log *slog.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := c.Sweep(now); n > 0 {
				log.Debug("memory cache sweep", "removed", n, "remaining", c.Len())
			}
		}
	}
}

func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

func (c *Memory) Ping(context.Context) error {
	return nil
}
