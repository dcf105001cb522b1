package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/geocoder89/chileapi/internal/cache"
	"github.com/geocoder89/chileapi/internal/config"
	"github.com/geocoder89/chileapi/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestBuild_MemoryBackend(t *testing.T) {
	cfg := config.Config{CacheBackend: BackendMemory, UpstreamBaseURL: "http://127.0.0.1:1"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := Build(ctx, cfg, discard, observability.NewProm(prometheus.NewRegistry()), Options{})
	require.NoError(t, err)
	defer s.Close()

	require.Nil(t, s.Pool)
	require.IsType(t, &cache.Memory{}, s.Store)
	require.NoError(t, s.Ping(context.Background()))
	require.NotNil(t, s.Feeds)
}

func TestBuild_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Config{CacheBackend: BackendRedis, RedisAddr: mr.Addr(), UpstreamBaseURL: "http://127.0.0.1:1"}

	s, err := Build(context.Background(), cfg, discard, nil, Options{})
	require.NoError(t, err)
	defer s.Close()

	require.IsType(t, &cache.Redis{}, s.Store)
	require.NoError(t, s.Ping(context.Background()))
}

func TestBuild_UnknownBackend(t *testing.T) {
	_, err := Build(context.Background(), config.Config{CacheBackend: "sqlite"}, discard, nil, Options{})
	require.True(t, errors.Is(err, ErrUnknownBackend))
}
