package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/chileapi/internal/app"
	"github.com/geocoder89/chileapi/internal/config"
	"github.com/geocoder89/chileapi/internal/observability"
	"github.com/geocoder89/chileapi/internal/warmer"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env, "chileapi-warmer")

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	if cfg.CacheBackend == app.BackendMemory {
		log.Error("warmer needs a shared cache store; set CACHE_BACKEND to redis or postgres")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, "chileapi-warmer", cfg.OTLPEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	prom := observability.NewProm(prometheus.NewRegistry())

	stack, err := app.Build(ctx, cfg, log, prom, app.Options{})
	if err != nil {
		log.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer stack.Close()

	opts := []warmer.Option{
		warmer.WithLogger(log),
		warmer.WithObserver(prom),
		warmer.WithStore(pinger(stack.Ping)),
	}
	if stack.CacheRepo != nil {
		opts = append(opts, warmer.WithSweeper(stack.CacheRepo))
	}

	w := warmer.New(warmer.Config{
		Interval:      cfg.WarmInterval,
		Concurrency:   cfg.WarmConcurrency,
		TargetTimeout: cfg.UpstreamTimeout + 5*time.Second,
	}, warmer.FeedTargets(stack.Feeds), opts...)

	healthSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WarmerPort),
		Handler:           w.HealthHandler(prom.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("warmer health server starting", "port", cfg.WarmerPort)
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health server failed", "err", err)
		}
	}()

	if err := w.Run(ctx); err != nil {
		log.Error("warmer stopped with error", "err", err)
	}

	shutdownCtx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	_ = healthSrv.Shutdown(shutdownCtx)
	_ = shutdownTracer(shutdownCtx)

	log.Info("warmer shutdown complete")
}

type pinger func(ctx context.Context) error

func (p pinger) Ping(ctx context.Context) error { return p(ctx) }
