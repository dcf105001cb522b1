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
	"github.com/geocoder89/chileapi/internal/auth"
	"github.com/geocoder89/chileapi/internal/config"
	httpx "github.com/geocoder89/chileapi/internal/http"
	"github.com/geocoder89/chileapi/internal/http/handlers"
	"github.com/geocoder89/chileapi/internal/observability"
	"github.com/geocoder89/chileapi/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
)

var version = "dev"

func main() {
	// Load the config set up
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env, "chileapi-api")

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, "chileapi-api", cfg.OTLPEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	// users and refresh tokens always live in Postgres
	stack, err := app.Build(ctx, cfg, log, prom, app.Options{OpenDB: true})
	if err != nil {
		log.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer stack.Close()

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL())
	authSvc := auth.NewService(
		postgres.NewUsersRepo(stack.Pool, prom),
		postgres.NewRefreshTokensRepo(stack.Pool, prom),
		jwtManager,
		auth.WithLogger(log),
		auth.WithBcryptCost(cfg.BcryptCost),
	)

	deps := httpx.Deps{
		Log:     log,
		Prom:    prom,
		Env:     cfg.Env,
		Version: version,
		Feeds:   stack.Feeds,
		Auth:    authSvc,
		Tokens:  jwtManager,
		HealthChecks: map[string]handlers.Pinger{
			"database": stack.Pool.Ping,
			"cache":    stack.Ping,
		},
		AllowedOrigins: cfg.AllowedOrigins,
		Ctx:            ctx,
	}
	if stack.CacheRepo != nil {
		deps.CacheStats = stack.CacheRepo
	}

	router := httpx.NewRouter(deps)

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "version", version)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info("server shutting down")

	shutdownCtx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error("tracer shutdown failed", "err", err)
	}

	log.Info("shutdown complete")
}
