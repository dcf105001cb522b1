package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/chileapi/internal/http/handlers"
	"github.com/geocoder89/chileapi/internal/http/middlewares"
	"github.com/geocoder89/chileapi/internal/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20

type Deps struct {
	Log     *slog.Logger
	Prom    *observability.Prom
	Env     string
	Version string

	Feeds      handlers.Feeds
	Auth       handlers.Authenticator
	Tokens     middlewares.TokenVerifier
	CacheStats handlers.CacheStatsReader // optional

	HealthChecks   map[string]handlers.Pinger
	AllowedOrigins []string

	// Ctx bounds the rate limiter sweepers. Nil disables sweeping.
	Ctx context.Context
}

func NewRouter(d Deps) *gin.Engine {
	if d.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}

	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(otelgin.Middleware("chileapi"))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders(d.Env == "prod"))
	r.Use(middlewares.CORSMiddleware(d.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// health
	health := handlers.NewHealthHandler(d.Version, d.HealthChecks)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	if d.Prom != nil {
		r.GET("/metrics", gin.WrapH(d.Prom.Handler()))
	}

	general := middlewares.NewRateLimiter(100, 15*time.Minute)
	authLimit := middlewares.NewRateLimiter(30, time.Minute)
	if d.Ctx != nil {
		go sweep(d.Ctx, general, authLimit)
	}

	api := r.Group("/api")
	api.Use(general.RateLimiterMiddleware(middlewares.KeyByIP))
	api.GET("/health", health.Health)

	if d.Feeds != nil {
		fh := handlers.NewFeedsHandler(d.Feeds, d.Log)

		api.GET("/stations", fh.Stations)

		api.GET("/weather", fh.AllWeather)
		api.GET("/weather/stations", fh.WeatherStations)
		api.GET("/weather/:code", fh.WeatherByCode)

		api.GET("/earthquakes", fh.RecentEarthquakes)
		api.GET("/earthquakes/recent", fh.RecentEarthquakes)

		api.GET("/holidays", fh.Holidays)
		api.GET("/holidays/today", fh.HolidayToday)
		api.GET("/holidays/upcoming", fh.UpcomingHolidays)
		api.GET("/holidays/is/:date", fh.IsHoliday)
		api.GET("/holidays/:year", fh.HolidaysByYear)

		api.GET("/indicators", fh.Indicators)
		api.GET("/indicators/:type", fh.Indicator)
		api.GET("/indicators/:type/:year", fh.IndicatorHistory)
	}

	if d.Auth != nil && d.Tokens != nil {
		ah := handlers.NewAuthHandler(d.Auth, d.Log, d.Env == "prod")
		requireAuth := middlewares.NewAuthMiddleware(d.Tokens).RequireAuth()

		authGroup := api.Group("/auth")
		authGroup.Use(authLimit.RateLimiterMiddleware(middlewares.KeyByIP))
		authGroup.POST("/register", ah.Register)
		authGroup.POST("/login", ah.Login)
		authGroup.POST("/refresh", ah.Refresh)
		authGroup.POST("/logout", ah.Logout)
		authGroup.GET("/me", requireAuth, ah.Me)

		if d.CacheStats != nil {
			sh := handlers.NewCacheStatsHandler(d.CacheStats, d.Log)
			api.GET("/cache/stats", requireAuth, sh.Stats)
		}
	}

	return r
}

func sweep(ctx context.Context, limiters ...*middlewares.RateLimiter) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			for _, l := range limiters {
				l.Sweep()
			}
		}
	}
}
