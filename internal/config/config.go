package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env   string
	Port  int
	DBURL string

	// cache store: memory | redis | postgres
	CacheBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	UpstreamBaseURL string
	UpstreamTimeout time.Duration

	// zero threshold disables the circuit breaker
	UpstreamBreakerThreshold int
	UpstreamBreakerCooldown  time.Duration

	JWTSecret           string
	JWTAccessTTLMinutes int
	JWTRefreshTTLDays   int
	BcryptCost          int

	AllowedOrigins []string
	OTLPEndpoint   string

	WarmInterval    time.Duration
	WarmConcurrency int
	WarmerPort      int
}

// DevJWTSecret is only used when APP_ENV=dev and JWT_SECRET is unset.
const DevJWTSecret = "dev-secret-change-me"

var ErrInsecureJWTSecret = errors.New("JWT_SECRET must be set to a private value outside dev")

func Load() Config {
	// a missing .env is fine, real deployments use the process env
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")
	port := getEnvInt("PORT", 8080)
	dbURL := getEnv("DATABASE_URL", "")

	if dbURL == "" {
		dbURL = buildDBURL()
	}

	return Config{
		Env:   env,
		Port:  port,
		DBURL: dbURL,

		CacheBackend:  strings.ToLower(getEnv("CACHE_BACKEND", "postgres")),
		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		UpstreamBaseURL: getEnv("UPSTREAM_BASE_URL", "https://api.boostr.cl"),
		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second),

		UpstreamBreakerThreshold: getEnvInt("UPSTREAM_BREAKER_THRESHOLD", 5),
		UpstreamBreakerCooldown:  getEnvDuration("UPSTREAM_BREAKER_COOLDOWN", 30*time.Second),

		JWTSecret:           jwtSecret(env),
		JWTAccessTTLMinutes: getEnvInt("JWT_ACCESS_TTL_MINUTES", 15),
		JWTRefreshTTLDays:   getEnvInt("JWT_REFRESH_TTL_DAYS", 7),
		BcryptCost:          getEnvInt("BCRYPT_COST", 12),

		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		WarmInterval:    getEnvDuration("WARM_INTERVAL", time.Minute),
		WarmConcurrency: getEnvInt("WARM_CONCURRENCY", 4),
		WarmerPort:      getEnvInt("WARMER_PORT", 8081),
	}
}

// Validate rejects configurations that must not serve traffic.
func (c Config) Validate() error {
	if c.Env != "dev" && (c.JWTSecret == "" || c.JWTSecret == DevJWTSecret) {
		return ErrInsecureJWTSecret
	}
	return nil
}

func jwtSecret(env string) string {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" && env == "dev" {
		return DevJWTSecret
	}
	return secret
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWTRefreshTTLDays) * 24 * time.Hour
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "chileapi")
	pass := getEnv("DB_PASSWORD", "chileapi")
	name := getEnv("DB_NAME", "chileapi")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %s=%q is not an int, using %d\n", key, v, fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)

		if err != nil || d <= 0 {
			fmt.Fprintf(os.Stderr, "config: %s=%q is not a positive duration, using %s\n", key, v, fallback)
			return fallback
		}

		return d
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}

	return out
}
