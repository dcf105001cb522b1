package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CACHE_BACKEND", "")
	t.Setenv("JWT_ACCESS_TTL_MINUTES", "")
	t.Setenv("UPSTREAM_TIMEOUT", "")

	cfg := Load()

	if cfg.Env != "dev" {
		t.Fatalf("env: got %q want dev", cfg.Env)
	}
	if cfg.CacheBackend != "postgres" {
		t.Fatalf("cache backend: got %q", cfg.CacheBackend)
	}
	if cfg.AccessTTL() != 15*time.Minute {
		t.Fatalf("access ttl: got %s", cfg.AccessTTL())
	}
	if cfg.RefreshTTL() != 7*24*time.Hour {
		t.Fatalf("refresh ttl: got %s", cfg.RefreshTTL())
	}
	if cfg.UpstreamTimeout != 10*time.Second {
		t.Fatalf("upstream timeout: got %s", cfg.UpstreamTimeout)
	}
	if cfg.BcryptCost < 12 {
		t.Fatalf("bcrypt cost too low: %d", cfg.BcryptCost)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "Redis")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")
	t.Setenv("ALLOWED_ORIGINS", "https://a.cl, https://b.cl,")
	t.Setenv("WARM_INTERVAL", "30s")
	t.Setenv("PORT", "not-a-number")

	cfg := Load()

	if cfg.CacheBackend != "redis" {
		t.Fatalf("cache backend should be lower-cased, got %q", cfg.CacheBackend)
	}
	if cfg.DBURL != "postgres://u:p@db:5432/x" {
		t.Fatalf("db url: got %q", cfg.DBURL)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.cl" {
		t.Fatalf("origins: got %v", cfg.AllowedOrigins)
	}
	if cfg.WarmInterval != 30*time.Second {
		t.Fatalf("warm interval: got %s", cfg.WarmInterval)
	}
	if cfg.Port != 8080 {
		t.Fatalf("invalid PORT should fall back to 8080, got %d", cfg.Port)
	}
}

func TestValidate_JWTSecret(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		secret  string
		wantErr bool
	}{
		{"dev falls back to the dev secret", "dev", "", false},
		{"prod without secret", "prod", "", true},
		{"prod with the dev secret", "prod", DevJWTSecret, true},
		{"staging without secret", "staging", "", true},
		{"prod with a real secret", "prod", "s3cr3t-from-vault", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", tt.env)
			t.Setenv("JWT_SECRET", tt.secret)

			cfg := Load()
			err := cfg.Validate()
			if tt.wantErr && !errors.Is(err, ErrInsecureJWTSecret) {
				t.Fatalf("expected ErrInsecureJWTSecret, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
