package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("AUTH_STORE_TIMEOUT_MS", "")
	t.Setenv("SESSION_CACHE", "")
	t.Setenv("DATABASE_URL", "")

	cfg := Load()

	if cfg.Env != "dev" {
		t.Fatalf("expected env dev, got %q", cfg.Env)
	}
	if cfg.AuthStoreTimeout != 300*time.Millisecond {
		t.Fatalf("expected 300ms store timeout, got %s", cfg.AuthStoreTimeout)
	}
	if cfg.SessionCache != "memory" {
		t.Fatalf("expected memory session cache, got %q", cfg.SessionCache)
	}
	if cfg.SessionTTL != 7*24*time.Hour {
		t.Fatalf("expected 7d session ttl, got %s", cfg.SessionTTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("AUTH_STORE_TIMEOUT_MS", "150")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("DATABASE_URL", "postgres://x:y@db:5432/z")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.AuthStoreTimeout != 150*time.Millisecond {
		t.Fatalf("expected 150ms, got %s", cfg.AuthStoreTimeout)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %#v", cfg.AllowedOrigins)
	}
	if cfg.DBURL != "postgres://x:y@db:5432/z" {
		t.Fatalf("expected DATABASE_URL to win, got %q", cfg.DBURL)
	}
}

func TestGetEnvInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_INT", "abc")

	if got := getEnvInt("SOME_INT", 7); got != 7 {
		t.Fatalf("expected fallback 7, got %d", got)
	}
}
