package config

import (
	"context"
	"log/slog"
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

	DBMaxConns int32

	// Store is "postgres" or "memory".
	Store string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// SessionCache is one of "memory", "redis" or "off".
	SessionCache    string
	SessionCacheTTL time.Duration

	SessionTTL       time.Duration
	AuthStoreTimeout time.Duration
	ProviderPrefix   string

	IdentityAssertionSecret string
	TestUserPassword        string

	AllowedOrigins []string

	OTelEnabled  bool
	OTelEndpoint string

	SweepInterval    time.Duration
	WorkerHealthPort int
}

func Load() Config {
	// a missing .env is fine, the process env still applies
	_ = godotenv.Load()

	return Config{
		Env:        getEnv("APP_ENV", "dev"),
		Port:       getEnvInt("PORT", 8080),
		DBURL:      buildDBURL(),
		DBMaxConns: int32(getEnvInt("DB_MAX_CONNS", 5)),
		Store:      strings.ToLower(getEnv("STORE", "postgres")),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		SessionCache:    strings.ToLower(getEnv("SESSION_CACHE", "memory")),
		SessionCacheTTL: time.Duration(getEnvInt("SESSION_CACHE_TTL_SECONDS", 10)) * time.Second,

		SessionTTL:       time.Duration(getEnvInt("SESSION_TTL_HOURS", 24*7)) * time.Hour,
		AuthStoreTimeout: time.Duration(getEnvInt("AUTH_STORE_TIMEOUT_MS", 300)) * time.Millisecond,
		ProviderPrefix:   getEnv("AUTH_PROVIDER_PREFIX", "better-auth"),

		IdentityAssertionSecret: getEnv("IDENTITY_ASSERTION_SECRET", ""),
		TestUserPassword:        getEnv("TEST_USER_PASSWORD", "test-password"),

		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		OTelEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		SweepInterval:    time.Duration(getEnvInt("SWEEP_INTERVAL_SECONDS", 300)) * time.Second,
		WorkerHealthPort: getEnvInt("WORKER_HEALTH_PORT", 8081),
	}
}

func (c Config) IsProd() bool {
	return c.Env == "prod"
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "fintrack")
	pass := getEnv("DB_PASSWORD", "fintrack")
	name := getEnv("DB_NAME", "fintrack")
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
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return b
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
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
