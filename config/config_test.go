package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"DATABASE_DSN", "DATABASE_URL",
	"POSTGRES_HOST", "PGHOST", "POSTGRES_PORT", "PGPORT", "POSTGRES_USER", "PGUSER",
	"POSTGRES_PASSWORD", "PGPASSWORD", "POSTGRES_DB", "PGDATABASE", "POSTGRES_SSLMODE",
	"ADDR", "CACHE_URL", "RABBIT_MQ_URL", "API_PREFIX", "CORS_ALLOWED_ORIGINS", "DEBUG", "TIME_ZONE",
	"RATE_LIMIT_ENABLED", "RATE_LIMIT_CAPACITY", "RATE_LIMIT_REFILL_TOKENS",
	"RATE_LIMIT_REFILL_INTERVAL", "RATE_LIMIT_TTL", "RATE_LIMIT_PREFIX", "IDEMPOTENCY_TTL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "", cfg.DatabaseDSN)
	assert.Equal(t, ":8000", cfg.Addr)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.AllowedOrigins)
	assert.False(t, cfg.Debug)
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, RateLimitConfig{
		Enabled: true, Capacity: 30, RefillTokens: 1,
		RefillInterval: 2 * time.Second, TTL: 10 * time.Minute, Prefix: "rl",
	}, cfg.RateLimit)
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/mic")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("DEBUG", "true")
	t.Setenv("TIME_ZONE", "UTC")
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
	t.Setenv("RATE_LIMIT_TTL", "1m")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/mic", cfg.DatabaseDSN)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 1, cfg.RateLimit.Capacity)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.TTL)
}

func TestDatabaseDSNFromParts(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("PGHOST", "db.internal")
	t.Setenv("POSTGRES_DB", "shows")

	assert.Equal(t, "host=db.internal port=5432 user=postgres password=secret dbname=shows sslmode=disable", databaseDSNFromEnv())

	t.Setenv("DATABASE_DSN", "host=override")
	assert.Equal(t, "host=override", databaseDSNFromEnv())
}

func TestLoadConfigRejectsBadTimeZone(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIME_ZONE", "Mars/Olympus_Mons")

	_, err := LoadConfig()
	assert.Error(t, err)
}
