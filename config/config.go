package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/qs-lzh/miccheck/internal/util"
)

type Config struct {
	DatabaseDSN string
	Addr        string
	CacheURL    string
	MQURL       string

	APIPrefix      string
	AllowedOrigins []string
	Debug          bool
	TimeZone       string

	RateLimit      RateLimitConfig
	IdempotencyTTL time.Duration
}

type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

func LoadConfig() (*Config, error) {
	if err := util.LoadEnv(); err != nil {
		return nil, err
	}
	databaseDSN := databaseDSNFromEnv()
	addr := envStr("ADDR", ":8000")
	cacheURL := os.Getenv("CACHE_URL")
	mqURL := os.Getenv("RABBIT_MQ_URL")

	timeZone := envStr("TIME_ZONE", "Asia/Kolkata")
	if _, err := time.LoadLocation(timeZone); err != nil {
		return nil, fmt.Errorf("invalid TIME_ZONE %q: %w", timeZone, err)
	}

	return &Config{
		DatabaseDSN:    databaseDSN,
		Addr:           addr,
		CacheURL:       cacheURL,
		MQURL:          mqURL,
		APIPrefix:      envStr("API_PREFIX", "/api"),
		AllowedOrigins: splitList(envStr("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
		Debug:          envBool("DEBUG", false),
		TimeZone:       timeZone,
		RateLimit:      loadRateLimitConfig(),
		IdempotencyTTL: envDur("IDEMPOTENCY_TTL", 24*time.Hour),
	}, nil
}

// Location returns the venue time zone used to decide what "today" is.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func loadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 30),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 2*time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	return cfg
}

// databaseDSNFromEnv accepts DATABASE_DSN, then DATABASE_URL, then the
// discrete POSTGRES_* / PG* variables.
func databaseDSNFromEnv() string {
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		return dsn
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	password := firstEnv("POSTGRES_PASSWORD", "PGPASSWORD")
	host := firstEnv("POSTGRES_HOST", "PGHOST")
	if password == "" && host == "" {
		return ""
	}
	if host == "" {
		host = "localhost"
	}
	port := firstEnv("POSTGRES_PORT", "PGPORT")
	if port == "" {
		port = "5432"
	}
	user := firstEnv("POSTGRES_USER", "PGUSER")
	if user == "" {
		user = "postgres"
	}
	name := firstEnv("POSTGRES_DB", "PGDATABASE")
	if name == "" {
		name = "miccheck"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, name, envStr("POSTGRES_SSLMODE", "disable"))
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
