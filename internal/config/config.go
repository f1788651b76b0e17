// Package config aggregates process configuration for the mail proxy:
// storage locations, cache and rate-limit tuning, and logging mode, all
// sourced from the environment (with an optional .env file for local
// development, per the teacher's convention of loading configuration
// once at startup and failing fast on anything load-bearing).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
)

// Config holds every tunable the proxy needs at startup.
type Config struct {
	HTTPAddr   string
	SQLitePath string
	RedisAddr  string

	RateLimitMax     int
	RateLimitWindow  time.Duration
	RateLimitGCEvery time.Duration

	FilterCacheTTL time.Duration

	// LogJSON selects structured JSON logging over human-readable text.
	// Defaults to true when stdout is not a terminal (e.g. running under
	// a process supervisor or in a container), false for an interactive
	// shell.
	LogJSON bool
}

// Load reads configuration from the environment. It first attempts to
// load a .env file in the working directory; a missing .env is not an
// error, since production deployments set real environment variables
// instead.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config: loading .env: %w", err)
	}

	cfg := Config{
		HTTPAddr:         getEnv("MAILPROXY_HTTP_ADDR", ":8080"),
		SQLitePath:       getEnv("MAILPROXY_SQLITE_PATH", "./data/mailproxy.db"),
		RedisAddr:        getEnv("MAILPROXY_REDIS_ADDR", "localhost:6379"),
		RateLimitMax:     ParseIntEnv("MAILPROXY_RATE_LIMIT_MAX", 20),
		RateLimitWindow:  parseDurationEnv("MAILPROXY_RATE_LIMIT_WINDOW", time.Minute),
		RateLimitGCEvery: parseDurationEnv("MAILPROXY_RATE_LIMIT_GC_INTERVAL", 5*time.Minute),
		FilterCacheTTL:   parseDurationEnv("MAILPROXY_FILTER_CACHE_TTL", 5*time.Minute),
		LogJSON:          ParseBoolString(os.Getenv("MAILPROXY_LOG_JSON"), !isatty.IsTerminal(os.Stdout.Fd())),
	}

	if strings.TrimSpace(cfg.SQLitePath) == "" {
		return Config{}, fmt.Errorf("config: MAILPROXY_SQLITE_PATH must not be empty")
	}
	if cfg.RateLimitMax <= 0 {
		return Config{}, fmt.Errorf("config: MAILPROXY_RATE_LIMIT_MAX must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
