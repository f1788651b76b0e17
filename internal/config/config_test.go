package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	clearMailproxyEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RateLimitMax != 20 {
		t.Errorf("RateLimitMax = %d, want 20", cfg.RateLimitMax)
	}
	if cfg.RateLimitWindow != time.Minute {
		t.Errorf("RateLimitWindow = %v, want 1m", cfg.RateLimitWindow)
	}
}

func TestLoadRejectsNonPositiveRateLimit(t *testing.T) {
	clearMailproxyEnv(t)
	os.Setenv("MAILPROXY_RATE_LIMIT_MAX", "0")
	defer os.Unsetenv("MAILPROXY_RATE_LIMIT_MAX")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-positive rate limit max")
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	clearMailproxyEnv(t)
	os.Setenv("MAILPROXY_SQLITE_PATH", "/tmp/custom.db")
	os.Setenv("MAILPROXY_FILTER_CACHE_TTL", "90s")
	defer clearMailproxyEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SQLitePath != "/tmp/custom.db" {
		t.Errorf("SQLitePath = %q, want /tmp/custom.db", cfg.SQLitePath)
	}
	if cfg.FilterCacheTTL != 90*time.Second {
		t.Errorf("FilterCacheTTL = %v, want 90s", cfg.FilterCacheTTL)
	}
}

func TestParseDurationEnvFallsBackOnGarbage(t *testing.T) {
	os.Setenv("MAILPROXY_TEST_DURATION", "not-a-duration")
	defer os.Unsetenv("MAILPROXY_TEST_DURATION")

	got := parseDurationEnv("MAILPROXY_TEST_DURATION", 7*time.Second)
	if got != 7*time.Second {
		t.Errorf("parseDurationEnv = %v, want 7s fallback", got)
	}
}

func clearMailproxyEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"MAILPROXY_HTTP_ADDR", "MAILPROXY_SQLITE_PATH", "MAILPROXY_REDIS_ADDR",
		"MAILPROXY_RATE_LIMIT_MAX", "MAILPROXY_RATE_LIMIT_WINDOW",
		"MAILPROXY_RATE_LIMIT_GC_INTERVAL", "MAILPROXY_FILTER_CACHE_TTL", "MAILPROXY_LOG_JSON",
	} {
		os.Unsetenv(key)
	}
}
