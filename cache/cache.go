// Package cache fronts the credential store's filter-config lookup
// with a Redis-backed cache, so the common case (many requests for the
// same connection) avoids a round trip to SQLite on every request
// (SPEC_FULL.md DOMAIN STACK).
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/agentcloak/mailproxy/types"
)

const (
	defaultTTL    = 5 * time.Minute
	defaultPrefix = "mailproxy"
)

// ErrNotFound is returned by Get when connectionID has no cached entry
// (a cache miss, not the same as a stored "no config").
var ErrNotFound = errors.New("cache: not found")

// FilterConfigCache caches the resolved FilterConfig for a connection.
// A nil *types.FilterConfig is itself a cacheable value: it means
// "this connection has no stored policy, use defaults" (spec.md §9).
type FilterConfigCache struct {
	client *goredis.Client
	ttl    time.Duration
	prefix string
}

// Option configures a FilterConfigCache at construction time.
type Option func(*FilterConfigCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *FilterConfigCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithPrefix(prefix string) Option {
	return func(c *FilterConfigCache) {
		if strings.TrimSpace(prefix) != "" {
			c.prefix = strings.TrimSpace(prefix)
		}
	}
}

func WithClient(client *goredis.Client) Option {
	return func(c *FilterConfigCache) {
		if client != nil {
			c.client = client
		}
	}
}

// New connects to Redis at addr and returns a ready cache. Connectivity
// is checked with a Ping so a misconfigured cache fails fast at startup
// rather than on the first request.
func New(ctx context.Context, addr string, opts ...Option) (*FilterConfigCache, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	c := &FilterConfigCache{ttl: defaultTTL, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = goredis.NewClient(&goredis.Options{Addr: addr})
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return c, nil
}

// cachedValue distinguishes "no config stored" from "cache miss": Set
// is always true for an entry this cache wrote, even when Config is nil.
type cachedValue struct {
	Set    bool                `json:"set"`
	Config *types.FilterConfig `json:"config,omitempty"`
}

// Get returns the cached FilterConfig for connectionID. ErrNotFound
// means the cache has no entry at all and the caller must resolve from
// the store; a nil config with a nil error means the store was already
// consulted and returned no stored policy.
func (c *FilterConfigCache) Get(ctx context.Context, connectionID string) (*types.FilterConfig, error) {
	raw, err := c.client.Get(ctx, c.key(connectionID)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("filter config cache get: %w", err)
	}
	var v cachedValue
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("filter config cache decode: %w", err)
	}
	return v.Config, nil
}

// Set stores cfg (which may be nil) for connectionID with the cache's
// configured TTL.
func (c *FilterConfigCache) Set(ctx context.Context, connectionID string, cfg *types.FilterConfig) error {
	raw, err := json.Marshal(cachedValue{Set: true, Config: cfg})
	if err != nil {
		return fmt.Errorf("filter config cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key(connectionID), string(raw), c.ttl).Err(); err != nil {
		return fmt.Errorf("filter config cache set: %w", err)
	}
	return nil
}

// Invalidate removes any cached entry for connectionID, for use after a
// policy update so stale config is never served.
func (c *FilterConfigCache) Invalidate(ctx context.Context, connectionID string) error {
	if err := c.client.Del(ctx, c.key(connectionID)).Err(); err != nil {
		return fmt.Errorf("filter config cache invalidate: %w", err)
	}
	return nil
}

func (c *FilterConfigCache) key(connectionID string) string {
	return c.prefix + ":filterconfig:" + connectionID
}

func (c *FilterConfigCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
