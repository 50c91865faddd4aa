package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a best-effort Redis cache for chart and insight payloads. A nil
// *Cache is valid and disables caching; every error degrades to a miss so
// Postgres remains the source of truth.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to Redis at addr. An empty addr disables caching.
func New(addr string) *Cache {
	if addr == "" {
		return nil
	}
	return &Cache{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
		ttl: 5 * time.Minute,
	}
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

// userVersion namespaces a user's keys so Invalidate can drop them all
// without scanning.
func (c *Cache) userVersion(ctx context.Context, userID int64) int64 {
	v, err := c.rdb.Get(ctx, fmt.Sprintf("charts:ver:%d", userID)).Int64()
	if err != nil {
		return 0
	}
	return v
}

func (c *Cache) key(ctx context.Context, userID int64, name string) string {
	return fmt.Sprintf("charts:%d:v%d:%s", userID, c.userVersion(ctx, userID), name)
}

// Get loads a cached payload into dest, reporting whether it was present.
func (c *Cache) Get(ctx context.Context, userID int64, name string, dest any) bool {
	if c == nil {
		return false
	}
	raw, err := c.rdb.Get(ctx, c.key(ctx, userID, name)).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		slog.Warn("discarding malformed cache entry", "name", name, "error", err)
		return false
	}
	return true
}

// Set stores a payload. Failures are logged and ignored.
func (c *Cache) Set(ctx context.Context, userID int64, name string, v any) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(ctx, userID, name), raw, c.ttl).Err(); err != nil {
		slog.Warn("cache set failed", "name", name, "error", err)
	}
}

// Invalidate drops all of a user's cached payloads by bumping their version.
func (c *Cache) Invalidate(ctx context.Context, userID int64) {
	if c == nil {
		return
	}
	if err := c.rdb.Incr(ctx, fmt.Sprintf("charts:ver:%d", userID)).Err(); err != nil {
		slog.Warn("cache invalidate failed", "user_id", userID, "error", err)
	}
}
