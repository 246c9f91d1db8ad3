package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sjperalta/coachpay-api/pkg/logger"
)

// Cache is an optional JSON cache backed by Redis. A nil *Cache or one without
// a client turns every call into a miss or a no-op.
type Cache struct {
	client *redis.Client
	prefix string
}

// Connect returns a Cache for addr, or nil when addr is empty or unreachable
func Connect(ctx context.Context, addr string) *Cache {
	if addr == "" {
		logger.Warn("[Cache] REDIS_ADDR not set, caching disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("[Cache] Failed to connect to Redis, caching disabled", "error", err)
		_ = client.Close()
		return nil
	}
	logger.Info("[Cache] Connected to Redis", "addr", addr)
	return New(client)
}

// New wraps an existing client
func New(client *redis.Client) *Cache {
	return &Cache{client: client, prefix: "coachpay:"}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// GetJSON loads key into dst and reports whether it was a hit
func (c *Cache) GetJSON(ctx context.Context, key string, dst interface{}) bool {
	if !c.enabled() {
		return false
	}
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("[Cache] GET failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		logger.Warn("[Cache] Discarding undecodable entry", "key", key, "error", err)
		return false
	}
	return true
}

// SetJSON stores v under key with ttl. Errors are logged only.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		logger.Warn("[Cache] Marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		logger.Warn("[Cache] SET failed", "key", key, "error", err)
	}
}

// InvalidatePrefix deletes every key starting with prefix
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) {
	if !c.enabled() {
		return
	}
	iter := c.client.Scan(ctx, 0, c.prefix+prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Warn("[Cache] SCAN failed", "prefix", prefix, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("[Cache] DEL failed", "prefix", prefix, "error", err)
	}
}

// Close releases the client
func (c *Cache) Close() error {
	if !c.enabled() {
		return nil
	}
	return c.client.Close()
}
