package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radiusdt/campaign-dashboard/internal/analytics"
)

const defaultPrefix = "dashboard:"

// RedisCache shares computed metrics between dashboard processes.
// Entries expire after ttl; keys embed the store generation so stale
// snapshots never collide with fresh ones.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed cache. An empty prefix uses "dashboard:".
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (analytics.ComputedMetrics, bool, error) {
	var m analytics.ComputedMetrics

	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return m, false, nil
	}
	if err != nil {
		return m, false, fmt.Errorf("failed to get cached metrics: %w", err)
	}

	if err := json.Unmarshal(data, &m); err != nil {
		return m, false, fmt.Errorf("failed to decode cached metrics: %w", err)
	}
	return m, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, m analytics.ComputedMetrics) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode metrics: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache metrics: %w", err)
	}
	return nil
}

// Purge deletes every key under the cache prefix.
func (c *RedisCache) Purge(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 500).Iterator()

	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 500 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("failed to purge cache: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to purge cache: %w", err)
		}
	}
	return nil
}
