// internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/eventra/eventra-backend/internal/config"
)

// ErrMiss is returned when the key is absent or the cache is disabled.
var ErrMiss = errors.New("cache miss")

// Cache is a thin JSON layer over redis used for hot public reads. A nil
// Cache is valid and misses everything, so callers never guard the call
// site.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New returns nil when no redis address is configured.
func New(cfg config.RedisConfig) *Cache {
	if cfg.Host == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Warn("Redis unreachable, running without cache")
		return nil
	}

	return &Cache{client: client, ttl: entryTTL(cfg)}
}

// CacheTTL is configured in seconds.
func entryTTL(cfg config.RedisConfig) time.Duration {
	return time.Duration(cfg.CacheTTL) * time.Second
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	if c == nil {
		return ErrMiss
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrMiss
	}
	if err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Cache read failed")
		return ErrMiss
	}

	return json.Unmarshal(raw, dest)
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}) {
	if c == nil {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}

func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logrus.WithError(err).Warn("Cache invalidation failed")
	}
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
