// Package cache provides the read-through cache used for budget statistics.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/straye-as/kosthorys-api/internal/config"
	"go.uber.org/zap"
)

// Cache stores JSON-encoded values by key
type Cache interface {
	// Get decodes the value stored at key into dest and reports whether it was found
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// New returns a Redis-backed cache when enabled, otherwise a no-op cache.
// A Redis server that cannot be reached at startup disables caching rather
// than failing the service.
func New(ctx context.Context, cfg *config.RedisConfig, logger *zap.Logger) Cache {
	if !cfg.Enabled {
		logger.Info("Statistics cache disabled")
		return Noop{}
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		logger.Warn("Invalid Redis URL, statistics cache disabled", zap.Error(err))
		return Noop{}
	}
	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	}
	opt.MaxRetries = 3

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unreachable, statistics cache disabled", zap.Error(err))
		_ = client.Close()
		return Noop{}
	}

	logger.Info("Redis connected", zap.String("addr", opt.Addr), zap.Int("db", opt.DB))
	return NewRedisCache(client, cfg.Prefix, cfg.TTLDuration())
}

// RedisCache is a Cache backed by go-redis
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache wraps an existing client
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

// Get implements Cache
func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// Set implements Cache
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.client.Set(ctx, c.key(key), data, c.ttl).Err()
}

// Delete implements Cache
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.client.Del(ctx, full...).Err()
}

// Close implements Cache
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Noop never stores anything
type Noop struct{}

func (Noop) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (Noop) Set(context.Context, string, interface{}) error         { return nil }
func (Noop) Delete(context.Context, ...string) error                { return nil }
func (Noop) Close() error                                           { return nil }

// BudgetStatisticsKey is the cache key of a budget's statistics
func BudgetStatisticsKey(budgetID fmt.Stringer) string {
	return "budget:" + budgetID.String() + ":statistics"
}
