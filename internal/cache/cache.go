// Package cache keeps the public listings (time slots, services) in Redis for
// a short TTL so a row of kiosks does not hammer the office API. Redis being
// down is never an error here: every failure falls through to the source.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keySlots    = "listings:time-slots"
	keyServices = "listings:services"
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func New(addr, username, password string, ttl time.Duration, log *zap.Logger) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Username:     username,
		Password:     password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{client: rdb, ttl: ttl, log: log.Named("cache")}, nil
}

// Ping is used by the readiness probe. A nil cache reports healthy: the cache
// is optional.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

// getJSON reports whether the key was present and decoded.
func (c *Cache) getJSON(ctx context.Context, key string, dst any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.log.Warn("cache entry unreadable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *Cache) setJSON(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
