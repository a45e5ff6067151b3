// Package cache provides a small Redis-backed JSON cache for dashboard
// reads. A nil client degrades to no caching, never to an error.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache wraps a Redis client with JSON serialization
type Cache struct {
	client *redis.Client
	logger *logrus.Logger
}

// New creates a cache. client may be nil; every operation then reports a miss.
func New(client *redis.Client, logger *logrus.Logger) *Cache {
	return &Cache{client: client, logger: logger}
}

// Connect dials Redis from a URL and verifies the connection. Returns a nil
// client (caching disabled) when the URL is empty or Redis is unreachable.
func Connect(redisURL string, logger *logrus.Logger) *redis.Client {
	if redisURL == "" {
		logger.Info("REDIS_URL not set, dashboard caching disabled")
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.WithError(err).Warn("Invalid REDIS_URL, dashboard caching disabled")
		return nil
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Redis unreachable, dashboard caching disabled")
		return nil
	}

	logger.Info("Connected to Redis")
	return client
}

// Get reads a cached value into dest
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	if c == nil || c.client == nil {
		return ErrCacheMiss
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).WithField("key", key).Debug("Cache read failed")
		}
		return ErrCacheMiss
	}

	return json.Unmarshal(data, dest)
}

// Set writes a value with a TTL. Failures are logged, never surfaced.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c == nil || c.client == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Debug("Cache marshal failed")
		return
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Debug("Cache write failed")
	}
}
