package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "mailsift:"

// RedisCache is a Redis implementation of the CacheRepository interface.
// Expiry is delegated to Redis, so there is no cleanup task.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCache creates a new Redis cache
func NewRedisCache(addr string, db int, logger *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &RedisCache{client: client, logger: logger}, nil
}

// Get loads the value stored under key into out.
func (c *RedisCache) Get(ctx context.Context, key string, out any) (bool, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query cache: %w", err)
	}
	if err := decodeValue(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores a cache entry
func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := encodeValue(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Clear removes one entry, or every prefixed entry when key is empty.
func (c *RedisCache) Clear(ctx context.Context, key string) error {
	if key != "" {
		if err := c.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
			return fmt.Errorf("failed to delete cache entry: %w", err)
		}
		return nil
	}

	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete cache entry: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return nil
}

// Stop closes the Redis connection
func (c *RedisCache) Stop() {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis cache", zap.Error(err))
	}
}
