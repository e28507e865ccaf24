package weather

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"heliotelligence/pkg/logger"
)

// RedisCache stores raw PVGIS response bodies in Redis so repeated
// predictions for the same site skip the slow upstream fetch.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     100,
		MinIdleConns: 10,
		MaxRetries:   3,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

// Get returns a cached body. A miss or a Redis failure both report a miss;
// the caller refetches either way.
func (r *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	body, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		logger.Warnf("Redis get %s failed: %v", key, err)
		return "", false
	}
	return body, true
}

// Set stores a body with the configured TTL. Failures are logged and
// swallowed; caching is best effort.
func (r *RedisCache) Set(ctx context.Context, key, body string) {
	if err := r.client.Set(ctx, key, body, r.ttl).Err(); err != nil {
		logger.Warnf("Redis set %s failed: %v", key, err)
	}
}

// Close releases the Redis connection pool.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
