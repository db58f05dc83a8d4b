package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "weather:lastgood"

// RedisCache implements Cache on Redis strings with a TTL, so stale
// fallback data eventually ages out.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache creates a Redis-backed last-good cache.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Put stores the payload under the operation/lang key with the configured TTL.
func (c *RedisCache) Put(ctx context.Context, operation, lang string, payload json.RawMessage) error {
	if err := c.client.Set(ctx, key(operation, lang), []byte(payload), c.ttl).Err(); err != nil {
		return fmt.Errorf("set last-good payload: %w", err)
	}
	return nil
}

// Get returns the stored payload, or ErrMiss when none is present.
func (c *RedisCache) Get(ctx context.Context, operation, lang string) (json.RawMessage, error) {
	data, err := c.client.Get(ctx, key(operation, lang)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("get last-good payload: %w", err)
	}
	return json.RawMessage(data), nil
}

func key(operation, lang string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, operation, lang)
}
