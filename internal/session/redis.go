package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCache shares session resolutions across gateway replicas so a user
// bounced between instances is not re-resolved on every hop.
type redisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisConfig holds Redis connection settings for the session cache.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the Redis address string.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewRedisCache connects to Redis and returns a session cache whose entries
// live for the cookie TTL. Staleness is still enforced by the store from
// FetchedAt; the Redis TTL only bounds garbage accumulation.
func NewRedisCache(ctx context.Context, cfg RedisConfig, ttl time.Duration) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &redisCache{client: client, prefix: "session:", ttl: ttl}, nil
}

// Ping checks Redis connectivity. The readiness probe uses it.
func (c *redisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *redisCache) key(token string) string {
	return c.prefix + token
}

func (c *redisCache) Get(ctx context.Context, token string) (*entry, error) {
	val, err := c.client.Get(ctx, c.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session cache get: %w", err)
	}

	var e entry
	if err := json.Unmarshal([]byte(val), &e); err != nil {
		return nil, fmt.Errorf("session cache decode: %w", err)
	}
	return &e, nil
}

func (c *redisCache) Set(ctx context.Context, token string, e *entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("session cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key(token), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("session cache set: %w", err)
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, token string) error {
	if err := c.client.Del(ctx, c.key(token)).Err(); err != nil {
		return fmt.Errorf("session cache delete: %w", err)
	}
	return nil
}
