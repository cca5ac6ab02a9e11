package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/wes-io-live/notify-service/internal/config"
)

type RedisOrganizationCache struct {
	client *redis.Client
	prefix string
}

func NewRedisOrganizationCache(cfg config.RedisConfig, prefix string) (*RedisOrganizationCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisOrganizationCacheWithClient(client, prefix), nil
}

// NewRedisOrganizationCacheWithClient wraps an existing client.
func NewRedisOrganizationCacheWithClient(client *redis.Client, prefix string) *RedisOrganizationCache {
	return &RedisOrganizationCache{client: client, prefix: prefix}
}

func (c *RedisOrganizationCache) key(roomID string) string {
	return fmt.Sprintf("%s:room:%s", c.prefix, roomID)
}

func (c *RedisOrganizationCache) Get(ctx context.Context, roomID string) (string, error) {
	orgID, err := c.client.Get(ctx, c.key(roomID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", fmt.Errorf("failed to get from redis: %w", err)
	}
	return orgID, nil
}

// Set stores the binding. A zero ttl keeps the key until deleted.
func (c *RedisOrganizationCache) Set(ctx context.Context, roomID, organizationID string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(roomID), organizationID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

func (c *RedisOrganizationCache) Close() error {
	return c.client.Close()
}
