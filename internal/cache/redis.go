package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iyhunko/catalog-service/internal/config"
	"github.com/redis/go-redis/v9"
)

const (
	categoriesKey = "catalog:categories"
	// invalidatedKey marks a recent invalidation. A fill that read the store before the
	// invalidation may land after it, so fills made while the marker exists expire after fillTTL.
	invalidatedKey = "catalog:categories:invalidated"

	invalidatedTTL = 30 * time.Second
	fillTTL        = 5 * time.Second
)

// setCategories stores ARGV[1] under KEYS[1] for ARGV[2] ms, or ARGV[3] ms while KEYS[2] exists.
var setCategories = redis.NewScript(`
local ttl = ARGV[2]
if redis.call("EXISTS", KEYS[2]) == 1 then
	ttl = ARGV[3]
end
return redis.call("SET", KEYS[1], ARGV[1], "PX", ttl)
`)

// NewRedisClient creates a Redis client from config and verifies the connection.
func NewRedisClient(ctx context.Context, conf config.Redis) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return client, nil
}

// CategoryCache keeps the distinct main category list in Redis.
type CategoryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCategoryCache creates a CategoryCache whose entries expire after ttl.
func NewCategoryCache(client *redis.Client, ttl time.Duration) *CategoryCache {
	return &CategoryCache{client: client, ttl: ttl}
}

// Get returns the cached categories. The boolean is false on a cache miss.
func (c *CategoryCache) Get(ctx context.Context) ([]string, bool, error) {
	raw, err := c.client.Get(ctx, categoriesKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read categories from cache: %w", err)
	}

	categories, err := decodeCategories(raw)
	if err != nil {
		return nil, false, err
	}
	return categories, true, nil
}

// Set stores the categories. Shortly after an Invalidate the entry only lives for fillTTL,
// which bounds how long a list read before a concurrent write can be served.
func (c *CategoryCache) Set(ctx context.Context, categories []string) error {
	raw, err := encodeCategories(categories)
	if err != nil {
		return err
	}
	keys := []string{categoriesKey, invalidatedKey}
	if err := setCategories.Run(ctx, c.client, keys, raw, c.ttl.Milliseconds(), min(c.ttl, fillTTL).Milliseconds()).Err(); err != nil {
		return fmt.Errorf("failed to write categories to cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached categories and marks the invalidation for invalidatedTTL.
func (c *CategoryCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, invalidatedKey, 1, invalidatedTTL)
		pipe.Del(ctx, categoriesKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate categories cache: %w", err)
	}
	return nil
}

func encodeCategories(categories []string) ([]byte, error) {
	if categories == nil {
		categories = []string{}
	}
	raw, err := json.Marshal(categories)
	if err != nil {
		return nil, fmt.Errorf("failed to encode categories: %w", err)
	}
	return raw, nil
}

func decodeCategories(raw []byte) ([]string, error) {
	var categories []string
	if err := json.Unmarshal(raw, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode cached categories: %w", err)
	}
	return categories, nil
}
