package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// ErrCacheMiss signals that no cached cart exists for the customer.
var ErrCacheMiss = errors.New("cart cache miss")

// Cache stores the rendered cart lines of a customer.
type Cache interface {
	Get(ctx context.Context, customerID string) ([]Line, error)
	Set(ctx context.Context, customerID string, lines []Line) error
	Delete(ctx context.Context, customerID string) error
}

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(customerID string) string
}

// RedisCache keeps cart lines as JSON under a per-customer key.
type RedisCache struct {
	store redisStore
	ttl   time.Duration
}

func NewRedisCache(store redisStore, ttl time.Duration) (*RedisCache, error) {
	if store == nil {
		return nil, fmt.Errorf("redis store required")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCache{store: store, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, customerID string) ([]Line, error) {
	raw, err := c.store.Get(ctx, c.store.CartKey(customerID))
	if redis.IsMiss(err) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get cart: %w", err)
	}
	var lines []Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, fmt.Errorf("decode cached cart: %w", err)
	}
	return lines, nil
}

func (c *RedisCache) Set(ctx context.Context, customerID string, lines []Line) error {
	if lines == nil {
		lines = []Line{}
	}
	body, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := c.store.Set(ctx, c.store.CartKey(customerID), string(body), c.ttl); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, customerID string) error {
	if err := c.store.Del(ctx, c.store.CartKey(customerID)); err != nil {
		return fmt.Errorf("redis delete cart: %w", err)
	}
	return nil
}
