package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrAbsent is returned when a key or hash field does not exist.
var ErrAbsent = errors.New("key absent")

// Cache is the shared fast store reachable by every hub instance. It holds
// the transient latest-code value and the presence hash for each live
// session, so presence is visible across horizontally scaled instances.
type Cache struct {
	rdb *redis.Client
}

func NewCache(addr string) *Cache {
	return &Cache{rdb: redis.NewClient(&redis.Options{Addr: addr})}
}

// NewCacheWithClient wraps an existing client (used in tests with miniredis).
func NewCacheWithClient(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

func (c *Cache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache ping: %w", err)
	}
	return nil
}

func (c *Cache) GetString(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrAbsent
	}
	if err != nil {
		return "", fmt.Errorf("cache get %s: %w", key, err)
	}
	return val, nil
}

func (c *Cache) SetString(ctx context.Context, key, value string) error {
	if err := c.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *Cache) DeleteKey(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache del %s: %w", key, err)
	}
	return nil
}

func (c *Cache) HashSet(ctx context.Context, hashKey, field, value string) error {
	if err := c.rdb.HSet(ctx, hashKey, field, value).Err(); err != nil {
		return fmt.Errorf("cache hset %s.%s: %w", hashKey, field, err)
	}
	return nil
}

func (c *Cache) HashGetAll(ctx context.Context, hashKey string) (map[string]string, error) {
	all, err := c.rdb.HGetAll(ctx, hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("cache hgetall %s: %w", hashKey, err)
	}
	return all, nil
}

func (c *Cache) HashDelete(ctx context.Context, hashKey, field string) error {
	if err := c.rdb.HDel(ctx, hashKey, field).Err(); err != nil {
		return fmt.Errorf("cache hdel %s.%s: %w", hashKey, field, err)
	}
	return nil
}

func (c *Cache) Close() error { return c.rdb.Close() }
