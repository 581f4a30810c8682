package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache holds recently resolved identities.
// A miss is (Identity{}, false, nil); errors are reported but callers may fall through to the repository.
type Cache interface {
	Get(ctx context.Context, id int64) (Identity, bool, error)
	Set(ctx context.Context, i Identity) error
	Invalidate(ctx context.Context, id int64) error
}

// RedisCache stores identities as JSON strings with a fixed TTL.
// Password hashes are never written to redis.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func cacheKey(id int64) string { return fmt.Sprintf("identity:%d", id) }

func (c *RedisCache) Get(ctx context.Context, id int64) (Identity, bool, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return Identity{}, false, nil
	}
	if err != nil {
		return Identity{}, false, err
	}
	var i Identity
	if err := json.Unmarshal([]byte(raw), &i); err != nil {
		return Identity{}, false, fmt.Errorf("decode cached identity: %w", err)
	}
	return i, true, nil
}

func (c *RedisCache) Set(ctx context.Context, i Identity) error {
	b, err := json.Marshal(i.Public())
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, cacheKey(i.ID), b, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, id int64) error {
	return c.rdb.Del(ctx, cacheKey(id)).Err()
}
