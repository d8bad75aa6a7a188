package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache namespaces every key with prefix (e.g. "fdms:").
func NewRedisCache(rdb *redis.Client, prefix string) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: prefix}
}

func (c *RedisCache) key(k string) string { return c.prefix + k }

func (c *RedisCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	s, err := c.rdb.Get(ctx, c.key(key)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dst); err != nil {
		// corrupt entry: drop it and report a miss
		_ = c.rdb.Del(ctx, c.key(key)).Err()
		return false, nil
	}
	return true, nil
}

func (c *RedisCache) SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(key), b, ttl).Err()
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.rdb.Del(ctx, full...).Err()
}

func (c *RedisCache) AppendJSON(ctx context.Context, key string, val any, keep int64, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	k := c.key(key)
	pipe := c.rdb.TxPipeline()
	pipe.RPush(ctx, k, b)
	if keep > 0 {
		pipe.LTrim(ctx, k, -keep, -1)
	}
	if ttl > 0 {
		pipe.Expire(ctx, k, ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (c *RedisCache) ListJSON(ctx context.Context, key string, dst any) error {
	items, err := c.rdb.LRange(ctx, c.key(key), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	return json.Unmarshal([]byte("["+strings.Join(items, ",")+"]"), dst)
}
