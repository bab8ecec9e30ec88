// Package cache supplies per-pair reconciliation field configs. The cache
// here is deliberately an explicitly-passed object with a TTL and a Refresh
// method, owned by whoever constructs the engine; there is no module-level
// singleton to go stale behind the caller's back.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stevedore/internal/reconcile/models"
)

// Source yields the field configs for a document pair.
type Source interface {
	FieldConfigs(ctx context.Context, pairKey string) ([]models.FieldConfig, error)
}

// Static serves the built-in config table.
type Static struct{}

func (Static) FieldConfigs(_ context.Context, pairKey string) ([]models.FieldConfig, error) {
	cfgs := models.DefaultFieldConfigs(pairKey)
	if cfgs == nil {
		return nil, fmt.Errorf("no field configs for pair %q", pairKey)
	}
	return cfgs, nil
}

const cacheKeyPrefix = "reconcile:fields:"

// RedisCache is a read-through cache in front of a Source. A hit within the
// TTL serves the cached configs; a miss or expiry falls through to the
// source and repopulates. Redis being down degrades to the source, never to
// an error.
type RedisCache struct {
	client *redis.Client
	source Source
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, source Source, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, source: source, ttl: ttl}
}

func (c *RedisCache) FieldConfigs(ctx context.Context, pairKey string) ([]models.FieldConfig, error) {
	key := cacheKeyPrefix + pairKey
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cfgs []models.FieldConfig
		if uerr := json.Unmarshal(raw, &cfgs); uerr == nil && len(cfgs) > 0 {
			return cfgs, nil
		}
		// Unreadable payload: treat as a miss and overwrite below.
	} else if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) {
		// Cache unavailable; fall through to the source.
		return c.source.FieldConfigs(ctx, pairKey)
	}

	cfgs, err := c.source.FieldConfigs(ctx, pairKey)
	if err != nil {
		return nil, err
	}
	if raw, merr := json.Marshal(cfgs); merr == nil {
		_ = c.client.Set(ctx, key, raw, c.ttl).Err()
	}
	return cfgs, nil
}

// Refresh drops the cached entry so the next read hits the source.
func (c *RedisCache) Refresh(ctx context.Context, pairKey string) error {
	return c.client.Del(ctx, cacheKeyPrefix+pairKey).Err()
}
