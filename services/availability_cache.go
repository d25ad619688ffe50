package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/yeremiapane/tablebook/utils"
)

// AvailabilityCache holds availability answers for a short time. Every commit
// that changes occupancy calls Invalidate, so staleness is bounded by the
// race between a commit and its invalidation.
type AvailabilityCache interface {
	Get(ctx context.Context, key string, dst interface{}) bool
	Set(ctx context.Context, key string, value interface{})
	Invalidate(ctx context.Context)
}

type noCache struct{}

func (noCache) Get(context.Context, string, interface{}) bool { return false }
func (noCache) Set(context.Context, string, interface{})      {}
func (noCache) Invalidate(context.Context)                    {}

// NoCache disables caching.
func NoCache() AvailabilityCache { return noCache{} }

const redisKeyPrefix = "tablebook:availability:"

// RedisAvailabilityCache namespaces keys by a generation counter; Invalidate
// bumps the counter so every previous entry becomes unreachable at once and
// expires on its own TTL.
type RedisAvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAvailabilityCache(client *redis.Client, ttl time.Duration) *RedisAvailabilityCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisAvailabilityCache{client: client, ttl: ttl}
}

func (c *RedisAvailabilityCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, redisKeyPrefix+"gen").Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

func (c *RedisAvailabilityCache) key(ctx context.Context, key string) (string, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d:%s", redisKeyPrefix, gen, key), nil
}

func (c *RedisAvailabilityCache) Get(ctx context.Context, key string, dst interface{}) bool {
	k, err := c.key(ctx, key)
	if err != nil {
		utils.ErrorLogger.Printf("availability cache: %v", err)
		return false
	}
	raw, err := c.client.Get(ctx, k).Bytes()
	if err != nil {
		if err != redis.Nil {
			utils.ErrorLogger.Printf("availability cache get %s: %v", k, err)
		}
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func (c *RedisAvailabilityCache) Set(ctx context.Context, key string, value interface{}) {
	k, err := c.key(ctx, key)
	if err != nil {
		utils.ErrorLogger.Printf("availability cache: %v", err)
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, k, raw, c.ttl).Err(); err != nil {
		utils.ErrorLogger.Printf("availability cache set %s: %v", k, err)
	}
}

func (c *RedisAvailabilityCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, redisKeyPrefix+"gen").Err(); err != nil {
		utils.ErrorLogger.Printf("availability cache invalidate: %v", err)
	}
}
