// Package cache is a short-TTL read-time memoization layer in front of
// /score: an in-process go-cache tier backed by Redis, not a
// durable store. Every lookup checks memory first and only falls through to
// Redis on a miss; every write fans out to both.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// API is the subset of Manager the HTTP layer depends on, so a handler can
// be tested or run cache-free against a nil API.
type API interface {
	Get(ctx context.Context, key string) (string, bool)
	SetWithDuration(ctx context.Context, key string, value string, duration time.Duration)
	Set(ctx context.Context, key string, value string)
	// GetJSON reports whether key was a cache hit, decoding the cached
	// payload into dest on success. A hit with undecodable JSON counts as
	// a miss so a corrupt cache entry never surfaces as a handler error.
	GetJSON(ctx context.Context, key string, dest interface{}) bool
	// SetJSONWithDuration marshals value and stores it under key; a
	// marshal failure is a silent no-op, matching the cache's role as a
	// latency optimization a caller never depends on for correctness.
	SetJSONWithDuration(ctx context.Context, key string, value interface{}, duration time.Duration)
}

// Manager is the two-tier cache: an in-memory go-cache instance in front of
// a shared Redis instance.
type Manager struct {
	inmem *cache.Cache
	redis *redis.Client
}

func NewCacheManager(inmem *cache.Cache, redis *redis.Client) API {
	return &Manager{
		inmem: inmem,
		redis: redis,
	}
}

func (c *Manager) Get(ctx context.Context, key string) (string, bool) {
	logger := ctxzap.Extract(ctx)

	// get from in-mem cache
	cVal, present := c.inmem.Get(key)
	if !present {
		// get from redis
		rVal, err := c.redis.Get(ctx, key).Result()
		if (err != nil) && (err.Error() != "redis: nil") {
			logger.Sugar().Warnf("occurred while retrieving data from redis %v", err)
			return "", false
		}
		if len(rVal) == 0 {
			return rVal, false
		}
		return rVal, true
	}
	return cVal.(string), present
}

func (c *Manager) SetWithDuration(ctx context.Context, key string, value string, duration time.Duration) {
	logger := ctxzap.Extract(ctx)

	// set in mem
	c.inmem.Set(key, value, duration)

	// set in redis
	_, err := c.redis.Set(ctx, key, value, duration).Result()
	if err != nil {
		logger.Sugar().Errorf("occurred %v while saving data %v to redis for key %v", value, err, key)
	}
}

func (c *Manager) Set(ctx context.Context, key string, value string) {
	logger := ctxzap.Extract(ctx)
	// set in mem
	c.inmem.Set(key, value, time.Minute*10)

	// set in redis
	_, err := c.redis.Set(ctx, key, value, time.Minute*30).Result()
	if err != nil {
		logger.Sugar().Errorf("occurred %v while saving data %v to redis for key %v", err, value, key)
	}
}

func (c *Manager) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	raw, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		ctxzap.Extract(ctx).Sugar().Warnf("discarding undecodable cache entry for key %v: %v", key, err)
		return false
	}
	return true
}

func (c *Manager) SetJSONWithDuration(ctx context.Context, key string, value interface{}, duration time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		ctxzap.Extract(ctx).Sugar().Warnf("not caching key %v: %v", key, err)
		return
	}
	c.SetWithDuration(ctx, key, string(payload), duration)
}
