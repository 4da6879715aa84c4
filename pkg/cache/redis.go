package cache

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the shared-tier backend of Manager. This engine
// loads config from the environment (internal/config), not YAML, so only
// the fields an env-driven CacheConfig actually populates are kept —
// unlike the teacher's YAML-sourced superset, there's no caller here that
// could ever set a retry count, a disable flag, or a TTL at this layer
// (TTL is a per-key argument to SetWithDuration, not a client-wide knob).
type RedisConfig struct {
	Host           string
	Port           string
	Database       int
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PoolSize       int
	MinIdleConns   int
}

func NewRedisStore(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Host + ":" + cfg.Port,
		DialTimeout:  cfg.ConnectTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DB:           cfg.Database,
	})
}
