package cache

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// InMemConfig configures the process-local tier of Manager.
type InMemConfig struct {
	TTL        time.Duration `json:"ttl,omitempty"`
	CleanUpTTL time.Duration `json:"cleanupttl,omitempty"`
}

// DefaultInMemConfig sets a 10s default TTL, swept once a minute. The
// /score caller passes its own shorter per-key TTL (scoreCacheTTL, see
// cmd/engine/transport/http.go) rather than relying on this default.
func DefaultInMemConfig() InMemConfig {
	return InMemConfig{TTL: 10 * time.Second, CleanUpTTL: time.Minute}
}

func NewInMemoryCache(cfg InMemConfig) *cache.Cache {
	return cache.New(cfg.TTL, cfg.CleanUpTTL)
}
