// Package config loads engine configuration from environment variables
// (with sane defaults), the way the teacher loads its application.yaml
// through viper but sourced entirely from the process environment since
// this service ships as a single static binary with no config file.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"momentum-engine/internal/domain"
)

// Config is the fully resolved engine configuration.
type Config struct {
	Server   ServerConfig
	Provider ProviderConfig
	Universe UniverseConfig
	Scoring  ScoringConfig
	Cache    CacheConfig
	Log      LogConfig
}

// ServerConfig configures the HTTP/WebSocket listener.
type ServerConfig struct {
	Port string
}

// ProviderConfig selects and authenticates the market-data adapter.
type ProviderConfig struct {
	Name   string // "sim" or a vendor name understood by cmd/engine/app wiring
	APIKey string
}

// UniverseConfig names the symbols the engine watches.
type UniverseConfig struct {
	WSSymbols     []string
	PrimaryTicker string
	RefPrimary    string
	RefSecond     string
}

// RetentionConfig caps the number of candles kept per timeframe.
type RetentionConfig map[domain.Timeframe]int

// ScoringConfig configures the ingest refresh cadence and scoring gates.
type ScoringConfig struct {
	Retention         RetentionConfig
	RefreshIntervalMs int64
	LiquidityFloorUSD float64
}

// CacheConfig mirrors the teacher's Redis knobs, used by pkg/cache for
// the optional distributed /score response cache.
type CacheConfig struct {
	RedisHost     string
	RedisPort     string
	RedisDatabase int
	RedisDisable  bool
}

// LogConfig configures pkg/log's verbosity.
type LogConfig struct {
	Level string
}

// Load reads configuration from the environment, applying defaults for
// anything unset. WS_SYMBOLS always includes SPY and QQQ, the reference
// tickers tape context needs, even if the caller omits them.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindDefaults(v)
	for _, key := range []string{
		"PROVIDER", "PROVIDER_API_KEY", "WS_SYMBOLS", "PRIMARY_TICKER",
		"RETENTION_1M", "RETENTION_5M", "RETENTION_15M", "RETENTION_1H", "RETENTION_1D",
		"REFRESH_INTERVAL_MS", "LIQUIDITY_FLOOR_USD",
		"SERVER_PORT", "REDIS_HOST", "REDIS_PORT", "REDIS_DATABASE", "REDIS_DISABLE",
		"LOG_LEVEL",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, errors.Wrapf(err, "binding env var %s", key)
		}
	}

	symbols := splitAndClean(v.GetString("WS_SYMBOLS"))
	symbols = ensureIncludes(symbols, "SPY", "QQQ")

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("SERVER_PORT"),
		},
		Provider: ProviderConfig{
			Name:   v.GetString("PROVIDER"),
			APIKey: v.GetString("PROVIDER_API_KEY"),
		},
		Universe: UniverseConfig{
			WSSymbols:     symbols,
			PrimaryTicker: v.GetString("PRIMARY_TICKER"),
			RefPrimary:    "SPY",
			RefSecond:     "QQQ",
		},
		Scoring: ScoringConfig{
			Retention: RetentionConfig{
				domain.TF1m:  v.GetInt("RETENTION_1M"),
				domain.TF5m:  v.GetInt("RETENTION_5M"),
				domain.TF15m: v.GetInt("RETENTION_15M"),
				domain.TF1h:  v.GetInt("RETENTION_1H"),
				domain.TF1d:  v.GetInt("RETENTION_1D"),
			},
			RefreshIntervalMs: v.GetInt64("REFRESH_INTERVAL_MS"),
			LiquidityFloorUSD: v.GetFloat64("LIQUIDITY_FLOOR_USD"),
		},
		Cache: CacheConfig{
			RedisHost:     v.GetString("REDIS_HOST"),
			RedisPort:     v.GetString("REDIS_PORT"),
			RedisDatabase: v.GetInt("REDIS_DATABASE"),
			RedisDisable:  v.GetBool("REDIS_DISABLE"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
	}

	if cfg.Provider.Name == "" {
		return nil, errors.New("PROVIDER is required (e.g. \"sim\")")
	}
	if cfg.Universe.PrimaryTicker == "" {
		return nil, errors.New("PRIMARY_TICKER is required")
	}
	if cfg.Provider.Name != "sim" && cfg.Provider.APIKey == "" {
		return nil, errors.Errorf("PROVIDER_API_KEY is required for provider %q", cfg.Provider.Name)
	}

	return cfg, nil
}

func bindDefaults(v *viper.Viper) {
	v.SetDefault("PROVIDER", "sim")
	v.SetDefault("PROVIDER_API_KEY", "")
	v.SetDefault("WS_SYMBOLS", "SPY,QQQ")
	v.SetDefault("PRIMARY_TICKER", "SPY")
	v.SetDefault("RETENTION_1M", 240)
	v.SetDefault("RETENTION_5M", 240)
	v.SetDefault("RETENTION_15M", 200)
	v.SetDefault("RETENTION_1H", 200)
	v.SetDefault("RETENTION_1D", 400)
	v.SetDefault("REFRESH_INTERVAL_MS", int64(60_000))
	v.SetDefault("LIQUIDITY_FLOOR_USD", 1_000_000.0)
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DATABASE", 0)
	v.SetDefault("REDIS_DISABLE", true)
	v.SetDefault("LOG_LEVEL", "info")
}

func splitAndClean(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func ensureIncludes(symbols []string, required ...string) []string {
	have := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		have[s] = true
	}
	for _, r := range required {
		if !have[r] {
			symbols = append(symbols, r)
			have[r] = true
		}
	}
	return symbols
}

// RefreshInterval is the configured REST refresh cadence as a time.Duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Scoring.RefreshIntervalMs) * time.Millisecond
}
