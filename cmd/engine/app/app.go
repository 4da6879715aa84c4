// Package app wires the engine's components together and runs the HTTP
// server and background ingest loops, mirroring how the teacher's
// cmd/trading/app package composes its own service graph.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"momentum-engine/cmd/engine/transport"
	"momentum-engine/internal/config"
	"momentum-engine/internal/domain"
	"momentum-engine/internal/indicators"
	"momentum-engine/internal/ingest"
	"momentum-engine/internal/providers/simfeed"
	"momentum-engine/internal/pushhub"
	"momentum-engine/internal/scoring"
	"momentum-engine/internal/store"
	"momentum-engine/internal/tape"
	appcache "momentum-engine/pkg/cache"
	"momentum-engine/pkg/log"
)

// App owns the wired engine and its HTTP server.
type App struct {
	cfg        *config.Config
	router     *gin.Engine
	httpServer *http.Server
	store      *store.CandleStore
	builder    *ingest.CandleBuilder
	dataSource ingest.Provider
	symbols    []string
	scoring    *scoring.Engine
	hub        *pushhub.Hub
	primary    string
}

// NewApp loads configuration and wires every component.
func NewApp() *App {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration: %v", err)
	}
	log.Info("configuration loaded: provider=%s primary=%s symbols=%v", cfg.Provider.Name, cfg.Universe.PrimaryTicker, cfg.Universe.WSSymbols)

	applyRetentionOverrides(cfg.Scoring.Retention)

	st := store.New()
	ind := indicators.NewEngine(st)
	tapeCtx := tape.NewContext(st, ind, cfg.Universe.RefPrimary, cfg.Universe.RefSecond)
	scoringCfg := scoring.Config{LiquidityFloorUSD: cfg.Scoring.LiquidityFloorUSD}
	scoringEngine := scoring.NewEngine(st, ind, tapeCtx, scoringCfg)

	hub := pushhub.New()

	var dataSource ingest.Provider
	switch cfg.Provider.Name {
	case "sim":
		seed := map[string]float64{cfg.Universe.PrimaryTicker: 100, cfg.Universe.RefPrimary: 450, cfg.Universe.RefSecond: 380}
		dataSource = simfeed.New(seed, 42)
	default:
		log.Fatal("unknown PROVIDER %q; only \"sim\" is wired in this build", cfg.Provider.Name)
	}

	builder := ingest.NewCandleBuilder(st, true, func() int64 { return time.Now().UnixMilli() }, hub)

	cacheAPI := buildCache(cfg.Cache)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	handler := transport.NewHTTPHandler(st, ind, scoringEngine, tapeCtx, hub, cacheAPI, buildZapLogger(cfg.Log.Level))
	handler.RegisterRoutes(router)

	return &App{
		cfg:        cfg,
		router:     router,
		store:      st,
		builder:    builder,
		dataSource: dataSource,
		symbols:    cfg.Universe.WSSymbols,
		scoring:    scoringEngine,
		hub:        hub,
		primary:    cfg.Universe.PrimaryTicker,
	}
}

// scorePushInterval paces the background rescore that feeds /ws/stream
// "score" events; short enough to track state transitions, long enough
// that it never competes meaningfully with request-driven /score calls.
const scorePushInterval = 5 * time.Second

// runScorePushLoop rescoures the primary ticker on a fixed cadence and
// broadcasts the result to every /ws/stream subscriber, giving the push
// feed a source of score events independent of incoming /score requests.
func (a *App) runScorePushLoop(ctx context.Context) {
	ticker := time.NewTicker(scorePushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !a.store.HasSeries(a.primary, domain.TF1m) {
				continue
			}
			a.hub.PublishScore(a.scoring.Score(a.primary, time.Now().UnixMilli()))
		}
	}
}

// buildCache wires pkg/cache's two-tier manager in front of /score
// reads when Redis is enabled, falling back to no caching
// (every request recomputes) when it is not.
func buildCache(cfg config.CacheConfig) appcache.API {
	if cfg.RedisDisable {
		log.Info("redis cache disabled; score/snapshot responses recompute every request")
		return nil
	}
	inmem := appcache.NewInMemoryCache(appcache.DefaultInMemConfig())
	redisClient := appcache.NewRedisStore(appcache.RedisConfig{
		Host: cfg.RedisHost, Port: cfg.RedisPort, Database: cfg.RedisDatabase,
		ConnectTimeout: 2 * time.Second, ReadTimeout: time.Second, WriteTimeout: time.Second,
		PoolSize: 10, MinIdleConns: 2,
	})
	return appcache.NewCacheManager(inmem, redisClient)
}

// buildZapLogger gives the cache layer's ctxzap.Extract a real sink instead
// of its no-op default; level tracks the same LOG_LEVEL knob as pkg/log.
func buildZapLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = lvl
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func applyRetentionOverrides(r config.RetentionConfig) {
	for tf, n := range r {
		if n > 0 {
			domain.RetentionPolicy[tf] = n
		}
	}
}

// Run starts the ingest loops and the HTTP server, blocking until a
// shutdown signal arrives or either fails.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go ingest.RunWSLoop(ctx, a.dataSource, a.symbols, a.builder)

	limiter := rate.NewLimiter(rate.Every(a.cfg.RefreshInterval()/time.Duration(len(a.symbols)+1)), 1)
	go ingest.RunRESTRefresh(ctx, a.dataSource, a.symbols, a.store, a.cfg.RefreshInterval(), limiter)

	go a.runScorePushLoop(ctx)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.cfg.Server.Port),
		Handler:      a.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server on port %s", a.cfg.Server.Port)
		serverErrors <- a.httpServer.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case <-shutdown:
		log.Info("shutting down gracefully")
		cancel()
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutCancel()
		if err := a.httpServer.Shutdown(shutCtx); err != nil {
			a.httpServer.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}
	return nil
}
