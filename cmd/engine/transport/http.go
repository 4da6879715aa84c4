package transport

import (
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"momentum-engine/internal/domain"
	"momentum-engine/internal/indicators"
	"momentum-engine/internal/pushhub"
	"momentum-engine/internal/scoring"
	"momentum-engine/internal/store"
	"momentum-engine/internal/tape"
	"momentum-engine/pkg/cache"
	"momentum-engine/pkg/log"
)

// scoreCacheTTL bounds how long a /score response may be
// served from cache before a fresh pass over the store is required; short
// enough that it never masks a real state transition between two polls
// of the same ticker within a burst of requests.
const scoreCacheTTL = 2 * time.Second

var tickerPattern = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,14}$`)

const snapshotCandleDepth = 20

// validate enforces the ticker query-parameter shape through its custom
// "ticker" tag (tickerPattern); registered once so every handler shares the
// same compiled regex check instead of re-validating ad hoc.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("ticker", func(fl validator.FieldLevel) bool {
		return tickerPattern.MatchString(fl.Field().String())
	})
	return v
}

// tickerQuery binds the raw ?ticker= parameter shared by /score and
// /snapshot; the plain-symbol shape is checked separately against validate,
// since gin's own binding engine doesn't know the custom "ticker" tag.
type tickerQuery struct {
	Ticker string `form:"ticker" binding:"required"`
}

// HTTPHandler serves the engine's read-only HTTP and WebSocket surface.
type HTTPHandler struct {
	store   *store.CandleStore
	ind     *indicators.Engine
	scoring *scoring.Engine
	tapeCtx *tape.Context
	hub     *pushhub.Hub
	cache   cache.API
	zapLog  *zap.Logger
}

// NewHTTPHandler wires a handler against the shared pipeline components.
// cacheAPI may be nil, in which case every request recomputes its result.
func NewHTTPHandler(st *store.CandleStore, ind *indicators.Engine, eng *scoring.Engine, tapeCtx *tape.Context, hub *pushhub.Hub, cacheAPI cache.API, zapLog *zap.Logger) *HTTPHandler {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &HTTPHandler{store: st, ind: ind, scoring: eng, tapeCtx: tapeCtx, hub: hub, cache: cacheAPI, zapLog: zapLog}
}

// RegisterRoutes attaches every handler to router.
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	router.Use(CORSMiddleware())
	router.Use(RequestLoggerMiddleware())
	router.Use(ZapLoggerMiddleware(h.zapLog))

	router.GET("/health", h.health)
	router.GET("/score", h.score)
	router.GET("/snapshot", h.snapshot)
	router.GET("/ws/stream", h.stream)
}

func (h *HTTPHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP", "time": time.Now().Format(time.RFC3339)})
}

func (h *HTTPHandler) resolveTicker(c *gin.Context) (string, bool) {
	var q tickerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Error: "ticker query parameter is required and must be a plain symbol"})
		return "", false
	}
	if err := validate.Var(q.Ticker, "ticker"); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Error: "ticker query parameter is required and must be a plain symbol"})
		return "", false
	}
	return q.Ticker, true
}

func (h *HTTPHandler) score(c *gin.Context) {
	ticker, ok := h.resolveTicker(c)
	if !ok {
		return
	}
	if !h.hasAnyHistory(ticker) {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{Error: "no data ingested for ticker"})
		return
	}

	cacheKey := "score:" + ticker
	var cached domain.ScoreResult
	if h.cache != nil && h.cache.GetJSON(c.Request.Context(), cacheKey, &cached) {
		c.JSON(http.StatusOK, cached)
		return
	}

	result := h.scoring.Score(ticker, time.Now().UnixMilli())
	if h.cache != nil {
		h.cache.SetJSONWithDuration(c.Request.Context(), cacheKey, result, scoreCacheTTL)
	}
	c.JSON(http.StatusOK, result)
}

func (h *HTTPHandler) snapshot(c *gin.Context) {
	ticker, ok := h.resolveTicker(c)
	if !ok {
		return
	}
	if !h.hasAnyHistory(ticker) {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{Error: "no data ingested for ticker"})
		return
	}

	nowMs := time.Now().UnixMilli()
	perTf := make(map[domain.Timeframe]domain.TimeframeSnapshot, len(domain.AllTimeframes))
	for _, tf := range domain.AllTimeframes {
		perTf[tf] = domain.TimeframeSnapshot{
			Candles:    h.store.Latest(ticker, tf, snapshotCandleDepth),
			Indicators: h.ind.Compute(ticker, tf, nowMs),
			Freshness:  h.store.Freshness(ticker, tf, nowMs),
		}
	}

	snap := domain.Snapshot{
		Symbol: ticker,
		PerTf:  perTf,
		Tape:   h.tapeCtx.Compute(ticker, nowMs),
	}
	c.JSON(http.StatusOK, snap)
}

func (h *HTTPHandler) stream(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}

func (h *HTTPHandler) hasAnyHistory(ticker string) bool {
	for _, tf := range domain.AllTimeframes {
		if h.store.HasSeries(ticker, tf) {
			return true
		}
	}
	log.Debug("no series found for ticker=%s", ticker)
	return false
}
