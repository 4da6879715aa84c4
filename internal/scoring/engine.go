package scoring

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"momentum-engine/internal/domain"
	"momentum-engine/internal/indicators"
	"momentum-engine/internal/store"
	"momentum-engine/internal/tape"
)

func decisionEntry(detail string) domain.AuditEntry {
	return domain.AuditEntry{ID: uuid.NewString(), GateName: "decision", Passed: true, Detail: detail}
}

// Config holds the tunable thresholds the scoring engine gates on.
type Config struct {
	LiquidityFloorUSD float64
}

// DefaultConfig matches the specified default liquidity floor.
func DefaultConfig() Config {
	return Config{LiquidityFloorUSD: 1_000_000}
}

// Engine is the deterministic scoring state machine: a pure function of
// CandleStore content at the moment Score is called.
type Engine struct {
	st      *store.CandleStore
	ind     *indicators.Engine
	tapeCtx *tape.Context
	cfg     Config
}

// NewEngine constructs a scoring Engine.
func NewEngine(st *store.CandleStore, ind *indicators.Engine, tapeCtx *tape.Context, cfg Config) *Engine {
	return &Engine{st: st, ind: ind, tapeCtx: tapeCtx, cfg: cfg}
}

func closedOnly(candles []domain.Candle) []domain.Candle {
	out := make([]domain.Candle, 0, len(candles))
	for _, c := range candles {
		if c.IsClosed {
			out = append(out, c)
		}
	}
	return out
}

// Score evaluates the full pipeline for symbol as of nowMs and returns a
// ScoreResult with its audit trail.
func (e *Engine) Score(symbol string, nowMs int64) domain.ScoreResult {
	ind5m := e.ind.Compute(symbol, domain.TF5m, nowMs)
	ind15m := e.ind.Compute(symbol, domain.TF15m, nowMs)
	f5m := e.st.Freshness(symbol, domain.TF5m, nowMs)
	f15m := e.st.Freshness(symbol, domain.TF15m, nowMs)
	tapeSnap := e.tapeCtx.Compute(symbol, nowMs)
	candles5m := closedOnly(e.st.All(symbol, domain.TF5m))
	candles15m := closedOnly(e.st.All(symbol, domain.TF15m))

	freshnessMap := map[domain.Timeframe]domain.Freshness{domain.TF5m: f5m, domain.TF15m: f15m}
	var missing []domain.Timeframe
	if f5m != domain.FreshnessFresh {
		missing = append(missing, domain.TF5m)
	}
	if f15m != domain.FreshnessFresh {
		missing = append(missing, domain.TF15m)
	}

	trend15m, structure15m, breakdown15m, obv15mNonNeg := fifteenMinuteSignals(candles15m, ind15m)
	state := deriveState(candles5m, trend15m, structure15m, breakdown15m, obv15mNonNeg)

	obvSlope5, obv5Ok := ind5m.Get("OBVSlope")
	obvConfirm := obv5Ok && obvSlope5 > 0 && obv15mNonNeg

	result := domain.ScoreResult{
		Symbol:       symbol,
		State:        state,
		Freshness:    freshnessMap,
		MissingTfs:   missing,
		Tape:         tapeSnap,
		ComputedAtMs: nowMs,
	}

	audit := make([]domain.AuditEntry, 0, 6)

	liq := liquidityGate(ind5m, candles5m, e.cfg.LiquidityFloorUSD)
	audit = append(audit, liq.entry)

	fg := freshnessGate(f5m, f15m)
	audit = append(audit, fg.entry)

	structGate := structureGate(structure15m)
	audit = append(audit, structGate.entry)

	anchor, anchorOk := anchorFor(ind5m)
	atr5m, atr5Ok := ind5m.Get("ATR14")
	var chase gateOutcome
	var currentClose float64
	haveClose := len(candles5m) > 0
	if haveClose {
		currentClose = candles5m[len(candles5m)-1].Close
	}
	if anchorOk && atr5Ok && haveClose {
		chase = noChaseGate(currentClose, anchor, atr5m)
	} else {
		chase = gate("no_chase", false, "anchor or atr14(5m) unavailable")
	}
	audit = append(audit, chase.entry)

	tg := tapeGate(tapeSnap)
	audit = append(audit, tg.entry)

	switch {
	case !liq.pass:
		result.Signal = domain.SignalIgnore
		audit = append(audit, decisionEntry("liquidity gate failed"))

	case !fg.pass:
		result.Signal = domain.SignalHold
		audit = append(audit, decisionEntry(fmt.Sprintf("freshness gate failed, missing=%v", missing)))

	case state == domain.StateFailed || (state == domain.StateFailing && obv5Ok && obvSlope5 <= 0):
		result.Signal = domain.SignalExit
		audit = append(audit, decisionEntry(fmt.Sprintf("exit confirmed, state=%s", state)))

	case state == domain.StateActive && structGate.pass && chase.pass && tg.pass:
		result.Signal = domain.SignalBuy
		e.populateRiskOutputs(&result, currentClose, anchor, atr5m, ind5m, ind15m, tapeSnap, trend15m, obvConfirm)
		audit = append(audit, decisionEntry("active state, all gates passed"))

	default:
		result.Signal = domain.SignalHold
		audit = append(audit, decisionEntry(fmt.Sprintf("state=%s, gates incomplete", state)))
	}

	result.Audit = audit
	return result
}

// fifteenMinuteSignals derives the 15m-side transition inputs from the
// current snapshot: trend_up_15m, structure_intact_15m, breakdown_15m,
// and whether OBV slope(15m) is non-negative.
func fifteenMinuteSignals(candles15m []domain.Candle, ind15m domain.IndicatorSet) (trendUp, structureIntact, breakdown, obvNonNeg bool) {
	if len(candles15m) == 0 {
		return false, false, false, false
	}
	last := candles15m[len(candles15m)-1]

	ema20, ema20Ok := ind15m.Get("EMA20")
	if ema20Ok {
		trendUp = last.Close > ema20
	}

	swingLow := swingLowProxy(candles15m)
	priorLow20, priorLowOk := ind15m.Get("PriorLow20")
	structureIntact = last.Close >= swingLow && (!priorLowOk || last.Close >= priorLow20)

	breakdown = (ema20Ok && last.Close < ema20) || last.Close < swingLow

	if slope, ok := ind15m.Get("OBVSlope"); ok {
		obvNonNeg = slope >= 0
	}
	return
}

// swingLowProxy is min(low) over the last 20 closed 15m candles,
// including the current one.
func swingLowProxy(candles15m []domain.Candle) float64 {
	window := candles15m
	if len(window) > 20 {
		window = window[len(window)-20:]
	}
	m := window[0].Low
	for _, c := range window[1:] {
		if c.Low < m {
			m = c.Low
		}
	}
	return m
}

func (e *Engine) populateRiskOutputs(result *domain.ScoreResult, close, anchor, atr5m float64, ind5m, ind15m domain.IndicatorSet, tapeSnap domain.TapeSnapshot, trend15m, obvConfirm bool) {
	if close > anchor+0.5*atr5m {
		result.EntryRange = &domain.EntryRange{Lo: close - 0.25*atr5m, Hi: close + 0.25*atr5m}
	} else {
		result.EntryRange = &domain.EntryRange{Lo: anchor, Hi: anchor + 0.5*atr5m}
	}
	stop := anchor - 1.2*atr5m
	result.Stop = &stop

	if atr15m, ok := ind15m.Get("ATR14"); ok {
		result.Targets = []float64{close + atr15m, close + 2*atr15m}
	}

	result.Confidence = confidence(obvConfirm, tapeSnap, trend15m, ind5m)
	distFromAnchor := math.Abs(close - anchor)
	result.SizeHint = result.Confidence * (1 - math.Min(1, distFromAnchor/(2*atr5m)))
}

func confidence(obvConfirm bool, tapeSnap domain.TapeSnapshot, trend15m bool, ind5m domain.IndicatorSet) float64 {
	c := 0.5
	if obvConfirm {
		c += 0.1
	}
	if tapeSnap.RS30m != nil && *tapeSnap.RS30m > 0 {
		c += 0.1
	}
	if tapeSnap.MarketRiskOff != domain.RiskOff {
		c += 0.1
	}
	if trend15m {
		c += 0.1
	}
	if relVol, ok := ind5m.Get("RelVol"); ok && relVol >= 1.0 {
		c += 0.1
	}
	return math.Min(1, math.Max(0, c))
}
