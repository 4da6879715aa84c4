// Package tape derives market risk-regime and relative-strength context
// from the two reference instruments the engine always tracks alongside
// the primary ticker.
package tape

import (
	"momentum-engine/internal/domain"
	"momentum-engine/internal/indicators"
	"momentum-engine/internal/store"
)

// Context computes a TapeSnapshot from the reference instruments' candle
// series. Stateless beyond the store and indicator engine it reads from.
type Context struct {
	st         *store.CandleStore
	ind        *indicators.Engine
	refPrimary string // e.g. SPY
	refSecond  string // e.g. QQQ
}

// NewContext constructs a Context deriving risk/RS context from refA and
// refB. Their order does not matter for RiskOff (both must be fresh for a
// non-unknown verdict); RS_30m is measured against refB alone.
func NewContext(st *store.CandleStore, ind *indicators.Engine, refA, refB string) *Context {
	return &Context{st: st, ind: ind, refPrimary: refA, refSecond: refB}
}

// Compute returns the tape snapshot relevant to scoring ticker as of
// nowMs.
func (c *Context) Compute(ticker string, nowMs int64) domain.TapeSnapshot {
	return domain.TapeSnapshot{
		MarketRiskOff: c.marketRiskOff(nowMs),
		RS30m:         c.rs30m(ticker, nowMs),
		ComputedAtMs:  nowMs,
	}
}

// marketRiskOff is "off" iff both reference instruments are below their
// 15m EMA20 and have printed three consecutive lower-lows on 15m; unknown
// if either reference's 15m series is not fresh.
func (c *Context) marketRiskOff(nowMs int64) domain.RiskState {
	for _, sym := range []string{c.refPrimary, c.refSecond} {
		if c.st.Freshness(sym, domain.TF15m, nowMs) != domain.FreshnessFresh {
			return domain.RiskUnknown
		}
	}

	for _, sym := range []string{c.refPrimary, c.refSecond} {
		if !c.belowEMA20AndLowerLows(sym) {
			return domain.RiskOn
		}
	}
	return domain.RiskOff
}

func (c *Context) belowEMA20AndLowerLows(symbol string) bool {
	candles := c.st.Latest(symbol, domain.TF15m, 3)
	if len(candles) < 3 {
		return false
	}
	ind := c.ind.Compute(symbol, domain.TF15m, candles[len(candles)-1].StartTs)
	ema20, ok := ind.Get("EMA20")
	if !ok {
		return false
	}
	last := candles[len(candles)-1]
	if last.Close >= ema20 {
		return false
	}
	for i := 1; i < len(candles); i++ {
		if !(candles[i].Low < candles[i-1].Low) {
			return false
		}
	}
	return true
}

// rs30m returns r_ticker - r_QQQ where r_X = (c_last/c_{last-6}) - 1 on
// X's 5m series (6 closed bars back, approximately 30 minutes). Missing
// if either side lacks 7 closed bars.
func (c *Context) rs30m(ticker string, nowMs int64) *float64 {
	rTicker, ok := c.sixBarReturn(ticker)
	if !ok {
		return nil
	}
	rQQQ, ok := c.sixBarReturn(c.refSecond)
	if !ok {
		return nil
	}
	v := rTicker - rQQQ
	return &v
}

func (c *Context) sixBarReturn(symbol string) (float64, bool) {
	bars := c.st.Latest(symbol, domain.TF5m, 7)
	if len(bars) < 7 {
		return 0, false
	}
	last := bars[len(bars)-1]
	sixBack := bars[len(bars)-7]
	if sixBack.Close == 0 {
		return 0, false
	}
	return last.Close/sixBack.Close - 1, true
}
