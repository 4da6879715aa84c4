package scoring

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"momentum-engine/internal/domain"
)

// gateOutcome bundles a hard gate's pass/fail with its audit line.
type gateOutcome struct {
	entry domain.AuditEntry
	pass  bool
}

func gate(name string, pass bool, detail string) gateOutcome {
	entry := domain.AuditEntry{ID: uuid.NewString(), GateName: name, Passed: pass, Detail: detail}
	return gateOutcome{entry: entry, pass: pass}
}

// liquidityGate requires RelVol >= 0.5 on 5m and average 5m dollar-volume
// over the last 20 bars to clear the configured floor.
func liquidityGate(ind5m domain.IndicatorSet, candles5m []domain.Candle, floorUSD float64) gateOutcome {
	relVol, ok := ind5m.Get("RelVol")
	if !ok {
		return gate("liquidity", false, "relvol unavailable")
	}
	avgDollarVol := avgDollarVolume(candles5m, 20)
	pass := relVol >= 0.5 && avgDollarVol >= floorUSD
	detail := fmt.Sprintf("relvol=%.2f avg_dollar_vol=%.0f floor=%.0f", relVol, avgDollarVol, floorUSD)
	return gate("liquidity", pass, detail)
}

func avgDollarVolume(candles5m []domain.Candle, n int) float64 {
	if len(candles5m) == 0 {
		return 0
	}
	window := candles5m
	if len(window) > n {
		window = window[len(window)-n:]
	}
	var sum float64
	for _, c := range window {
		sum += c.Close * c.Volume
	}
	return sum / float64(len(window))
}

func structureGate(structureIntact15m bool) gateOutcome {
	return gate("structure", structureIntact15m, fmt.Sprintf("structure_intact_15m=%v", structureIntact15m))
}

// noChaseGate requires the current price to be within 2*ATR14(5m) of the
// anchor (VWAP, or EMA20(5m) fallback).
func noChaseGate(close, anchor float64, atr5m float64) gateOutcome {
	dist := math.Abs(close - anchor)
	limit := 2 * atr5m
	pass := dist <= limit
	return gate("no_chase", pass, fmt.Sprintf("dist=%.4f limit=%.4f", dist, limit))
}

// tapeGate requires RS_30m >= +0.5%% whenever the tape is risk-off; fails
// outright if risk-off state is unknown.
func tapeGate(tape domain.TapeSnapshot) gateOutcome {
	if tape.MarketRiskOff == domain.RiskUnknown {
		return gate("tape", false, "risk_off unknown")
	}
	if tape.MarketRiskOff == domain.RiskOff {
		if tape.RS30m == nil {
			return gate("tape", false, "risk_off with rs_30m missing")
		}
		pass := *tape.RS30m >= 0.005
		return gate("tape", pass, fmt.Sprintf("risk_off rs_30m=%.4f", *tape.RS30m))
	}
	return gate("tape", true, "risk_on")
}

func freshnessGate(f5m, f15m domain.Freshness) gateOutcome {
	pass := f5m == domain.FreshnessFresh && f15m == domain.FreshnessFresh
	return gate("freshness", pass, fmt.Sprintf("5m=%s 15m=%s", f5m, f15m))
}

// anchorFor returns VWAP(5m) when present, else EMA20(5m).
func anchorFor(ind5m domain.IndicatorSet) (float64, bool) {
	if v, ok := ind5m.Get("VWAP"); ok {
		return v, true
	}
	return ind5m.Get("EMA20")
}
