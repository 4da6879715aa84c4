package scoring

import (
	"math"

	"momentum-engine/internal/domain"
	"momentum-engine/internal/indicators"
)

// replayWindow bounds how many closed 5m bars the state machine walks
// through to arrive at a current state. The transition table's FAILING/
// ACTIVE/PAUSE rows depend on the immediately preceding state, and the
// engine is specified as recomputing state from store content rather than
// persisting it across requests, so the current state is the fold of the
// table over recent history rather than a single-step evaluation.
const replayWindow = 60

// deriveState folds the transition table over the tail of candles5m,
// starting from NO_MOMO, using an approximately-fixed 15m picture
// (trend15m, structure15m, breakdown15m) held constant across the
// window. 15m bars close roughly a third as often as 5m bars, so
// re-deriving the full 15m history at every 5m step would multiply the
// replay's cost for a precision gain the table does not call for; the
// current-snapshot 15m signals are accurate for all but the oldest bars
// in the window.
func deriveState(candles5m []domain.Candle, trend15m, structure15m, breakdown15m, obv15mNonNegative bool) domain.State {
	if len(candles5m) == 0 {
		return domain.StateNoMomo
	}
	window := candles5m
	if len(window) > replayWindow {
		window = window[len(window)-replayWindow:]
	}

	closes := make([]float64, len(window))
	lows := make([]float64, len(window))
	vols := make([]float64, len(window))
	for i, c := range window {
		closes[i] = c.Close
		lows[i] = c.Low
		vols[i] = c.Volume
	}

	calc := indicators.NewCalculator()
	ema9 := calc.EMA(closes, 9)
	ema20 := calc.EMA(closes, 20)
	obvSlope := indicators.OBVSlopeSeries(closes, vols)
	priorLow20 := indicators.PriorRollingMin(lows, 20)

	state := domain.StateNoMomo
	for i := range window {
		if math.IsNaN(ema9[i]) || math.IsNaN(ema20[i]) {
			continue
		}
		c := closes[i]
		trendUp5m := c > ema9[i] && ema9[i] > ema20[i]
		aboveAnchor := c > ema20[i] // anchor fallback; VWAP is session-scoped and only evaluated at the final step by the caller
		obvConfirmStep := !math.IsNaN(obvSlope[i]) && obvSlope[i] > 0 && obv15mNonNegative
		breakdown5m := c < ema20[i] && !math.IsNaN(priorLow20[i]) && c < priorLow20[i]

		s := signals{
			trendUp5m:          trendUp5m,
			trendUp15m:         trend15m,
			structureIntact15m: structure15m,
			aboveVWAP:          aboveAnchor,
			obvConfirm:         obvConfirmStep,
			breakdown5m:        breakdown5m,
			breakdown15m:       breakdown15m,
		}
		state = nextState(state, s)
	}
	return state
}
