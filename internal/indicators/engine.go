package indicators

import (
	"math"
	"time"

	cindicator "github.com/cinar/indicator"

	"momentum-engine/internal/domain"
	"momentum-engine/internal/store"
)

// Engine computes a fixed IndicatorSet per (symbol, timeframe) from a
// CandleStore. It holds no state of its own beyond the Calculator it
// delegates the core recurrences to; every Compute call is a pure
// function of the store's current content.
type Engine struct {
	st   *store.CandleStore
	calc *Calculator
}

// NewEngine constructs an Engine reading from st.
func NewEngine(st *store.CandleStore) *Engine {
	return &Engine{st: st, calc: NewCalculator()}
}

func ptr(v float64) *float64 { return &v }

// OBVSlopeSeries returns, for every index i >= 9, the scale-free OBV
// slope over the window [i-9, i] (NaN before that). Exposed for the
// scoring engine's bar-by-bar state replay, which needs the same
// recurrence indicators.Engine uses internally for a single point in
// time evaluated at every step of a short history window.
func OBVSlopeSeries(closes, volumes []float64) []float64 {
	n := len(closes)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	if n == 0 {
		return out
	}
	calc := NewCalculator()
	obv := cindicator.Obv(closes, volumes)
	for i := 9; i < n; i++ {
		out[i] = calc.ScaleFreeSlope(obv[i-9 : i+1])
	}
	return out
}

// PriorRollingMin returns, for every index i, the minimum value over up to
// period bars strictly preceding i — [max(0,i-period), i-1] — excluding the
// current bar itself, NaN where no prior bar exists (i == 0). Mirrors
// priorHighLow20's current-bar exclusion for a bar-by-bar series instead of
// a single latest-point read.
func PriorRollingMin(xs []float64, period int) []float64 {
	out := make([]float64, len(xs))
	for i := range out {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		lo := i - period
		if lo < 0 {
			lo = 0
		}
		window := xs[lo:i]
		m := window[0]
		for _, v := range window[1:] {
			if v < m {
				m = v
			}
		}
		out[i] = m
	}
	return out
}

// Compute returns the indicator set for (symbol, tf) as of nowMs. Fields
// that do not apply to tf, or whose inputs are insufficient, are left nil
// rather than zero-filled.
func (e *Engine) Compute(symbol string, tf domain.Timeframe, nowMs int64) domain.IndicatorSet {
	out := domain.IndicatorSet{Symbol: symbol, Timeframe: tf}

	closed := closedOnly(e.st.All(symbol, tf))
	if len(closed) == 0 {
		return out
	}

	closes := closesOf(closed)

	switch tf {
	case domain.TF1m, domain.TF5m, domain.TF15m:
		out.EMA9 = lastEMA(e.calc, closes, 9)
		out.EMA20 = lastEMA(e.calc, closes, 20)
	}
	switch tf {
	case domain.TF15m, domain.TF1h, domain.TF1d:
		out.EMA50 = lastEMA(e.calc, closes, 50)
		out.EMA200 = lastEMA(e.calc, closes, 200)
	}

	if tf == domain.TF5m {
		out.VWAP = e.sessionVWAP(closed, nowMs)
	}

	if tf == domain.TF5m || tf == domain.TF15m {
		out.PriorHigh20, out.PriorLow20 = priorHighLow20(closed)
		out.ATR14 = lastATR14(e.calc, closed)
		out.OBVSlope = obvSlope(e.calc, closed)
		relVol, thin := relVolume(e.calc, closed, tf)
		out.RelVol = relVol
		out.ThinVolume = thin
	}

	return out
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

func closesOf(candles []domain.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func lastEMA(calc *Calculator, closes []float64, period int) *float64 {
	if len(closes) < period {
		return nil
	}
	series := calc.EMA(closes, period)
	if len(series) == 0 {
		return nil
	}
	v := series[len(series)-1]
	if !calc.IsValidNumber(v) {
		return nil
	}
	return ptr(v)
}

// sessionVWAP computes cumulative typical-price VWAP over RTH-tagged bars
// of the calendar day containing nowMs. Missing if no RTH bars fall in
// that window.
func (e *Engine) sessionVWAP(closed []domain.Candle, nowMs int64) *float64 {
	dayStart := time.UnixMilli(nowMs).UTC().Truncate(24 * time.Hour).UnixMilli()

	var prices, vols []float64
	for _, c := range closed {
		if c.SessionTag != domain.SessionRTH || c.StartTs < dayStart {
			continue
		}
		prices = append(prices, c.TypicalPrice())
		vols = append(vols, c.Volume)
	}
	if len(prices) == 0 {
		return nil
	}
	series := e.calc.VWAP(prices, vols)
	if len(series) == 0 {
		return nil
	}
	return ptr(series[len(series)-1])
}

// priorHighLow20 returns the max high / min low over up to the 20 closed
// candles preceding the most recent one.
func priorHighLow20(closed []domain.Candle) (*float64, *float64) {
	if len(closed) < 2 {
		return nil, nil
	}
	prior := closed[:len(closed)-1]
	if len(prior) > 20 {
		prior = prior[len(prior)-20:]
	}
	hi, lo := prior[0].High, prior[0].Low
	for _, c := range prior[1:] {
		if c.High > hi {
			hi = c.High
		}
		if c.Low < lo {
			lo = c.Low
		}
	}
	return ptr(hi), ptr(lo)
}

func lastATR14(calc *Calculator, closed []domain.Candle) *float64 {
	if len(closed) < 15 {
		return nil
	}
	highs := make([]float64, len(closed))
	lows := make([]float64, len(closed))
	closes := make([]float64, len(closed))
	for i, c := range closed {
		highs[i], lows[i], closes[i] = c.High, c.Low, c.Close
	}
	series := calc.ATR(highs, lows, closes, 14)
	if len(series) == 0 {
		return nil
	}
	v := series[len(series)-1]
	if !calc.IsValidNumber(v) {
		return nil
	}
	return ptr(v)
}

// obvSlope computes the OBV recurrence over the full closed series and
// returns the least-squares slope of the last 10 points, scaled by the
// mean absolute OBV value over that window so the result is scale-free.
// Missing until 10 OBV points exist (i.e. 10 closed candles).
func obvSlope(calc *Calculator, closed []domain.Candle) *float64 {
	if len(closed) < 10 {
		return nil
	}
	closes := make([]float64, len(closed))
	volumes := make([]float64, len(closed))
	for i, c := range closed {
		closes[i], volumes[i] = c.Close, c.Volume
	}
	obv := cindicator.Obv(closes, volumes)
	return ptr(calc.ScaleFreeSlope(obv[len(obv)-10:]))
}

// relVolume compares the most recent bar's volume against the mean volume
// of up to 20 prior bars sharing the same time-of-day slot; falls back to
// the mean of the last 20 bars overall when no same-slot history exists.
func relVolume(calc *Calculator, closed []domain.Candle, tf domain.Timeframe) (*float64, bool) {
	if len(closed) < 2 {
		return nil, false
	}
	current := closed[len(closed)-1]
	prior := closed[:len(closed)-1]

	slot := current.StartTs % (24 * 60 * 60 * 1000)

	var sameSlot []float64
	for _, c := range prior {
		if c.StartTs%(24*60*60*1000) == slot {
			sameSlot = append(sameSlot, c.Volume)
		}
	}

	var baseline []float64
	if len(sameSlot) > 0 {
		if len(sameSlot) > 20 {
			sameSlot = sameSlot[len(sameSlot)-20:]
		}
		baseline = sameSlot
	} else {
		tail := prior
		if len(tail) > 20 {
			tail = tail[len(tail)-20:]
		}
		baseline = make([]float64, len(tail))
		for i, c := range tail {
			baseline[i] = c.Volume
		}
	}
	if len(baseline) == 0 {
		return nil, false
	}

	// SMA over the whole baseline collapses to its mean; reusing it keeps
	// the "average volume" computation in one place (Calculator) instead
	// of a second hand-rolled sum/len here.
	mean := calc.SMA(baseline, len(baseline))[len(baseline)-1]
	if !calc.IsValidNumber(mean) || mean == 0 {
		return nil, false
	}

	relVol := current.Volume / mean
	thin := tf == domain.TF5m && relVol < 0.5
	return ptr(relVol), thin
}
