package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momentum-engine/internal/domain"
	"momentum-engine/internal/indicators"
	"momentum-engine/internal/store"
	"momentum-engine/internal/tape"
)

func newTestEngine() (*store.CandleStore, *Engine) {
	st := store.New()
	ind := indicators.NewEngine(st)
	tapeCtx := tape.NewContext(st, ind, "SPY", "QQQ")
	eng := NewEngine(st, ind, tapeCtx, DefaultConfig())
	return st, eng
}

func appendClosed(t *testing.T, st *store.CandleStore, symbol string, tf domain.Timeframe, startTs int64, o, h, l, c, v float64, tag domain.SessionTag) {
	t.Helper()
	require.NoError(t, st.Append(domain.Candle{
		Symbol: symbol, Timeframe: tf, StartTs: startTs,
		Open: o, High: h, Low: l, Close: c, Volume: v,
		SessionTag: tag, IsClosed: true, Source: domain.SourceWS,
	}))
}

func TestScoring_IgnoredOnThinLiquidity(t *testing.T) {
	st, eng := newTestEngine()
	base := int64(300_000)
	for i := 0; i < 25; i++ {
		price := 100.0 + float64(i)*0.1
		appendClosed(t, st, "XYZ", domain.TF5m, base+int64(i)*300_000, price, price+0.2, price-0.2, price, 400, domain.SessionRTH)
	}
	last := st.Latest("XYZ", domain.TF5m, 1)[0]
	result := eng.Score("XYZ", last.StartTs+300_000)
	assert.Equal(t, domain.SignalIgnore, result.Signal)

	found := false
	for _, a := range result.Audit {
		if a.GateName == "liquidity" {
			found = true
			assert.False(t, a.Passed)
		}
	}
	assert.True(t, found)
}

func TestScoring_HoldsWhenStale(t *testing.T) {
	st, eng := newTestEngine()
	// Enough volume and history to clear the liquidity gate, so a stale
	// freshness check is what actually decides the outcome.
	appendClosed(t, st, "XYZ", domain.TF5m, 300_000, 100, 101, 99, 100, 50_000, domain.SessionRTH)
	appendClosed(t, st, "XYZ", domain.TF5m, 600_000, 100, 101, 99, 100, 50_000, domain.SessionRTH)

	result := eng.Score("XYZ", 600_000+1_000_000_000)
	assert.Equal(t, domain.SignalHold, result.Signal)
	assert.NotEmpty(t, result.MissingTfs)
}

func TestScoring_NoDataReturnsConservativeHold(t *testing.T) {
	_, eng := newTestEngine()
	result := eng.Score("NEW", 1_000_000)
	assert.Contains(t, []domain.Signal{domain.SignalHold, domain.SignalIgnore}, result.Signal)
}

// sharedClockTs anchors every fixture below to the same wall-clock point so
// a single nowMs can satisfy freshness on both the 5m and 15m series at
// once (their StartTs values are multiples of their own bucket width that
// happen to coincide at sharedClockTs).
const sharedClockTs = int64(900_000_000)

// buildUptrendTicker appends a steady, low-slope uptrend on both 5m and
// 15m: EMA9 stays above EMA20, price stays above both, and OBV trends up
// with it, which is enough for the state replay to settle on ACTIVE and
// for the no-chase gate to clear (EMA lag is tiny relative to ATR here).
func buildUptrendTicker(t *testing.T, st *store.CandleStore, symbol string) {
	t.Helper()
	for i := 0; i < 40; i++ {
		startTs := sharedClockTs - int64(39-i)*300_000
		close := 100 + float64(i)*0.05
		appendClosed(t, st, symbol, domain.TF5m, startTs, close-0.05, close+1.0, close-1.0, close, 50_000, domain.SessionEXT)
	}
	for j := 0; j < 20; j++ {
		startTs := sharedClockTs - int64(19-j)*900_000
		close := 100 + float64(j)*0.15
		appendClosed(t, st, symbol, domain.TF15m, startTs, close-0.15, close+1.5, close-1.5, close, 80_000, domain.SessionEXT)
	}
}

// buildRisingRef gives a reference instrument's 15m series a steady uptrend
// so it never prints the below-EMA20-with-lower-lows pattern the tape
// reads as risk-off.
func buildRisingRef(t *testing.T, st *store.CandleStore, symbol string, base float64) {
	t.Helper()
	for j := 0; j < 20; j++ {
		startTs := sharedClockTs - int64(19-j)*900_000
		close := base + float64(j)*0.2
		appendClosed(t, st, symbol, domain.TF15m, startTs, close-0.2, close+1.5, close-1.5, close, 100_000, domain.SessionEXT)
	}
}

// buildDecliningRef is buildRisingRef's mirror: a steady downtrend that
// does print three consecutive lower lows below EMA20(15m).
func buildDecliningRef(t *testing.T, st *store.CandleStore, symbol string, base float64) {
	t.Helper()
	for j := 0; j < 20; j++ {
		startTs := sharedClockTs - int64(19-j)*900_000
		close := base - float64(j)*0.2
		appendClosed(t, st, symbol, domain.TF15m, startTs, close+0.2, close+1.5, close-1.5, close, 100_000, domain.SessionEXT)
	}
}

func TestScoring_BuyOnActiveUptrendWithSupportiveTape(t *testing.T) {
	st, eng := newTestEngine()
	buildUptrendTicker(t, st, "MOM")
	buildRisingRef(t, st, "SPY", 450)
	buildRisingRef(t, st, "QQQ", 380)

	result := eng.Score("MOM", sharedClockTs+1_000)

	assert.Equal(t, domain.SignalBuy, result.Signal)
	assert.Equal(t, domain.StateActive, result.State)
	require.NotNil(t, result.EntryRange)
	require.NotNil(t, result.Stop)
}

func TestScoring_NoChaseBlocksDistantEntry(t *testing.T) {
	st, eng := newTestEngine()
	base := sharedClockTs - 39*300_000
	for i := 0; i < 39; i++ {
		startTs := base + int64(i)*300_000
		appendClosed(t, st, "XYZ", domain.TF5m, startTs, 98, 98.2, 97.8, 98, 50_000, domain.SessionRTH)
	}
	// The 40th bar jumps well above the VWAP anchor the 39 flat bars
	// before it built up, while its own high-low range stays small, so
	// ATR14(5m) stays well under a quarter of the distance: the distance
	// clears 2*ATR14(5m).
	lastStart := base + 39*300_000
	appendClosed(t, st, "XYZ", domain.TF5m, lastStart, 98, 102.2, 101.8, 102, 50_000, domain.SessionRTH)

	result := eng.Score("XYZ", lastStart+1_000)

	assert.Equal(t, domain.SignalHold, result.Signal)
	found := false
	for _, a := range result.Audit {
		if a.GateName == "no_chase" {
			found = true
			assert.False(t, a.Passed)
		}
	}
	assert.True(t, found, "expected a no_chase audit entry")
}

func TestScoring_HoldsOnRiskOffTapeWithoutRS(t *testing.T) {
	st, eng := newTestEngine()
	buildUptrendTicker(t, st, "MOM")
	buildDecliningRef(t, st, "SPY", 450)
	buildDecliningRef(t, st, "QQQ", 380)
	// No 5m history for QQQ is seeded, so rs_30m cannot be computed; the
	// tape gate fails on missing RS during risk-off, the same conservative
	// outcome an insufficient RS would produce.

	result := eng.Score("MOM", sharedClockTs+1_000)

	assert.Equal(t, domain.SignalHold, result.Signal)
	found := false
	for _, a := range result.Audit {
		if a.GateName == "tape" {
			found = true
			assert.False(t, a.Passed)
		}
	}
	assert.True(t, found, "expected a tape audit entry")
}

// TestScoring_BreakdownAcrossPriorLowTriggersExit exercises the bar whose
// low sits below every one of the 20 bars before it: PriorRollingMin must
// exclude that bar from its own window for the breakdown to be detected at
// all, since otherwise the window's minimum is always the bar's own low.
func TestScoring_BreakdownAcrossPriorLowTriggersExit(t *testing.T) {
	st, eng := newTestEngine()

	for i := 0; i < 40; i++ {
		startTs := sharedClockTs - int64(39-i)*300_000
		var close, high, low, vol float64
		if i < 30 {
			close = 100 + float64(i)*0.1
			high, low, vol = close+1.0, close-1.0, 50_000
		} else {
			close = 102.9 - float64(i-29)*2.0
			high, low, vol = close+0.5, close-0.5, 80_000
		}
		appendClosed(t, st, "MOM", domain.TF5m, startTs, close, high, low, close, vol, domain.SessionEXT)
	}
	for j := 0; j < 20; j++ {
		startTs := sharedClockTs - int64(19-j)*900_000
		var close, high, low float64
		if j < 15 {
			close = 100 + float64(j)*0.3
			high, low = close+1.0, close-1.0
		} else {
			close = 104.2 - float64(j-14)*3.0
			high, low = close+0.8, close-0.8
		}
		appendClosed(t, st, "MOM", domain.TF15m, startTs, close, high, low, close, 90_000, domain.SessionEXT)
	}

	result := eng.Score("MOM", sharedClockTs+1_000)

	assert.Equal(t, domain.SignalExit, result.Signal)
	assert.Equal(t, domain.StateFailed, result.State)
}
