package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momentum-engine/internal/domain"
	"momentum-engine/internal/store"
)

func seedCloses(t *testing.T, st *store.CandleStore, symbol string, tf domain.Timeframe, startTs int64, stepMs int64, closes []float64) {
	t.Helper()
	for i, c := range closes {
		candle := domain.Candle{
			Symbol:     symbol,
			Timeframe:  tf,
			StartTs:    startTs + int64(i)*stepMs,
			Open:       c,
			High:       c + 0.5,
			Low:        c - 0.5,
			Close:      c,
			Volume:     1000 + float64(i)*10,
			SessionTag: domain.SessionRTH,
			IsClosed:   true,
			Source:     domain.SourceWS,
		}
		require.NoError(t, st.Append(candle))
	}
}

func TestEngine_EMAMissingBeforeEnoughCloses(t *testing.T) {
	st := store.New()
	seedCloses(t, st, "AAPL", domain.TF5m, 300_000, 300_000, []float64{100, 101, 102, 103})

	eng := NewEngine(st)
	ind := eng.Compute("AAPL", domain.TF5m, 2_000_000)
	assert.Nil(t, ind.EMA9)
}

func TestEngine_EMAPresentAtExactPeriod(t *testing.T) {
	st := store.New()
	closes := make([]float64, 9)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	seedCloses(t, st, "AAPL", domain.TF5m, 300_000, 300_000, closes)

	eng := NewEngine(st)
	ind := eng.Compute("AAPL", domain.TF5m, 10_000_000)
	require.NotNil(t, ind.EMA9)
	expectedSMA := (100.0 + 101 + 102 + 103 + 104 + 105 + 106 + 107 + 108) / 9.0
	assert.InDelta(t, expectedSMA, *ind.EMA9, 1e-9)
}

func TestEngine_ATR14MissingBeforeFifteenCloses(t *testing.T) {
	st := store.New()
	closes := make([]float64, 14)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	seedCloses(t, st, "AAPL", domain.TF5m, 300_000, 300_000, closes)

	eng := NewEngine(st)
	ind := eng.Compute("AAPL", domain.TF5m, 10_000_000)
	assert.Nil(t, ind.ATR14)
}

func TestEngine_PriorHighLowExcludesCurrentBar(t *testing.T) {
	st := store.New()
	closes := []float64{100, 101, 102}
	seedCloses(t, st, "AAPL", domain.TF5m, 300_000, 300_000, closes)
	// bump the last bar's high well above the rest (a closed REST bar
	// replaces the existing slot in place)
	require.NoError(t, st.Append(domain.Candle{
		Symbol: "AAPL", Timeframe: domain.TF5m, StartTs: 300_000 + 2*300_000,
		Open: 102, High: 500, Low: 101, Close: 102, Volume: 1000,
		IsClosed: true, Source: domain.SourceREST,
	}))

	eng := NewEngine(st)
	ind := eng.Compute("AAPL", domain.TF5m, 10_000_000)
	require.NotNil(t, ind.PriorHigh20)
	assert.Less(t, *ind.PriorHigh20, 500.0)
}

func TestPriorRollingMin_ExcludesCurrentBar(t *testing.T) {
	lows := []float64{10, 9, 8, 7, 1}
	out := PriorRollingMin(lows, 20)

	require.Len(t, out, len(lows))
	require.True(t, math.IsNaN(out[0]), "no bar precedes index 0")
	// the minimum over bars preceding the last one excludes its own low of 1
	assert.Equal(t, 7.0, out[len(out)-1])
}

func TestEngine_OBVSlopePositiveForRisingCloses(t *testing.T) {
	st := store.New()
	closes := make([]float64, 10)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	seedCloses(t, st, "AAPL", domain.TF5m, 300_000, 300_000, closes)

	eng := NewEngine(st)
	ind := eng.Compute("AAPL", domain.TF5m, 10_000_000)
	require.NotNil(t, ind.OBVSlope)
	assert.Greater(t, *ind.OBVSlope, 0.0)
}
