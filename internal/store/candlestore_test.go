package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momentum-engine/internal/domain"
)

func closedCandle(symbol string, tf domain.Timeframe, startTs int64, src domain.Source) domain.Candle {
	return domain.Candle{
		Symbol:    symbol,
		Timeframe: tf,
		StartTs:   startTs,
		Open:      100,
		High:      101,
		Low:       99,
		Close:     100.5,
		Volume:    1000,
		IsClosed:  true,
		Source:    src,
	}
}

func TestCandleStore_AppendNormalPath(t *testing.T) {
	cs := New()
	c1 := closedCandle("AAPL", domain.TF1m, 60_000, domain.SourceWS)
	c2 := closedCandle("AAPL", domain.TF1m, 120_000, domain.SourceWS)

	require.NoError(t, cs.Append(c1))
	require.NoError(t, cs.Append(c2))

	got := cs.Latest("AAPL", domain.TF1m, 10)
	require.Len(t, got, 2)
	assert.Equal(t, int64(60_000), got[0].StartTs)
	assert.Equal(t, int64(120_000), got[1].StartTs)
}

func TestCandleStore_RejectsPartialRest(t *testing.T) {
	cs := New()
	c := domain.Candle{Symbol: "AAPL", Timeframe: domain.TF15m, StartTs: 900_000, Source: domain.SourceREST, IsClosed: false}
	err := cs.Append(c)
	assert.ErrorIs(t, err, ErrPartialRest)
}

func TestCandleStore_DetectsGap(t *testing.T) {
	cs := New()
	require.NoError(t, cs.Append(closedCandle("AAPL", domain.TF1m, 60_000, domain.SourceWS)))
	// skip 120_000
	require.NoError(t, cs.Append(closedCandle("AAPL", domain.TF1m, 180_000, domain.SourceWS)))

	gaps := cs.Gaps("AAPL", domain.TF1m, 0, 300_000)
	require.Len(t, gaps, 1)
	assert.Equal(t, int64(120_000), gaps[0])
}

func TestCandleStore_RestBackfillReplacesInPlace(t *testing.T) {
	cs := New()
	require.NoError(t, cs.Append(closedCandle("AAPL", domain.TF15m, 900_000, domain.SourceREST)))
	require.NoError(t, cs.Append(closedCandle("AAPL", domain.TF15m, 1_800_000, domain.SourceREST)))

	// skip 2_700_000 first, then backfill it with an older REST bar.
	require.NoError(t, cs.Append(closedCandle("AAPL", domain.TF15m, 3_600_000, domain.SourceREST)))
	gaps := cs.Gaps("AAPL", domain.TF15m, 0, 4_000_000)
	require.Contains(t, gaps, int64(2_700_000))

	backfill := closedCandle("AAPL", domain.TF15m, 2_700_000, domain.SourceREST)
	backfill.Close = 222
	require.NoError(t, cs.Append(backfill))

	all := cs.All("AAPL", domain.TF15m)
	require.Len(t, all, 4)
	assert.Equal(t, 222.0, all[2].Close)

	gaps = cs.Gaps("AAPL", domain.TF15m, 0, 4_000_000)
	assert.NotContains(t, gaps, int64(2_700_000))
}

func TestCandleStore_StaleNonRestRejected(t *testing.T) {
	cs := New()
	require.NoError(t, cs.Append(closedCandle("AAPL", domain.TF1m, 120_000, domain.SourceWS)))
	err := cs.Append(closedCandle("AAPL", domain.TF1m, 60_000, domain.SourceWS))
	assert.ErrorIs(t, err, ErrStaleCandle)
}

func TestCandleStore_EvictsFIFOPastRetention(t *testing.T) {
	cs := New()
	retained := domain.RetentionPolicy[domain.TF1m]
	for i := 0; i < retained+10; i++ {
		require.NoError(t, cs.Append(closedCandle("AAPL", domain.TF1m, int64(i+1)*60_000, domain.SourceWS)))
	}
	all := cs.All("AAPL", domain.TF1m)
	assert.Len(t, all, retained)
	assert.Equal(t, int64(11)*60_000, all[0].StartTs)
}

func TestCandleStore_UpsertFormingReplacesTail(t *testing.T) {
	cs := New()
	forming := domain.Candle{Symbol: "AAPL", Timeframe: domain.TF15m, StartTs: 900_000, Open: 10, High: 11, Low: 9, Close: 10.5, Source: domain.SourceAGG, IsClosed: false}
	require.NoError(t, cs.UpsertForming(forming))

	forming.Close = 10.9
	forming.High = 11.2
	require.NoError(t, cs.UpsertForming(forming))

	all := cs.All("AAPL", domain.TF15m)
	require.Len(t, all, 1)
	assert.Equal(t, 10.9, all[0].Close)
	assert.False(t, all[0].IsClosed)
}

func TestCandleStore_Freshness(t *testing.T) {
	cs := New()
	assert.Equal(t, domain.FreshnessMissing, cs.Freshness("AAPL", domain.TF1m, 1_000_000))

	require.NoError(t, cs.Append(closedCandle("AAPL", domain.TF1m, 600_000, domain.SourceWS)))
	assert.Equal(t, domain.FreshnessFresh, cs.Freshness("AAPL", domain.TF1m, 660_000))
	assert.Equal(t, domain.FreshnessStale, cs.Freshness("AAPL", domain.TF1m, 10_000_000))
}
