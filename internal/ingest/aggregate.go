package ingest

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"momentum-engine/internal/domain"
)

// aggregateWindow reduces a consecutive run of closed lower-timeframe
// candles into one higher-timeframe OHLCV bar: open of the first, close of
// the last, high/low/volume reduced across the window. The candles are
// loaded into a dataframe so the reduction is a column-wise fold rather
// than a hand-rolled accumulator, matching the "pure reduction, not a
// mutable accumulator" shape the aggregation step is built around.
func aggregateWindow(bars []domain.Candle, startTs int64, tf domain.Timeframe, src domain.Source, closed bool) domain.Candle {
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	vols := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
		vols[i] = b.Volume
	}

	df := dataframe.New(
		series.New(highs, series.Float, "high"),
		series.New(lows, series.Float, "low"),
		series.New(vols, series.Float, "volume"),
	)

	high := maxOf(df.Col("high").Float())
	low := minOf(df.Col("low").Float())
	volume := sumOf(df.Col("volume").Float())

	return domain.Candle{
		Symbol:     bars[0].Symbol,
		Timeframe:  tf,
		StartTs:    startTs,
		Open:       bars[0].Open,
		High:       high,
		Low:        low,
		Close:      bars[len(bars)-1].Close,
		Volume:     volume,
		SessionTag: majoritySession(bars),
		IsClosed:   closed,
		Source:     src,
	}
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func sumOf(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

// majoritySession picks the most frequent session tag among the
// constituent bars, breaking ties toward the tag of the last bar.
func majoritySession(bars []domain.Candle) domain.SessionTag {
	counts := make(map[domain.SessionTag]int, 3)
	for _, b := range bars {
		counts[b.SessionTag]++
	}
	best := bars[len(bars)-1].SessionTag
	bestCount := counts[best]
	for tag, c := range counts {
		if c > bestCount {
			bestCount = c
			best = tag
		}
	}
	return best
}

// consecutive1mRun reports whether bars form a strictly consecutive run of
// closed 1m candles ending exactly at endTs.
func consecutive1mRun(bars []domain.Candle, endTs int64) bool {
	if len(bars) == 0 {
		return false
	}
	if bars[len(bars)-1].StartTs != endTs {
		return false
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i-1].IsClosed || bars[i-1].Source == domain.SourceREST && !bars[i-1].IsClosed {
			return false
		}
		if bars[i].StartTs-bars[i-1].StartTs != 60_000 {
			return false
		}
	}
	return bars[len(bars)-1].IsClosed
}
