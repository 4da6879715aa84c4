package ingest

import (
	"sync/atomic"

	"momentum-engine/internal/domain"
	"momentum-engine/internal/pushhub"
	"momentum-engine/internal/store"
	"momentum-engine/pkg/log"
)

const (
	bucket1mMs  = int64(60_000)
	bucket5mMs  = int64(300_000)
	bucket15mMs = int64(900_000)
)

type openBar struct {
	startTs        int64
	open           float64
	high           float64
	low            float64
	close          float64
	volume         float64
	sessionCounts  map[domain.SessionTag]int
	lastSessionTag domain.SessionTag
}

func (b *openBar) apply(t domain.Tick) {
	if b.sessionCounts == nil {
		b.sessionCounts = make(map[domain.SessionTag]int, 3)
		b.open, b.high, b.low, b.close = t.Price, t.Price, t.Price, t.Price
	}
	if t.Price > b.high {
		b.high = t.Price
	}
	if t.Price < b.low {
		b.low = t.Price
	}
	b.close = t.Price
	b.volume += t.Size
	b.sessionCounts[t.SessionTag]++
	b.lastSessionTag = t.SessionTag
}

func (b *openBar) sessionTag() domain.SessionTag {
	best := b.lastSessionTag
	bestCount := 0
	for tag, c := range b.sessionCounts {
		if c > bestCount {
			bestCount = c
			best = tag
		}
	}
	return best
}

func (b *openBar) close_(symbol string) domain.Candle {
	return domain.Candle{
		Symbol:     symbol,
		Timeframe:  domain.TF1m,
		StartTs:    b.startTs,
		Open:       b.open,
		High:       b.high,
		Low:        b.low,
		Close:      b.close,
		Volume:     b.volume,
		SessionTag: b.sessionTag(),
		IsClosed:   true,
		Source:     domain.SourceWS,
	}
}

// CandleBuilder turns a tick stream into closed 1m candles, derived closed
// 5m candles, and an optional forming-15m candle, appending each into a
// CandleStore. A single goroutine is expected to drive OnTick per symbol;
// the builder keeps no internal locking of its own, matching the
// single-writer-per-series discipline the store itself relies on.
type CandleBuilder struct {
	st            *store.CandleStore
	hub           *pushhub.Hub
	open1m        map[string]*openBar
	enableForming bool
	droppedTicks  atomic.Int64
	committed1m   atomic.Int64
	nowMs         func() int64
}

// NewCandleBuilder constructs a builder writing into st. nowFn supplies the
// current time in epoch milliseconds (injectable for deterministic tests).
// hub may be nil, in which case closed candles are stored but never
// broadcast.
func NewCandleBuilder(st *store.CandleStore, enableForming15m bool, nowFn func() int64, hub *pushhub.Hub) *CandleBuilder {
	return &CandleBuilder{
		st:            st,
		hub:           hub,
		open1m:        make(map[string]*openBar),
		enableForming: enableForming15m,
		nowMs:         nowFn,
	}
}

func (b *CandleBuilder) publish(c domain.Candle) {
	if b.hub != nil {
		b.hub.PublishCandle(c)
	}
}

// DroppedTicks returns the running count of ticks rejected by validation.
func (b *CandleBuilder) DroppedTicks() int64 { return b.droppedTicks.Load() }

// OnTick applies one tick to its symbol's open 1m bar, closing and
// committing bars as buckets advance. Malformed or stale ticks are
// dropped and counted; OnTick never returns an error or panics.
func (b *CandleBuilder) OnTick(t domain.Tick) {
	now := b.nowMs()
	if !t.Valid(now) {
		b.droppedTicks.Add(1)
		log.Debug("builder: dropped invalid tick symbol=%s t_ms=%d price=%v", t.Symbol, t.TMs, t.Price)
		return
	}

	bucket := domain.BucketStart(t.TMs, domain.TF1m)
	bar, ok := b.open1m[t.Symbol]
	if !ok {
		nb := &openBar{startTs: bucket}
		nb.apply(t)
		b.open1m[t.Symbol] = nb
		return
	}

	switch {
	case bucket == bar.startTs:
		bar.apply(t)
	case bucket > bar.startTs:
		b.closeBar(t.Symbol, bar)
		nb := &openBar{startTs: bucket}
		nb.apply(t)
		b.open1m[t.Symbol] = nb
	default:
		if bucket < bar.startTs-bucket1mMs {
			b.droppedTicks.Add(1)
			log.Debug("builder: dropped stale tick symbol=%s t_ms=%d", t.Symbol, t.TMs)
			return
		}
		b.droppedTicks.Add(1)
	}
}

func (b *CandleBuilder) closeBar(symbol string, bar *openBar) {
	closed := bar.close_(symbol)
	if err := b.st.Append(closed); err != nil {
		log.Debug("builder: store append failed symbol=%s start_ts=%d err=%v", symbol, closed.StartTs, err)
		return
	}
	b.committed1m.Add(1)
	b.publish(closed)

	b.maybeClose5m(symbol, closed)
	if b.enableForming {
		b.maybeUpdateForming15m(symbol, closed)
	}
}

// maybeClose5m checks whether closed completes a 5m window (it is the
// fifth consecutive 1m bar ending on a 5m boundary) and, if so, reduces
// the five constituent 1m bars into one closed 5m candle. If the window is
// incomplete the 5m slot is recorded as a gap instead of synthesized.
func (b *CandleBuilder) maybeClose5m(symbol string, closed domain.Candle) {
	if closed.StartTs%bucket5mMs != bucket5mMs-bucket1mMs {
		return
	}
	windowStart := closed.StartTs - (bucket5mMs - bucket1mMs)
	recent := b.st.Latest(symbol, domain.TF1m, 5)
	if len(recent) == 5 && recent[0].StartTs == windowStart && consecutive1mRun(recent, closed.StartTs) {
		bar5m := aggregateWindow(recent, windowStart, domain.TF5m, domain.SourceAGG, true)
		if err := b.st.Append(bar5m); err != nil {
			log.Debug("builder: 5m append failed symbol=%s start_ts=%d err=%v", symbol, windowStart, err)
		} else {
			b.publish(bar5m)
		}
		return
	}
	b.st.RecordGap(symbol, domain.TF5m, windowStart)
}

// maybeUpdateForming15m recomputes the in-progress 15m candle from up to
// the last 15 consecutive closed 1m bars within the current 15m bucket.
func (b *CandleBuilder) maybeUpdateForming15m(symbol string, closed domain.Candle) {
	windowStart := domain.BucketStart(closed.StartTs, domain.TF15m)
	maxBars := int((closed.StartTs-windowStart)/bucket1mMs) + 1
	if maxBars > 15 {
		maxBars = 15
	}
	recent := b.st.Latest(symbol, domain.TF1m, maxBars)
	if len(recent) == 0 || !consecutive1mRun(recent, closed.StartTs) || recent[0].StartTs < windowStart {
		return
	}
	forming := aggregateWindow(recent, windowStart, domain.TF15m, domain.SourceAGG, false)
	if err := b.st.UpsertForming(forming); err != nil {
		log.Debug("builder: forming 15m upsert failed symbol=%s start_ts=%d err=%v", symbol, windowStart, err)
	}
}
