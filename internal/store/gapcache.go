package store

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/VictoriaMetrics/fastcache"
)

// gapCache memoizes CandleStore.Gaps results per (symbol, timeframe,
// window): the byte-keyed fastcache in front of the series walk turns a
// repeated gap scan into a cache hit for the common case of "nothing
// changed since the last query of this window".
type gapCache struct {
	c *fastcache.Cache
}

func newGapCache(maxBytes int) *gapCache {
	return &gapCache{c: fastcache.New(maxBytes)}
}

func gapCacheKey(symbol string, tf string, fromMs, toMs int64) []byte {
	return []byte(fmt.Sprintf("%s|%s|%d|%d", symbol, tf, fromMs, toMs))
}

func (g *gapCache) get(key []byte) ([]int64, bool) {
	raw, ok := g.c.HasGet(nil, key)
	if !ok {
		return nil, false
	}
	var out []int64
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&out); err != nil {
		return nil, false
	}
	return out, true
}

func (g *gapCache) set(key []byte, gaps []int64) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(gaps); err != nil {
		return
	}
	g.c.Set(key, buf.Bytes())
}

// invalidatePrefix drops every cached gap result, including the series'
// own; called whenever a write touches a series so a stale empty-gap
// answer never outlives a new gap.
func (g *gapCache) invalidatePrefix(symbol string, tf string) {
	// fastcache has no prefix-delete; resetting the whole cache on a write
	// is wasteful at scale but this store serves a handful of symbols, so a
	// full Reset is cheap and keeps correctness simple.
	g.c.Reset()
	_ = symbol
	_ = tf
}
