package ingest

import (
	"context"
	"math/rand"
	"time"

	"momentum-engine/pkg/log"
)

const (
	backoffBase = time.Second
	backoffCap  = 30 * time.Second
)

// RunWSLoop is the long-lived WS ingest activity: it opens a tick stream
// from provider, feeds every tick through builder, and reconnects with
// full-jitter exponential backoff on disconnect until ctx is cancelled.
func RunWSLoop(ctx context.Context, provider Provider, symbols []string, builder *CandleBuilder) {
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ticks, err := provider.StreamTicks(ctx, symbols)
		if err != nil {
			log.Warn("ws ingest: stream open failed attempt=%d err=%v", attempt, err)
			if !sleepBackoff(ctx, attempt) {
				return
			}
			attempt++
			continue
		}
		attempt = 0

		for tick := range ticks {
			builder.OnTick(tick)
		}

		select {
		case <-ctx.Done():
			return
		default:
			log.Warn("ws ingest: stream closed, reconnecting")
		}
	}
}

// sleepBackoff waits base*2^attempt capped at backoffCap, with full
// jitter, returning false if ctx is cancelled first.
func sleepBackoff(ctx context.Context, attempt int) bool {
	d := backoffBase << attempt
	if d > backoffCap || d <= 0 {
		d = backoffCap
	}
	jittered := time.Duration(rand.Int63n(int64(d) + 1))
	select {
	case <-time.After(jittered):
		return true
	case <-ctx.Done():
		return false
	}
}
