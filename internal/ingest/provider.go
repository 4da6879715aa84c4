// Package ingest turns a Provider's ticks and REST candles into store
// writes: CandleBuilder for the tick path, plus the long-lived WS and REST
// refresh loops that drive it.
package ingest

import (
	"context"

	"momentum-engine/internal/domain"
)

// Provider is the abstract market-data capability the engine consumes.
// Concrete adapters (vendor REST/WS clients, or the bundled simulator) are
// selected at startup from configuration; this package never imports a
// concrete adapter.
type Provider interface {
	// FetchCandles returns only closed candles for (symbol, tf) in
	// [fromMs, toMs]. Any non-closed candle in the provider's response is
	// discarded by the caller, never returned here.
	FetchCandles(ctx context.Context, symbol string, tf domain.Timeframe, fromMs, toMs int64) ([]domain.Candle, error)

	// StreamTicks opens (or re-opens) a WS session, subscribes to symbols,
	// and sends parsed ticks on the returned channel until ctx is
	// cancelled or an unrecoverable error occurs, in which case the
	// channel is closed and the error returned.
	StreamTicks(ctx context.Context, symbols []string) (<-chan domain.Tick, error)
}
