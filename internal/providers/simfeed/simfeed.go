// Package simfeed is a self-contained Provider implementation that
// synthesizes ticks and candles instead of calling a vendor API. Selected
// via PROVIDER=sim, it lets the engine run end-to-end (ingest, aggregate,
// score, serve) without external network access or credentials.
package simfeed

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"momentum-engine/internal/domain"
)

// ErrUnsupportedTimeframe is returned for a timeframe FetchCandles does
// not recognize.
var ErrUnsupportedTimeframe = errors.New("simfeed: unsupported timeframe")

// Provider generates a deterministic-looking random walk per symbol.
type Provider struct {
	seedPrice map[string]float64
	rng       *rand.Rand
}

// New constructs a simulator seeded with a starting price per symbol
// (defaulting to 100 for any symbol not listed).
func New(seedPrices map[string]float64, seed int64) *Provider {
	if seedPrices == nil {
		seedPrices = map[string]float64{}
	}
	return &Provider{seedPrice: seedPrices, rng: rand.New(rand.NewSource(seed))}
}

func (p *Provider) priceFor(symbol string) float64 {
	if v, ok := p.seedPrice[symbol]; ok {
		return v
	}
	return 100.0
}

// FetchCandles synthesizes a run of closed candles at tf's bar width
// ending at toMs, walking the price with small Gaussian steps.
func (p *Provider) FetchCandles(ctx context.Context, symbol string, tf domain.Timeframe, fromMs, toMs int64) ([]domain.Candle, error) {
	width, ok := domain.TimeframeMs(tf)
	if !ok {
		return nil, ErrUnsupportedTimeframe
	}
	start := domain.BucketStart(fromMs, tf)
	end := domain.BucketStart(toMs, tf)
	if end > toMs-width {
		end -= width // never synthesize a bar that would still be open
	}

	price := p.priceFor(symbol)
	var out []domain.Candle
	for ts := start; ts <= end; ts += width {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		default:
		}
		o := price
		h := o * (1 + math.Abs(p.rng.NormFloat64())*0.002)
		l := o * (1 - math.Abs(p.rng.NormFloat64())*0.002)
		c := l + p.rng.Float64()*(h-l)
		vol := 500 + p.rng.Float64()*5000
		out = append(out, domain.Candle{
			Symbol: symbol, Timeframe: tf, StartTs: ts,
			Open: o, High: h, Low: l, Close: c, Volume: vol,
			SessionTag: domain.SessionRTH, IsClosed: true, Source: domain.SourceREST,
		})
		price = c
	}
	return out, nil
}

// StreamTicks emits a synthetic tick per symbol roughly once a second
// until ctx is cancelled.
func (p *Provider) StreamTicks(ctx context.Context, symbols []string) (<-chan domain.Tick, error) {
	out := make(chan domain.Tick, 64)
	prices := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		prices[s] = p.priceFor(s)
	}

	go func() {
		defer close(out)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, s := range symbols {
					price := prices[s]
					price *= 1 + p.rng.NormFloat64()*0.0015
					prices[s] = price
					tick := domain.Tick{
						Symbol:     s,
						TMs:        time.Now().UnixMilli(),
						Price:      price,
						Size:       1 + p.rng.Float64()*50,
						SessionTag: domain.SessionRTH,
					}
					select {
					case out <- tick:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return out, nil
}
