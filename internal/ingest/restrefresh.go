package ingest

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/time/rate"

	"momentum-engine/internal/domain"
	"momentum-engine/internal/store"
	"momentum-engine/pkg/log"
)

// restTimeframes are the higher timeframes sourced from REST rather than
// built up from ticks.
var restTimeframes = []domain.Timeframe{domain.TF15m, domain.TF1h, domain.TF4h, domain.TF1d}

const restCallTimeout = 10 * time.Second

// RunRESTRefresh is the timer-driven REST refresh activity: every
// interval it fetches the most recent closed higher-timeframe candles for
// every tracked symbol and appends them as authoritative bars. A limiter
// paces outbound calls so a wide symbol list cannot burst the provider.
func RunRESTRefresh(ctx context.Context, provider Provider, symbols []string, st *store.CandleStore, interval time.Duration, limiter *rate.Limiter) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	refreshOnce(ctx, provider, symbols, st, limiter)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refreshOnce(ctx, provider, symbols, st, limiter)
		}
	}
}

func refreshOnce(ctx context.Context, provider Provider, symbols []string, st *store.CandleStore, limiter *rate.Limiter) {
	var errs *multierror.Error
	now := time.Now().UnixMilli()

	for _, symbol := range symbols {
		for _, tf := range restTimeframes {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
			}
			if err := refreshOne(ctx, provider, st, symbol, tf, now); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	}

	if errs.ErrorOrNil() != nil {
		log.Warn("rest refresh: completed with errors: %v", errs)
	}
}

func refreshOne(ctx context.Context, provider Provider, st *store.CandleStore, symbol string, tf domain.Timeframe, now int64) error {
	callCtx, cancel := context.WithTimeout(ctx, restCallTimeout)
	defer cancel()

	width, _ := domain.TimeframeMs(tf)
	from := now - width*int64(domain.RetentionPolicy[tf])

	candles, err := provider.FetchCandles(callCtx, symbol, tf, from, now)
	if err != nil {
		return err
	}

	for _, c := range candles {
		if !c.IsClosed {
			continue
		}
		c.Source = domain.SourceREST
		if err := st.Append(c); err != nil {
			log.Debug("rest refresh: append rejected symbol=%s tf=%s start_ts=%d err=%v", symbol, tf, c.StartTs, err)
		}
	}
	return nil
}
