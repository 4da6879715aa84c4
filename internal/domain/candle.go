package domain

// Timeframe is a discrete bar width supported by the candle store.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

// Source identifies which pipeline stage produced a candle.
type Source string

const (
	SourceWS   Source = "WS"
	SourceREST Source = "REST"
	SourceAGG  Source = "AGG"
)

// TimeframeMs returns the bar width of tf in milliseconds, and false if tf is
// not one of the six supported timeframes.
func TimeframeMs(tf Timeframe) (int64, bool) {
	switch tf {
	case TF1m:
		return 60_000, true
	case TF5m:
		return 300_000, true
	case TF15m:
		return 900_000, true
	case TF1h:
		return 3_600_000, true
	case TF4h:
		return 14_400_000, true
	case TF1d:
		return 86_400_000, true
	default:
		return 0, false
	}
}

// RetentionPolicy is the maximum number of candles retained per timeframe.
var RetentionPolicy = map[Timeframe]int{
	TF1m:  240,
	TF5m:  240,
	TF15m: 200,
	TF1h:  200,
	TF4h:  200,
	TF1d:  400,
}

// AllTimeframes lists the six supported timeframes in ascending width order.
var AllTimeframes = []Timeframe{TF1m, TF5m, TF15m, TF1h, TF4h, TF1d}

// BucketStart aligns tMs down to the start of its tf bucket.
func BucketStart(tMs int64, tf Timeframe) int64 {
	width, ok := TimeframeMs(tf)
	if !ok || width <= 0 {
		return tMs
	}
	return (tMs / width) * width
}

// Candle is a single OHLCV bar for (symbol, timeframe) starting at StartTs.
type Candle struct {
	Symbol     string     `json:"symbol"`
	Timeframe  Timeframe  `json:"timeframe"`
	StartTs    int64      `json:"start_ts"`
	Open       float64    `json:"open"`
	High       float64    `json:"high"`
	Low        float64    `json:"low"`
	Close      float64    `json:"close"`
	Volume     float64    `json:"volume"`
	SessionTag SessionTag `json:"session_tag"`
	IsClosed   bool       `json:"is_closed"`
	Source     Source     `json:"source"`
}

// TypicalPrice returns (h+l+c)/3, used by VWAP.
func (c Candle) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3
}

// Valid checks the OHLC and alignment invariants a candle must satisfy
// before it is accepted by the store.
func (c Candle) Valid(nowMs int64) bool {
	width, ok := TimeframeMs(c.Timeframe)
	if !ok {
		return false
	}
	if c.StartTs%width != 0 {
		return false
	}
	lo := c.Open
	if c.Close < lo {
		lo = c.Close
	}
	hi := c.Open
	if c.Close > hi {
		hi = c.Close
	}
	if c.Low > lo || hi > c.High {
		return false
	}
	if c.StartTs > nowMs && c.IsClosed {
		return false
	}
	if c.Volume < 0 {
		return false
	}
	if c.Source == SourceREST && !c.IsClosed {
		// Partial REST bars are rejected by the store, but a candle built
		// this way is never valid on its own terms either.
		return false
	}
	return true
}
