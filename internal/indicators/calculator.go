package indicators

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Calculator wraps gonum/stat in the handful of recurrences the indicator
// engine needs (EMA, SMA, ATR, VWAP, scale-free regression slope) and the
// small validation/sanitization helpers those recurrences share.
type Calculator struct {
	// zeroFloor is the magnitude below which a division denominator (mean
	// |OBV|, cumulative volume) is treated as zero rather than
	// risking a near-infinite ratio from floating-point noise.
	zeroFloor float64
}

// NewCalculator builds a Calculator with the precision floor indicator
// math in this package is tuned against.
func NewCalculator() *Calculator {
	return &Calculator{zeroFloor: 1e-10}
}

// EMA returns the exponential moving average of prices over period,
// seeded with the simple average of the first window; NaN before the
// window fills. A period longer than the series is clamped to the
// series length so short warm-up histories still produce a trailing
// value instead of an all-NaN series.
func (c *Calculator) EMA(prices []float64, period int) []float64 {
	if len(prices) == 0 || period <= 0 {
		return []float64{}
	}
	if period > len(prices) {
		period = len(prices)
	}

	out := make([]float64, len(prices))
	for i := 0; i < period-1; i++ {
		out[i] = math.NaN()
	}
	out[period-1] = stat.Mean(prices[:period], nil)

	k := 2.0 / float64(period+1)
	for i := period; i < len(prices); i++ {
		out[i] = prices[i]*k + out[i-1]*(1-k)
	}
	return out
}

// SMA returns the simple moving average of prices over period via
// gonum's windowed mean; NaN before the window fills.
func (c *Calculator) SMA(prices []float64, period int) []float64 {
	if len(prices) == 0 || period <= 0 {
		return []float64{}
	}

	out := make([]float64, len(prices))
	for i := 0; i < period-1; i++ {
		out[i] = math.NaN()
	}
	for i := period - 1; i < len(prices); i++ {
		out[i] = stat.Mean(prices[i-period+1:i+1], nil)
	}
	return out
}

// ATR returns Wilder's Average True Range: a simple average of the first
// period true ranges, then an exponentially smoothed recurrence with
// alpha = 1/period over the remainder. NaN before the first window fills.
func (c *Calculator) ATR(high, low, close []float64, period int) []float64 {
	n := len(high)
	if n == 0 || len(low) != n || len(close) != n || period <= 0 {
		return []float64{}
	}
	if n < period+1 {
		out := make([]float64, n)
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	trueRange := make([]float64, n-1)
	for i := 1; i < n; i++ {
		trueRange[i-1] = math.Max(high[i]-low[i], math.Max(math.Abs(high[i]-close[i-1]), math.Abs(low[i]-close[i-1])))
	}

	out := make([]float64, n)
	for i := 0; i <= period; i++ {
		out[i] = math.NaN()
	}
	out[period] = stat.Mean(trueRange[:period], nil)

	alpha := 1.0 / float64(period)
	for i := period + 1; i < n; i++ {
		out[i] = alpha*trueRange[i-1] + (1-alpha)*out[i-1]
	}
	return out
}

// VWAP returns the cumulative volume-weighted average of prices (already
// typical-price values, not raw closes) seeded per-volume-bar; falls back
// to the bare price wherever cumulative volume hasn't cleared zeroFloor.
func (c *Calculator) VWAP(prices, volumes []float64) []float64 {
	if len(prices) == 0 || len(prices) != len(volumes) {
		return []float64{}
	}

	out := make([]float64, len(prices))
	var cumPV, cumVol float64
	for i, p := range prices {
		cumPV += p * volumes[i]
		cumVol += volumes[i]
		if cumVol > c.zeroFloor {
			out[i] = cumPV / cumVol
		} else {
			out[i] = p
		}
	}
	return out
}

// ScaleFreeSlope fits a least-squares line against series (indexed 0..n-1)
// and returns the slope divided by the mean absolute value of series,
// so the result is comparable across symbols whose raw magnitude (OBV,
// price level) differs by orders of magnitude. Returns 0 when the series
// is flat at zero.
func (c *Calculator) ScaleFreeSlope(series []float64) float64 {
	n := len(series)
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, series, nil, false)

	var meanAbs float64
	for _, v := range series {
		meanAbs += math.Abs(v)
	}
	meanAbs /= float64(n)
	if meanAbs <= c.zeroFloor {
		return 0
	}
	return slope / meanAbs
}

// IsValidNumber reports whether v is usable in further arithmetic (not
// NaN, not +/-Inf).
func (c *Calculator) IsValidNumber(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// HandleNaN replaces every NaN in values with fallback, leaving other
// values (including Inf) untouched.
func (c *Calculator) HandleNaN(values []float64, fallback float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = fallback
		} else {
			out[i] = v
		}
	}
	return out
}

// ValidateInputs checks the common preconditions (non-empty series,
// positive period not exceeding series length) shared by EMA/SMA/ATR
// callers that want to fail fast with a descriptive error instead of
// silently returning an empty or NaN-filled series.
func (c *Calculator) ValidateInputs(prices []float64, period int) error {
	if len(prices) == 0 {
		return fmt.Errorf("prices slice is empty")
	}
	if period <= 0 {
		return fmt.Errorf("period must be positive, got %d", period)
	}
	if period > len(prices) {
		return fmt.Errorf("period (%d) cannot be greater than data length (%d)", period, len(prices))
	}
	return nil
}
