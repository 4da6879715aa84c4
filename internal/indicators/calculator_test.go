package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCalculator(t *testing.T) {
	calc := NewCalculator()

	assert.NotNil(t, calc)
	assert.Equal(t, 1e-10, calc.zeroFloor)
}

func TestCalculator_EMA_EmptyPrices(t *testing.T) {
	calc := NewCalculator()
	result := calc.EMA([]float64{}, 10)

	assert.Empty(t, result)
}

func TestCalculator_EMA_InvalidPeriod(t *testing.T) {
	calc := NewCalculator()
	prices := []float64{100, 102, 104, 106, 108}

	result := calc.EMA(prices, 0)
	assert.Empty(t, result)

	result = calc.EMA(prices, -1)
	assert.Empty(t, result)
}

func TestCalculator_EMA_ValidCalculation(t *testing.T) {
	calc := NewCalculator()
	prices := []float64{100, 102, 104, 106, 108, 110, 112, 114, 116, 118}
	period := 5

	result := calc.EMA(prices, period)

	require.Len(t, result, len(prices))

	// First period-1 values should be NaN
	for i := 0; i < period-1; i++ {
		assert.True(t, math.IsNaN(result[i]), "Expected NaN at index %d", i)
	}

	// First valid EMA value should be SMA
	expectedSMA := (100 + 102 + 104 + 106 + 108) / 5.0
	assert.InDelta(t, expectedSMA, result[4], 1e-10)

	// EMA values should be calculated correctly
	multiplier := 2.0 / float64(period+1)
	expectedEMA := (110*multiplier + result[4]*(1-multiplier))
	assert.InDelta(t, expectedEMA, result[5], 1e-10)
}

func TestCalculator_EMA_PeriodGreaterThanDataLength(t *testing.T) {
	calc := NewCalculator()
	prices := []float64{100, 102, 104}
	period := 10

	result := calc.EMA(prices, period)

	require.Len(t, result, len(prices))
	// Should use effective period = len(prices)
	for i := 0; i < len(prices)-1; i++ {
		assert.True(t, math.IsNaN(result[i]))
	}
	assert.False(t, math.IsNaN(result[len(prices)-1]))
}

func TestCalculator_SMA_EmptyPrices(t *testing.T) {
	calc := NewCalculator()
	result := calc.SMA([]float64{}, 10)

	assert.Empty(t, result)
}

func TestCalculator_SMA_InvalidPeriod(t *testing.T) {
	calc := NewCalculator()
	prices := []float64{100, 102, 104, 106, 108}

	result := calc.SMA(prices, 0)
	assert.Empty(t, result)

	result = calc.SMA(prices, -1)
	assert.Empty(t, result)
}

func TestCalculator_SMA_ValidCalculation(t *testing.T) {
	calc := NewCalculator()
	prices := []float64{100, 102, 104, 106, 108, 110, 112, 114, 116, 118}
	period := 3

	result := calc.SMA(prices, period)

	require.Len(t, result, len(prices))

	// First period-1 values should be NaN
	for i := 0; i < period-1; i++ {
		assert.True(t, math.IsNaN(result[i]), "Expected NaN at index %d", i)
	}

	// Check some SMA calculations
	expectedSMA1 := (100 + 102 + 104) / 3.0
	assert.InDelta(t, expectedSMA1, result[2], 1e-10)

	expectedSMA2 := (102 + 104 + 106) / 3.0
	assert.InDelta(t, expectedSMA2, result[3], 1e-10)

	expectedSMA3 := (104 + 106 + 108) / 3.0
	assert.InDelta(t, expectedSMA3, result[4], 1e-10)
}

func TestCalculator_ATR_EmptyInputs(t *testing.T) {
	calc := NewCalculator()
	result := calc.ATR([]float64{}, []float64{}, []float64{}, 14)

	assert.Empty(t, result)
}

func TestCalculator_ATR_MismatchedLengths(t *testing.T) {
	calc := NewCalculator()
	high := []float64{105, 107, 109}
	low := []float64{98, 100}
	close := []float64{102, 104, 106}

	result := calc.ATR(high, low, close, 14)

	assert.Empty(t, result)
}

func TestCalculator_ATR_ValidCalculation(t *testing.T) {
	calc := NewCalculator()
	high := []float64{105, 107, 109, 108, 110, 112, 114, 113, 115, 117, 119, 118, 120, 122, 121}
	low := []float64{98, 100, 102, 101, 103, 105, 107, 106, 108, 110, 112, 111, 113, 115, 114}
	close := []float64{102, 104, 106, 105, 107, 109, 111, 110, 112, 114, 116, 115, 117, 119, 118}
	period := 14

	result := calc.ATR(high, low, close, period)

	require.Len(t, result, len(high))

	// First period values should be NaN
	for i := 0; i < period; i++ {
		assert.True(t, math.IsNaN(result[i]), "Expected NaN at index %d", i)
	}

	// ATR values should be positive
	for i := period; i < len(result); i++ {
		assert.True(t, result[i] > 0, "ATR should be positive at index %d, got %f", i, result[i])
	}
}

func TestCalculator_VWAP_EmptyInputs(t *testing.T) {
	calc := NewCalculator()
	result := calc.VWAP([]float64{}, []float64{})

	assert.Empty(t, result)
}

func TestCalculator_VWAP_MismatchedLengths(t *testing.T) {
	calc := NewCalculator()
	prices := []float64{100, 102, 104}
	volumes := []float64{1000, 1500}

	result := calc.VWAP(prices, volumes)

	assert.Empty(t, result)
}

func TestCalculator_VWAP_ValidCalculation(t *testing.T) {
	calc := NewCalculator()
	prices := []float64{100, 102, 104, 106, 108}
	volumes := []float64{1000, 1500, 1200, 1800, 1600}

	result := calc.VWAP(prices, volumes)

	require.Len(t, result, len(prices))

	// VWAP should be cumulative
	assert.Equal(t, 100.0, result[0]) // First value equals first price

	// Second VWAP calculation should be cumulative: (100*1000 + 102*1500) / (1000 + 1500) = 253000 / 2500 = 101.2
	assert.InDelta(t, 101.2, result[1], 1e-10)

	// VWAP values should make sense
	for i := 0; i < len(result); i++ {
		assert.True(t, result[i] > 0, "VWAP should be positive at index %d", i)
	}
}

func TestCalculator_ScaleFreeSlope_Rising(t *testing.T) {
	calc := NewCalculator()
	series := []float64{100, 110, 120, 130, 140, 150, 160, 170, 180, 190}

	slope := calc.ScaleFreeSlope(series)
	assert.Greater(t, slope, 0.0)
}

func TestCalculator_ScaleFreeSlope_Falling(t *testing.T) {
	calc := NewCalculator()
	series := []float64{190, 180, 170, 160, 150, 140, 130, 120, 110, 100}

	slope := calc.ScaleFreeSlope(series)
	assert.Less(t, slope, 0.0)
}

func TestCalculator_ScaleFreeSlope_FlatZeroIsZero(t *testing.T) {
	calc := NewCalculator()
	series := make([]float64, 10)

	assert.Equal(t, 0.0, calc.ScaleFreeSlope(series))
}

func TestCalculator_IsValidNumber(t *testing.T) {
	calc := NewCalculator()

	assert.True(t, calc.IsValidNumber(100.5))
	assert.True(t, calc.IsValidNumber(0.0))
	assert.True(t, calc.IsValidNumber(-50.3))
	assert.False(t, calc.IsValidNumber(math.NaN()))
	assert.False(t, calc.IsValidNumber(math.Inf(1)))
	assert.False(t, calc.IsValidNumber(math.Inf(-1)))
}

func TestCalculator_HandleNaN(t *testing.T) {
	calc := NewCalculator()
	values := []float64{100.5, math.NaN(), 102.3, math.NaN(), 104.1}
	defaultValue := -1.0

	result := calc.HandleNaN(values, defaultValue)

	require.Len(t, result, len(values))
	assert.Equal(t, 100.5, result[0])
	assert.Equal(t, -1.0, result[1])
	assert.Equal(t, 102.3, result[2])
	assert.Equal(t, -1.0, result[3])
	assert.Equal(t, 104.1, result[4])
}

func TestCalculator_ValidateInputs(t *testing.T) {
	calc := NewCalculator()

	// Valid inputs
	err := calc.ValidateInputs([]float64{100, 102, 104, 106, 108}, 3)
	assert.NoError(t, err)

	// Empty prices
	err = calc.ValidateInputs([]float64{}, 3)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "prices slice is empty")

	// Invalid period
	err = calc.ValidateInputs([]float64{100, 102, 104}, 0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "period must be positive")

	err = calc.ValidateInputs([]float64{100, 102, 104}, -1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "period must be positive")

	// Period greater than data length
	err = calc.ValidateInputs([]float64{100, 102, 104}, 10)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "period (10) cannot be greater than data length (3)")
}

// Benchmark tests for performance validation
func BenchmarkCalculator_EMA_1000Points(b *testing.B) {
	calc := NewCalculator()
	prices := make([]float64, 1000)
	for i := 0; i < 1000; i++ {
		prices[i] = 100.0 + float64(i)*0.1
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		calc.EMA(prices, 20)
	}
}

func BenchmarkCalculator_SMA_1000Points(b *testing.B) {
	calc := NewCalculator()
	prices := make([]float64, 1000)
	for i := 0; i < 1000; i++ {
		prices[i] = 100.0 + float64(i)*0.1
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		calc.SMA(prices, 20)
	}
}

func BenchmarkCalculator_ATR_1000Points(b *testing.B) {
	calc := NewCalculator()
	high := make([]float64, 1000)
	low := make([]float64, 1000)
	close := make([]float64, 1000)
	
	for i := 0; i < 1000; i++ {
		base := 100.0 + float64(i)*0.1
		high[i] = base + 2.0
		low[i] = base - 2.0
		close[i] = base
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		calc.ATR(high, low, close, 14)
	}
}

func BenchmarkCalculator_VWAP_1000Points(b *testing.B) {
	calc := NewCalculator()
	prices := make([]float64, 1000)
	volumes := make([]float64, 1000)
	
	for i := 0; i < 1000; i++ {
		prices[i] = 100.0 + float64(i)*0.1
		volumes[i] = 1000.0 + float64(i)*10
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		calc.VWAP(prices, volumes)
	}
}
