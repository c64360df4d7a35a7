package numeric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantile_LinearInterpolation(t *testing.T) {
	data := []float64{100, 3, 1, 4, 2}

	assert.Equal(t, 2.0, Quantile(data, 0.25))
	assert.Equal(t, 3.0, Quantile(data, 0.5))
	assert.Equal(t, 4.0, Quantile(data, 0.75))
	assert.Equal(t, 1.0, Quantile(data, 0))
	assert.Equal(t, 100.0, Quantile(data, 1))

	assert.InDelta(t, 2.5, Quantile([]float64{1, 2, 3, 4}, 0.5), 1e-12)
	assert.InDelta(t, 1.15, Quantile([]float64{1, 2, 3, 4}, 0.05), 1e-12)
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestVariance(t *testing.T) {
	data := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 4.0, Variance(data, 0), 1e-12)
	assert.InDelta(t, 32.0/7.0, Variance(data, 1), 1e-12)
	assert.True(t, math.IsNaN(Variance([]float64{1}, 1)))
	assert.InDelta(t, 32.0/6.0, Variance(data, 2), 1e-12)
	assert.True(t, math.IsNaN(Variance(nil, 0)))
}

func TestMeanAndMinMax(t *testing.T) {
	assert.Equal(t, 2.5, Mean([]float64{1, 2, 3, 4}))
	assert.True(t, math.IsNaN(Mean(nil)))

	lo, hi := MinMax([]float64{3, -1, 8})
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 8.0, hi)

	lo, hi = MinMax(nil)
	assert.True(t, math.IsNaN(lo))
	assert.True(t, math.IsNaN(hi))
}

func TestDescribe(t *testing.T) {
	s := Describe([]float64{1, 2, 3})
	assert.Equal(t, 2.0, *s.Mean)
	assert.Equal(t, 1.0, *s.Std)
	assert.Equal(t, 1.0, *s.Min)
	assert.Equal(t, 3.0, *s.Max)

	empty := Describe(nil)
	assert.Nil(t, empty.Mean)
	assert.Nil(t, empty.Std)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 33.33, Round(100.0/3.0, 2))
	assert.Equal(t, 9.0, Round(9.0, 2))
}
