// Package numeric holds the small set of statistics the transform packages
// share. Formulas follow the conventions of the common dataframe tooling:
// quantiles interpolate linearly between order statistics, variance is the
// sample variance (n-1) unless stated otherwise.
package numeric

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// Sorted returns a sorted copy of values.
func Sorted(values []float64) []float64 {
	s := make([]float64, len(values))
	copy(s, values)
	sort.Float64s(s)
	return s
}

// Quantile returns the q-quantile (0..1) of values using linear
// interpolation between the two nearest ranks. It returns NaN for an empty
// input.
func Quantile(values []float64, q float64) float64 {
	return QuantileSorted(Sorted(values), q)
}

// QuantileSorted is Quantile over data already in ascending order.
func QuantileSorted(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Mean returns the arithmetic mean, or NaN for an empty input.
func Mean(values []float64) float64 {
	return orNaN(stats.Mean(values))
}

// Median returns the 0.5 quantile.
func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

// Variance returns the variance with ddof degrees of freedom removed from
// the denominator. It returns NaN when fewer than ddof+1 values exist.
func Variance(values []float64, ddof int) float64 {
	n := len(values)
	if n-ddof <= 0 {
		return math.NaN()
	}
	switch ddof {
	case 0:
		return orNaN(stats.PopulationVariance(values))
	case 1:
		return orNaN(stats.SampleVariance(values))
	default:
		return orNaN(stats.PopulationVariance(values)) * float64(n) / float64(n-ddof)
	}
}

// Std returns the square root of Variance(values, ddof).
func Std(values []float64, ddof int) float64 {
	return math.Sqrt(Variance(values, ddof))
}

// MinMax returns the smallest and largest value, or NaN for an empty input.
func MinMax(values []float64) (float64, float64) {
	return orNaN(stats.Min(values)), orNaN(stats.Max(values))
}

// orNaN maps a stats error, such as stats.ErrEmptyInput, to NaN.
func orNaN(v float64, err error) float64 {
	if err != nil {
		return math.NaN()
	}
	return v
}

// Summary is the before/after description attached to scaling and
// outlier metadata.
type Summary struct {
	Mean   *float64 `json:"mean"`
	Std    *float64 `json:"std"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	Median *float64 `json:"median,omitempty"`
}

// Describe computes mean, sample std, min, max and median. Undefined
// statistics are reported as nil.
func Describe(values []float64) Summary {
	lo, hi := MinMax(values)
	return Summary{
		Mean:   Finite(Mean(values)),
		Std:    Finite(Std(values, 1)),
		Min:    Finite(lo),
		Max:    Finite(hi),
		Median: Finite(Median(values)),
	}
}

// Finite returns a pointer to v, or nil when v is NaN or infinite.
func Finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
