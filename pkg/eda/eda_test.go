package eda

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/testutil"
)

func TestAnalyzeCustomers(t *testing.T) {
	table := testutil.CustomerTable(t)
	report, err := NewAnalyzer(testutil.TestLogger(t)).Analyze(context.Background(), table)
	require.NoError(t, err)

	o := report.Overview
	assert.Equal(t, 6, o.Rows)
	assert.Equal(t, 7, o.Columns)
	assert.Equal(t, 3, o.NumericColumns)
	assert.Equal(t, 4, o.CategoricalColumns)
	assert.Equal(t, 3, o.MissingCells)
	assert.Equal(t, 7.14, o.MissingPercentage)
	assert.Equal(t, 1, o.DuplicateRows)
	assert.Positive(t, o.MemoryBytes)

	require.Len(t, report.Numeric, 3)
	age := report.Numeric[1]
	assert.Equal(t, "age", age.Column)
	assert.Equal(t, 5, age.Count)
	assert.Equal(t, 1, age.Missing)
	assert.InDelta(t, 38.6, *age.Mean, 1e-9)
	assert.Equal(t, 34.0, *age.Median)
	assert.Equal(t, 29.0, *age.Min)
	assert.Equal(t, 51.0, *age.Max)
	assert.Equal(t, 34.0, *age.Q25)
	assert.Equal(t, 45.0, *age.Q75)
	assert.InDelta(t, 9.0719347, *age.Std, 1e-6)
	assert.NotNil(t, age.Skewness)
	assert.NotNil(t, age.Kurtosis)

	require.Len(t, report.Categorical, 4)
	city := report.Categorical[0]
	assert.Equal(t, "city", city.Column)
	assert.Equal(t, 5, city.Count)
	assert.Equal(t, 1, city.Missing)
	assert.Equal(t, 3, city.Unique)
	assert.Equal(t, "Berlin", city.Top)
	assert.Equal(t, 3, city.TopFrequency)
	assert.Equal(t, CardinalityLow, city.Cardinality)
	assert.Equal(t, []ValueCount{{"Berlin", 3}, {"Madrid", 1}, {"Paris", 1}}, city.ValueCounts)

	assert.Equal(t, []string{"id", "age", "income"}, report.Correlations.Columns)
	require.NotNil(t, report.Correlations.Values[0][0])
	assert.InDelta(t, 1.0, *report.Correlations.Values[0][0], 1e-12)
	assert.Len(t, report.TopCorrelations, 3)

	// Read-only.
	assert.True(t, table.Equal(testutil.CustomerTable(t)))
}

func TestMoments(t *testing.T) {
	s := DescribeNumeric(columnar.Numeric("x", 1, 2, 3, 4, 5))
	require.NotNil(t, s.Skewness)
	require.NotNil(t, s.Kurtosis)
	assert.InDelta(t, 0, *s.Skewness, 1e-12)
	assert.InDelta(t, -1.2, *s.Kurtosis, 1e-12)

	s = DescribeNumeric(columnar.Numeric("c", 7, 7, 7, 7))
	assert.Equal(t, 0.0, *s.Skewness)
	assert.Equal(t, 0.0, *s.Kurtosis)
	assert.Equal(t, 0.0, *s.Std)

	s = DescribeNumeric(columnar.Numeric("pair", 1, 2))
	assert.Nil(t, s.Skewness)
	assert.Nil(t, s.Kurtosis)

	s = DescribeNumeric(columnar.NewNumericColumn("empty", []float64{0, 0}, []bool{false, false}))
	assert.Equal(t, 0, s.Count)
	assert.Equal(t, 2, s.Missing)
	assert.Nil(t, s.Mean)
	assert.Nil(t, s.Q25)
}

func TestCorrelations(t *testing.T) {
	nan := math.NaN()
	table := columnar.NormalizeTable(testutil.Table(t,
		columnar.Numeric("x", 1, 2, 3, 4, 5),
		columnar.Numeric("y", 2, 4, 6, 8, nan),
		columnar.Numeric("z", -1, -2, -3, -4, -5),
		columnar.Numeric("k", 3, 3, 3, 3, 3),
		columnar.Categorical("label", "a", "b", "a", "b", "a"),
	))

	m := Correlations(table)
	assert.Equal(t, []string{"x", "y", "z", "k"}, m.Columns)
	assert.InDelta(t, 1.0, *m.Values[0][1], 1e-12)
	assert.InDelta(t, -1.0, *m.Values[0][2], 1e-12)
	assert.Nil(t, m.Values[0][3])
	assert.Nil(t, m.Values[3][3])
	assert.Equal(t, m.Values[1][2], m.Values[2][1])

	top := TopCorrelations(m, 2)
	require.Len(t, top, 2)
	for _, p := range top {
		assert.InDelta(t, 1.0, math.Abs(p.Correlation), 1e-12)
	}
	assert.Len(t, TopCorrelations(m, 10), 3)
}

func TestCardinality(t *testing.T) {
	assert.Equal(t, CardinalityLow, cardinality(5))
	assert.Equal(t, CardinalityMedium, cardinality(6))
	assert.Equal(t, CardinalityMedium, cardinality(20))
	assert.Equal(t, CardinalityHigh, cardinality(21))
}

func TestTopValuesLimit(t *testing.T) {
	values := make([]string, 30)
	for i := range values {
		values[i] = string(rune('a' + i%26))
	}
	s := DescribeCategorical(columnar.Categorical("letters", values...), 10)
	assert.Equal(t, 26, s.Unique)
	assert.Equal(t, CardinalityHigh, s.Cardinality)
	assert.Len(t, s.ValueCounts, 10)
	assert.Equal(t, ValueCount{"a", 2}, s.ValueCounts[0])
}

func TestAnalyzeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewAnalyzer(testutil.TestLogger(t)).Analyze(ctx, testutil.CustomerTable(t))
	assert.Error(t, err)

	_, err = NewAnalyzer(nil).Analyze(context.Background(), nil)
	assert.Error(t, err)
}
