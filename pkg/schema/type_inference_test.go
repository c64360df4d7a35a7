package schema

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/testutil"
)

func TestInferType(t *testing.T) {
	e := NewTypeInferenceEngine(testutil.TestLogger(t))

	tests := []struct {
		name     string
		raw      []string
		kind     columnar.Kind
		nulls    int
		intLike  bool
		format   string
		distinct int
	}{
		{name: "integers", raw: []string{"1", "2", " 3 ", "2"}, kind: columnar.KindNumeric, intLike: true, distinct: 3},
		{name: "floats with missing", raw: []string{"1.5", "", "NA", "2"}, kind: columnar.KindNumeric, nulls: 2, distinct: 2},
		{name: "mixed is categorical", raw: []string{"1", "two", "3"}, kind: columnar.KindCategorical, distinct: 3},
		{name: "all missing is numeric", raw: []string{"", "null", "None"}, kind: columnar.KindNumeric, nulls: 3, intLike: true},
		{name: "dates", raw: []string{"2024-01-01", "2024-02-01", "2024-03-01"}, kind: columnar.KindCategorical, format: "date", distinct: 3},
		{name: "emails", raw: []string{"a@b.io", "c@d.io"}, kind: columnar.KindCategorical, format: "email", distinct: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.InferType(tt.name, tt.raw)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.nulls, got.NullCount)
			assert.Equal(t, tt.nulls > 0, got.Nullable)
			assert.Equal(t, tt.intLike, got.IntegerLike)
			assert.Equal(t, tt.format, got.Format)
			assert.Equal(t, tt.distinct, got.Cardinality)
		})
	}
}

func TestInferTypeNumericStats(t *testing.T) {
	e := NewTypeInferenceEngine(testutil.TestLogger(t))
	got := e.InferType("x", []string{"1", "2", "3", "4"})
	require.NotNil(t, got.NumericStats)
	assert.Equal(t, 1.0, got.NumericStats.Min)
	assert.Equal(t, 4.0, got.NumericStats.Max)
	assert.Equal(t, 2.5, got.NumericStats.Mean)
	assert.Equal(t, 2.5, got.NumericStats.Median)
	assert.InDelta(t, 1.2909944, got.NumericStats.StdDev, 1e-6)
}

func TestBuildTable(t *testing.T) {
	e := NewTypeInferenceEngine(testutil.TestLogger(t))
	table, inferred, err := e.BuildTable(
		[]string{"age", "city"},
		[][]string{{"34", "", "51"}, {"Berlin", "NA", "Paris"}},
	)
	require.NoError(t, err)
	require.Len(t, inferred, 2)
	assert.Equal(t, columnar.Shape{Rows: 3, Columns: 2}, table.Shape())

	age, _ := table.Column("age")
	assert.True(t, age.IsNumeric())
	assert.True(t, age.IsNull(1))
	v, ok := age.Float(2)
	assert.True(t, ok)
	assert.Equal(t, 51.0, v)

	city, _ := table.Column("city")
	assert.False(t, city.IsNumeric())
	assert.True(t, city.IsNull(1))
	assert.Equal(t, 1, city.NullCount())
}

func TestBuildColumnInternsCategories(t *testing.T) {
	e := NewTypeInferenceEngine(testutil.TestLogger(t))
	line := "Berlin,Berlin"
	col, _ := e.BuildColumn("city", []string{line[:6], line[7:]})

	values, _ := col.Strings()
	assert.Equal(t, []string{"Berlin", "Berlin"}, values)
	assert.Equal(t, unsafe.StringData(values[0]), unsafe.StringData(values[1]))
}

func TestBuildTableErrors(t *testing.T) {
	e := NewTypeInferenceEngine(testutil.TestLogger(t))

	_, _, err := e.BuildTable([]string{"a"}, [][]string{{"1"}, {"2"}})
	assert.Error(t, err)

	_, _, err = e.BuildTable([]string{"a", "a"}, [][]string{{"1"}, {"2"}})
	assert.Error(t, err)
}
