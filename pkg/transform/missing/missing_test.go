package missing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/errors"
)

var nan = math.NaN()

func fixture() *columnar.Table {
	return columnar.MustNew(
		columnar.Numeric("A", 1, nan, 3, nan, 5),
		columnar.Numeric("B", 10, 20, 30, 40, 50),
		columnar.Categorical("C", "x", "NA", "y", "x", " "),
	)
}

func TestAnalyze(t *testing.T) {
	report := Analyze(fixture())

	assert.Equal(t, 5, report.TotalRows)
	assert.Equal(t, 15, report.TotalCells)
	assert.Equal(t, 4, report.TotalNullCount)
	assert.Equal(t, 26.67, report.TotalNullPercentage)
	assert.Equal(t, 2, report.ColumnsWithMissing)

	require.Len(t, report.Columns, 3)
	assert.Equal(t, "A", report.Columns[0].Column)
	assert.Equal(t, 40.0, report.Columns[0].NullPercentage)
	assert.Equal(t, "C", report.Columns[1].Column)
	assert.Equal(t, "categorical", report.Columns[1].DataType)
	assert.Equal(t, "B", report.Columns[2].Column)
	assert.Equal(t, 5, report.Columns[2].NonNullCount)
}

func TestHandle_Drop(t *testing.T) {
	in := fixture()
	out, meta, err := Handle(in, Params{Columns: []string{"A"}, Strategy: Drop})
	require.NoError(t, err)

	assert.Equal(t, 3, out.NumRows())
	assert.Equal(t, 2, meta.RowsRemoved)
	assert.Equal(t, 5, meta.RowsBefore)
	assert.Equal(t, 3, meta.RowsAfter)
	assert.Equal(t, 5, in.NumRows(), "input must not change")
}

func TestHandle_DropAllColumns(t *testing.T) {
	out, meta, err := Handle(fixture(), Params{Strategy: Drop})
	require.NoError(t, err)

	// rows 1, 3 (A missing) and 4 (C blank) go
	assert.Equal(t, 2, out.NumRows())
	assert.Equal(t, 3, meta.RowsRemoved)
}

func TestHandle_MeanAndMedian(t *testing.T) {
	out, meta, err := Handle(fixture(), Params{Strategy: Mean})
	require.NoError(t, err)

	a, _ := out.Column("A")
	assert.Equal(t, 0, a.NullCount())
	v, _ := a.Float(1)
	assert.Equal(t, 3.0, v)

	require.Contains(t, meta.NullsFilled, "A")
	assert.Equal(t, 2, meta.NullsFilled["A"].Count)
	assert.NotContains(t, meta.NullsFilled, "B", "no nulls")
	assert.NotContains(t, meta.NullsFilled, "C", "non-numeric is skipped")
	assert.Equal(t, []string{"A"}, meta.ColumnsTouched)

	out, _, err = Handle(columnar.MustNew(columnar.Numeric("n", 1, 2, 10, nan)), Params{Strategy: Median})
	require.NoError(t, err)
	n, _ := out.Column("n")
	v, _ = n.Float(3)
	assert.Equal(t, 2.0, v)
}

func TestHandle_Mode(t *testing.T) {
	out, meta, err := Handle(fixture(), Params{Columns: []string{"C"}, Strategy: Mode})
	require.NoError(t, err)

	c, _ := out.Column("C")
	s, ok := c.String(1)
	require.True(t, ok)
	assert.Equal(t, "x", s)
	assert.Equal(t, "mode", meta.NullsFilled["C"].Method)
}

func TestHandle_ModeFallsBackToConstant(t *testing.T) {
	tbl := columnar.MustNew(columnar.Categorical("empty", "", "null", "None"))
	fallback := "unknown"

	out, meta, err := Handle(tbl, Params{Strategy: Mode, ConstantString: &fallback})
	require.NoError(t, err)

	c, _ := out.Column("empty")
	assert.Equal(t, 0, c.NullCount())
	assert.Equal(t, "constant", meta.NullsFilled["empty"].Method)

	_, meta, err = Handle(tbl, Params{Strategy: Mode})
	require.NoError(t, err)
	assert.Empty(t, meta.NullsFilled)
}

func TestHandle_Constants(t *testing.T) {
	zero := 0.0
	label := "missing"

	out, meta, err := Handle(fixture(), Params{Strategy: ConstantNumeric, ConstantValue: &zero})
	require.NoError(t, err)
	assert.Contains(t, meta.NullsFilled, "A")
	assert.NotContains(t, meta.NullsFilled, "C")
	a, _ := out.Column("A")
	assert.Equal(t, 0, a.NullCount())

	out, meta, err = Handle(fixture(), Params{Strategy: ConstantCategorical, ConstantString: &label})
	require.NoError(t, err)
	assert.NotContains(t, meta.NullsFilled, "A")
	c, _ := out.Column("C")
	s, _ := c.String(4)
	assert.Equal(t, "missing", s)
}

func TestHandle_SkipsUnknownColumns(t *testing.T) {
	out, meta, err := Handle(fixture(), Params{Columns: []string{"nope"}, Strategy: Mean})
	require.NoError(t, err)
	assert.Equal(t, 5, out.NumRows())
	assert.Empty(t, meta.NullsFilled)
	assert.Empty(t, meta.ColumnsProcessed)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("constant_cat")
	require.NoError(t, err)
	assert.Equal(t, ConstantCategorical, s)

	_, err = ParseStrategy("average")
	assert.True(t, errors.IsInvalidMethod(err))

	_, _, err = Handle(fixture(), Params{Strategy: Strategy(42)})
	assert.True(t, errors.IsInvalidMethod(err))
}
