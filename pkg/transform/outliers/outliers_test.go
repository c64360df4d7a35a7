package outliers

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/errors"
)

func sample() *columnar.Table {
	return columnar.MustNew(
		columnar.Numeric("x", 1, 2, 3, 4, 100),
		columnar.Numeric("y", -50, 2, 2, 2, 2),
		columnar.Categorical("id", "a", "b", "c", "d", "e"),
	)
}

func TestDetect_IQRFormula(t *testing.T) {
	report, err := Detect(sample(), Params{Columns: []string{"x"}, Method: IQR})
	require.NoError(t, err)
	require.Len(t, report.Columns, 1)

	col := report.Columns[0]
	assert.Equal(t, 2.0, *col.Stats.Q1)
	assert.Equal(t, 4.0, *col.Stats.Q3)
	assert.Equal(t, 2.0, *col.Stats.IQR)
	assert.Equal(t, -1.0, *col.Stats.LowerBound)
	assert.Equal(t, 7.0, *col.Stats.UpperBound)
	assert.Equal(t, []int{4}, col.OutlierIndices)
	assert.Equal(t, 20.0, col.OutlierPercentage)
}

func TestDetect_AllNumericByDefault(t *testing.T) {
	report, err := Detect(sample(), Params{Method: IQR})
	require.NoError(t, err)

	require.Len(t, report.Columns, 2)
	assert.Equal(t, 2, report.TotalOutlierRows)
	assert.Equal(t, []int{0, 4}, report.OutlierRowIndices)
	assert.Equal(t, 40.0, report.TotalOutlierPercentage)
}

func TestDetect_ZScore(t *testing.T) {
	values := make([]float64, 21)
	for i := range values {
		values[i] = 1
	}
	values[20] = 100
	tbl := columnar.MustNew(
		columnar.Numeric("v", values...),
		columnar.Numeric("flat", make([]float64, 21)...),
	)

	report, err := Detect(tbl, Params{Method: ZScore})
	require.NoError(t, err)
	require.Len(t, report.Columns, 2)

	assert.Equal(t, []int{20}, report.Columns[0].OutlierIndices)
	assert.Equal(t, DefaultThreshold, *report.Columns[0].Stats.Threshold)
	assert.Equal(t, 0, report.Columns[1].OutlierCount, "zero variance yields no outliers")
	assert.Equal(t, 0.0, *report.Columns[1].Stats.Std)
}

func TestHandle_Remove(t *testing.T) {
	in := sample()
	out, meta, err := Handle(in, HandleParams{Params: Params{Method: IQR}, Action: Remove})
	require.NoError(t, err)

	assert.Equal(t, 3, out.NumRows())
	assert.Equal(t, 2, meta.RowsRemoved)
	id, _ := out.Column("id")
	ids, _ := id.Strings()
	assert.Equal(t, []string{"b", "c", "d"}, ids)
	assert.Equal(t, 5, in.NumRows(), "input untouched")
}

func TestHandle_Cap(t *testing.T) {
	out, meta, err := Handle(sample(), HandleParams{
		Params:        Params{Columns: []string{"x"}, Method: IQR},
		Action:        Cap,
		CapPercentile: 0.25,
	})
	require.NoError(t, err)

	x, _ := out.Column("x")
	assert.Equal(t, []float64{2, 2, 3, 4, 4}, x.NonNullFloats())
	assert.Equal(t, 2.0, *meta.Columns[0].LowerCap)
	assert.Equal(t, 4.0, *meta.Columns[0].UpperCap)
	assert.Equal(t, 1, meta.Columns[0].Outliers)
	assert.Equal(t, 0, meta.RowsRemoved)
}

func TestHandle_CapKeepsMissing(t *testing.T) {
	tbl := columnar.MustNew(columnar.Numeric("x", 1, math.NaN(), 3, 4, 100))
	out, _, err := Handle(tbl, HandleParams{Params: Params{Method: IQR}, Action: Cap})
	require.NoError(t, err)

	x, _ := out.Column("x")
	assert.True(t, x.IsNull(1))
}

func TestHandle_Flag(t *testing.T) {
	out, meta, err := Handle(sample(), HandleParams{
		Params: Params{Columns: []string{"x", "id", "ghost"}, Method: IQR},
		Action: Flag,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"x", "y", "id", "x_outlier"}, out.ColumnNames())
	flag, _ := out.Column("x_outlier")
	assert.Equal(t, []float64{0, 0, 0, 0, 1}, flag.NonNullFloats())
	assert.Equal(t, "x_outlier", meta.Columns[0].FlagColumn)
	assert.Equal(t, []string{"x", "x_outlier"}, meta.ColumnsTouched)

	again, _, err := Handle(out, HandleParams{Params: Params{Columns: []string{"x"}, Method: IQR}, Action: Flag})
	require.NoError(t, err)
	assert.Equal(t, out.NumCols(), again.NumCols(), "existing flag column is overwritten")
}

func TestHandle_InvalidParams(t *testing.T) {
	_, _, err := Handle(sample(), HandleParams{Params: Params{Method: Method(7)}})
	assert.True(t, errors.IsInvalidMethod(err))

	_, _, err = Handle(sample(), HandleParams{Action: Action(7)})
	assert.True(t, errors.IsInvalidMethod(err))

	_, _, err = Handle(sample(), HandleParams{Action: Cap, CapPercentile: 0.7})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = ParseAction("winsorize")
	assert.True(t, errors.IsInvalidMethod(err))
}
