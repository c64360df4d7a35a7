package scaling

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/transform/numeric"
)

func table() *columnar.Table {
	return columnar.MustNew(
		columnar.Numeric("x", 1, 2, 3, 4, 5),
		columnar.Numeric("flat", 7, 7, 7, 7, 7),
		columnar.Categorical("label", "a", "b", "c", "d", "e"),
	)
}

func values(t *testing.T, tbl *columnar.Table, name string) []float64 {
	t.Helper()
	c, ok := tbl.Column(name)
	require.True(t, ok)
	return c.NonNullFloats()
}

func TestScale_Standard(t *testing.T) {
	out, meta, err := Scale(table(), Params{Columns: []string{"x", "flat", "label"}, Method: Standard})
	require.NoError(t, err)

	scaled := values(t, out, "x")
	assert.InDelta(t, 0, numeric.Mean(scaled), 1e-12)
	assert.InDelta(t, 1, numeric.Std(scaled, 0), 1e-12)
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, values(t, out, "flat"))

	assert.Equal(t, []string{"x", "flat"}, meta.ColumnsScaled)
	assert.Equal(t, 3.0, meta.Scalers["x"].Center)
	assert.InDelta(t, math.Sqrt(2), meta.Scalers["x"].Scale, 1e-12)
	assert.Equal(t, 1.0, meta.Scalers["flat"].Scale)
	assert.Equal(t, 3.0, *meta.BeforeStats["x"].Mean)
	assert.InDelta(t, 0, *meta.AfterStats["x"].Mean, 1e-12)
}

func TestScale_MinMax(t *testing.T) {
	out, _, err := Scale(table(), Params{Columns: []string{"x"}, Method: MinMax})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, values(t, out, "x"))
}

func TestScale_Robust(t *testing.T) {
	out, meta, err := Scale(table(), Params{Columns: []string{"x"}, Method: Robust})
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, -0.5, 0, 0.5, 1}, values(t, out, "x"))
	assert.Equal(t, 2.0, *meta.Scalers["x"].Q1)
	assert.Equal(t, 4.0, *meta.Scalers["x"].Q3)
}

func TestScale_KeepsMissingCells(t *testing.T) {
	tbl := columnar.MustNew(columnar.Numeric("x", 0, math.NaN(), 10))
	out, _, err := Scale(tbl, Params{Columns: []string{"x"}, Method: MinMax})
	require.NoError(t, err)

	c, _ := out.Column("x")
	assert.True(t, c.IsNull(1))
	assert.Equal(t, []float64{0, 1}, c.NonNullFloats())
}

func TestFitted_InverseRoundTrip(t *testing.T) {
	in := table()
	for _, m := range []Method{Standard, MinMax, Robust} {
		out, meta, err := Scale(in, Params{Columns: []string{"x"}, Method: m})
		require.NoError(t, err)

		scaled, _ := out.Column("x")
		restored := meta.Scalers["x"].Inverse(scaled).NonNullFloats()
		for i, v := range []float64{1, 2, 3, 4, 5} {
			assert.InDelta(t, v, restored[i], 1e-9, "method %s", m)
		}
	}
}

func TestScale_InvalidMethod(t *testing.T) {
	_, _, err := Scale(table(), Params{Columns: []string{"x"}, Method: Method(9)})
	assert.True(t, errors.IsInvalidMethod(err))

	_, err = ParseMethod("zscore")
	assert.True(t, errors.IsInvalidMethod(err))
}
