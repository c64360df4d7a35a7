package duplicates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/errors"
)

func TestAnalyze_CountsGroupMembers(t *testing.T) {
	tbl := columnar.MustNew(
		columnar.Numeric("a", 1, 1, 3),
		columnar.Numeric("b", 2, 2, 4),
	)

	report := Analyze(tbl, 0)
	assert.Equal(t, 2, report.DuplicateRowCount)
	assert.Equal(t, 1, report.UniqueDuplicateGroups)
	assert.Equal(t, []int{0, 1}, report.DuplicateRowIndices)
	require.NotNil(t, report.Preview)
	assert.Equal(t, []int{0, 1}, report.Preview.Indices)
	assert.Equal(t, []interface{}{1.0, 2.0}, report.Preview.Rows[0])
}

func TestAnalyze_NoDuplicates(t *testing.T) {
	tbl := columnar.MustNew(columnar.Categorical("a", "x", "y"))
	report := Analyze(tbl, 0)

	assert.Zero(t, report.DuplicateRowCount)
	assert.Nil(t, report.Preview)
	assert.Empty(t, report.DuplicateColumns)
}

func TestAnalyze_KeysDoNotCollide(t *testing.T) {
	t.Run("separator inside values", func(t *testing.T) {
		tbl := columnar.MustNew(
			columnar.Categorical("a", "x\x1f", "x"),
			columnar.Categorical("b", "y", "\x1fy"),
		)
		assert.Zero(t, Analyze(tbl, 0).DuplicateRowCount)
	})

	t.Run("null versus sentinel text", func(t *testing.T) {
		tbl := columnar.MustNew(
			columnar.NewCategoricalColumn("a", []string{"\x00null", ""}, []bool{true, false}),
		)
		assert.Zero(t, Analyze(tbl, 0).DuplicateRowCount)
	})

	t.Run("nulls still match each other", func(t *testing.T) {
		tbl := columnar.MustNew(
			columnar.NewNumericColumn("a", []float64{0, 0}, []bool{false, false}),
			columnar.Categorical("b", "n", "n"),
		)
		assert.Equal(t, 2, Analyze(tbl, 0).DuplicateRowCount)
	})
}

func TestRemove_KeepsRowsWithDistinctCells(t *testing.T) {
	tbl := columnar.MustNew(
		columnar.Categorical("a", "x\x1f", "x"),
		columnar.Categorical("b", "y", "\x1fy"),
	)

	out, meta, err := Remove(tbl, Params{Keep: KeepFirst})
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumRows())
	assert.Zero(t, meta.RowsRemoved)
}

func TestAnalyze_DuplicateColumnsAndPreviewLimit(t *testing.T) {
	tbl := columnar.MustNew(
		columnar.Numeric("a", 1, 1, 1, 1),
		columnar.Numeric("copy", 1, 1, 1, 1),
		columnar.Categorical("c", "x", "x", "x", "x"),
	)

	report := Analyze(tbl, 2)
	assert.Equal(t, 4, report.DuplicateRowCount)
	assert.Equal(t, 1, report.UniqueDuplicateGroups)
	assert.Equal(t, []ColumnPair{{Column1: "a", Column2: "copy"}}, report.DuplicateColumns)
	assert.Len(t, report.Preview.Rows, 2)
	assert.Equal(t, 100.0, report.DuplicatePercentage)
}

func TestRemove_KeepPolicies(t *testing.T) {
	tbl := columnar.MustNew(
		columnar.Numeric("id", 1, 2, 3, 4, 5),
		columnar.Categorical("k", "a", "b", "a", "c", "a"),
	)

	out, meta, err := Remove(tbl, Params{Keep: KeepFirst, Subset: []string{"k"}})
	require.NoError(t, err)
	ids, _ := out.Column("id")
	assert.Equal(t, []float64{1, 2, 4}, ids.NonNullFloats())
	assert.Equal(t, 2, meta.RowsRemoved)
	assert.Equal(t, []string{"k"}, meta.Subset)

	out, _, err = Remove(tbl, Params{Keep: KeepLast, Subset: []string{"k"}})
	require.NoError(t, err)
	ids, _ = out.Column("id")
	assert.Equal(t, []float64{2, 4, 5}, ids.NonNullFloats())

	out, _, err = Remove(tbl, Params{Keep: KeepNone, Subset: []string{"k"}})
	require.NoError(t, err)
	ids, _ = out.Column("id")
	assert.Equal(t, []float64{2, 4}, ids.NonNullFloats())
}

func TestRemove_AllColumnsAndNulls(t *testing.T) {
	tbl := columnar.NormalizeTable(columnar.MustNew(
		columnar.Categorical("a", "x", "NA", "NA", "x"),
		columnar.Categorical("b", "1", "2", "2", "1"),
	))

	out, meta, err := Remove(tbl, Params{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumRows())
	assert.Equal(t, 2, meta.RowsRemoved)
	assert.Equal(t, []string{"a", "b"}, meta.Subset)
}

func TestParseKeep(t *testing.T) {
	k, err := ParseKeep("last")
	require.NoError(t, err)
	assert.Equal(t, KeepLast, k)

	_, err = ParseKeep("middle")
	assert.True(t, errors.IsInvalidMethod(err))
}
