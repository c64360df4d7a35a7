// Package transform is the root of the preprocessing transform library.
//
// Each subpackage (missing, duplicates, constant, encoding, scaling,
// outliers, sampling) is a stateless set of functions of the shape
//
//	func(table *columnar.Table, params P) (*columnar.Table, Metadata, error)
//
// A transform never mutates its input table and never touches session
// state. Analyses return only metadata. Every metadata value embeds a
// Change describing the shape delta and the columns actually touched.
package transform

import "github.com/ajitpratap0/refinery/pkg/columnar"

// Change is the shape delta common to every transform's metadata.
type Change struct {
	RowsBefore     int      `json:"rows_before"`
	RowsAfter      int      `json:"rows_after"`
	ColumnsBefore  int      `json:"columns_before"`
	ColumnsAfter   int      `json:"columns_after"`
	ColumnsTouched []string `json:"columns_touched"`
}

// NewChange records the shape of before and after and the touched columns.
func NewChange(before, after *columnar.Table, touched []string) Change {
	if touched == nil {
		touched = []string{}
	}
	return Change{
		RowsBefore:     before.NumRows(),
		RowsAfter:      after.NumRows(),
		ColumnsBefore:  before.NumCols(),
		ColumnsAfter:   after.NumCols(),
		ColumnsTouched: touched,
	}
}

// Selection resolves a column selection against t: an empty selection
// means every column; otherwise names absent from t are skipped.
func Selection(t *columnar.Table, columns []string) []string {
	if len(columns) == 0 {
		return t.ColumnNames()
	}
	return t.Existing(columns)
}
