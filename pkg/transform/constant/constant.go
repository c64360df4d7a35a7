// Package constant finds and removes columns that carry no information.
package constant

import (
	"math"

	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/transform"
	"github.com/ajitpratap0/refinery/pkg/transform/numeric"
)

// Column describes one constant or near-constant column.
type Column struct {
	Column        string   `json:"column"`
	ConstantValue string   `json:"constant_value"`
	UniqueCount   int      `json:"unique_count"`
	Variance      *float64 `json:"variance,omitempty"`
	DataType      string   `json:"data_type"`
}

// Report is the result of Detect.
type Report struct {
	VarianceThreshold   float64  `json:"variance_threshold"`
	ConstantColumnCount int      `json:"constant_column_count"`
	ConstantColumns     []Column `json:"constant_columns"`
}

// Metadata is the result of Remove.
type Metadata struct {
	transform.Change
	ColumnsRemoved      []string `json:"columns_removed"`
	ColumnsRemovedCount int      `json:"columns_removed_count"`
}

// Detect reports columns with at most one distinct present value, and
// numeric columns whose sample variance is at most threshold. A numeric
// column with fewer than two present values has undefined variance and is
// reported as constant.
func Detect(t *columnar.Table, threshold float64) Report {
	report := Report{VarianceThreshold: threshold, ConstantColumns: []Column{}}

	for _, c := range t.Columns() {
		unique := c.Distinct()
		entry := Column{
			Column:        c.Name(),
			ConstantValue: firstValue(c),
			UniqueCount:   unique,
			DataType:      c.Kind().String(),
		}

		switch {
		case unique <= 1:
		case c.IsNumeric():
			v := numeric.Variance(c.NonNullFloats(), 1)
			if !math.IsNaN(v) && v > threshold {
				continue
			}
			if math.IsNaN(v) {
				v = 0
			}
			entry.Variance = &v
		default:
			continue
		}
		report.ConstantColumns = append(report.ConstantColumns, entry)
	}

	report.ConstantColumnCount = len(report.ConstantColumns)
	return report
}

// Remove drops the named columns. Names absent from the table are ignored.
func Remove(t *columnar.Table, columns []string) (*columnar.Table, Metadata) {
	present := t.Existing(columns)
	out := t.Drop(present...)
	return out, Metadata{
		Change:              transform.NewChange(t, out, present),
		ColumnsRemoved:      present,
		ColumnsRemovedCount: len(present),
	}
}

func firstValue(c *columnar.Column) string {
	if c.Len() == 0 {
		return "None"
	}
	if s, ok := c.String(0); ok {
		return s
	}
	return "None"
}
