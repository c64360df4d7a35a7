// Package missing detects and imputes missing values.
package missing

import (
	"sort"
	"strconv"

	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/transform"
	"github.com/ajitpratap0/refinery/pkg/transform/numeric"
)

// Strategy selects how missing cells are handled.
type Strategy int

const (
	// Drop removes rows with a missing cell in any selected column
	Drop Strategy = iota
	// Mean fills numeric columns with the column mean
	Mean
	// Median fills numeric columns with the column median
	Median
	// Mode fills any column with its most frequent value
	Mode
	// ConstantNumeric fills numeric columns with a fixed number
	ConstantNumeric
	// ConstantCategorical fills categorical columns with a fixed string
	ConstantCategorical
)

var strategyNames = map[Strategy]string{
	Drop:                "drop",
	Mean:                "mean",
	Median:              "median",
	Mode:                "mode",
	ConstantNumeric:     "constant_num",
	ConstantCategorical: "constant_cat",
}

func (s Strategy) String() string { return strategyNames[s] }

// MarshalText renders the strategy by name.
func (s Strategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ParseStrategy maps a strategy name to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return 0, errors.InvalidMethod("strategy", name)
}

// Params configures Handle.
type Params struct {
	// Columns to process; empty means all columns
	Columns  []string
	Strategy Strategy
	// ConstantValue is used by ConstantNumeric
	ConstantValue *float64
	// ConstantString is used by ConstantCategorical and as the Mode fallback
	ConstantString *string
}

// ColumnReport describes the missing cells of one column.
type ColumnReport struct {
	Column         string  `json:"column"`
	DataType       string  `json:"data_type"`
	NullCount      int     `json:"null_count"`
	NullPercentage float64 `json:"null_percentage"`
	NonNullCount   int     `json:"non_null_count"`
}

// Report is the result of Analyze.
type Report struct {
	TotalRows           int            `json:"total_rows"`
	TotalColumns        int            `json:"total_columns"`
	TotalCells          int            `json:"total_cells"`
	TotalNullCount      int            `json:"total_null_count"`
	TotalNullPercentage float64        `json:"total_null_percentage"`
	ColumnsWithMissing  int            `json:"columns_with_missing"`
	Columns             []ColumnReport `json:"columns"`
}

// Fill records how one column's missing cells were filled.
type Fill struct {
	Count  int         `json:"count"`
	Method string      `json:"method"`
	Value  interface{} `json:"value"`
}

// Metadata is the result of Handle.
type Metadata struct {
	transform.Change
	Strategy         Strategy        `json:"strategy"`
	ColumnsProcessed []string        `json:"columns_processed"`
	RowsRemoved      int             `json:"rows_removed"`
	NullsFilled      map[string]Fill `json:"nulls_filled"`
}

// Analyze reports missing cells per column after normalizing missing
// spellings. Columns are ordered by missing percentage, highest first.
func Analyze(t *columnar.Table) Report {
	norm := columnar.NormalizeTable(t)
	rows := norm.NumRows()

	report := Report{
		TotalRows:    rows,
		TotalColumns: norm.NumCols(),
		TotalCells:   rows * norm.NumCols(),
		Columns:      make([]ColumnReport, 0, norm.NumCols()),
	}

	for _, c := range norm.Columns() {
		nulls := c.NullCount()
		pct := 0.0
		if rows > 0 {
			pct = numeric.Round(float64(nulls)/float64(rows)*100, 2)
		}
		report.TotalNullCount += nulls
		if nulls > 0 {
			report.ColumnsWithMissing++
		}
		report.Columns = append(report.Columns, ColumnReport{
			Column:         c.Name(),
			DataType:       c.Kind().String(),
			NullCount:      nulls,
			NullPercentage: pct,
			NonNullCount:   rows - nulls,
		})
	}

	sort.SliceStable(report.Columns, func(i, j int) bool {
		return report.Columns[i].NullPercentage > report.Columns[j].NullPercentage
	})

	if report.TotalCells > 0 {
		report.TotalNullPercentage = numeric.Round(float64(report.TotalNullCount)/float64(report.TotalCells)*100, 2)
	}
	return report
}

// Handle applies the strategy to the selected columns. The returned table
// has every missing spelling normalized, including in unselected columns.
// Columns without missing cells and columns of the wrong type for the
// strategy are left untouched and omitted from NullsFilled.
func Handle(t *columnar.Table, p Params) (*columnar.Table, Metadata, error) {
	if _, ok := strategyNames[p.Strategy]; !ok {
		return nil, Metadata{}, errors.InvalidMethod("strategy", p.Strategy.String())
	}

	out := columnar.NormalizeTable(t)
	columns := transform.Selection(out, p.Columns)
	meta := Metadata{
		Strategy:         p.Strategy,
		ColumnsProcessed: columns,
		NullsFilled:      make(map[string]Fill),
	}

	if p.Strategy == Drop {
		out = dropRows(out, columns)
		meta.RowsRemoved = t.NumRows() - out.NumRows()
		meta.Change = transform.NewChange(t, out, columns)
		return out, meta, nil
	}

	var touched []string
	for _, name := range columns {
		col, _ := out.Column(name)
		nulls := col.NullCount()
		if nulls == 0 {
			continue
		}

		filled, fill, ok := fillColumn(col, p)
		if !ok || filled == col {
			continue
		}
		fill.Count = nulls
		out = out.Replace(filled)
		meta.NullsFilled[name] = fill
		touched = append(touched, name)
	}

	meta.Change = transform.NewChange(t, out, touched)
	return out, meta, nil
}

func dropRows(t *columnar.Table, columns []string) *columnar.Table {
	cols := make([]*columnar.Column, 0, len(columns))
	for _, name := range columns {
		c, _ := t.Column(name)
		cols = append(cols, c)
	}

	keep := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		complete := true
		for _, c := range cols {
			if c.IsNull(i) {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, i)
		}
	}
	if len(keep) == t.NumRows() {
		return t
	}
	return t.Take(keep)
}

func fillColumn(c *columnar.Column, p Params) (*columnar.Column, Fill, bool) {
	switch p.Strategy {
	case Mean:
		if !c.IsNumeric() {
			return nil, Fill{}, false
		}
		v := numeric.Mean(c.NonNullFloats())
		return fillNumeric(c, v), Fill{Method: "mean", Value: numeric.Finite(v)}, true

	case Median:
		if !c.IsNumeric() {
			return nil, Fill{}, false
		}
		v := numeric.Median(c.NonNullFloats())
		return fillNumeric(c, v), Fill{Method: "median", Value: numeric.Finite(v)}, true

	case Mode:
		if v, ok := mode(c); ok {
			return fillText(c, v), Fill{Method: "mode", Value: v}, true
		}
		if p.ConstantString == nil {
			return nil, Fill{}, false
		}
		return fillText(c, *p.ConstantString), Fill{Method: "constant", Value: *p.ConstantString}, true

	case ConstantNumeric:
		if !c.IsNumeric() || p.ConstantValue == nil {
			return nil, Fill{}, false
		}
		return fillNumeric(c, *p.ConstantValue), Fill{Method: "constant", Value: *p.ConstantValue}, true

	case ConstantCategorical:
		if c.IsNumeric() || p.ConstantString == nil {
			return nil, Fill{}, false
		}
		return fillText(c, *p.ConstantString), Fill{Method: "constant", Value: *p.ConstantString}, true
	}
	return nil, Fill{}, false
}

// fillNumeric replaces missing cells with v. A NaN fill leaves them missing.
func fillNumeric(c *columnar.Column, v float64) *columnar.Column {
	values, valid := c.Floats()
	for i, ok := range valid {
		if !ok {
			values[i] = v
		}
	}
	return columnar.NewNumericColumn(c.Name(), values, nil)
}

// fillText replaces missing cells with s. On a numeric column s must parse
// as a number; otherwise the column is returned unchanged.
func fillText(c *columnar.Column, s string) *columnar.Column {
	if c.IsNumeric() {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return c
		}
		return fillNumeric(c, v)
	}
	values, valid := c.Strings()
	for i, ok := range valid {
		if !ok {
			values[i] = s
		}
	}
	return columnar.NewCategoricalColumn(c.Name(), values, nil)
}

// mode returns the most frequent present value; ties resolve to the
// smallest value (numerically for numeric columns).
func mode(c *columnar.Column) (string, bool) {
	counts := make(map[string]int)
	for i := 0; i < c.Len(); i++ {
		if s, ok := c.String(i); ok {
			counts[s]++
		}
	}
	if len(counts) == 0 {
		return "", false
	}

	best, bestN := "", -1
	for v, n := range counts {
		if n > bestN || (n == bestN && less(c, v, best)) {
			best, bestN = v, n
		}
	}
	return best, true
}

func less(c *columnar.Column, a, b string) bool {
	if c.IsNumeric() {
		fa, _ := strconv.ParseFloat(a, 64)
		fb, _ := strconv.ParseFloat(b, 64)
		return fa < fb
	}
	return a < b
}
