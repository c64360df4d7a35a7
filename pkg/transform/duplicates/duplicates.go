// Package duplicates detects and removes duplicate rows.
//
// Two rows are duplicates when every compared cell matches exactly; missing
// cells compare equal to each other and to nothing else.
package duplicates

import (
	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/transform"
)

// DefaultPreviewLimit caps the rows included in Report.Preview.
const DefaultPreviewLimit = 10

const maxReportedIndices = 100

// Keep selects which member of each duplicate group survives removal.
type Keep int

const (
	// KeepFirst keeps the first occurrence
	KeepFirst Keep = iota
	// KeepLast keeps the last occurrence
	KeepLast
	// KeepNone drops every member of a duplicate group
	KeepNone
)

var keepNames = map[Keep]string{KeepFirst: "first", KeepLast: "last", KeepNone: "none"}

func (k Keep) String() string { return keepNames[k] }

// MarshalText renders the policy by name.
func (k Keep) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseKeep maps "first", "last" or "none" to a Keep policy.
func ParseKeep(name string) (Keep, error) {
	for k, n := range keepNames {
		if n == name {
			return k, nil
		}
	}
	return 0, errors.InvalidMethod("keep", name)
}

// ColumnPair names two columns with identical contents.
type ColumnPair struct {
	Column1 string `json:"column1"`
	Column2 string `json:"column2"`
}

// Preview holds the first duplicated rows.
type Preview struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
	Indices []int           `json:"indices"`
}

// Report is the result of Analyze.
type Report struct {
	TotalRows             int          `json:"total_rows"`
	DuplicateRowCount     int          `json:"duplicate_row_count"`
	UniqueDuplicateGroups int          `json:"unique_duplicate_groups"`
	DuplicatePercentage   float64      `json:"duplicate_percentage"`
	DuplicateRowIndices   []int        `json:"duplicate_row_indices"`
	DuplicateColumnCount  int          `json:"duplicate_column_count"`
	DuplicateColumns      []ColumnPair `json:"duplicate_columns"`
	Preview               *Preview     `json:"preview"`
}

// Params configures Remove.
type Params struct {
	Keep Keep
	// Subset restricts the compared columns; empty means all columns.
	// Names absent from the table are ignored.
	Subset []string
}

// Metadata is the result of Remove.
type Metadata struct {
	transform.Change
	RowsRemoved int      `json:"rows_removed"`
	Keep        Keep     `json:"keep"`
	Subset      []string `json:"subset"`
}

// Analyze reports duplicated rows and identical column pairs. The duplicate
// row count includes the first occurrence of each group. previewLimit <= 0
// uses DefaultPreviewLimit.
func Analyze(t *columnar.Table, previewLimit int) Report {
	if previewLimit <= 0 {
		previewLimit = DefaultPreviewLimit
	}

	groups, order := group(t, t.Columns())
	report := Report{
		TotalRows:           t.NumRows(),
		DuplicateRowIndices: []int{},
		DuplicateColumns:    []ColumnPair{},
	}

	duplicated := make([]bool, t.NumRows())
	for _, key := range order {
		rows := groups[key]
		if len(rows) < 2 {
			continue
		}
		report.UniqueDuplicateGroups++
		for _, r := range rows {
			duplicated[r] = true
		}
	}

	for i, dup := range duplicated {
		if !dup {
			continue
		}
		report.DuplicateRowCount++
		if len(report.DuplicateRowIndices) < maxReportedIndices {
			report.DuplicateRowIndices = append(report.DuplicateRowIndices, i)
		}
	}
	if t.NumRows() > 0 {
		report.DuplicatePercentage = float64(report.DuplicateRowCount) / float64(t.NumRows()) * 100
	}

	cols := t.Columns()
	for i := range cols {
		for j := i + 1; j < len(cols); j++ {
			if cols[i].Equal(cols[j].Rename(cols[i].Name())) {
				report.DuplicateColumns = append(report.DuplicateColumns, ColumnPair{
					Column1: cols[i].Name(),
					Column2: cols[j].Name(),
				})
			}
		}
	}
	report.DuplicateColumnCount = len(report.DuplicateColumns)

	if report.DuplicateRowCount > 0 {
		report.Preview = preview(t, duplicated, previewLimit)
	}
	return report
}

// Remove drops duplicate rows according to the keep policy. Surviving rows
// keep their relative order.
func Remove(t *columnar.Table, p Params) (*columnar.Table, Metadata, error) {
	if _, ok := keepNames[p.Keep]; !ok {
		return nil, Metadata{}, errors.InvalidMethod("keep", p.Keep.String())
	}

	subset := transform.Selection(t, p.Subset)
	cols := make([]*columnar.Column, 0, len(subset))
	for _, name := range subset {
		c, _ := t.Column(name)
		cols = append(cols, c)
	}

	groups, _ := group(t, cols)
	survive := make([]bool, t.NumRows())
	for _, rows := range groups {
		switch {
		case len(rows) == 1:
			survive[rows[0]] = true
		case p.Keep == KeepFirst:
			survive[rows[0]] = true
		case p.Keep == KeepLast:
			survive[rows[len(rows)-1]] = true
		}
	}

	keep := make([]int, 0, t.NumRows())
	for i, ok := range survive {
		if ok {
			keep = append(keep, i)
		}
	}

	out := t
	if len(keep) != t.NumRows() {
		out = t.Take(keep)
	}

	return out, Metadata{
		Change:      transform.NewChange(t, out, subset),
		RowsRemoved: t.NumRows() - out.NumRows(),
		Keep:        p.Keep,
		Subset:      subset,
	}, nil
}

// group buckets row indices by their key over cols. order lists the keys
// in order of first appearance.
func group(t *columnar.Table, cols []*columnar.Column) (map[string][]int, []string) {
	groups := make(map[string][]int)
	var order []string
	for i := 0; i < t.NumRows(); i++ {
		key := t.RowKey(i, cols)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}
	return groups, order
}

func preview(t *columnar.Table, duplicated []bool, limit int) *Preview {
	p := &Preview{Columns: t.ColumnNames()}
	cols := t.Columns()
	for i, dup := range duplicated {
		if !dup {
			continue
		}
		if len(p.Indices) == limit {
			break
		}
		row := make([]interface{}, len(cols))
		for j, c := range cols {
			row[j] = c.Value(i)
		}
		p.Rows = append(p.Rows, row)
		p.Indices = append(p.Indices, i)
	}
	return p
}
