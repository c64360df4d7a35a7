package columnar

import (
	"fmt"
)

// Shape is the row and column count of a table.
type Shape struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// Table is an immutable ordered collection of equal-length named columns.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New creates a table from columns. Column names must be non-empty and
// unique and every column must have the same length.
func New(columns ...*Column) (*Table, error) {
	t := &Table{
		columns: make([]*Column, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	copy(t.columns, columns)

	for i, c := range t.columns {
		if c == nil {
			return nil, fmt.Errorf("column %d is nil", i)
		}
		if c.Name() == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := t.index[c.Name()]; dup {
			return nil, fmt.Errorf("duplicate column name %q", c.Name())
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name(), c.Len(), t.rows)
		}
		t.index[c.Name()] = i
	}

	return t, nil
}

// MustNew is New for statically known inputs; it panics on error.
func MustNew(columns ...*Column) *Table {
	t, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// NumRows returns the row count
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the column count
func (t *Table) NumCols() int { return len(t.columns) }

// Shape returns rows and columns.
func (t *Table) Shape() Shape {
	return Shape{Rows: t.rows, Columns: len(t.columns)}
}

// Columns returns the columns in order. The slice is a copy; the columns
// themselves are immutable.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// ColumnNames returns the column names in order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name()
	}
	return names
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// ColumnAt returns the column at position i.
func (t *Table) ColumnAt(i int) *Column { return t.columns[i] }

// Has reports whether the table has a column with the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Existing filters names down to the columns present in the table,
// preserving order and dropping duplicates.
func (t *Table) Existing(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup || !t.Has(n) {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// NumericColumnNames returns the names of numeric columns in order.
func (t *Table) NumericColumnNames() []string {
	var names []string
	for _, c := range t.columns {
		if c.IsNumeric() {
			names = append(names, c.Name())
		}
	}
	return names
}

// Take returns a table holding the given rows in order. Rows may repeat.
func (t *Table) Take(rows []int) *Table {
	out := &Table{
		columns: make([]*Column, len(t.columns)),
		index:   t.index,
		rows:    len(rows),
	}
	for i, c := range t.columns {
		out.columns[i] = c.Take(rows)
	}
	return out
}

// Drop returns a table without the named columns. Absent names are ignored.
func (t *Table) Drop(names ...string) *Table {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	kept := make([]*Column, 0, len(t.columns))
	for _, c := range t.columns {
		if _, ok := drop[c.Name()]; !ok {
			kept = append(kept, c)
		}
	}
	return t.rebuild(kept)
}

// Replace returns a table in which the column with col's name is swapped for
// col at the same position. If no such column exists col is appended.
// col must have the table's row count.
func (t *Table) Replace(col *Column) *Table {
	cols := t.Columns()
	if i, ok := t.index[col.Name()]; ok {
		cols[i] = col
	} else {
		cols = append(cols, col)
	}
	return t.rebuild(cols)
}

// Append returns a table with extra columns at the end.
func (t *Table) Append(cols ...*Column) (*Table, error) {
	all := append(t.Columns(), cols...)
	if len(t.columns) == 0 {
		return New(all...)
	}
	for _, c := range cols {
		if c.Len() != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name(), c.Len(), t.rows)
		}
	}
	return New(all...)
}

// Row returns row i keyed by column name; missing cells are nil.
func (t *Table) Row(i int) map[string]interface{} {
	row := make(map[string]interface{}, len(t.columns))
	for _, c := range t.columns {
		row[c.Name()] = c.Value(i)
	}
	return row
}

// RowKey returns a comparable key for row i over the given columns.
func (t *Table) RowKey(i int, cols []*Column) string {
	key := make([]byte, 0, 16*len(cols))
	for _, c := range cols {
		key = c.AppendKey(key, i)
	}
	return string(key)
}

// Equal reports whether both tables hold the same columns and cells.
func (t *Table) Equal(o *Table) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil || t.rows != o.rows || len(t.columns) != len(o.columns) {
		return false
	}
	for i, c := range t.columns {
		if c != o.columns[i] && !c.Equal(o.columns[i]) {
			return false
		}
	}
	return true
}

// MemoryUsage estimates the bytes held by the table's columns.
func (t *Table) MemoryUsage() int64 {
	var size int64
	for _, c := range t.columns {
		size += c.MemoryUsage()
	}
	return size
}

// rebuild assembles a table from columns already known to share a row count.
func (t *Table) rebuild(cols []*Column) *Table {
	out := &Table{
		columns: cols,
		index:   make(map[string]int, len(cols)),
		rows:    t.rows,
	}
	for i, c := range cols {
		out.index[c.Name()] = i
	}
	return out
}
