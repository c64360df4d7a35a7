package columnar

import "strings"

// missingTokens are the spellings treated as a missing value once
// surrounding whitespace is removed. Matching is case-sensitive.
var missingTokens = map[string]struct{}{
	"":     {},
	"NaN":  {},
	"nan":  {},
	"NAN":  {},
	"None": {},
	"none": {},
	"NONE": {},
	"Na":   {},
	"NA":   {},
	"n/a":  {},
	"N/A":  {},
	"null": {},
	"NULL": {},
	"Null": {},
}

// IsMissingToken reports whether s spells a missing value.
func IsMissingToken(s string) bool {
	_, ok := missingTokens[strings.TrimSpace(s)]
	return ok
}

// NormalizeMissing returns c with every categorical cell that spells a
// missing value marked as missing. Numeric columns and columns without
// such cells are returned unchanged.
func NormalizeMissing(c *Column) *Column {
	if c.kind != KindCategorical {
		return c
	}
	var valid []bool
	for i, s := range c.strs {
		if c.IsNull(i) || !IsMissingToken(s) {
			continue
		}
		if valid == nil {
			valid = make([]bool, len(c.strs))
			for j := range valid {
				valid[j] = !c.IsNull(j)
			}
		}
		valid[i] = false
	}
	if valid == nil {
		return c
	}
	return NewCategoricalColumn(c.name, c.strs, valid)
}

// NormalizeTable applies NormalizeMissing to every column.
func NormalizeTable(t *Table) *Table {
	cols := t.Columns()
	changed := false
	for i, c := range cols {
		n := NormalizeMissing(c)
		if n != c {
			cols[i] = n
			changed = true
		}
	}
	if !changed {
		return t
	}
	return t.rebuild(cols)
}
