// Package columnar implements the immutable in-memory table that every
// preprocessing step consumes and produces.
//
// # Overview
//
// A Table is an ordered set of uniquely named columns of equal length. Each
// Column is either numeric (float64) or categorical (string) and carries its
// own validity mask, so missing cells are represented explicitly rather than
// through in-band sentinel values.
//
// # Immutability
//
// Tables and columns are values. Nothing in this package mutates a column
// after construction, and every derived table (Take, Drop, Replace, Append)
// is a new Table. Columns that a derivation does not touch are shared between
// the old and new tables, which keeps long undo histories cheap: a scaling
// step over two columns of a fifty-column table allocates two new columns,
// not fifty.
//
// # Usage Example
//
//	t, err := columnar.New(
//	    columnar.Numeric("age", 31, 42, math.NaN()),
//	    columnar.Categorical("city", "Paris", "Lyon", "Paris"),
//	)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(t.Shape()) // {3 2}
//
//	scaled := t.Replace(columnar.Numeric("age", 0.1, 0.9, math.NaN()))
//	// t is unchanged; scaled shares the "city" column with t.
//
// # Missing values
//
// Numeric constructors treat NaN as missing. Categorical constructors keep
// every string as given; IsMissingToken reports whether a raw string is one
// of the recognized missing-value spellings and is used by sources and the
// missing-value handler to normalize them.
package columnar
