package columnar

import (
	"math"
	"strconv"
)

// Kind represents the semantic type of a column
type Kind int

const (
	// KindCategorical holds text or category labels
	KindCategorical Kind = iota
	// KindNumeric holds float64 values
	KindNumeric
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Column is an immutable named vector of numeric or categorical cells.
type Column struct {
	name  string
	kind  Kind
	nums  []float64
	strs  []string
	valid []bool // nil means every cell is present
}

// NewNumericColumn builds a numeric column. NaN values and cells whose valid
// entry is false are missing. Both slices are copied.
func NewNumericColumn(name string, values []float64, valid []bool) *Column {
	nums := make([]float64, len(values))
	copy(nums, values)

	var mask []bool
	for i, v := range nums {
		missing := math.IsNaN(v) || (valid != nil && i < len(valid) && !valid[i])
		if missing {
			if mask == nil {
				mask = allTrue(len(nums))
			}
			mask[i] = false
			nums[i] = 0
		}
	}

	return &Column{name: name, kind: KindNumeric, nums: nums, valid: mask}
}

// NewCategoricalColumn builds a categorical column. Cells whose valid entry
// is false are missing. Both slices are copied.
func NewCategoricalColumn(name string, values []string, valid []bool) *Column {
	strs := make([]string, len(values))
	copy(strs, values)

	var mask []bool
	if valid != nil {
		for i := range strs {
			if i < len(valid) && !valid[i] {
				if mask == nil {
					mask = allTrue(len(strs))
				}
				mask[i] = false
				strs[i] = ""
			}
		}
	}

	return &Column{name: name, kind: KindCategorical, strs: strs, valid: mask}
}

// Numeric is a shorthand for NewNumericColumn with NaN marking missing cells.
func Numeric(name string, values ...float64) *Column {
	return NewNumericColumn(name, values, nil)
}

// Categorical is a shorthand for NewCategoricalColumn with no missing cells.
func Categorical(name string, values ...string) *Column {
	return NewCategoricalColumn(name, values, nil)
}

// Name returns the column name
func (c *Column) Name() string { return c.name }

// Kind returns the semantic type of the column
func (c *Column) Kind() Kind { return c.kind }

// IsNumeric reports whether the column holds numbers.
func (c *Column) IsNumeric() bool { return c.kind == KindNumeric }

// Len returns the number of cells
func (c *Column) Len() int {
	if c.kind == KindNumeric {
		return len(c.nums)
	}
	return len(c.strs)
}

// IsNull reports whether cell i is missing.
func (c *Column) IsNull(i int) bool {
	return c.valid != nil && !c.valid[i]
}

// NullCount returns the number of missing cells.
func (c *Column) NullCount() int {
	if c.valid == nil {
		return 0
	}
	n := 0
	for _, ok := range c.valid {
		if !ok {
			n++
		}
	}
	return n
}

// Float returns cell i as a number. ok is false for missing cells and for
// categorical cells that do not parse as a float.
func (c *Column) Float(i int) (float64, bool) {
	if c.IsNull(i) {
		return 0, false
	}
	if c.kind == KindNumeric {
		return c.nums[i], true
	}
	v, err := strconv.ParseFloat(c.strs[i], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// String returns cell i rendered as text; ok is false for missing cells.
func (c *Column) String(i int) (string, bool) {
	if c.IsNull(i) {
		return "", false
	}
	if c.kind == KindNumeric {
		return FormatFloat(c.nums[i]), true
	}
	return c.strs[i], true
}

// Value returns cell i as float64, string, or nil when missing.
func (c *Column) Value(i int) interface{} {
	if c.IsNull(i) {
		return nil
	}
	if c.kind == KindNumeric {
		return c.nums[i]
	}
	return c.strs[i]
}

// Floats returns a copy of the numeric values and the validity of each cell.
// Categorical columns report every cell as invalid.
func (c *Column) Floats() ([]float64, []bool) {
	n := c.Len()
	values := make([]float64, n)
	valid := make([]bool, n)
	if c.kind != KindNumeric {
		return values, valid
	}
	copy(values, c.nums)
	for i := range valid {
		valid[i] = !c.IsNull(i)
	}
	return values, valid
}

// Strings returns a copy of the cells rendered as text and their validity.
func (c *Column) Strings() ([]string, []bool) {
	n := c.Len()
	values := make([]string, n)
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		values[i], valid[i] = c.String(i)
	}
	return values, valid
}

// NonNullFloats returns the present numeric values in row order.
func (c *Column) NonNullFloats() []float64 {
	if c.kind != KindNumeric {
		return nil
	}
	out := make([]float64, 0, len(c.nums))
	for i, v := range c.nums {
		if !c.IsNull(i) {
			out = append(out, v)
		}
	}
	return out
}

// Distinct returns the number of distinct present values.
func (c *Column) Distinct() int {
	seen := make(map[string]struct{})
	for i := 0; i < c.Len(); i++ {
		if s, ok := c.key(i); ok {
			seen[s] = struct{}{}
		}
	}
	return len(seen)
}

// Key returns a comparable representation of cell i that distinguishes
// missing cells from every present value.
func (c *Column) Key(i int) string {
	return string(c.AppendKey(nil, i))
}

// AppendKey appends the key of cell i to dst. A missing cell is the single
// byte 'n'; a present value is 'v', its byte length, ':' and the bytes.
// Keys are prefix-free, so concatenated keys compare cell by cell.
func (c *Column) AppendKey(dst []byte, i int) []byte {
	s, ok := c.key(i)
	if !ok {
		return append(dst, 'n')
	}
	dst = append(dst, 'v')
	dst = strconv.AppendInt(dst, int64(len(s)), 10)
	dst = append(dst, ':')
	return append(dst, s...)
}

func (c *Column) key(i int) (string, bool) {
	if c.IsNull(i) {
		return "", false
	}
	if c.kind == KindNumeric {
		return strconv.FormatFloat(c.nums[i], 'g', -1, 64), true
	}
	return c.strs[i], true
}

// Rename returns the same cells under a new name.
func (c *Column) Rename(name string) *Column {
	out := *c
	out.name = name
	return &out
}

// Take returns a column holding the cells at rows, in that order. Rows may repeat.
func (c *Column) Take(rows []int) *Column {
	out := &Column{name: c.name, kind: c.kind}
	if c.kind == KindNumeric {
		out.nums = make([]float64, len(rows))
		for j, r := range rows {
			out.nums[j] = c.nums[r]
		}
	} else {
		out.strs = make([]string, len(rows))
		for j, r := range rows {
			out.strs[j] = c.strs[r]
		}
	}
	if c.valid != nil {
		out.valid = make([]bool, len(rows))
		for j, r := range rows {
			out.valid[j] = c.valid[r]
		}
	}
	return out
}

// Equal reports whether two columns hold the same name, kind and cells.
func (c *Column) Equal(o *Column) bool {
	if c.name != o.name || c.kind != o.kind || c.Len() != o.Len() {
		return false
	}
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) != o.IsNull(i) {
			return false
		}
		if c.IsNull(i) {
			continue
		}
		if c.kind == KindNumeric {
			if c.nums[i] != o.nums[i] {
				return false
			}
		} else if c.strs[i] != o.strs[i] {
			return false
		}
	}
	return true
}

// MemoryUsage estimates the bytes held by the column.
func (c *Column) MemoryUsage() int64 {
	size := int64(len(c.name)) + int64(len(c.valid))
	size += int64(len(c.nums)) * 8
	for _, s := range c.strs {
		size += int64(len(s)) + 16
	}
	return size
}

// FormatFloat renders a number the way tables display it: integral values
// without a fractional part.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func allTrue(n int) []bool {
	m := make([]bool, n)
	for i := range m {
		m[i] = true
	}
	return m
}
