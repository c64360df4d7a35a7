// Package encoding turns categorical columns into numbers.
//
// Four schemes are supported: label, one-hot, ordinal and target (mean)
// encoding. Every call returns the fitted Encoder for each column it
// encoded so that the same mapping can be re-applied or inverted later.
package encoding

import (
	"math"
	"sort"
	"strconv"

	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/errors"
)

// Unmapped is the ordinal code given to values outside the category order.
const Unmapped = -1

// LeakageWarning accompanies every target encoding result.
const LeakageWarning = "Target encoding uses the target column of the same rows and leaks label information; fit it on a training split and evaluate on a holdout."

// Method identifies an encoding scheme.
type Method int

const (
	// Label maps each category to its index in the sorted class list
	Label Method = iota
	// OneHot expands a column into one 0/1 indicator per category
	OneHot
	// Ordinal maps categories to their position in a given order
	Ordinal
	// Target replaces a category with the mean target value of its rows
	Target
)

var methodNames = map[Method]string{Label: "label", OneHot: "one_hot", Ordinal: "ordinal", Target: "target"}

func (m Method) String() string { return methodNames[m] }

// MarshalText renders the method by name.
func (m Method) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText parses a method name.
func (m *Method) UnmarshalText(b []byte) error {
	parsed, err := ParseMethod(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMethod maps a method name to a Method.
func ParseMethod(name string) (Method, error) {
	for m, n := range methodNames {
		if n == name {
			return m, nil
		}
	}
	return 0, errors.InvalidMethod("method", name)
}

// Encoder is the fitted state of one encoded column.
type Encoder struct {
	Method Method `json:"type"`
	Column string `json:"column"`

	// Label
	Classes []string `json:"classes,omitempty"`

	// One-hot and ordinal
	Categories []string       `json:"categories,omitempty"`
	Mapping    map[string]int `json:"category_map,omitempty"`
	DropFirst  bool           `json:"drop_first,omitempty"`
	NewColumns []string       `json:"new_columns,omitempty"`

	// Target
	TargetColumn string             `json:"target_column,omitempty"`
	TargetMeans  map[string]float64 `json:"target_means,omitempty"`
	OverallMean  *float64           `json:"overall_mean,omitempty"`
}

// Apply encodes c with the fitted state. Values unseen at fit time map to
// Unmapped for label and ordinal encoders, to all-zero indicators for
// one-hot, and to the overall mean for target encoders.
func (e *Encoder) Apply(c *columnar.Column) []*columnar.Column {
	switch e.Method {
	case Label:
		return []*columnar.Column{codes(c, e.Column, indexOf(e.Classes), true)}
	case Ordinal:
		return []*columnar.Column{codes(c, e.Column, e.Mapping, false)}
	case OneHot:
		return indicators(c, e.Column, e.Categories, e.DropFirst)
	case Target:
		fallback := math.NaN()
		if e.OverallMean != nil {
			fallback = *e.OverallMean
		}
		return []*columnar.Column{means(c, e.TargetMeans, fallback)}
	}
	return nil
}

// Inverse maps codes produced by a label or ordinal encoder back to their
// categories. Codes outside the known range become missing.
func (e *Encoder) Inverse(c *columnar.Column) (*columnar.Column, error) {
	var classes []string
	switch e.Method {
	case Label:
		classes = e.Classes
	case Ordinal:
		classes = e.Categories
	default:
		return nil, errors.Newf(errors.ErrorTypeCapability, "%s encoding is not invertible", e.Method)
	}

	values := make([]string, c.Len())
	valid := make([]bool, c.Len())
	for i := range values {
		v, ok := c.Float(i)
		idx := int(v)
		if !ok || float64(idx) != v || idx < 0 || idx >= len(classes) {
			continue
		}
		values[i] = classes[idx]
		valid[i] = true
	}
	return columnar.NewCategoricalColumn(c.Name(), values, valid), nil
}

// Clone returns a deep copy of e.
func (e *Encoder) Clone() Encoder {
	out := *e
	out.Classes = append([]string(nil), e.Classes...)
	out.Categories = append([]string(nil), e.Categories...)
	out.NewColumns = append([]string(nil), e.NewColumns...)
	if e.Mapping != nil {
		out.Mapping = make(map[string]int, len(e.Mapping))
		for k, v := range e.Mapping {
			out.Mapping[k] = v
		}
	}
	if e.TargetMeans != nil {
		out.TargetMeans = make(map[string]float64, len(e.TargetMeans))
		for k, v := range e.TargetMeans {
			out.TargetMeans[k] = v
		}
	}
	if e.OverallMean != nil {
		m := *e.OverallMean
		out.OverallMean = &m
	}
	return out
}

// categories returns the distinct present values of c as text, sorted
// numerically for numeric columns and lexically otherwise.
func categories(c *columnar.Column) []string {
	seen := make(map[string]struct{})
	var out []string
	for i := 0; i < c.Len(); i++ {
		s, ok := c.String(i)
		if !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	if c.IsNumeric() {
		sort.Slice(out, func(i, j int) bool {
			a, _ := strconv.ParseFloat(out[i], 64)
			b, _ := strconv.ParseFloat(out[j], 64)
			return a < b
		})
	} else {
		sort.Strings(out)
	}
	return out
}

// firstSeen returns the distinct present values of c in row order.
func firstSeen(c *columnar.Column) []string {
	seen := make(map[string]struct{})
	var out []string
	for i := 0; i < c.Len(); i++ {
		s, ok := c.String(i)
		if !ok {
			continue
		}
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func indexOf(values []string) map[string]int {
	m := make(map[string]int, len(values))
	for i, v := range values {
		m[v] = i
	}
	return m
}

// codes maps each present value through mapping. Missing cells stay missing
// when keepNull is set and become Unmapped otherwise; unknown values always
// become Unmapped.
func codes(c *columnar.Column, name string, mapping map[string]int, keepNull bool) *columnar.Column {
	values := make([]float64, c.Len())
	valid := make([]bool, c.Len())
	for i := range values {
		s, ok := c.String(i)
		if !ok {
			values[i], valid[i] = Unmapped, !keepNull
			continue
		}
		code, known := mapping[s]
		if !known {
			code = Unmapped
		}
		values[i], valid[i] = float64(code), true
	}
	return columnar.NewNumericColumn(name, values, valid)
}

func indicators(c *columnar.Column, prefix string, cats []string, dropFirst bool) []*columnar.Column {
	start := 0
	if dropFirst {
		start = 1
	}
	if start >= len(cats) {
		return nil
	}

	out := make([]*columnar.Column, 0, len(cats)-start)
	for _, cat := range cats[start:] {
		values := make([]float64, c.Len())
		for i := range values {
			if s, ok := c.String(i); ok && s == cat {
				values[i] = 1
			}
		}
		out = append(out, columnar.NewNumericColumn(prefix+"_"+cat, values, nil))
	}
	return out
}

func means(c *columnar.Column, table map[string]float64, fallback float64) *columnar.Column {
	values := make([]float64, c.Len())
	for i := range values {
		values[i] = fallback
		if s, ok := c.String(i); ok {
			if m, known := table[s]; known {
				values[i] = m
			}
		}
	}
	return columnar.NewNumericColumn(c.Name(), values, nil)
}
