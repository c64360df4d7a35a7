// Package scaling rescales numeric columns.
//
// Every method is an affine map y = (x - Center) / Scale fitted per column:
//
//	standard  Center = mean,    Scale = population std
//	minmax    Center = min,     Scale = max - min
//	robust    Center = median,  Scale = Q3 - Q1
//
// A zero Scale is replaced by 1 so constant columns map to 0 instead of
// dividing by zero. Missing cells stay missing.
package scaling

import (
	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/transform"
	"github.com/ajitpratap0/refinery/pkg/transform/numeric"
)

// Method selects a scaling scheme.
type Method int

const (
	// Standard centers on the mean and divides by the standard deviation
	Standard Method = iota
	// MinMax maps the observed range onto [0, 1]
	MinMax
	// Robust centers on the median and divides by the interquartile range
	Robust
)

var methodNames = map[Method]string{Standard: "standard", MinMax: "minmax", Robust: "robust"}

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

// ParseMethod maps "standard", "minmax" or "robust" to a Method.
func ParseMethod(name string) (Method, error) {
	for m, n := range methodNames {
		if n == name {
			return m, nil
		}
	}
	return 0, errors.InvalidMethod("method", name)
}

// Params configures Scale.
type Params struct {
	Columns []string
	Method  Method
}

// Fitted holds the parameters of one scaled column.
type Fitted struct {
	Method Method  `json:"type"`
	Column string  `json:"column"`
	Center float64 `json:"center"`
	Scale  float64 `json:"scale"`

	Mean *float64 `json:"mean,omitempty"`
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Q1   *float64 `json:"q1,omitempty"`
	Q3   *float64 `json:"q3,omitempty"`
}

// Apply scales c with the fitted parameters.
func (f Fitted) Apply(c *columnar.Column) *columnar.Column {
	return affine(c, func(x float64) float64 { return (x - f.Center) / f.Scale })
}

// Inverse maps scaled values back to the original units.
func (f Fitted) Inverse(c *columnar.Column) *columnar.Column {
	return affine(c, func(y float64) float64 { return y*f.Scale + f.Center })
}

// Metadata is the result of Scale.
type Metadata struct {
	transform.Change
	Method        Method                     `json:"method"`
	ColumnsScaled []string                   `json:"columns_scaled"`
	BeforeStats   map[string]numeric.Summary `json:"before_stats"`
	AfterStats    map[string]numeric.Summary `json:"after_stats"`
	Scalers       map[string]Fitted          `json:"scalers"`
}

// Scale fits and applies the method to each selected numeric column.
// Absent and non-numeric columns are skipped.
func Scale(t *columnar.Table, p Params) (*columnar.Table, Metadata, error) {
	if _, ok := methodNames[p.Method]; !ok {
		return nil, Metadata{}, errors.InvalidMethod("method", p.Method.String())
	}

	out := t
	meta := Metadata{
		Method:        p.Method,
		ColumnsScaled: []string{},
		BeforeStats:   make(map[string]numeric.Summary),
		AfterStats:    make(map[string]numeric.Summary),
		Scalers:       make(map[string]Fitted),
	}

	for _, name := range t.Existing(p.Columns) {
		col, _ := t.Column(name)
		if !col.IsNumeric() {
			continue
		}

		values := col.NonNullFloats()
		fitted := Fit(name, values, p.Method)
		scaled := fitted.Apply(col)
		out = out.Replace(scaled)

		meta.BeforeStats[name] = stats(values)
		meta.AfterStats[name] = stats(scaled.NonNullFloats())
		meta.Scalers[name] = fitted
		meta.ColumnsScaled = append(meta.ColumnsScaled, name)
	}

	meta.Change = transform.NewChange(t, out, meta.ColumnsScaled)
	return out, meta, nil
}

// Fit computes the scaling parameters for values.
func Fit(column string, values []float64, m Method) Fitted {
	f := Fitted{Method: m, Column: column}
	switch m {
	case Standard:
		mean := numeric.Mean(values)
		f.Center, f.Scale = mean, numeric.Std(values, 0)
		f.Mean = numeric.Finite(mean)
	case MinMax:
		lo, hi := numeric.MinMax(values)
		f.Center, f.Scale = lo, hi-lo
		f.Min, f.Max = numeric.Finite(lo), numeric.Finite(hi)
	case Robust:
		sorted := numeric.Sorted(values)
		q1 := numeric.QuantileSorted(sorted, 0.25)
		q3 := numeric.QuantileSorted(sorted, 0.75)
		f.Center, f.Scale = numeric.QuantileSorted(sorted, 0.5), q3-q1
		f.Q1, f.Q3 = numeric.Finite(q1), numeric.Finite(q3)
	}

	if numeric.Finite(f.Center) == nil {
		f.Center = 0
	}
	if numeric.Finite(f.Scale) == nil || f.Scale == 0 {
		f.Scale = 1
	}
	return f
}

func stats(values []float64) numeric.Summary {
	s := numeric.Describe(values)
	s.Median = nil
	return s
}

func affine(c *columnar.Column, fn func(float64) float64) *columnar.Column {
	values, valid := c.Floats()
	for i, ok := range valid {
		if ok {
			values[i] = fn(values[i])
		}
	}
	return columnar.NewNumericColumn(c.Name(), values, valid)
}
