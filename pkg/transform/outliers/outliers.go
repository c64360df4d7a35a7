// Package outliers detects and treats outlying numeric values.
package outliers

import (
	"fmt"
	"math"
	"sort"

	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/transform"
	"github.com/ajitpratap0/refinery/pkg/transform/numeric"
)

const (
	// DefaultThreshold is the z-score cut-off used when none is given.
	DefaultThreshold = 3.0
	// DefaultCapPercentile winsorizes at the 5th and 95th percentiles.
	DefaultCapPercentile = 0.05

	iqrFactor          = 1.5
	maxColumnIndices   = 50
	maxReportedIndices = 100
)

// Method selects the detection rule.
type Method int

const (
	// IQR flags values outside Q1-1.5*IQR and Q3+1.5*IQR
	IQR Method = iota
	// ZScore flags values whose absolute z-score exceeds the threshold
	ZScore
)

var methodNames = map[Method]string{IQR: "iqr", ZScore: "zscore"}

func (m Method) String() string { return methodNames[m] }

// MarshalText renders the method by name.
func (m Method) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// ParseMethod maps "iqr" or "zscore" to a Method.
func ParseMethod(name string) (Method, error) {
	for m, n := range methodNames {
		if n == name {
			return m, nil
		}
	}
	return 0, errors.InvalidMethod("method", name)
}

// Action selects what Handle does with detected outliers.
type Action int

const (
	// Remove drops every row that is an outlier in any selected column
	Remove Action = iota
	// Cap clips each column at a lower and upper percentile
	Cap
	// Flag adds a <column>_outlier indicator column
	Flag
)

var actionNames = map[Action]string{Remove: "remove", Cap: "cap", Flag: "flag"}

func (a Action) String() string { return actionNames[a] }

// MarshalText renders the action by name.
func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// ParseAction maps "remove", "cap" or "flag" to an Action.
func ParseAction(name string) (Action, error) {
	for a, n := range actionNames {
		if n == name {
			return a, nil
		}
	}
	return 0, errors.InvalidMethod("action", name)
}

// Params configures Detect.
type Params struct {
	// Columns to inspect; empty means every numeric column
	Columns []string
	Method  Method
	// Threshold for ZScore; zero means DefaultThreshold
	Threshold float64
}

// HandleParams configures Handle.
type HandleParams struct {
	Params
	Action Action
	// CapPercentile p clips at the p and 1-p quantiles; zero means
	// DefaultCapPercentile
	CapPercentile float64
}

// Stats holds the quantities a detection rule was computed from.
type Stats struct {
	Q1         *float64 `json:"q1,omitempty"`
	Q3         *float64 `json:"q3,omitempty"`
	IQR        *float64 `json:"iqr,omitempty"`
	LowerBound *float64 `json:"lower_bound,omitempty"`
	UpperBound *float64 `json:"upper_bound,omitempty"`
	Mean       *float64 `json:"mean,omitempty"`
	Std        *float64 `json:"std,omitempty"`
	Threshold  *float64 `json:"threshold,omitempty"`
	Formula    string   `json:"formula"`
}

// ColumnReport describes the outliers of one column.
type ColumnReport struct {
	Column            string  `json:"column"`
	OutlierCount      int     `json:"outlier_count"`
	OutlierPercentage float64 `json:"outlier_percentage"`
	OutlierIndices    []int   `json:"outlier_indices"`
	Stats             Stats   `json:"stats"`
}

// Report is the result of Detect.
type Report struct {
	Method                 Method         `json:"method"`
	Threshold              float64        `json:"threshold"`
	Columns                []ColumnReport `json:"columns"`
	TotalOutlierRows       int            `json:"total_outlier_rows"`
	TotalOutlierPercentage float64        `json:"total_outlier_percentage"`
	OutlierRowIndices      []int          `json:"outlier_row_indices"`
}

// ColumnResult describes how Handle treated one column.
type ColumnResult struct {
	Column     string   `json:"column"`
	Outliers   int      `json:"outliers"`
	LowerCap   *float64 `json:"lower_cap,omitempty"`
	UpperCap   *float64 `json:"upper_cap,omitempty"`
	FlagColumn string   `json:"flag_column,omitempty"`
	Stats      Stats    `json:"stats"`
}

// Metadata is the result of Handle.
type Metadata struct {
	transform.Change
	Method      Method         `json:"method"`
	Action      Action         `json:"action"`
	Columns     []ColumnResult `json:"columns"`
	RowsRemoved int            `json:"rows_removed"`
}

// Detect reports outliers per numeric column without changing the table.
// Absent and non-numeric columns are skipped.
func Detect(t *columnar.Table, p Params) (Report, error) {
	p, err := p.normalize()
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Method:            p.Method,
		Threshold:         p.Threshold,
		Columns:           []ColumnReport{},
		OutlierRowIndices: []int{},
	}

	union := make(map[int]struct{})
	for _, col := range numericColumns(t, p.Columns) {
		rows, stats := detect(col, p.Method, p.Threshold)
		for _, r := range rows {
			union[r] = struct{}{}
		}

		indices := rows
		if len(indices) > maxColumnIndices {
			indices = indices[:maxColumnIndices]
		}
		report.Columns = append(report.Columns, ColumnReport{
			Column:            col.Name(),
			OutlierCount:      len(rows),
			OutlierPercentage: percentage(len(rows), t.NumRows()),
			OutlierIndices:    indices,
			Stats:             stats,
		})
	}

	all := sortedKeys(union)
	report.TotalOutlierRows = len(all)
	report.TotalOutlierPercentage = percentage(len(all), t.NumRows())
	if len(all) > maxReportedIndices {
		all = all[:maxReportedIndices]
	}
	report.OutlierRowIndices = all
	return report, nil
}

// Handle removes, caps or flags outliers in the selected numeric columns.
func Handle(t *columnar.Table, p HandleParams) (*columnar.Table, Metadata, error) {
	params, err := p.Params.normalize()
	if err != nil {
		return nil, Metadata{}, err
	}
	if _, ok := actionNames[p.Action]; !ok {
		return nil, Metadata{}, errors.InvalidMethod("action", p.Action.String())
	}
	pct := p.CapPercentile
	if pct == 0 {
		pct = DefaultCapPercentile
	}
	if pct < 0 || pct >= 0.5 {
		return nil, Metadata{}, errors.Newf(errors.ErrorTypeValidation,
			"cap percentile must be in (0, 0.5), got %g", pct)
	}

	out := t
	meta := Metadata{Method: params.Method, Action: p.Action, Columns: []ColumnResult{}}
	touched := []string{}
	union := make(map[int]struct{})

	for _, col := range numericColumns(t, params.Columns) {
		rows, stats := detect(col, params.Method, params.Threshold)
		res := ColumnResult{Column: col.Name(), Outliers: len(rows), Stats: stats}
		touched = append(touched, col.Name())

		switch p.Action {
		case Remove:
			for _, r := range rows {
				union[r] = struct{}{}
			}
		case Cap:
			sorted := numeric.Sorted(col.NonNullFloats())
			lo := numeric.QuantileSorted(sorted, pct)
			hi := numeric.QuantileSorted(sorted, 1-pct)
			res.LowerCap, res.UpperCap = numeric.Finite(lo), numeric.Finite(hi)
			if len(sorted) > 0 {
				out = out.Replace(clip(col, lo, hi))
			}
		case Flag:
			res.FlagColumn = col.Name() + "_outlier"
			out = out.Replace(indicator(res.FlagColumn, t.NumRows(), rows))
			touched = append(touched, res.FlagColumn)
		}
		meta.Columns = append(meta.Columns, res)
	}

	if p.Action == Remove && len(union) > 0 {
		keep := make([]int, 0, t.NumRows()-len(union))
		for i := 0; i < t.NumRows(); i++ {
			if _, drop := union[i]; !drop {
				keep = append(keep, i)
			}
		}
		out = t.Take(keep)
	}

	meta.RowsRemoved = t.NumRows() - out.NumRows()
	meta.Change = transform.NewChange(t, out, touched)
	return out, meta, nil
}

func (p Params) normalize() (Params, error) {
	if _, ok := methodNames[p.Method]; !ok {
		return p, errors.InvalidMethod("method", p.Method.String())
	}
	if p.Threshold == 0 {
		p.Threshold = DefaultThreshold
	}
	if p.Threshold < 0 {
		return p, errors.Newf(errors.ErrorTypeValidation, "threshold must be positive, got %g", p.Threshold)
	}
	return p, nil
}

func numericColumns(t *columnar.Table, names []string) []*columnar.Column {
	if len(names) == 0 {
		names = t.NumericColumnNames()
	}
	var out []*columnar.Column
	for _, name := range t.Existing(names) {
		if c, _ := t.Column(name); c.IsNumeric() {
			out = append(out, c)
		}
	}
	return out
}

// detect returns the ascending row indices of outliers in c. Missing cells
// are never outliers.
func detect(c *columnar.Column, m Method, threshold float64) ([]int, Stats) {
	values := c.NonNullFloats()

	var stats Stats
	var outside func(float64) bool
	switch m {
	case IQR:
		sorted := numeric.Sorted(values)
		q1 := numeric.QuantileSorted(sorted, 0.25)
		q3 := numeric.QuantileSorted(sorted, 0.75)
		iqr := q3 - q1
		lo, hi := q1-iqrFactor*iqr, q3+iqrFactor*iqr
		stats = Stats{
			Q1:         numeric.Finite(q1),
			Q3:         numeric.Finite(q3),
			IQR:        numeric.Finite(iqr),
			LowerBound: numeric.Finite(lo),
			UpperBound: numeric.Finite(hi),
			Formula:    "Outliers: values < Q1 - 1.5×IQR or > Q3 + 1.5×IQR",
		}
		outside = func(v float64) bool { return v < lo || v > hi }
	case ZScore:
		mean, std := numeric.Mean(values), numeric.Std(values, 1)
		stats = Stats{
			Mean:      numeric.Finite(mean),
			Std:       numeric.Finite(std),
			Threshold: &threshold,
			Formula:   fmt.Sprintf("Outliers: |z| > %g where z = (x - μ) / σ", threshold),
		}
		if std == 0 || math.IsNaN(std) {
			return []int{}, stats
		}
		outside = func(v float64) bool { return math.Abs((v-mean)/std) > threshold }
	}

	rows := []int{}
	for i := 0; i < c.Len(); i++ {
		if v, ok := c.Float(i); ok && outside(v) {
			rows = append(rows, i)
		}
	}
	return rows, stats
}

func clip(c *columnar.Column, lo, hi float64) *columnar.Column {
	values, valid := c.Floats()
	for i := range values {
		values[i] = math.Min(math.Max(values[i], lo), hi)
	}
	return columnar.NewNumericColumn(c.Name(), values, valid)
}

func indicator(name string, n int, rows []int) *columnar.Column {
	values := make([]float64, n)
	for _, r := range rows {
		values[r] = 1
	}
	return columnar.NewNumericColumn(name, values, nil)
}

func percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
