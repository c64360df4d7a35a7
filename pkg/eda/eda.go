// Package eda computes read-only exploratory statistics for a table:
// per-column summaries, a Pearson correlation matrix and a dataset overview.
package eda

import (
	"context"
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/logger"
	"github.com/ajitpratap0/refinery/pkg/transform/numeric"
)

// Cardinality classes for categorical columns.
const (
	CardinalityLow    = "low"
	CardinalityMedium = "medium"
	CardinalityHigh   = "high"
)

// Config tunes an Analyzer.
type Config struct {
	// TopCorrelations is the number of column pairs reported by |r|.
	TopCorrelations int
	// TopValues is the number of value counts kept per categorical column.
	TopValues int
	// Parallelism bounds the goroutines summarizing columns. Zero means
	// GOMAXPROCS.
	Parallelism int
}

// DefaultConfig returns the defaults.
func DefaultConfig() Config {
	return Config{TopCorrelations: 10, TopValues: 10}
}

// Report is the full EDA result.
type Report struct {
	Overview        Overview             `json:"overview"`
	Numeric         []NumericSummary     `json:"numeric"`
	Categorical     []CategoricalSummary `json:"categorical"`
	Correlations    CorrelationMatrix    `json:"correlations"`
	TopCorrelations []CorrelationPair    `json:"top_correlations"`
}

// Overview describes the table as a whole.
type Overview struct {
	Rows               int     `json:"rows"`
	Columns            int     `json:"columns"`
	NumericColumns     int     `json:"numeric_columns"`
	CategoricalColumns int     `json:"categorical_columns"`
	MissingCells       int     `json:"missing_cells"`
	MissingPercentage  float64 `json:"missing_percentage"`
	DuplicateRows      int     `json:"duplicate_rows"`
	MemoryBytes        int64   `json:"memory_bytes"`
}

// NumericSummary describes one numeric column. Statistics that are
// undefined for the column (too few values) are nil.
type NumericSummary struct {
	Column   string   `json:"column"`
	Count    int      `json:"count"`
	Missing  int      `json:"missing"`
	Mean     *float64 `json:"mean"`
	Median   *float64 `json:"median"`
	Std      *float64 `json:"std"`
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Q25      *float64 `json:"q25"`
	Q75      *float64 `json:"q75"`
	Skewness *float64 `json:"skewness"`
	Kurtosis *float64 `json:"kurtosis"`
}

// ValueCount is one entry of a categorical frequency table.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CategoricalSummary describes one categorical column.
type CategoricalSummary struct {
	Column       string       `json:"column"`
	Count        int          `json:"count"`
	Missing      int          `json:"missing"`
	Unique       int          `json:"unique"`
	Top          string       `json:"top,omitempty"`
	TopFrequency int          `json:"top_frequency"`
	Cardinality  string       `json:"cardinality"`
	ValueCounts  []ValueCount `json:"value_counts"`
}

// CorrelationMatrix holds pairwise Pearson coefficients between numeric
// columns. Values[i][j] is nil when fewer than two rows have both values or
// either column is constant over them.
type CorrelationMatrix struct {
	Columns []string     `json:"columns"`
	Values  [][]*float64 `json:"values"`
}

// CorrelationPair is one off-diagonal entry of the matrix.
type CorrelationPair struct {
	ColumnA     string  `json:"column_a"`
	ColumnB     string  `json:"column_b"`
	Correlation float64 `json:"correlation"`
}

// Analyzer computes reports. It never modifies its input.
type Analyzer struct {
	cfg    Config
	logger *zap.Logger
}

// NewAnalyzer creates an analyzer with DefaultConfig.
func NewAnalyzer(log *zap.Logger) *Analyzer {
	return NewAnalyzerWithConfig(DefaultConfig(), log)
}

// NewAnalyzerWithConfig creates an analyzer. Non-positive limits fall back
// to the defaults.
func NewAnalyzerWithConfig(cfg Config, log *zap.Logger) *Analyzer {
	def := DefaultConfig()
	if cfg.TopCorrelations <= 0 {
		cfg.TopCorrelations = def.TopCorrelations
	}
	if cfg.TopValues <= 0 {
		cfg.TopValues = def.TopValues
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = runtime.GOMAXPROCS(0)
	}
	return &Analyzer{cfg: cfg, logger: logger.OrDefault(log).With(zap.String("component", "eda"))}
}

// Analyze builds the full report for t.
func (a *Analyzer) Analyze(ctx context.Context, t *columnar.Table) (*Report, error) {
	if t == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "no table to analyze")
	}
	start := time.Now()

	cols := t.Columns()
	numericSummaries := make([]*NumericSummary, len(cols))
	categoricalSummaries := make([]*CategoricalSummary, len(cols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Parallelism)
	for i, c := range cols {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if c.IsNumeric() {
				s := DescribeNumeric(c)
				numericSummaries[i] = &s
			} else {
				s := DescribeCategorical(c, a.cfg.TopValues)
				categoricalSummaries[i] = &s
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "column summaries cancelled")
	}

	report := &Report{
		Overview:    Describe(t),
		Numeric:     []NumericSummary{},
		Categorical: []CategoricalSummary{},
	}
	for i := range cols {
		if numericSummaries[i] != nil {
			report.Numeric = append(report.Numeric, *numericSummaries[i])
		}
		if categoricalSummaries[i] != nil {
			report.Categorical = append(report.Categorical, *categoricalSummaries[i])
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "correlations cancelled")
	}
	report.Correlations = Correlations(t)
	report.TopCorrelations = TopCorrelations(report.Correlations, a.cfg.TopCorrelations)

	a.logger.Info("EDA report built",
		zap.Int("rows", t.NumRows()),
		zap.Int("numeric_columns", len(report.Numeric)),
		zap.Int("categorical_columns", len(report.Categorical)),
		zap.Duration("duration", time.Since(start)))
	return report, nil
}

// Describe computes the overview of t.
func Describe(t *columnar.Table) Overview {
	o := Overview{
		Rows:        t.NumRows(),
		Columns:     t.NumCols(),
		MemoryBytes: t.MemoryUsage(),
	}
	for _, c := range t.Columns() {
		if c.IsNumeric() {
			o.NumericColumns++
		} else {
			o.CategoricalColumns++
		}
		o.MissingCells += c.NullCount()
	}
	if cells := o.Rows * o.Columns; cells > 0 {
		o.MissingPercentage = numeric.Round(float64(o.MissingCells)/float64(cells)*100, 2)
	}

	cols := t.Columns()
	seen := make(map[string]struct{}, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		key := t.RowKey(i, cols)
		if _, dup := seen[key]; dup {
			o.DuplicateRows++
			continue
		}
		seen[key] = struct{}{}
	}
	return o
}

// DescribeNumeric summarizes a numeric column over its present values.
func DescribeNumeric(c *columnar.Column) NumericSummary {
	values := c.NonNullFloats()
	s := NumericSummary{Column: c.Name(), Count: len(values), Missing: c.NullCount()}
	if len(values) == 0 {
		return s
	}

	data := stats.Float64Data(values)
	if v, err := data.Mean(); err == nil {
		s.Mean = numeric.Finite(v)
	}
	if v, err := data.Median(); err == nil {
		s.Median = numeric.Finite(v)
	}
	if v, err := data.Min(); err == nil {
		s.Min = numeric.Finite(v)
	}
	if v, err := data.Max(); err == nil {
		s.Max = numeric.Finite(v)
	}
	if len(values) > 1 {
		if v, err := data.StandardDeviationSample(); err == nil {
			s.Std = numeric.Finite(v)
		}
	}

	sorted := numeric.Sorted(values)
	s.Q25 = numeric.Finite(numeric.QuantileSorted(sorted, 0.25))
	s.Q75 = numeric.Finite(numeric.QuantileSorted(sorted, 0.75))
	s.Skewness, s.Kurtosis = moments(values)
	return s
}

// moments returns the bias-corrected sample skewness (n >= 3) and excess
// kurtosis (n >= 4). A constant column has zero for both.
func moments(values []float64) (skew, kurt *float64) {
	n := float64(len(values))
	if n < 3 {
		return nil, nil
	}
	mean := numeric.Mean(values)
	var m2, m3, m4 float64
	for _, v := range values {
		d := v - mean
		d2 := d * d
		m2 += d2
		m3 += d2 * d
		m4 += d2 * d2
	}
	m2, m3, m4 = m2/n, m3/n, m4/n

	if m2 == 0 {
		zero := 0.0
		skew = &zero
		if n >= 4 {
			kurt = &zero
		}
		return skew, kurt
	}

	g1 := m3 / math.Pow(m2, 1.5)
	skew = numeric.Finite(g1 * math.Sqrt(n*(n-1)) / (n - 2))
	if n >= 4 {
		g2 := m4/(m2*m2) - 3
		kurt = numeric.Finite(((n+1)*g2 + 6) * (n - 1) / ((n - 2) * (n - 3)))
	}
	return skew, kurt
}

// DescribeCategorical summarizes a categorical column, keeping the top
// value counts ordered by count then value.
func DescribeCategorical(c *columnar.Column, topValues int) CategoricalSummary {
	counts := make(map[string]int)
	present := 0
	for i := 0; i < c.Len(); i++ {
		if v, ok := c.String(i); ok {
			counts[v]++
			present++
		}
	}

	vc := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		vc = append(vc, ValueCount{Value: v, Count: n})
	}
	sort.Slice(vc, func(i, j int) bool {
		if vc[i].Count != vc[j].Count {
			return vc[i].Count > vc[j].Count
		}
		return vc[i].Value < vc[j].Value
	})

	s := CategoricalSummary{
		Column:      c.Name(),
		Count:       present,
		Missing:     c.NullCount(),
		Unique:      len(counts),
		Cardinality: cardinality(len(counts)),
	}
	if len(vc) > 0 {
		s.Top, s.TopFrequency = vc[0].Value, vc[0].Count
	}
	if topValues > 0 && len(vc) > topValues {
		vc = vc[:topValues]
	}
	s.ValueCounts = vc
	return s
}

func cardinality(unique int) string {
	switch {
	case unique <= 5:
		return CardinalityLow
	case unique <= 20:
		return CardinalityMedium
	default:
		return CardinalityHigh
	}
}

// Correlations computes the Pearson matrix over the numeric columns of t
// using pairwise-complete rows.
func Correlations(t *columnar.Table) CorrelationMatrix {
	names := t.NumericColumnNames()
	m := CorrelationMatrix{Columns: names, Values: make([][]*float64, len(names))}

	floats := make([][]float64, len(names))
	valid := make([][]bool, len(names))
	for i, name := range names {
		c, _ := t.Column(name)
		floats[i], valid[i] = c.Floats()
		m.Values[i] = make([]*float64, len(names))
	}

	for i := range names {
		for j := i; j < len(names); j++ {
			r := pearson(floats[i], valid[i], floats[j], valid[j])
			m.Values[i][j], m.Values[j][i] = r, r
		}
	}
	return m
}

func pearson(x []float64, xv []bool, y []float64, yv []bool) *float64 {
	var a, b []float64
	for k := range x {
		if xv[k] && yv[k] {
			a = append(a, x[k])
			b = append(b, y[k])
		}
	}
	if len(a) < 2 || numeric.Std(a, 0) == 0 || numeric.Std(b, 0) == 0 {
		return nil
	}
	r, err := stats.Pearson(a, b)
	if err != nil {
		return nil
	}
	// Clamp rounding drift.
	return numeric.Finite(math.Max(-1, math.Min(1, r)))
}

// TopCorrelations returns the n off-diagonal pairs with the largest |r|.
func TopCorrelations(m CorrelationMatrix, n int) []CorrelationPair {
	pairs := []CorrelationPair{}
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			if r := m.Values[i][j]; r != nil {
				pairs = append(pairs, CorrelationPair{ColumnA: m.Columns[i], ColumnB: m.Columns[j], Correlation: *r})
			}
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].Correlation) > math.Abs(pairs[j].Correlation)
	})
	if n > 0 && len(pairs) > n {
		pairs = pairs[:n]
	}
	return pairs
}
