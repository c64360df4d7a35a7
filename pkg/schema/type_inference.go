package schema

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/logger"
	"github.com/ajitpratap0/refinery/pkg/pool"
)

// TypeInferenceEngine turns raw text cells into typed columns.
//
// A column is numeric iff every non-missing cell parses as a float64. A
// column whose cells are all missing is numeric. Missing spellings (see
// columnar.IsMissingToken) become nulls in both kinds.
type TypeInferenceEngine struct {
	logger *zap.Logger

	// Format hints reported for categorical columns
	datePatterns      []*regexp.Regexp
	timestampPatterns []*regexp.Regexp
	emailPattern      *regexp.Regexp
	urlPattern        *regexp.Regexp
	uuidPattern       *regexp.Regexp

	maxExamples int
}

// InferredType represents a type inference result
type InferredType struct {
	Column      string        `json:"column"`
	Kind        columnar.Kind `json:"kind"`
	Format      string        `json:"format,omitempty"`
	Nullable    bool          `json:"nullable"`
	NullCount   int           `json:"null_count"`
	Cardinality int           `json:"cardinality"`
	Examples    []string      `json:"examples,omitempty"`
	// IntegerLike is true when every numeric cell is a whole number
	IntegerLike  bool          `json:"integer_like,omitempty"`
	NumericStats *NumericStats `json:"numeric_stats,omitempty"`
	StringStats  *StringStats  `json:"string_stats,omitempty"`
}

// NumericStats holds statistics for numeric columns
type NumericStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
}

// StringStats holds statistics for categorical columns
type StringStats struct {
	MinLength int     `json:"min_length"`
	MaxLength int     `json:"max_length"`
	AvgLength float64 `json:"avg_length"`
}

// NewTypeInferenceEngine creates a new type inference engine
func NewTypeInferenceEngine(log *zap.Logger) *TypeInferenceEngine {
	engine := &TypeInferenceEngine{
		logger:      logger.OrDefault(log).With(zap.String("component", "type_inference")),
		maxExamples: 5,
	}
	engine.initializePatterns()
	return engine
}

// InferType infers the kind of a column from its raw cells.
func (e *TypeInferenceEngine) InferType(name string, raw []string) *InferredType {
	inferred := &InferredType{Column: name, Kind: columnar.KindNumeric, IntegerLike: true}

	present := make([]string, 0, len(raw))
	for _, cell := range raw {
		if columnar.IsMissingToken(cell) {
			inferred.NullCount++
			continue
		}
		cell = strings.TrimSpace(cell)
		present = append(present, cell)
		if inferred.Kind != columnar.KindNumeric {
			continue
		}
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			inferred.Kind = columnar.KindCategorical
			inferred.IntegerLike = false
			continue
		}
		if f != float64(int64(f)) {
			inferred.IntegerLike = false
		}
	}
	inferred.Nullable = inferred.NullCount > 0

	unique := uniqueSorted(present)
	inferred.Cardinality = len(unique)
	if len(unique) > e.maxExamples {
		unique = unique[:e.maxExamples]
	}
	inferred.Examples = unique

	if inferred.Kind == columnar.KindNumeric {
		inferred.NumericStats = e.calculateNumericStats(present)
	} else {
		inferred.StringStats = calculateStringStats(present)
		inferred.Format = e.detectStringFormat(present)
	}
	return inferred
}

// BuildColumn infers the kind of raw and returns the typed column.
func (e *TypeInferenceEngine) BuildColumn(name string, raw []string) (*columnar.Column, *InferredType) {
	inferred := e.InferType(name, raw)
	valid := make([]bool, len(raw))

	if inferred.Kind == columnar.KindNumeric {
		values := make([]float64, len(raw))
		for i, cell := range raw {
			if columnar.IsMissingToken(cell) {
				continue
			}
			// Parse errors are impossible here; InferType checked every cell.
			values[i], _ = strconv.ParseFloat(strings.TrimSpace(cell), 64)
			valid[i] = true
		}
		return columnar.NewNumericColumn(name, values, valid), inferred
	}

	values := make([]string, len(raw))
	interner := pool.NewInterner(pool.DefaultInternSize)
	for i, cell := range raw {
		if columnar.IsMissingToken(cell) {
			continue
		}
		values[i] = interner.Intern(cell)
		valid[i] = true
	}
	return columnar.NewCategoricalColumn(name, values, valid), inferred
}

// BuildTable builds a table from column-major raw cells. headers and cols
// must have the same length and every column the same number of cells.
func (e *TypeInferenceEngine) BuildTable(headers []string, cols [][]string) (*columnar.Table, []*InferredType, error) {
	if len(headers) != len(cols) {
		return nil, nil, errors.Newf(errors.ErrorTypeData, "%d headers for %d columns", len(headers), len(cols))
	}

	columns := make([]*columnar.Column, len(cols))
	inferred := make([]*InferredType, len(cols))
	for i, raw := range cols {
		columns[i], inferred[i] = e.BuildColumn(headers[i], raw)
	}

	table, err := columnar.New(columns...)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeData, "invalid table")
	}

	e.logger.Debug("schema inferred",
		zap.Int("columns", len(columns)),
		zap.Int("numeric", len(table.NumericColumnNames())),
		zap.Int("rows", table.NumRows()))
	return table, inferred, nil
}

// detectStringFormat returns the format shared by at least 80% of values.
func (e *TypeInferenceEngine) detectStringFormat(values []string) string {
	if len(values) == 0 {
		return ""
	}

	formatCounts := make(map[string]int)
	for _, v := range values {
		if format := e.detectFormat(v); format != "" {
			formatCounts[format]++
		}
	}

	var dominantFormat string
	maxCount := 0
	threshold := int(float64(len(values)) * 0.8)
	for format, count := range formatCounts {
		if count > maxCount && count >= threshold {
			maxCount = count
			dominantFormat = format
		}
	}
	return dominantFormat
}

// detectFormat detects the format of a string value
func (e *TypeInferenceEngine) detectFormat(value string) string {
	for _, pattern := range e.timestampPatterns {
		if pattern.MatchString(value) {
			return "timestamp"
		}
	}
	for _, pattern := range e.datePatterns {
		if pattern.MatchString(value) {
			return "date"
		}
	}

	switch {
	case e.emailPattern.MatchString(value):
		return "email"
	case e.urlPattern.MatchString(value):
		return "url"
	case e.uuidPattern.MatchString(value):
		return "uuid"
	}
	return ""
}

// initializePatterns initializes regex patterns for format detection
func (e *TypeInferenceEngine) initializePatterns() {
	e.datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`), // YYYY-MM-DD
		regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`), // MM/DD/YYYY
		regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`), // DD-MM-YYYY
		regexp.MustCompile(`^\d{4}/\d{2}/\d{2}$`), // YYYY/MM/DD
	}

	e.timestampPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`), // ISO 8601
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`), // SQL timestamp
	}

	e.emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	e.urlPattern = regexp.MustCompile(`^https?://[^\s]+$`)
	e.uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
}

// calculateNumericStats calculates statistics for numeric values
func (e *TypeInferenceEngine) calculateNumericStats(values []string) *NumericStats {
	numbers := make(stats.Float64Data, 0, len(values))
	for _, v := range values {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			numbers = append(numbers, f)
		}
	}
	if len(numbers) == 0 {
		return nil
	}

	// The stats functions only fail on empty input, checked above.
	out := &NumericStats{}
	out.Min, _ = numbers.Min()
	out.Max, _ = numbers.Max()
	out.Mean, _ = numbers.Mean()
	out.Median, _ = numbers.Median()
	if len(numbers) > 1 {
		out.StdDev, _ = numbers.StandardDeviationSample()
	}
	return out
}

// calculateStringStats calculates statistics for string values
func calculateStringStats(values []string) *StringStats {
	if len(values) == 0 {
		return nil
	}
	out := &StringStats{MinLength: len(values[0])}
	total := 0
	for _, v := range values {
		n := len(v)
		if n < out.MinLength {
			out.MinLength = n
		}
		if n > out.MaxLength {
			out.MaxLength = n
		}
		total += n
	}
	out.AvgLength = float64(total) / float64(len(values))
	return out
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
