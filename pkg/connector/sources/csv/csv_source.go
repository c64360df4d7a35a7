// Package csv reads delimited text files into tables.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ajitpratap0/refinery/pkg/compression"
	"github.com/ajitpratap0/refinery/pkg/config"
	"github.com/ajitpratap0/refinery/pkg/connector/core"
	"github.com/ajitpratap0/refinery/pkg/connector/registry"
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/logger"
	"github.com/ajitpratap0/refinery/pkg/schema"
)

// cancelCheckInterval is how many rows are parsed between context checks.
const cancelCheckInterval = 1024

func init() {
	_ = registry.RegisterSource("csv", NewCSVSource)
	_ = registry.RegisterConnectorInfo(&registry.ConnectorInfo{
		Name:         "csv",
		Type:         string(core.ConnectorTypeSource),
		Description:  "Delimited text file with a header row; compressed files are detected by extension",
		Capabilities: []string{"type_inference", "missing_tokens", "compressed_input"},
	})
}

// CSVSource reads a whole CSV file into a table. Column kinds are inferred
// by schema.TypeInferenceEngine.
type CSVSource struct {
	cfg       *config.SourceConfig
	input     io.Reader
	closer    io.Closer
	inference *schema.TypeInferenceEngine
	logger    *zap.Logger

	inferred []*schema.InferredType
}

// NewCSVSource creates a CSV source for cfg.FilePath.
func NewCSVSource(cfg *config.SourceConfig) (core.Source, error) {
	if cfg == nil || cfg.FilePath == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "csv source requires file_path")
	}
	return newSource(cfg, nil, nil), nil
}

// NewReaderSource creates a CSV source over r. cfg may be nil for the
// defaults; its FilePath is ignored.
func NewReaderSource(r io.Reader, cfg *config.SourceConfig, log *zap.Logger) *CSVSource {
	if cfg == nil {
		cfg = config.NewCSVSourceConfig("")
	}
	return newSource(cfg, r, log)
}

func newSource(cfg *config.SourceConfig, r io.Reader, log *zap.Logger) *CSVSource {
	log = logger.OrDefault(log).With(zap.String("component", "csv_source"))
	return &CSVSource{
		cfg:       cfg,
		input:     r,
		inference: schema.NewTypeInferenceEngine(log),
		logger:    log,
	}
}

// Name returns the connector name
func (s *CSVSource) Name() string { return "csv" }

// Inferred returns the per-column inference results of the last Read.
func (s *CSVSource) Inferred() []*schema.InferredType { return s.inferred }

// Read parses the whole input.
func (s *CSVSource) Read(ctx context.Context) (*core.Dataset, error) {
	start := time.Now()
	r, err := s.open()
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.ReuseRecord = true
	reader.TrimLeadingSpace = s.cfg.TrimSpaces
	if s.cfg.Delimiter != "" {
		d, _ := utf8.DecodeRuneInString(s.cfg.Delimiter)
		reader.Comma = d
	}
	if s.cfg.Comment != "" {
		c, _ := utf8.DecodeRuneInString(s.cfg.Comment)
		reader.Comment = c
	}

	headers, cols, err := s.readColumns(ctx, reader)
	if err != nil {
		return nil, err
	}

	table, inferred, err := s.inference.BuildTable(headers, cols)
	if err != nil {
		return nil, err
	}
	s.inferred = inferred

	name := s.datasetName()
	s.logger.Info("CSV source read",
		zap.String("dataset", name),
		zap.Int("rows", table.NumRows()),
		zap.Int("columns", table.NumCols()),
		zap.Duration("duration", time.Since(start)))

	return &core.Dataset{Name: name, Table: table, Schema: core.SchemaOf(name, table)}, nil
}

func (s *CSVSource) readColumns(ctx context.Context, reader *csv.Reader) ([]string, [][]string, error) {
	first, err := reader.Read()
	if err == io.EOF {
		return nil, nil, errors.New(errors.ErrorTypeData, "CSV input is empty")
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeData, "failed to parse CSV header")
	}

	var headers []string
	cols := make([][]string, len(first))
	if s.cfg.HasHeader {
		headers = uniqueHeaders(first)
	} else {
		headers = make([]string, len(first))
		for i := range headers {
			headers[i] = fmt.Sprintf("column_%d", i+1)
		}
		appendRow(cols, first)
	}

	for row := 0; ; row++ {
		if row%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, errors.Wrap(err, errors.ErrorTypeInternal, "CSV read cancelled")
			}
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrorTypeData, "failed to parse CSV").
				WithDetail("row", row+1)
		}
		appendRow(cols, record)
	}
	return headers, cols, nil
}

// appendRow appends record to the column-major buffers. Records have the
// header's width; encoding/csv rejects ragged rows.
func appendRow(cols [][]string, record []string) {
	for i, cell := range record {
		cols[i] = append(cols[i], cell)
	}
}

// uniqueHeaders fills empty names and suffixes repeats: a, a.1, a.2.
func uniqueHeaders(raw []string) []string {
	out := make([]string, len(raw))
	taken := make(map[string]bool, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("unnamed_%d", i)
		}
		name := h
		for n := 1; taken[name]; n++ {
			name = fmt.Sprintf("%s.%d", h, n)
		}
		taken[name] = true
		out[i] = name
	}
	return out
}

func (s *CSVSource) open() (io.Reader, error) {
	if s.input != nil {
		return s.input, nil
	}

	f, err := os.Open(s.cfg.FilePath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open CSV file").
			WithDetail("path", s.cfg.FilePath)
	}

	algo := compression.FromPath(s.cfg.FilePath)
	r, err := compression.NewReader(f, algo)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open compressed CSV file").
			WithDetail("path", s.cfg.FilePath).
			WithDetail("compression", string(algo))
	}
	s.closer = multiCloser{r, f}
	return r, nil
}

func (s *CSVSource) datasetName() string {
	switch {
	case s.cfg.DatasetName != "":
		return s.cfg.DatasetName
	case s.cfg.FilePath != "":
		return filepath.Base(s.cfg.FilePath)
	default:
		return "csv"
	}
}

// Close releases the file opened by Read.
func (s *CSVSource) Close(_ context.Context) error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close CSV file")
	}
	return nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
