package csv

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/compression"
	"github.com/ajitpratap0/refinery/pkg/config"
	"github.com/ajitpratap0/refinery/pkg/connector/core"
	"github.com/ajitpratap0/refinery/pkg/connector/registry"
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/testutil"
)

type CSVSourceSuite struct {
	testutil.IntegrationTestSuite
}

func (s *CSVSourceSuite) TestReadFile() {
	path := s.CreateTempFile("customers.csv", []byte(testutil.CustomerCSV))

	src, err := registry.CreateSource("csv", config.NewCSVSourceConfig(path))
	s.Require().NoError(err)
	defer src.Close(s.Context())

	ds, err := src.Read(s.Context())
	s.Require().NoError(err)
	s.Equal("customers.csv", ds.Name)
	s.True(ds.Table.Equal(testutil.CustomerTable(s.T())))

	s.Require().Len(ds.Schema.Fields, 7)
	s.Equal(core.FieldTypeNumeric, ds.Schema.Fields[1].Type)
	s.True(ds.Schema.Fields[1].Nullable)
	s.Equal(core.FieldTypeCategorical, ds.Schema.Fields[3].Type)
}

func (s *CSVSourceSuite) TestReadCompressedFile() {
	data, err := compression.Compress([]byte(testutil.CustomerCSV), compression.Zstd, compression.Default)
	s.Require().NoError(err)
	path := s.CreateTempFile("customers.csv.zst", data)

	cfg := config.NewCSVSourceConfig(path)
	cfg.DatasetName = "customers"
	src, err := NewCSVSource(cfg)
	s.Require().NoError(err)
	defer src.Close(s.Context())

	ds, err := src.Read(s.Context())
	s.Require().NoError(err)
	s.Equal("customers", ds.Name)
	s.Equal(columnar.Shape{Rows: 6, Columns: 7}, ds.Table.Shape())
}

func (s *CSVSourceSuite) TestMissingFile() {
	src, err := NewCSVSource(config.NewCSVSourceConfig(filepath.Join(s.TempDir(), "ghost.csv")))
	s.Require().NoError(err)
	_, err = src.Read(s.Context())
	s.True(errors.IsType(err, errors.ErrorTypeFile))
}

func (s *CSVSourceSuite) TestGeneratedData() {
	path := testutil.CreateTestData(s.T(), s.TempDir(), 100)
	src, err := NewCSVSource(config.NewCSVSourceConfig(path))
	s.Require().NoError(err)
	defer src.Close(s.Context())

	ds, err := src.Read(s.Context())
	s.Require().NoError(err)
	s.Equal(100, ds.Table.NumRows())
	s.Equal([]string{"id", "value"}, ds.Table.NumericColumnNames())
}

func TestCSVSourceSuite(t *testing.T) {
	suite.Run(t, new(CSVSourceSuite))
}

func TestReaderSource(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		input   string
		mutate  func(*config.SourceConfig)
		columns []string
		rows    int
	}{
		{name: "header", input: "a,b\n1,x\n2,y\n", columns: []string{"a", "b"}, rows: 2},
		{name: "header only", input: "a,b\n", columns: []string{"a", "b"}, rows: 0},
		{
			name:    "no header",
			input:   "1,x\n2,y\n",
			mutate:  func(c *config.SourceConfig) { c.HasHeader = false },
			columns: []string{"column_1", "column_2"},
			rows:    2,
		},
		{
			name:    "semicolon",
			input:   "a;b\n1;x\n",
			mutate:  func(c *config.SourceConfig) { c.Delimiter = ";" },
			columns: []string{"a", "b"},
			rows:    1,
		},
		{name: "repeated headers", input: "a,a,\n1,2,3\n", columns: []string{"a", "a.1", "unnamed_2"}, rows: 1},
		{
			name:    "comments",
			input:   "a\n# note\n1\n",
			mutate:  func(c *config.SourceConfig) { c.Comment = "#" },
			columns: []string{"a"},
			rows:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewCSVSourceConfig("")
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			src := NewReaderSource(strings.NewReader(tt.input), cfg, testutil.TestLogger(t))
			ds, err := src.Read(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.columns, ds.Table.ColumnNames())
			assert.Equal(t, tt.rows, ds.Table.NumRows())
			assert.Len(t, src.Inferred(), len(tt.columns))
		})
	}
}

func TestReaderSourceErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewReaderSource(strings.NewReader(""), nil, testutil.TestLogger(t)).Read(ctx)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))

	_, err = NewReaderSource(strings.NewReader("a,b\n1\n"), nil, testutil.TestLogger(t)).Read(ctx)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))

	_, err = NewCSVSource(&config.SourceConfig{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = NewReaderSource(strings.NewReader("a\n1\n"), nil, testutil.TestLogger(t)).Read(cancelled)
	assert.Error(t, err)
}

func TestRegistered(t *testing.T) {
	assert.True(t, registry.HasSource("csv"))
}
