// Package arrow writes tables in the Arrow IPC file format. Numeric columns
// become nullable float64 fields and categorical columns nullable utf8
// fields.
package arrow

import (
	"context"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/config"
	"github.com/ajitpratap0/refinery/pkg/connector/core"
	"github.com/ajitpratap0/refinery/pkg/connector/destinations/compressed"
	"github.com/ajitpratap0/refinery/pkg/connector/registry"
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/logger"
	"github.com/ajitpratap0/refinery/pkg/metrics"
)

// DefaultBatchSize is the number of rows per record batch.
const DefaultBatchSize = 64 * 1024

func init() {
	_ = registry.RegisterDestination("arrow", NewArrowDestination)
	_ = registry.RegisterConnectorInfo(&registry.ConnectorInfo{
		Name:         "arrow",
		Type:         string(core.ConnectorTypeDestination),
		Description:  "Arrow IPC file (Feather v2)",
		Capabilities: []string{"columnar", "compression"},
	})
}

// ArrowDestination writes one IPC file per Write call.
type ArrowDestination struct {
	cfg       *config.DestinationConfig
	batchSize int
	pool      memory.Allocator
	logger    *zap.Logger
}

// NewArrowDestination creates an Arrow destination.
func NewArrowDestination(cfg *config.DestinationConfig) (core.Destination, error) {
	if cfg == nil || cfg.OutputPath == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "arrow destination requires output_path")
	}
	return &ArrowDestination{
		cfg:       cfg,
		batchSize: DefaultBatchSize,
		pool:      memory.NewGoAllocator(),
		logger:    logger.Get().With(zap.String("component", "arrow_destination")),
	}, nil
}

// Name returns the connector name
func (d *ArrowDestination) Name() string { return "arrow" }

// Schema converts a table's columns to an Arrow schema.
func Schema(t *columnar.Table) *arrow.Schema {
	fields := make([]arrow.Field, 0, t.NumCols())
	for _, c := range t.Columns() {
		var typ arrow.DataType = arrow.BinaryTypes.String
		if c.IsNumeric() {
			typ = arrow.PrimitiveTypes.Float64
		}
		fields = append(fields, arrow.Field{Name: c.Name(), Type: typ, Nullable: true})
	}
	return arrow.NewSchema(fields, nil)
}

// Write writes the table in record batches of batchSize rows.
func (d *ArrowDestination) Write(ctx context.Context, export *core.Export) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("export_arrow", time.Since(start), err) }()

	if export == nil || export.Table == nil {
		return errors.New(errors.ErrorTypeValidation, "nothing to export")
	}
	table := export.Table
	schema := Schema(table)

	out, err := compressed.Open(d.cfg, d.logger)
	if err != nil {
		return err
	}
	fw, err := ipc.NewFileWriter(out, ipc.WithSchema(schema), ipc.WithAllocator(d.pool))
	if err != nil {
		out.Abort()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create Arrow writer")
	}

	builder := array.NewRecordBuilder(d.pool, schema)
	defer builder.Release()

	cols := newColumnSlices(table)
	batches := 0
	for lo := 0; lo < table.NumRows(); lo += d.batchSize {
		if err := ctx.Err(); err != nil {
			out.Abort()
			return errors.Wrap(err, errors.ErrorTypeInternal, "Arrow export cancelled")
		}
		hi := min(lo+d.batchSize, table.NumRows())
		appendBatch(builder, cols, lo, hi)
		if err := writeBatch(fw, builder); err != nil {
			out.Abort()
			return err
		}
		batches++
	}

	if err := fw.Close(); err != nil {
		out.Abort()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close Arrow writer")
	}
	if err := out.Close(); err != nil {
		return err
	}

	d.logger.Info("Arrow export written",
		zap.String("path", out.Path()),
		zap.Int("rows", table.NumRows()),
		zap.Int("batches", batches),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// columnSlices holds a column's cells in the shape the Arrow builders take.
type columnSlices struct {
	floats  []float64
	strings []string
	valid   []bool
}

func newColumnSlices(t *columnar.Table) []columnSlices {
	out := make([]columnSlices, t.NumCols())
	for j, c := range t.Columns() {
		if c.IsNumeric() {
			out[j].floats, out[j].valid = c.Floats()
		} else {
			out[j].strings, out[j].valid = c.Strings()
		}
	}
	return out
}

func appendBatch(b *array.RecordBuilder, cols []columnSlices, lo, hi int) {
	for j, c := range cols {
		switch fb := b.Field(j).(type) {
		case *array.Float64Builder:
			fb.AppendValues(c.floats[lo:hi], c.valid[lo:hi])
		case *array.StringBuilder:
			fb.AppendValues(c.strings[lo:hi], c.valid[lo:hi])
		}
	}
}

func writeBatch(fw *ipc.FileWriter, b *array.RecordBuilder) error {
	rec := b.NewRecord()
	defer rec.Release()
	if err := fw.Write(rec); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write record batch")
	}
	return nil
}

// Close is a no-op; every Write closes its own file.
func (d *ArrowDestination) Close(_ context.Context) error { return nil }
