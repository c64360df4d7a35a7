// Package json writes tables as a JSON array of row objects.
package json

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/refinery/pkg/config"
	"github.com/ajitpratap0/refinery/pkg/connector/core"
	"github.com/ajitpratap0/refinery/pkg/connector/destinations/compressed"
	"github.com/ajitpratap0/refinery/pkg/connector/registry"
	"github.com/ajitpratap0/refinery/pkg/errors"
	jsonpool "github.com/ajitpratap0/refinery/pkg/json"
	"github.com/ajitpratap0/refinery/pkg/logger"
	"github.com/ajitpratap0/refinery/pkg/metrics"
)

func init() {
	_ = registry.RegisterDestination("json", NewJSONDestination)
	_ = registry.RegisterConnectorInfo(&registry.ConnectorInfo{
		Name:         "json",
		Type:         string(core.ConnectorTypeDestination),
		Description:  "JSON array with one object per row; missing cells are null",
		Capabilities: []string{"compression", "pretty"},
	})
}

// JSONDestination writes data to JSON files
type JSONDestination struct {
	cfg    *config.DestinationConfig
	indent string
	logger *zap.Logger
}

// NewJSONDestination creates a JSON destination.
func NewJSONDestination(cfg *config.DestinationConfig) (core.Destination, error) {
	if cfg == nil || cfg.OutputPath == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "json destination requires output_path")
	}
	return &JSONDestination{
		cfg:    cfg,
		indent: "  ",
		logger: logger.Get().With(zap.String("component", "json_destination")),
	}, nil
}

// Name returns the connector name
func (d *JSONDestination) Name() string { return "json" }

// Write streams the table row by row.
func (d *JSONDestination) Write(ctx context.Context, export *core.Export) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("export_json", time.Since(start), err) }()

	if export == nil || export.Table == nil {
		return errors.New(errors.ErrorTypeValidation, "nothing to export")
	}
	out, err := compressed.Open(d.cfg, d.logger)
	if err != nil {
		return err
	}

	enc, err := jsonpool.NewStreamingEncoder(out, true)
	if err != nil {
		out.Abort()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to start JSON array")
	}
	if d.cfg.Pretty {
		enc.SetPretty(true, d.indent)
	}

	table := export.Table
	for i := 0; i < table.NumRows(); i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				out.Abort()
				return errors.Wrap(err, errors.ErrorTypeInternal, "JSON export cancelled")
			}
		}
		if err := enc.Encode(table.Row(i)); err != nil {
			out.Abort()
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to encode row").WithDetail("row", i)
		}
	}
	if err := enc.Close(); err != nil {
		out.Abort()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close JSON array")
	}
	if err := out.Close(); err != nil {
		return err
	}

	d.logger.Info("JSON export written",
		zap.String("path", out.Path()),
		zap.Int("rows", table.NumRows()),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// Close is a no-op; every Write closes its own file.
func (d *JSONDestination) Close(_ context.Context) error { return nil }
