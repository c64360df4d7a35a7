// Package xlsx writes tables to Excel workbooks with excelize. The table goes
// to the configured data sheet; when the export carries a history, a second
// "History" sheet lists every applied action.
package xlsx

import (
	"context"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ajitpratap0/refinery/pkg/config"
	"github.com/ajitpratap0/refinery/pkg/connector/core"
	"github.com/ajitpratap0/refinery/pkg/connector/destinations/compressed"
	"github.com/ajitpratap0/refinery/pkg/connector/registry"
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/logger"
	"github.com/ajitpratap0/refinery/pkg/metrics"
)

// HistorySheet is the name of the action log sheet.
const HistorySheet = "History"

func init() {
	_ = registry.RegisterDestination("xlsx", NewXLSXDestination)
	_ = registry.RegisterConnectorInfo(&registry.ConnectorInfo{
		Name:         "xlsx",
		Type:         string(core.ConnectorTypeDestination),
		Description:  "Excel workbook with a data sheet and an optional history sheet",
		Capabilities: []string{"history"},
	})
}

// XLSXDestination writes one workbook per Write call.
type XLSXDestination struct {
	cfg    *config.DestinationConfig
	sheet  string
	logger *zap.Logger
}

// NewXLSXDestination creates an XLSX destination.
func NewXLSXDestination(cfg *config.DestinationConfig) (core.Destination, error) {
	if cfg == nil || cfg.OutputPath == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "xlsx destination requires output_path")
	}
	sheet := cfg.SheetName
	if sheet == "" {
		sheet = "Data"
	}
	if sheet == HistorySheet {
		return nil, errors.New(errors.ErrorTypeConfig, "sheet_name collides with the history sheet").
			WithDetail("sheet_name", sheet)
	}
	return &XLSXDestination{
		cfg:    cfg,
		sheet:  sheet,
		logger: logger.Get().With(zap.String("component", "xlsx_destination")),
	}, nil
}

// Name returns the connector name
func (d *XLSXDestination) Name() string { return "xlsx" }

// Write builds the workbook in memory and saves it.
func (d *XLSXDestination) Write(ctx context.Context, export *core.Export) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("export_xlsx", time.Since(start), err) }()

	if export == nil || export.Table == nil {
		return errors.New(errors.ErrorTypeValidation, "nothing to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(d.sheet)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create sheet")
	}
	f.SetActiveSheet(index)
	if d.sheet != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to delete default sheet")
		}
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	if err := d.writeTable(ctx, f, export, headerStyle); err != nil {
		return err
	}
	if len(export.History) > 0 {
		if err := writeHistory(f, export.History, headerStyle); err != nil {
			return err
		}
	}

	out, err := compressed.Open(d.cfg, d.logger)
	if err != nil {
		return err
	}
	if _, err := f.WriteTo(out); err != nil {
		out.Abort()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write workbook")
	}
	if err := out.Close(); err != nil {
		return err
	}

	d.logger.Info("XLSX export written",
		zap.String("path", out.Path()),
		zap.Int("rows", export.Table.NumRows()),
		zap.Int("history_entries", len(export.History)),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (d *XLSXDestination) writeTable(ctx context.Context, f *excelize.File, export *core.Export, headerStyle int) error {
	table := export.Table
	for j, name := range table.ColumnNames() {
		if err := setCell(f, d.sheet, j+1, 1, name, headerStyle); err != nil {
			return err
		}
	}

	// Missing cells stay empty.
	for j, c := range table.Columns() {
		for i := 0; i < table.NumRows(); i++ {
			if i%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return errors.Wrap(err, errors.ErrorTypeInternal, "XLSX export cancelled")
				}
			}
			v := c.Value(i)
			if v == nil {
				continue
			}
			if err := setCell(f, d.sheet, j+1, i+2, v, 0); err != nil {
				return err
			}
		}
		if err := f.SetColWidth(d.sheet, columnLetter(j+1), columnLetter(j+1), 15); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to set column width")
		}
	}
	return nil
}

func writeHistory(f *excelize.File, history []core.HistoryEntry, headerStyle int) error {
	if _, err := f.NewSheet(HistorySheet); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create history sheet")
	}
	for j, h := range []string{"Step", "Operation", "Description", "Timestamp"} {
		if err := setCell(f, HistorySheet, j+1, 1, h, headerStyle); err != nil {
			return err
		}
	}
	for i, entry := range history {
		row := []interface{}{i + 1, entry.Operation, entry.Description, entry.Timestamp.UTC().Format(time.RFC3339)}
		for j, v := range row {
			if err := setCell(f, HistorySheet, j+1, i+2, v, 0); err != nil {
				return err
			}
		}
	}
	return f.SetColWidth(HistorySheet, "C", "C", 60)
}

func setCell(f *excelize.File, sheet string, col, row int, value interface{}, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "invalid cell coordinates")
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to set cell").WithDetail("cell", cell)
	}
	if style != 0 {
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to style cell").WithDetail("cell", cell)
		}
	}
	return nil
}

func columnLetter(col int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return name
}

// Close is a no-op; every Write closes its own file.
func (d *XLSXDestination) Close(_ context.Context) error { return nil }
