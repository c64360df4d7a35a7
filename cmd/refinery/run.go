package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/refinery/internal/dataset"
	"github.com/ajitpratap0/refinery/internal/pipeline"
	"github.com/ajitpratap0/refinery/pkg/config"
	"github.com/ajitpratap0/refinery/pkg/connector/core"
	"github.com/ajitpratap0/refinery/pkg/connector/registry"
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/logger"
)

// session is a dataset loaded into an engine.
type session struct {
	engine *pipeline.Engine
	key    string
	name   string
}

func newSession(ctx context.Context, a *app, ds *core.Dataset) (*session, error) {
	engine := pipeline.NewEngine(dataset.NewManager(a.log), a.cfg.Engine, a.log)
	key := dataset.NewSessionKey()
	if err := engine.InitializeSession(ctx, key, ds.Table, ds.Name); err != nil {
		return nil, err
	}
	return &session{engine: engine, key: key, name: ds.Name}, nil
}

// runRecipe applies the recipe at path and prints one line per step.
func (s *session) runRecipe(ctx context.Context, cmd *cobra.Command, path string) error {
	recipe, err := pipeline.LoadRecipe(path)
	if err != nil {
		return err
	}
	ctx = logger.WithSession(ctx, s.key)
	results, err := s.engine.RunRecipe(ctx, s.key, recipe)

	out := cmd.OutOrStdout()
	for _, r := range results {
		fmt.Fprintf(out, "step %d %-26s %d rows x %d columns\n", r.Index+1, r.Op, r.Result.Shape.Rows, r.Result.Shape.Columns)
	}
	return err
}

// export writes the current table and its history to the destination
// described by the output flags.
func (s *session) export(ctx context.Context, v *viper.Viper, cfg *config.Config) (string, error) {
	table, err := s.engine.Current(s.key)
	if err != nil {
		return "", err
	}
	history, err := s.engine.History(s.key)
	if err != nil {
		return "", err
	}

	format := v.GetString("format")
	if format == "" {
		format = cfg.Export.Format
	}
	dcfg := config.NewDestinationConfig(format, v.GetString("output"))
	dcfg.Compression = cfg.Export.Compression
	dcfg.CompressionLevel = cfg.Export.CompressionLevel
	if c := v.GetString("compression"); c != "" {
		dcfg.Compression = c
	}
	if l := v.GetString("compression-level"); l != "" {
		dcfg.CompressionLevel = l
	}
	if d := v.GetString("output-delimiter"); d != "" {
		dcfg.Delimiter = d
	}
	if sheet := v.GetString("sheet"); sheet != "" {
		dcfg.SheetName = sheet
	}
	dcfg.Pretty = v.GetBool("pretty")

	dest, err := registry.CreateDestination(format, dcfg)
	if err != nil {
		return "", err
	}
	defer dest.Close(ctx)

	export := &core.Export{Name: s.name, Table: table, History: make([]core.HistoryEntry, len(history))}
	for i, e := range history {
		export.History[i] = core.HistoryEntry{
			Operation:   e.Action.String(),
			Description: e.Description,
			Timestamp:   e.Timestamp,
		}
	}
	if err := dest.Write(ctx, export); err != nil {
		return "", err
	}
	return format, nil
}

func newRunCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a preprocessing recipe and export the result",
		Long: `Run loads a dataset, applies every step of a YAML recipe in order and
exports the final table together with its action history.

Example:
  refinery run --input customers.csv --recipe churn.yaml --output clean.xlsx --format xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := bindFlags(cmd.Flags())
			if err != nil {
				return err
			}
			if v.GetString("recipe") == "" {
				return errors.New(errors.ErrorTypeConfig, "--recipe is required")
			}
			ctx := cmd.Context()

			ds, err := loadDataset(ctx, v, a.log)
			if err != nil {
				return err
			}
			s, err := newSession(ctx, a, ds)
			if err != nil {
				return err
			}
			defer s.engine.ClearSession(ctx, s.key)

			if err := s.runRecipe(ctx, cmd, v.GetString("recipe")); err != nil {
				return err
			}

			if v.GetString("output") != "" {
				format, err := s.export(ctx, v, a.cfg)
				if err != nil {
					return err
				}
				a.log.Info("dataset exported", zap.String("format", format), zap.String("path", v.GetString("output")))
				fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", format, v.GetString("output"))
			}

			if v.GetBool("summary") {
				summary, err := s.engine.Summary(s.key)
				if err != nil {
					return err
				}
				return printJSON(cmd, summary)
			}
			return nil
		},
	}
	addInputFlags(cmd)
	f := cmd.Flags()
	f.StringP("recipe", "r", "", "YAML recipe to apply (required)")
	f.StringP("output", "o", "", "Export path; nothing is exported when empty")
	f.StringP("format", "f", "", "Export format (arrow, csv, json, xlsx); defaults to export.format")
	f.String("compression", "", "Output compression (none, gzip, snappy, lz4, zstd, s2, deflate)")
	f.String("compression-level", "", "Compression level (fastest, default, better, best)")
	f.String("output-delimiter", "", "CSV output delimiter")
	f.String("sheet", "", "XLSX data sheet name")
	f.Bool("pretty", false, "Indent JSON output")
	f.Bool("summary", false, "Print the session summary as JSON")
	return cmd
}
