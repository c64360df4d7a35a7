package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/refinery/pkg/config"
	"github.com/ajitpratap0/refinery/pkg/connector/core"
	"github.com/ajitpratap0/refinery/pkg/connector/registry"
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/json"
)

// addInputFlags registers the flags that select a source. Exactly one of
// --input, --sql-dsn or --source-config is used, in that order.
func addInputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("input", "i", "", "CSV file to load (compressed files are detected by extension)")
	f.String("delimiter", ",", "CSV field delimiter")
	f.String("dataset-name", "", "Dataset name (defaults to the file name)")
	f.String("sql-driver", "sqlite", "SQL driver (sqlite, postgres, mysql)")
	f.String("sql-dsn", "", "SQL connection string")
	f.String("sql-query", "", "SQL query whose result is loaded")
	f.String("source-config", "", "YAML source configuration; ${VAR} references are expanded")
}

func sourceConfig(v *viper.Viper) (*config.SourceConfig, error) {
	switch {
	case v.GetString("input") != "":
		cfg := config.NewCSVSourceConfig(v.GetString("input"))
		cfg.Delimiter = v.GetString("delimiter")
		cfg.DatasetName = v.GetString("dataset-name")
		return cfg, nil
	case v.GetString("sql-dsn") != "":
		cfg := config.NewSQLSourceConfig(v.GetString("sql-driver"), v.GetString("sql-dsn"), v.GetString("sql-query"))
		cfg.DatasetName = v.GetString("dataset-name")
		return cfg, nil
	case v.GetString("source-config") != "":
		cfg := config.NewCSVSourceConfig("")
		if err := config.Load(v.GetString("source-config"), cfg); err != nil {
			return nil, err
		}
		if cfg.Name == "" {
			return nil, errors.New(errors.ErrorTypeConfig, "source configuration requires name")
		}
		return cfg, nil
	default:
		return nil, errors.New(errors.ErrorTypeConfig, "one of --input, --sql-dsn or --source-config is required")
	}
}

// loadDataset reads the whole source selected by the input flags.
func loadDataset(ctx context.Context, v *viper.Viper, log *zap.Logger) (*core.Dataset, error) {
	cfg, err := sourceConfig(v)
	if err != nil {
		return nil, err
	}
	src, err := registry.CreateSource(cfg.Name, cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := src.Close(ctx); err != nil {
			log.Warn("failed to close source", zap.String("source", cfg.Name), zap.Error(err))
		}
	}()

	ds, err := src.Read(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("dataset loaded",
		zap.String("source", cfg.Name),
		zap.String("dataset", ds.Name),
		zap.Int("rows", ds.Table.NumRows()),
		zap.Int("columns", ds.Table.NumCols()))
	return ds, nil
}

// printJSON writes v indented to the command's output.
func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode output")
	}
	data = append(data, '\n')
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
