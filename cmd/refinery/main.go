package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/refinery/internal/pipeline"
	"github.com/ajitpratap0/refinery/pkg/compression"
	"github.com/ajitpratap0/refinery/pkg/config"
	"github.com/ajitpratap0/refinery/pkg/connector/registry"
	"github.com/ajitpratap0/refinery/pkg/logger"
	"github.com/ajitpratap0/refinery/pkg/metrics"
	"github.com/ajitpratap0/refinery/pkg/observability"
	"github.com/ajitpratap0/refinery/pkg/training"

	// Import all available connectors to register them
	_ "github.com/ajitpratap0/refinery/pkg/connector/destinations"
	_ "github.com/ajitpratap0/refinery/pkg/connector/sources"
)

var version = "0.1.0"

// app carries what every subcommand needs once the root has loaded the
// configuration.
type app struct {
	configPath  string
	logLevel    string
	metricsFile string

	cfg      *config.Config
	log      *zap.Logger
	shutdown observability.ShutdownFunc
}

func main() {
	a := &app{}
	err := newRootCommand(a).Execute()
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "refinery",
		Short: "Refinery - tabular data preprocessing and model training",
		Long: `Refinery loads a table from CSV or SQL, profiles it, runs a preprocessing
recipe with full undo history and exports the result or trains a baseline model on it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to a YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")

	root.AddCommand(
		newVersionCommand(),
		newListCommand(),
		newInspectCommand(a),
		newRunCommand(a),
		newTrainCommand(a),
	)
	return root
}

// init loads configuration, then installs the logger and tracer it
// describes.
func (a *app) init() error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Encoding:    cfg.Logging.Encoding,
	}); err != nil {
		return err
	}
	a.log = logger.Get()

	tracing := observability.DefaultTracingConfig()
	tracing.Enabled = cfg.Observability.TracingEnabled
	tracing.ServiceName = cfg.Observability.ServiceName
	tracing.ServiceVersion = version
	tracing.SamplingRate = cfg.Observability.SamplingRate
	// stdout carries command output
	tracing.Writer = os.Stderr
	a.shutdown, err = observability.InitTracing(tracing)
	return err
}

// close flushes spans, metrics and logs. It is safe to call when init never
// ran.
func (a *app) close() {
	if a.shutdown != nil {
		if err := a.shutdown(context.Background()); err != nil {
			fmt.Fprintln(os.Stderr, "tracing shutdown:", err)
		}
		a.shutdown = nil
	}
	if a.metricsFile != "" && a.cfg != nil && a.cfg.Observability.MetricsEnabled {
		if err := metrics.WriteTextfile(a.metricsFile); err != nil {
			fmt.Fprintln(os.Stderr, "metrics:", err)
		}
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// bindFlags layers REFINERY_* environment variables under the command's
// flags. Flags with dashes map to underscores, e.g. --sql-dsn reads
// REFINERY_SQL_DSN.
func bindFlags(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}
	return v, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Refinery v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List connectors, recipe operations, models and compression algorithms",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			info := make(map[string]*registry.ConnectorInfo)
			for _, i := range registry.ListConnectorInfo() {
				info[i.Type+"/"+i.Name] = i
			}
			describe := func(kind, name string) string {
				if i, ok := info[kind+"/"+name]; ok {
					return fmt.Sprintf("  - %s: %s", name, i.Description)
				}
				return "  - " + name
			}

			fmt.Fprintln(out, "Available Source Connectors:")
			for _, name := range registry.ListSources() {
				fmt.Fprintln(out, describe("source", name))
			}
			fmt.Fprintln(out, "\nAvailable Destination Connectors:")
			for _, name := range registry.ListDestinations() {
				fmt.Fprintln(out, describe("destination", name))
			}
			fmt.Fprintln(out, "\nRecipe Operations:")
			for _, name := range pipeline.OperationNames() {
				fmt.Fprintf(out, "  - %s\n", name)
			}
			fmt.Fprintln(out, "\nModels:")
			for _, kind := range training.ModelKinds {
				fmt.Fprintf(out, "  - %s\n", kind)
			}
			fmt.Fprintln(out, "\nCompression:")
			for _, algo := range compression.Algorithms {
				fmt.Fprintf(out, "  - %s\n", algo)
			}
		},
	}
}
