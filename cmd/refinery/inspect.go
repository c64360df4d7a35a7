package main

import (
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/refinery/pkg/eda"
)

func newInspectCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [csv]",
		Short: "Profile a dataset and print the report as JSON",
		Long: `Inspect loads a dataset and prints an exploratory report: shape, missing
cells, duplicates, per-column summaries and the strongest correlations.

Example:
  refinery inspect customers.csv --top-correlations 5`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := bindFlags(cmd.Flags())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				v.Set("input", args[0])
			}
			ds, err := loadDataset(cmd.Context(), v, a.log)
			if err != nil {
				return err
			}

			cfg := eda.DefaultConfig()
			cfg.TopCorrelations = v.GetInt("top-correlations")
			cfg.TopValues = v.GetInt("top-values")
			report, err := eda.NewAnalyzerWithConfig(cfg, a.log).Analyze(cmd.Context(), ds.Table)
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		},
	}
	addInputFlags(cmd)
	cmd.Flags().Int("top-correlations", eda.DefaultConfig().TopCorrelations, "Number of strongest correlations to report")
	cmd.Flags().Int("top-values", eda.DefaultConfig().TopValues, "Number of most frequent values per categorical column")
	return cmd
}
