package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/training"
)

func newTrainCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a baseline model and print its held-out metrics",
		Long: `Train loads a dataset, optionally applies a recipe, then fits a model on the
numeric columns to predict --target. Rows with missing values are dropped and
a seeded split holds out --test-size of them for evaluation.

Example:
  refinery train --input clean.csv --target churn --model logistic_regression --artifact churn.json.zst`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := bindFlags(cmd.Flags())
			if err != nil {
				return err
			}
			target := v.GetString("target")
			if target == "" {
				return errors.New(errors.ErrorTypeConfig, "--target is required")
			}
			kind, err := training.ParseModelKind(v.GetString("model"))
			if err != nil {
				return err
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
			if recipe := v.GetString("recipe"); recipe != "" {
				if err := s.runRecipe(ctx, cmd, recipe); err != nil {
					return err
				}
			}
			table, err := s.engine.Current(s.key)
			if err != nil {
				return err
			}

			tcfg := a.cfg.Training
			// IsSet ignores flag defaults, so config values survive
			// unless a flag or REFINERY_* variable overrides them.
			if v.IsSet("test-size") {
				tcfg.TestSize = v.GetFloat64("test-size")
			}
			if v.IsSet("seed") {
				tcfg.Seed = v.GetUint64("seed")
			}
			if v.IsSet("neighbors") {
				tcfg.Neighbors = v.GetInt("neighbors")
			}
			if tcfg.TestSize <= 0 || tcfg.TestSize >= 1 {
				return errors.New(errors.ErrorTypeConfig, "--test-size must be in (0, 1)").
					WithDetail("test_size", tcfg.TestSize)
			}

			model, err := training.NewTrainer(tcfg, a.log).Train(ctx, table, target, kind)
			if err != nil {
				return err
			}
			if path := v.GetString("artifact"); path != "" {
				if err := training.SaveModel(path, model); err != nil {
					return err
				}
				a.log.Info("model saved", zap.String("path", path), zap.String("model", string(kind)))
			}
			return printJSON(cmd, trainReport{
				Model:     model.Kind,
				Task:      model.Task,
				Target:    model.Target,
				Features:  model.Features,
				TrainRows: model.TrainRows,
				TestRows:  model.TestRows,
				Metrics:   model.Metrics,
			})
		},
	}
	addInputFlags(cmd)
	f := cmd.Flags()
	f.StringP("target", "t", "", "Column to predict (required)")
	f.StringP("model", "m", string(training.ModelLogisticRegression), "Model kind (linear_regression, logistic_regression, knn)")
	f.StringP("recipe", "r", "", "YAML recipe applied before training")
	f.String("artifact", "", "Save the fitted model here; .gz, .zst and friends compress it")
	f.Float64("test-size", 0.2, "Fraction of rows held out for evaluation")
	f.Uint64("seed", 42, "Seed for the train/test split")
	f.Int("neighbors", 5, "k for the knn model")
	return cmd
}

// trainReport is what train prints. The fitted weights stay in the
// artifact.
type trainReport struct {
	Model     training.ModelKind `json:"model"`
	Task      training.Task      `json:"task"`
	Target    string             `json:"target"`
	Features  []string           `json:"features"`
	TrainRows int                `json:"train_rows"`
	TestRows  int                `json:"test_rows"`
	Metrics   training.Metrics   `json:"metrics"`
}
