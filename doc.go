// Package refinery is a tabular data preprocessing toolkit. It loads a table
// from CSV or SQL, profiles it and applies cleaning and feature engineering
// operations. Every change is recorded so it can be undone, redone or
// reset. The result can be exported to several file formats or used to
// train a baseline model.
//
// # Architecture
//
// A dataset lives in a session owned by internal/dataset.Manager. The
// session holds the original table, the current table, undo and redo stacks
// of snapshots, and an action log. Tables are immutable
// (pkg/columnar.Table), so a snapshot is a pointer and an operation that
// fails commits nothing.
//
// internal/pipeline.Engine runs operations against a session. Analyses
// (missing values, duplicates, constant columns, outliers, class balance)
// report without committing. Transforms produce a new table and commit it
// with a description. Encoders and scalers fitted by a session are kept so
// they can be reported and serialized.
//
// # Key Packages
//
//   - pkg/columnar: immutable numeric and categorical columns with missing cells
//   - pkg/transform: missing values, duplicates, encoding, scaling, outliers, sampling
//   - pkg/eda: exploratory summaries and correlations
//   - pkg/training: linear regression, logistic regression and knn baselines
//   - pkg/connector: CSV and SQL sources; CSV, JSON, XLSX and Arrow destinations
//   - pkg/config: YAML configuration with REFINERY_* environment overrides
//   - pkg/logger, pkg/metrics, pkg/observability: zap, Prometheus and OpenTelemetry
//
// # Quick Start
//
//	manager := dataset.NewManager(log)
//	engine := pipeline.NewEngine(manager, config.Default().Engine, log)
//	key := dataset.NewSessionKey()
//	if err := engine.InitializeSession(ctx, key, table, "customers.csv"); err != nil {
//		return err
//	}
//	if _, err := engine.HandleMissingValues(ctx, key, missing.Params{Strategy: missing.Median}); err != nil {
//		return err
//	}
//	if _, err := engine.Undo(ctx, key); err != nil {
//		return err
//	}
//
// # Command Line
//
//	refinery inspect --input customers.csv
//	refinery run --input customers.csv --recipe churn.yaml --output clean.xlsx --format xlsx
//	refinery train --input clean.csv --target churn --model logistic_regression
//
// Recipes are YAML lists of operations; see internal/pipeline.Recipe.
package refinery
