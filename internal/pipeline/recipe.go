package pipeline

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/ajitpratap0/refinery/pkg/config"
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/transform/duplicates"
	"github.com/ajitpratap0/refinery/pkg/transform/encoding"
	"github.com/ajitpratap0/refinery/pkg/transform/missing"
	"github.com/ajitpratap0/refinery/pkg/transform/outliers"
	"github.com/ajitpratap0/refinery/pkg/transform/sampling"
	"github.com/ajitpratap0/refinery/pkg/transform/scaling"
)

// Recipe is an ordered list of steps loaded from YAML:
//
//	name: churn
//	steps:
//	  - op: handle_missing_values
//	    strategy: median
//	    columns: [age, income]
//	  - op: one_hot_encode
//	    columns: [city]
//	    drop_first: true
//	  - op: sample
//	    target: churn
//	    method: smote
type Recipe struct {
	Name  string `yaml:"name" json:"name"`
	Steps []Step `yaml:"steps" json:"steps"`
}

// Step is one engine operation with its parameters. Which fields apply
// depends on Op; the rest are ignored.
type Step struct {
	Op Operation `yaml:"op" json:"op"`

	Columns []string `yaml:"columns,omitempty" json:"columns,omitempty"`
	Column  string   `yaml:"column,omitempty" json:"column,omitempty"`
	Target  string   `yaml:"target,omitempty" json:"target,omitempty"`

	// Strategy is a missing-value strategy
	Strategy string `yaml:"strategy,omitempty" json:"strategy,omitempty"`
	// Method is a scaling, outlier or sampling method
	Method string `yaml:"method,omitempty" json:"method,omitempty"`
	// Action is an outlier action
	Action string `yaml:"action,omitempty" json:"action,omitempty"`
	// Keep is a duplicate keep policy
	Keep   string   `yaml:"keep,omitempty" json:"keep,omitempty"`
	Subset []string `yaml:"subset,omitempty" json:"subset,omitempty"`

	FillValue    *float64 `yaml:"fill_value,omitempty" json:"fill_value,omitempty"`
	FillCategory *string  `yaml:"fill_category,omitempty" json:"fill_category,omitempty"`

	Threshold     *float64 `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	CapPercentile float64  `yaml:"cap_percentile,omitempty" json:"cap_percentile,omitempty"`

	DropFirst    bool     `yaml:"drop_first,omitempty" json:"drop_first,omitempty"`
	HandleBinary bool     `yaml:"handle_binary,omitempty" json:"handle_binary,omitempty"`
	Categories   []string `yaml:"categories,omitempty" json:"categories,omitempty"`
	AutoOrder    bool     `yaml:"auto_order,omitempty" json:"auto_order,omitempty"`

	KNeighbors int    `yaml:"k_neighbors,omitempty" json:"k_neighbors,omitempty"`
	Seed       uint64 `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// StepResult pairs a recipe step with its result.
type StepResult struct {
	Index  int       `json:"index"`
	Op     Operation `json:"op"`
	Result *Result   `json:"result"`
}

// LoadRecipe reads a recipe file. ${VAR} references are expanded from the
// environment and unknown ops fail with ErrorTypeInvalidMethod.
func LoadRecipe(path string) (*Recipe, error) {
	var r Recipe
	if err := config.Load(path, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ParseRecipe is LoadRecipe for YAML already in memory.
func ParseRecipe(data []byte) (*Recipe, error) {
	var r Recipe
	if err := config.Decode(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// RunRecipe applies the steps in order and stops at the first failure,
// returning the results collected so far together with the error. Steps
// that committed before the failure stay committed and can be undone.
func (e *Engine) RunRecipe(ctx context.Context, key string, r *Recipe) ([]StepResult, error) {
	results := make([]StepResult, 0, len(r.Steps))
	for i, step := range r.Steps {
		if err := ctx.Err(); err != nil {
			return results, errors.Wrap(err, errors.ErrorTypeInternal, "recipe cancelled").WithDetail("recipe_step", i)
		}

		res, err := e.Apply(ctx, key, step)
		if err != nil {
			var typed *errors.Error
			if stderrors.As(err, &typed) {
				typed.WithDetail("recipe_step", i)
			}
			e.logger.Warn("recipe stopped",
				zap.String("session_id", key),
				zap.String("recipe", r.Name),
				zap.Int("step", i),
				zap.String("op", step.Op.String()),
				zap.Error(err))
			return results, err
		}
		results = append(results, StepResult{Index: i, Op: step.Op, Result: res})
	}
	return results, nil
}

// Apply runs one step.
func (e *Engine) Apply(ctx context.Context, key string, s Step) (*Result, error) {
	switch s.Op {
	case OpAnalyzeMissingValues:
		return e.AnalyzeMissingValues(ctx, key)

	case OpHandleMissingValues:
		strategy, err := missing.ParseStrategy(s.Strategy)
		if err != nil {
			return nil, err
		}
		return e.HandleMissingValues(ctx, key, missing.Params{
			Columns:        s.Columns,
			Strategy:       strategy,
			ConstantValue:  s.FillValue,
			ConstantString: s.FillCategory,
		})

	case OpAnalyzeDuplicates:
		return e.AnalyzeDuplicates(ctx, key)

	case OpRemoveDuplicates:
		keep := duplicates.KeepFirst
		if s.Keep != "" {
			var err error
			if keep, err = duplicates.ParseKeep(s.Keep); err != nil {
				return nil, err
			}
		}
		return e.RemoveDuplicates(ctx, key, duplicates.Params{Keep: keep, Subset: s.Subset})

	case OpDetectConstantColumns:
		return e.DetectConstantColumns(ctx, key, s.Threshold)

	case OpRemoveConstantColumns:
		return e.RemoveConstantColumns(ctx, key, s.Columns)

	case OpLabelEncode:
		return e.LabelEncode(ctx, key, s.Columns)

	case OpOneHotEncode:
		return e.OneHotEncode(ctx, key, encoding.OneHotParams{
			Columns:      s.Columns,
			DropFirst:    s.DropFirst,
			HandleBinary: s.HandleBinary,
		})

	case OpOrdinalEncode:
		return e.OrdinalEncode(ctx, key, encoding.OrdinalParams{
			Column:     s.Column,
			Categories: s.Categories,
			AutoOrder:  s.AutoOrder,
		})

	case OpTargetEncode:
		return e.TargetEncode(ctx, key, encoding.TargetParams{Columns: s.Columns, Target: s.Target})

	case OpScale:
		method := scaling.Standard
		if s.Method != "" {
			var err error
			if method, err = scaling.ParseMethod(s.Method); err != nil {
				return nil, err
			}
		}
		return e.Scale(ctx, key, scaling.Params{Columns: s.Columns, Method: method})

	case OpDetectOutliers:
		p, err := s.outlierParams()
		if err != nil {
			return nil, err
		}
		return e.DetectOutliers(ctx, key, p)

	case OpHandleOutliers:
		p, err := s.outlierParams()
		if err != nil {
			return nil, err
		}
		action := outliers.Remove
		if s.Action != "" {
			if action, err = outliers.ParseAction(s.Action); err != nil {
				return nil, err
			}
		}
		return e.HandleOutliers(ctx, key, outliers.HandleParams{
			Params:        p,
			Action:        action,
			CapPercentile: s.CapPercentile,
		})

	case OpClassDistribution:
		return e.ClassDistribution(ctx, key, s.Target)

	case OpSample:
		method := sampling.Over
		if s.Method != "" {
			var err error
			if method, err = sampling.ParseMethod(s.Method); err != nil {
				return nil, err
			}
		}
		return e.Sample(ctx, key, sampling.Params{
			Target:     s.Target,
			Method:     method,
			KNeighbors: s.KNeighbors,
			Seed:       s.Seed,
		})

	case OpUndo, OpRedo, OpReset:
		return e.applyHistory(ctx, key, s.Op)

	default:
		return nil, errors.InvalidMethod("operation", s.Op.String())
	}
}

func (e *Engine) applyHistory(ctx context.Context, key string, op Operation) (*Result, error) {
	fn := e.Undo
	switch op {
	case OpRedo:
		fn = e.Redo
	case OpReset:
		fn = e.Reset
	}
	stats, err := fn(ctx, key)
	if err != nil {
		return nil, err
	}
	return &Result{Shape: stats.CurrentShape, Metadata: stats}, nil
}

func (s Step) outlierParams() (outliers.Params, error) {
	p := outliers.Params{Columns: s.Columns, Method: outliers.IQR}
	if s.Method != "" {
		m, err := outliers.ParseMethod(s.Method)
		if err != nil {
			return p, err
		}
		p.Method = m
	}
	if s.Threshold != nil {
		p.Threshold = *s.Threshold
	}
	return p, nil
}
