package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/metrics"
	"github.com/ajitpratap0/refinery/pkg/transform/constant"
	"github.com/ajitpratap0/refinery/pkg/transform/duplicates"
	"github.com/ajitpratap0/refinery/pkg/transform/encoding"
	"github.com/ajitpratap0/refinery/pkg/transform/missing"
	"github.com/ajitpratap0/refinery/pkg/transform/outliers"
	"github.com/ajitpratap0/refinery/pkg/transform/sampling"
	"github.com/ajitpratap0/refinery/pkg/transform/scaling"
)

// AnalyzeMissingValues reports missing cells per column.
func (e *Engine) AnalyzeMissingValues(ctx context.Context, key string) (*Result, error) {
	return e.inspect(ctx, key, OpAnalyzeMissingValues, func(t *columnar.Table) (interface{}, error) {
		return missing.Analyze(t), nil
	})
}

// HandleMissingValues drops or fills missing cells.
func (e *Engine) HandleMissingValues(ctx context.Context, key string, p missing.Params) (*Result, error) {
	return e.mutate(ctx, key, OpHandleMissingValues, func(t *columnar.Table) (*columnar.Table, string, interface{}, error) {
		out, meta, err := missing.Handle(t, p)
		if err != nil {
			return nil, "", nil, err
		}
		return out, fmt.Sprintf("Missing values: %s on %s cols", p.Strategy, countOrAll(p.Columns)), meta, nil
	})
}

// AnalyzeDuplicates reports duplicated rows and identical columns.
func (e *Engine) AnalyzeDuplicates(ctx context.Context, key string) (*Result, error) {
	return e.inspect(ctx, key, OpAnalyzeDuplicates, func(t *columnar.Table) (interface{}, error) {
		return duplicates.Analyze(t, e.cfg.PreviewLimit), nil
	})
}

// RemoveDuplicates drops duplicated rows according to the keep policy.
func (e *Engine) RemoveDuplicates(ctx context.Context, key string, p duplicates.Params) (*Result, error) {
	return e.mutate(ctx, key, OpRemoveDuplicates, func(t *columnar.Table) (*columnar.Table, string, interface{}, error) {
		out, meta, err := duplicates.Remove(t, p)
		if err != nil {
			return nil, "", nil, err
		}
		return out, fmt.Sprintf("Removed duplicates (keep=%s), %d rows removed", p.Keep, meta.RowsRemoved), meta, nil
	})
}

// DetectConstantColumns reports constant and near-constant columns. A nil
// threshold uses the configured variance threshold.
func (e *Engine) DetectConstantColumns(ctx context.Context, key string, threshold *float64) (*Result, error) {
	th := e.cfg.VarianceThreshold
	if threshold != nil {
		th = *threshold
	}
	return e.inspect(ctx, key, OpDetectConstantColumns, func(t *columnar.Table) (interface{}, error) {
		return constant.Detect(t, th), nil
	})
}

// RemoveConstantColumns drops the named columns. Absent names are ignored.
func (e *Engine) RemoveConstantColumns(ctx context.Context, key string, columns []string) (*Result, error) {
	return e.mutate(ctx, key, OpRemoveConstantColumns, func(t *columnar.Table) (*columnar.Table, string, interface{}, error) {
		out, meta := constant.Remove(t, columns)
		return out, fmt.Sprintf("Removed %d constant column(s)", meta.ColumnsRemovedCount), meta, nil
	})
}

// LabelEncode label-encodes the categorical columns among columns.
func (e *Engine) LabelEncode(ctx context.Context, key string, columns []string) (*Result, error) {
	return e.encode(ctx, key, OpLabelEncode, func(t *columnar.Table) (*columnar.Table, encoding.Metadata, error) {
		return encoding.EncodeLabel(t, columns)
	})
}

// OneHotEncode expands columns into indicator columns.
func (e *Engine) OneHotEncode(ctx context.Context, key string, p encoding.OneHotParams) (*Result, error) {
	return e.encode(ctx, key, OpOneHotEncode, func(t *columnar.Table) (*columnar.Table, encoding.Metadata, error) {
		return encoding.EncodeOneHot(t, p)
	})
}

// OrdinalEncode maps one column to ordered integer codes.
func (e *Engine) OrdinalEncode(ctx context.Context, key string, p encoding.OrdinalParams) (*Result, error) {
	return e.encode(ctx, key, OpOrdinalEncode, func(t *columnar.Table) (*columnar.Table, encoding.Metadata, error) {
		return encoding.EncodeOrdinal(t, p)
	})
}

// TargetEncode replaces categories with the per-category target mean.
func (e *Engine) TargetEncode(ctx context.Context, key string, p encoding.TargetParams) (*Result, error) {
	return e.encode(ctx, key, OpTargetEncode, func(t *columnar.Table) (*columnar.Table, encoding.Metadata, error) {
		return encoding.EncodeTarget(t, p)
	})
}

func (e *Engine) encode(ctx context.Context, key string, op Operation,
	fn func(t *columnar.Table) (*columnar.Table, encoding.Metadata, error),
) (*Result, error) {
	return e.mutate(ctx, key, op, func(t *columnar.Table) (*columnar.Table, string, interface{}, error) {
		out, meta, err := fn(t)
		if err != nil {
			return nil, "", nil, err
		}
		// Runs under the session lock, so the store matches the commit.
		e.storeEncoders(key, meta.Encoders)
		return out, encodeDescription(op, meta), meta, nil
	})
}

// Scale scales numeric columns. An empty column list scales every numeric
// column.
func (e *Engine) Scale(ctx context.Context, key string, p scaling.Params) (*Result, error) {
	return e.mutate(ctx, key, OpScale, func(t *columnar.Table) (*columnar.Table, string, interface{}, error) {
		if len(p.Columns) == 0 {
			p.Columns = t.NumericColumnNames()
		}
		out, meta, err := scaling.Scale(t, p)
		if err != nil {
			return nil, "", nil, err
		}
		e.storeScalers(key, meta.Scalers)
		return out, fmt.Sprintf("%s scaling on %d cols", title(p.Method.String()), len(meta.ColumnsScaled)), meta, nil
	})
}

// DetectOutliers reports outliers without changing the table. A zero
// threshold uses the configured z-score threshold.
func (e *Engine) DetectOutliers(ctx context.Context, key string, p outliers.Params) (*Result, error) {
	p = e.outlierDefaults(p)
	return e.inspect(ctx, key, OpDetectOutliers, func(t *columnar.Table) (interface{}, error) {
		return outliers.Detect(t, p)
	})
}

// HandleOutliers removes, caps or flags outliers. Zero threshold and cap
// percentile use the configured values.
func (e *Engine) HandleOutliers(ctx context.Context, key string, p outliers.HandleParams) (*Result, error) {
	p.Params = e.outlierDefaults(p.Params)
	if p.CapPercentile == 0 {
		p.CapPercentile = e.cfg.CapPercentile
	}
	return e.mutate(ctx, key, OpHandleOutliers, func(t *columnar.Table) (*columnar.Table, string, interface{}, error) {
		out, meta, err := outliers.Handle(t, p)
		if err != nil {
			return nil, "", nil, err
		}
		return out, fmt.Sprintf("Outliers: %s using %s on %d cols", p.Action, p.Method, len(meta.Columns)), meta, nil
	})
}

func (e *Engine) outlierDefaults(p outliers.Params) outliers.Params {
	if p.Threshold == 0 {
		p.Threshold = e.cfg.ZScoreThreshold
	}
	return p
}

// ClassDistribution reports the class balance of target.
func (e *Engine) ClassDistribution(ctx context.Context, key, target string) (*Result, error) {
	return e.inspect(ctx, key, OpClassDistribution, func(t *columnar.Table) (interface{}, error) {
		return sampling.Analyze(t, target)
	})
}

// Sample rebalances classes of the target column. SMOTE requests run as
// random oversampling when the engine lacks the capability or the data
// cannot support it; the metadata and a Warn log record the substitution.
func (e *Engine) Sample(ctx context.Context, key string, p sampling.Params) (*Result, error) {
	if p.Seed == 0 {
		p.Seed = e.cfg.SamplingSeed
	}
	if p.KNeighbors == 0 {
		p.KNeighbors = e.cfg.SMOTENeighbors
	}
	p.Capabilities = e.caps

	res, err := e.mutate(ctx, key, OpSample, func(t *columnar.Table) (*columnar.Table, string, interface{}, error) {
		out, meta, err := sampling.Apply(t, p)
		if err != nil {
			return nil, "", nil, err
		}
		return out, fmt.Sprintf("%s sampling on %s", strings.ToUpper(meta.MethodApplied.String()), p.Target), meta, nil
	})
	if err != nil {
		return nil, err
	}

	if meta, ok := res.Metadata.(sampling.Metadata); ok && meta.MethodApplied != meta.MethodRequested {
		metrics.SMOTEFallbacks.Inc()
		e.opLogger(ctx).Warn("sampling method substituted",
			zap.String("session_id", key),
			zap.String("requested", meta.MethodRequested.String()),
			zap.String("applied", meta.MethodApplied.String()),
			zap.String("reason", meta.FallbackReason))
	}
	return res, nil
}

func encodeDescription(op Operation, meta encoding.Metadata) string {
	switch op {
	case OpLabelEncode:
		return fmt.Sprintf("Label encoding on %d cols", len(meta.ColumnsEncoded))
	case OpOneHotEncode:
		return fmt.Sprintf("One-hot encoding on %d cols", len(meta.ColumnsEncoded))
	case OpOrdinalEncode:
		if len(meta.ColumnsEncoded) > 0 {
			return "Ordinal encoding on " + meta.ColumnsEncoded[0].Original
		}
		return "Ordinal encoding"
	default:
		return fmt.Sprintf("Target encoding on %d cols", len(meta.ColumnsEncoded))
	}
}

func countOrAll(columns []string) string {
	if len(columns) == 0 {
		return "all"
	}
	return fmt.Sprint(len(columns))
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
