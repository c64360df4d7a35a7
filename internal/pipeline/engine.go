// Package pipeline provides the preprocessing engine for refinery,
// translating named operations into transform calls against a session's
// current table.
//
// # Overview
//
// Every mutating call follows the same protocol under the session lock:
// read the current table, run the transform, commit the result. The
// response is a Result carrying the new shape and the transform metadata.
// Analyses read the current table and never commit.
//
// The engine also owns per-session stores of fitted encoders and scalers.
// They are filled by the encoding and scaling operations and emptied by
// Reset and ClearSession.
//
// # Basic Usage
//
//	manager := dataset.NewManager(logger)
//	engine := pipeline.NewEngine(manager, cfg.Engine, logger)
//
//	key := dataset.NewSessionKey()
//	if err := engine.InitializeSession(ctx, key, table, "customers.csv"); err != nil {
//		return err
//	}
//
//	res, err := engine.Scale(ctx, key, scaling.Params{Method: scaling.Robust})
//
// # Observability
//
// Each operation opens a span, records latency and status in the
// refinery_operations_* metrics and logs one line with the shape before and
// after.
package pipeline

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/refinery/internal/dataset"
	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/config"
	"github.com/ajitpratap0/refinery/pkg/logger"
	"github.com/ajitpratap0/refinery/pkg/metrics"
	"github.com/ajitpratap0/refinery/pkg/observability"
	"github.com/ajitpratap0/refinery/pkg/transform/encoding"
	"github.com/ajitpratap0/refinery/pkg/transform/sampling"
	"github.com/ajitpratap0/refinery/pkg/transform/scaling"
)

// Result is the response envelope of every engine operation.
type Result struct {
	Shape    columnar.Shape `json:"shape"`
	Metadata interface{}    `json:"metadata"`
}

// Engine orchestrates transforms over a dataset.Manager.
type Engine struct {
	manager *dataset.Manager
	cfg     config.EngineConfig
	caps    sampling.Capabilities
	logger  *zap.Logger

	mu       sync.RWMutex
	encoders map[string]map[string]encoding.Encoder
	scalers  map[string]map[string]scaling.Fitted
}

// NewEngine creates an engine over manager. A nil manager gets a fresh
// one; a nil logger uses the global logger. The sampling capabilities are
// decided here, once.
func NewEngine(manager *dataset.Manager, cfg config.EngineConfig, log *zap.Logger) *Engine {
	log = logger.OrDefault(log).With(zap.String("component", "preprocessing_engine"))
	if manager == nil {
		manager = dataset.NewManager(log)
	}

	e := &Engine{
		manager:  manager,
		cfg:      cfg,
		caps:     sampling.DetectCapabilities(cfg.SMOTEEnabled),
		logger:   log,
		encoders: make(map[string]map[string]encoding.Encoder),
		scalers:  make(map[string]map[string]scaling.Fitted),
	}
	manager.OnDiscard(e.clearFitted)
	if !e.caps.SMOTE {
		log.Warn("smote unavailable, requests will use random oversampling",
			zap.String("reason", e.caps.Reason))
	}
	return e
}

// Manager returns the underlying dataset manager.
func (e *Engine) Manager() *dataset.Manager { return e.manager }

// Capabilities returns the sampling capabilities decided at construction.
func (e *Engine) Capabilities() sampling.Capabilities { return e.caps }

// InitializeSession creates or replaces a session. Fitted stores of a
// replaced session are discarded.
func (e *Engine) InitializeSession(ctx context.Context, key string, table *columnar.Table, name string) error {
	if err := e.manager.InitializeSession(key, table, name); err != nil {
		return err
	}
	logger.FromContext(ctx, e.logger).Debug("engine session ready", zap.String("session_id", key))
	return nil
}

// Current returns the live table of a session.
func (e *Engine) Current(key string) (*columnar.Table, error) { return e.manager.Current(key) }

// Original returns the pristine table of a session.
func (e *Engine) Original(key string) (*columnar.Table, error) { return e.manager.Original(key) }

// Stats returns the session's shapes and history flags.
func (e *Engine) Stats(key string) (dataset.Stats, error) { return e.manager.Stats(key) }

// History returns a copy of the session's action log.
func (e *Engine) History(key string) ([]dataset.Entry, error) { return e.manager.History(key) }

// Undo reverts the last commit.
func (e *Engine) Undo(ctx context.Context, key string) (dataset.Stats, error) {
	return e.replay(ctx, key, OpUndo, func() error {
		_, err := e.manager.Undo(key)
		return err
	})
}

// Redo re-applies the last undone commit.
func (e *Engine) Redo(ctx context.Context, key string) (dataset.Stats, error) {
	return e.replay(ctx, key, OpRedo, func() error {
		_, err := e.manager.Redo(key)
		return err
	})
}

// Reset restores the original table and clears history and fitted stores.
func (e *Engine) Reset(ctx context.Context, key string) (dataset.Stats, error) {
	return e.replay(ctx, key, OpReset, func() error {
		return e.manager.Reset(key)
	})
}

// ClearSession drops the session and its fitted stores. Unknown keys are
// ignored.
func (e *Engine) ClearSession(ctx context.Context, key string) {
	e.manager.ClearSession(key)
	logger.FromContext(ctx, e.logger).Debug("engine session cleared", zap.String("session_id", key))
}

// mutate runs fn against the current table and commits its result under the
// session lock. fn returns the new table, the action-log description and
// the metadata for the Result.
func (e *Engine) mutate(ctx context.Context, key string, op Operation,
	fn func(current *columnar.Table) (*columnar.Table, string, interface{}, error),
) (*Result, error) {
	ctx, span := e.start(ctx, key, op)
	defer span.End()
	timer := metrics.NewTimer(op.String())

	var (
		before columnar.Shape
		meta   interface{}
	)
	next, err := e.manager.Update(key, op.action(), func(current *columnar.Table) (*columnar.Table, string, error) {
		before = current.Shape()
		metrics.RowsProcessed.WithLabelValues(op.String()).Add(float64(current.NumRows()))
		out, description, m, err := fn(current)
		meta = m
		return out, description, err
	})
	elapsed := timer.Stop()
	metrics.ObserveOperation(op.String(), elapsed, err)

	log := e.opLogger(ctx)
	if err != nil {
		span.RecordError(err)
		log.Warn("operation failed", zap.Error(err), zap.Duration("duration", elapsed))
		return nil, err
	}

	after := next.Shape()
	span.SetAttribute("rows_before", before.Rows)
	span.SetAttribute("rows_after", after.Rows)
	span.SetAttribute("columns_after", after.Columns)
	log.Info("operation applied",
		zap.Int("rows_before", before.Rows),
		zap.Int("columns_before", before.Columns),
		zap.Int("rows_after", after.Rows),
		zap.Int("columns_after", after.Columns),
		zap.Duration("duration", elapsed))

	return &Result{Shape: after, Metadata: meta}, nil
}

// inspect runs a read-only analysis over the current table.
func (e *Engine) inspect(ctx context.Context, key string, op Operation,
	fn func(current *columnar.Table) (interface{}, error),
) (*Result, error) {
	ctx, span := e.start(ctx, key, op)
	defer span.End()
	timer := metrics.NewTimer(op.String())

	current, err := e.manager.Current(key)
	var report interface{}
	if err == nil {
		metrics.RowsProcessed.WithLabelValues(op.String()).Add(float64(current.NumRows()))
		report, err = fn(current)
	}
	elapsed := timer.Stop()
	metrics.ObserveOperation(op.String(), elapsed, err)

	log := e.opLogger(ctx)
	if err != nil {
		span.RecordError(err)
		log.Warn("analysis failed", zap.Error(err))
		return nil, err
	}
	log.Debug("analysis complete", zap.Duration("duration", elapsed))
	return &Result{Shape: current.Shape(), Metadata: report}, nil
}

// replay wraps undo, redo and reset.
func (e *Engine) replay(ctx context.Context, key string, op Operation, fn func() error) (dataset.Stats, error) {
	ctx, span := e.start(ctx, key, op)
	defer span.End()
	timer := metrics.NewTimer(op.String())

	err := fn()
	metrics.ObserveOperation(op.String(), timer.Stop(), err)
	if err != nil {
		span.RecordError(err)
		e.opLogger(ctx).Info("history operation rejected", zap.Error(err))
		return dataset.Stats{}, err
	}

	stats, err := e.manager.Stats(key)
	if err != nil {
		return dataset.Stats{}, err
	}
	e.opLogger(ctx).Info("history operation applied",
		zap.Int("undo_depth", stats.UndoDepth),
		zap.Int("redo_depth", stats.RedoDepth))
	return stats, nil
}

func (e *Engine) start(ctx context.Context, key string, op Operation) (context.Context, *observability.Span) {
	ctx = logger.WithSession(logger.WithOperation(ctx, op.String()), key)
	return observability.StartSpan(ctx, "engine."+op.String(),
		attribute.String("session_id", key),
		attribute.String("operation", op.String()))
}

// opLogger picks up session_id and operation from the context set by start.
func (e *Engine) opLogger(ctx context.Context) *zap.Logger {
	return observability.WithTrace(ctx, logger.FromContext(ctx, e.logger))
}
