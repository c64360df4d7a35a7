// Package observability provides tracing for refinery operations.
//
// InitTracing installs an OpenTelemetry tracer provider exporting to
// stdout, or a no-op provider when tracing is disabled. StartSpan opens a
// span on the package tracer; WithTrace decorates a zap logger with the
// active trace and span IDs so log lines can be joined to traces.
package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/ajitpratap0/refinery"

var (
	mu     sync.RWMutex
	tracer trace.Tracer
)

func setTracer(t trace.Tracer) {
	mu.Lock()
	defer mu.Unlock()
	tracer = t
}

// Tracer returns the package tracer, falling back to the global provider
// when InitTracing has not run.
func Tracer() trace.Tracer {
	mu.RLock()
	t := tracer
	mu.RUnlock()
	if t == nil {
		return otel.Tracer(instrumentationName)
	}
	return t
}

// Span wraps a trace span and batches attribute writes until End.
type Span struct {
	span       trace.Span
	startTime  time.Time
	attributes []attribute.KeyValue
}

// StartSpan starts a span named name.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *Span) {
	ctx, span := Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, &Span{span: span, startTime: time.Now()}
}

// SetAttribute adds an attribute to the span
func (s *Span) SetAttribute(key string, value interface{}) {
	var attr attribute.KeyValue

	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case float64:
		attr = attribute.Float64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	case []string:
		attr = attribute.StringSlice(key, v)
	default:
		attr = attribute.String(key, fmt.Sprintf("%v", v))
	}

	s.attributes = append(s.attributes, attr)
}

// AddEvent adds an event to the span
func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError marks the span failed. A nil error is ignored.
func (s *Span) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// End flushes attributes and ends the span.
func (s *Span) End() {
	s.attributes = append(s.attributes, attribute.Int64("duration_ms", time.Since(s.startTime).Milliseconds()))
	s.span.SetAttributes(s.attributes...)
	s.span.End()
}

// SpanContext returns the underlying span context.
func (s *Span) SpanContext() trace.SpanContext {
	return s.span.SpanContext()
}

// WithTrace adds trace_id and span_id fields to l when ctx carries a valid
// span.
func WithTrace(ctx context.Context, l *zap.Logger) *zap.Logger {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return l
	}
	return l.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}
