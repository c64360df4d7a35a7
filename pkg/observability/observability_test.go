package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitTracingRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	var out bytes.Buffer

	config := DefaultTracingConfig()
	config.Enabled = true
	config.Environment = "test"
	config.Writer = &out

	shutdown, err := InitTracing(config, sdktrace.WithSpanProcessor(recorder))
	if err != nil {
		t.Fatalf("Failed to initialize tracing: %v", err)
	}

	ctx, span := StartSpan(context.Background(), "engine.scale", attribute.String("session", "s1"))
	span.SetAttribute("rows", 10)
	span.SetAttribute("method", "robust")
	span.RecordError(nil)
	if !span.SpanContext().IsValid() {
		t.Error("span context should be valid when tracing is enabled")
	}
	if ctx == nil {
		t.Fatal("context should not be nil")
	}
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	if ended[0].Name() != "engine.scale" {
		t.Errorf("unexpected span name %q", ended[0].Name())
	}

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range ended[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if attrs["session"].AsString() != "s1" {
		t.Errorf("session attribute missing: %v", attrs)
	}
	if attrs["rows"].AsInt64() != 10 {
		t.Errorf("rows attribute missing: %v", attrs)
	}
	if _, ok := attrs["duration_ms"]; !ok {
		t.Error("duration_ms attribute should be set on End")
	}
	if out.Len() == 0 {
		t.Error("stdout exporter should have written the span on shutdown")
	}
}

func TestSpanRecordError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	config := DefaultTracingConfig()
	config.Enabled = true
	config.Writer = &bytes.Buffer{}

	shutdown, err := InitTracing(config, sdktrace.WithSpanProcessor(recorder))
	if err != nil {
		t.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer shutdown(context.Background())

	_, span := StartSpan(context.Background(), "engine.undo")
	span.RecordError(errors.New("nothing to undo"))
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	if ended[0].Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", ended[0].Status().Code)
	}
	if len(ended[0].Events()) == 0 {
		t.Error("RecordError should add an exception event")
	}
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(DefaultTracingConfig())
	if err != nil {
		t.Fatalf("disabled tracing should not fail: %v", err)
	}

	_, span := StartSpan(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Error("no-op provider should produce invalid span contexts")
	}
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Errorf("no-op shutdown returned %v", err)
	}
}

func TestWithTrace(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	// Without a span the logger is returned unchanged.
	WithTrace(context.Background(), base).Info("plain")

	recorder := tracetest.NewSpanRecorder()
	config := DefaultTracingConfig()
	config.Enabled = true
	config.Writer = &bytes.Buffer{}
	shutdown, err := InitTracing(config, sdktrace.WithSpanProcessor(recorder))
	if err != nil {
		t.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer shutdown(context.Background())

	ctx, span := StartSpan(context.Background(), "traced")
	WithTrace(ctx, base).Info("traced")
	span.End()

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if _, ok := entries[0].ContextMap()["trace_id"]; ok {
		t.Error("untraced entry should not carry trace_id")
	}
	fields := entries[1].ContextMap()
	if fields["trace_id"] != span.SpanContext().TraceID().String() {
		t.Errorf("trace_id mismatch: %v", fields)
	}
	if fields["span_id"] != span.SpanContext().SpanID().String() {
		t.Errorf("span_id mismatch: %v", fields)
	}
}
