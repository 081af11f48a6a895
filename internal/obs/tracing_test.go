// Copyright 2025 James Ross
package obs

import (
	"context"
	"testing"

	"github.com/blockprover/orchestrator/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMaybeInitTracing(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *config.Config
		expectNil bool
	}{
		{
			name: "tracing disabled",
			cfg: &config.Config{
				Observability: config.ObservabilityConfig{Tracing: config.TracingConfig{Enabled: false}},
			},
			expectNil: true,
		},
		{
			name: "enabled without endpoint",
			cfg: &config.Config{
				Observability: config.ObservabilityConfig{Tracing: config.TracingConfig{Enabled: true}},
			},
			expectNil: true,
		},
		{
			name: "enabled with endpoint",
			cfg: &config.Config{
				Observability: config.ObservabilityConfig{Tracing: config.TracingConfig{
					Enabled: true, Endpoint: "localhost:4318", Environment: "test",
					SamplingStrategy: "always", SamplingRate: 1.0,
				}},
			},
			expectNil: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			otel.SetTracerProvider(trace.NewNoopTracerProvider())

			tp, err := MaybeInitTracing(tt.cfg)
			if err != nil {
				t.Fatalf("MaybeInitTracing() error = %v", err)
			}
			if tt.expectNil && tp != nil {
				t.Errorf("expected nil tracer provider, got %v", tp)
			}
			if !tt.expectNil && tp == nil {
				t.Fatal("expected non-nil tracer provider")
			}
			if tp != nil {
				_ = tp.Shutdown(context.Background())
			}
		})
	}
}

func TestTracingSamplingStrategies(t *testing.T) {
	for _, tt := range []struct {
		strategy string
		rate     float64
	}{
		{"always", 1.0}, {"never", 0.0}, {"probabilistic", 0.5}, {"unknown-falls-back", 0.1},
	} {
		t.Run(tt.strategy, func(t *testing.T) {
			cfg := &config.Config{Observability: config.ObservabilityConfig{Tracing: config.TracingConfig{
				Enabled: true, Endpoint: "localhost:4318", SamplingStrategy: tt.strategy, SamplingRate: tt.rate,
			}}}
			tp, err := MaybeInitTracing(cfg)
			if err != nil {
				t.Fatalf("MaybeInitTracing() error = %v", err)
			}
			if tp == nil {
				t.Fatal("expected non-nil tracer provider")
			}
			_ = tp.Shutdown(context.Background())
		})
	}
}

func TestStartAdmissionSpan(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	ctx, span := StartAdmissionSpan(context.Background(), "prove", "single:1:1:0xaa", "corr-1")
	if !span.IsRecording() {
		t.Error("expected span to be recording")
	}
	span.End()
	if !trace.SpanContextFromContext(ctx).IsValid() {
		t.Error("expected valid span context")
	}
}

func TestStartDispatchSpan(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	ctx, span := StartDispatchSpan(context.Background(), "single:1:1:0xaa", "native")
	if !span.IsRecording() {
		t.Error("expected span to be recording")
	}
	span.End()
	if !trace.SpanContextFromContext(ctx).IsValid() {
		t.Error("expected valid span context")
	}
}

func TestRecordErrorAndSetSpanSuccess(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	tracer := otel.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "test-span")
	defer span.End()

	RecordError(ctx, errBoom)
	RecordError(ctx, nil)
	RecordError(context.Background(), errBoom) // no span in context: no-op

	SetSpanSuccess(ctx)
	SetSpanSuccess(context.Background())
}

func TestAddSpanAttributes(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	tracer := otel.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "test-span")
	defer span.End()

	AddSpanAttributes(ctx, attribute.String("k", "v"), attribute.Int("n", 1))
	AddSpanAttributes(context.Background(), attribute.String("no-span", "v"))
}

func TestTracerShutdown(t *testing.T) {
	if err := TracerShutdown(context.Background(), nil); err != nil {
		t.Errorf("expected no error for nil tracer provider, got %v", err)
	}
	tp := sdktrace.NewTracerProvider()
	if err := TracerShutdown(context.Background(), tp); err != nil {
		t.Errorf("unexpected error shutting down tracer provider: %v", err)
	}
}

func TestKeyValue(t *testing.T) {
	for _, tt := range []struct {
		name     string
		value    interface{}
		expected attribute.Type
	}{
		{"string", "v", attribute.STRING},
		{"int", 42, attribute.INT64},
		{"int64", int64(42), attribute.INT64},
		{"float64", 3.14, attribute.FLOAT64},
		{"bool", true, attribute.BOOL},
		{"other", struct{}{}, attribute.STRING},
	} {
		t.Run(tt.name, func(t *testing.T) {
			kv := KeyValue("key", tt.value)
			if kv.Value.Type() != tt.expected {
				t.Errorf("expected type %v, got %v", tt.expected, kv.Value.Type())
			}
		})
	}
}

type boomError struct{}

func (boomError) Error() string { return "boom" }

var errBoom = boomError{}
