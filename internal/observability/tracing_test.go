package observability

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

func TestTracingConfigFromEnv(t *testing.T) {
	t.Setenv("TRACKGEN_TRACING_ENABLED", "TRUE")
	t.Setenv("TRACKGEN_TRACING_EXPORTER", "OTLP")
	t.Setenv("TRACKGEN_TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("TRACKGEN_OTLP_ENDPOINT", "collector:4317")

	cfg := TracingConfigFromEnv()
	if !cfg.Enabled || cfg.Exporter != "otlp" || cfg.SampleRatio != 0.25 || cfg.Endpoint != "collector:4317" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ServiceName != "trackgen" {
		t.Errorf("ServiceName = %q, want trackgen", cfg.ServiceName)
	}
}

func TestTracingConfigFromEnvRejectsBadRatio(t *testing.T) {
	t.Setenv("TRACKGEN_TRACING_SAMPLE_RATIO", "1.5")
	if cfg := TracingConfigFromEnv(); cfg.SampleRatio != 1.0 || cfg.Enabled {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{}, testLogger)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	_, span := StartSpan(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Error("noop provider produced a valid span context")
	}
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestInitTracingStdout(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracing(context.Background(), TracingConfig{
		Enabled:     true,
		ServiceName: "trackgen-test",
		Exporter:    "stdout",
		SampleRatio: 1,
		Writer:      &buf,
	}, testLogger)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	t.Cleanup(func() { _, _ = InitTracing(context.Background(), TracingConfig{}, testLogger) })

	_, span := StartSpan(context.Background(), "tracking.run", attribute.Int("samples", 3))
	if !span.SpanContext().IsValid() {
		t.Error("expected a recording span")
	}
	span.End()

	ShutdownWithTimeout(context.Background(), shutdown, testLogger)
	if !strings.Contains(buf.String(), "tracking.run") {
		t.Errorf("exported spans missing span name: %q", buf.String())
	}
}

func TestInitTracingUnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"}, testLogger)
	if err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}
