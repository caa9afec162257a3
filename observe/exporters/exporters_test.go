package exporters

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func clearEndpoints(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		EndpointEnv,
		"OTEL_EXPORTER_OTLP_ENDPOINT",
		"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT",
		"OTEL_EXPORTER_OTLP_METRICS_ENDPOINT",
		"OTEL_EXPORTER_JAEGER_ENDPOINT",
	} {
		t.Setenv(k, "")
	}
}

func TestExporter_InvalidName(t *testing.T) {
	_, err := NewTracingExporter(context.Background(), "invalid")
	if !errors.Is(err, ErrUnknownExporter) {
		t.Fatalf("err = %v, want ErrUnknownExporter", err)
	}
}

func TestExporter_MetricsInvalidName(t *testing.T) {
	_, err := NewMetricsReader(context.Background(), "badvalue")
	if !errors.Is(err, ErrUnknownExporter) {
		t.Fatalf("err = %v, want ErrUnknownExporter", err)
	}
}

func TestExporter_StdoutTracingWritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	exp, err := NewTracingExporter(context.Background(), "stdout", WithWriter(&buf))
	if err != nil {
		t.Fatalf("NewTracingExporter() error = %v", err)
	}

	stub := tracetest.SpanStub{Name: "fold.basepair.foldSequence"}
	if err := exp.ExportSpans(context.Background(), tracetest.SpanStubs{stub}.Snapshots()); err != nil {
		t.Fatalf("ExportSpans() error = %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("fold.basepair.foldSequence")) {
		t.Errorf("span not written to writer: %s", buf.String())
	}
}

func TestExporter_StdoutMetrics(t *testing.T) {
	reader, err := NewMetricsReader(context.Background(), "stdout", WithWriter(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("NewMetricsReader() error = %v", err)
	}
	if reader == nil {
		t.Fatal("expected non-nil reader")
	}
}

func TestExporter_OtlpMissingEndpoint(t *testing.T) {
	clearEndpoints(t)

	if _, err := NewTracingExporter(context.Background(), "otlp"); !errors.Is(err, ErrEndpointNotConfigured) {
		t.Errorf("traces: err = %v, want ErrEndpointNotConfigured", err)
	}
	if _, err := NewMetricsReader(context.Background(), "otlp"); !errors.Is(err, ErrEndpointNotConfigured) {
		t.Errorf("metrics: err = %v, want ErrEndpointNotConfigured", err)
	}
}

func TestExporter_OtlpWithEndpoint(t *testing.T) {
	clearEndpoints(t)
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4317")

	exp, err := NewTracingExporter(context.Background(), "otlp")
	if err != nil {
		t.Fatalf("NewTracingExporter() error = %v", err)
	}
	if exp == nil {
		t.Fatal("expected non-nil exporter")
	}
}

func TestExporter_JaegerMissingEndpoint(t *testing.T) {
	clearEndpoints(t)

	_, err := NewTracingExporter(context.Background(), "jaeger")
	if !errors.Is(err, ErrEndpointNotConfigured) {
		t.Fatalf("err = %v, want ErrEndpointNotConfigured", err)
	}
}

func TestEndpoint_Precedence(t *testing.T) {
	tests := []struct {
		name         string
		env          map[string]string
		signal       Signal
		want         string
		wantExplicit bool
	}{
		{
			name:   "nothing set",
			signal: SignalTraces,
		},
		{
			name:   "signal specific",
			env:    map[string]string{"OTEL_EXPORTER_OTLP_METRICS_ENDPOINT": "http://m:4317"},
			signal: SignalMetrics,
			want:   "http://m:4317",
		},
		{
			name: "generic beats signal specific",
			env: map[string]string{
				"OTEL_EXPORTER_OTLP_ENDPOINT":        "http://g:4317",
				"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT": "http://t:4317",
			},
			signal: SignalTraces,
			want:   "http://g:4317",
		},
		{
			name: "foldops override",
			env: map[string]string{
				EndpointEnv:                   "http://f:4317",
				"OTEL_EXPORTER_OTLP_ENDPOINT": "http://g:4317",
			},
			signal:       SignalTraces,
			want:         "http://f:4317",
			wantExplicit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEndpoints(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			got, explicit := Endpoint(tt.signal)
			if got != tt.want || explicit != tt.wantExplicit {
				t.Errorf("Endpoint(%s) = (%q, %v), want (%q, %v)", tt.signal, got, explicit, tt.want, tt.wantExplicit)
			}
		})
	}
}

func TestExporter_PrometheusReturnsReader(t *testing.T) {
	reader, err := NewMetricsReader(context.Background(), "prometheus")
	if err != nil {
		t.Fatalf("NewMetricsReader() error = %v", err)
	}
	if reader == nil {
		t.Fatal("expected non-nil reader")
	}
}

func TestExporter_NoneReturnsDiscarding(t *testing.T) {
	exp, err := NewTracingExporter(context.Background(), "")
	if err != nil {
		t.Fatalf("NewTracingExporter() error = %v", err)
	}
	if exp == nil {
		t.Fatal("expected discarding exporter, got nil")
	}

	reader, err := NewMetricsReader(context.Background(), "none")
	if err != nil {
		t.Fatalf("NewMetricsReader() error = %v", err)
	}
	if reader == nil {
		t.Fatal("expected discarding reader, got nil")
	}
}
