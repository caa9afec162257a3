// Package exporters builds the OpenTelemetry span exporters and metric readers
// selected by name in observe.Config.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// EndpointEnv overrides the OTLP collector URL for both signals.
const EndpointEnv = "FOLDOPS_OTLP_ENDPOINT"

var (
	// ErrUnknownExporter indicates an exporter name this package does not build.
	ErrUnknownExporter = errors.New("exporters: unknown exporter")

	// ErrEndpointNotConfigured indicates no collector endpoint was found in the environment.
	ErrEndpointNotConfigured = errors.New("exporters: endpoint not configured")
)

// Signal names the telemetry signal an endpoint is resolved for.
type Signal string

const (
	SignalTraces  Signal = "traces"
	SignalMetrics Signal = "metrics"
)

// Option customizes exporter construction.
type Option func(*options)

type options struct {
	writer io.Writer
}

// WithWriter sets the destination of the stdout exporters. Defaults to os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.writer = w
		}
	}
}

func apply(opts []Option) options {
	o := options{writer: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Endpoint resolves the collector endpoint for a signal.
// The second return value reports whether the value came from EndpointEnv,
// in which case it must be passed to the exporter explicitly.
func Endpoint(signal Signal) (string, bool) {
	if v := os.Getenv(EndpointEnv); v != "" {
		return v, true
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		return v, false
	}
	switch signal {
	case SignalTraces:
		return os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"), false
	case SignalMetrics:
		return os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"), false
	}
	return "", false
}

// NewTracingExporter creates a span exporter by name.
// Supported: stdout, otlp, jaeger (via OTLP), none.
func NewTracingExporter(ctx context.Context, name string, opts ...Option) (sdktrace.SpanExporter, error) {
	o := apply(opts)
	switch name {
	case "stdout":
		return stdouttrace.New(stdouttrace.WithWriter(o.writer))

	case "otlp", "jaeger":
		endpoint, explicit := Endpoint(SignalTraces)
		if name == "jaeger" && endpoint == "" {
			endpoint, explicit = os.Getenv("OTEL_EXPORTER_JAEGER_ENDPOINT"), true
		}
		if endpoint == "" {
			return nil, fmt.Errorf("%w: set %s or OTEL_EXPORTER_OTLP_ENDPOINT", ErrEndpointNotConfigured, EndpointEnv)
		}
		var grpcOpts []otlptracegrpc.Option
		if explicit {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithEndpointURL(endpoint))
		}
		return otlptracegrpc.New(ctx, grpcOpts...)

	case "none", "":
		return stdouttrace.New(stdouttrace.WithWriter(io.Discard))

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, name)
	}
}

// NewMetricsReader creates a metric reader by name.
// Supported: stdout, otlp, prometheus, none.
func NewMetricsReader(ctx context.Context, name string, opts ...Option) (sdkmetric.Reader, error) {
	o := apply(opts)
	switch name {
	case "stdout":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(o.writer))
		if err != nil {
			return nil, fmt.Errorf("exporters: stdout metrics: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	case "otlp":
		endpoint, explicit := Endpoint(SignalMetrics)
		if endpoint == "" {
			return nil, fmt.Errorf("%w: set %s or OTEL_EXPORTER_OTLP_ENDPOINT", ErrEndpointNotConfigured, EndpointEnv)
		}
		var grpcOpts []otlpmetricgrpc.Option
		if explicit {
			grpcOpts = append(grpcOpts, otlpmetricgrpc.WithEndpointURL(endpoint))
		}
		exp, err := otlpmetricgrpc.New(ctx, grpcOpts...)
		if err != nil {
			return nil, fmt.Errorf("exporters: otlp metrics: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	case "prometheus":
		exp, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("exporters: prometheus: %w", err)
		}
		return exp, nil

	case "none", "":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(io.Discard))
		if err != nil {
			return nil, err
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, name)
	}
}
