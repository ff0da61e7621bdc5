package monitoring

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Tracing exporters accepted by TracingConfig.Exporter
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// TracingConfig selects where analysis spans are exported. The OTLP exporter
// reads the standard OTEL_EXPORTER_OTLP_* environment variables.
type TracingConfig struct {
	Exporter       string
	ServiceName    string
	ServiceVersion string
	SampleRatio    float64   // fraction of root spans kept, 1 keeps all
	Writer         io.Writer // stdout exporter output; defaults to os.Stdout
}

// ParseExporter normalizes an exporter name
func ParseExporter(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ExporterNone:
		return ExporterNone, nil
	case ExporterStdout:
		return ExporterStdout, nil
	case ExporterOTLP:
		return ExporterOTLP, nil
	}
	return "", fmt.Errorf("unknown tracing exporter %q", name)
}

// InitTracing installs the global tracer provider and returns its shutdown
// function. With no exporter the global no-op provider is left in place.
func InitTracing(ctx context.Context, cfg TracingConfig) (func(context.Context) error, error) {
	exporterName, err := ParseExporter(cfg.Exporter)
	if err != nil {
		return nil, err
	}
	if exporterName == ExporterNone {
		return func(context.Context) error { return nil }, nil
	}

	var exporter sdktrace.SpanExporter
	switch exporterName {
	case ExporterStdout:
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(w))
	case ExporterOTLP:
		exporter, err = otlptracehttp.New(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s trace exporter: %w", exporterName, err)
	}

	tp := NewTracerProvider(cfg, sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	slog.Info("Tracing enabled", "exporter", exporterName, "sample_ratio", cfg.SampleRatio)

	return func(shutdownCtx context.Context) error {
		if err := tp.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("failed to shut down tracer provider: %w", err)
		}
		return nil
	}, nil
}

// NewTracerProvider builds an SDK provider with the service resource and
// sampler from cfg plus the given span processors or exporters.
func NewTracerProvider(cfg TracingConfig, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	name := cfg.ServiceName
	if name == "" {
		name = "teampulse"
	}
	attrs := []attribute.KeyValue{attribute.String("service.name", name)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, attribute.String("service.version", cfg.ServiceVersion))
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRatio >= 1:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRatio <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRatio)
	}

	opts = append([]sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(attrs...)),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	}, opts...)
	return sdktrace.NewTracerProvider(opts...)
}
