// Package observability bootstraps OpenTelemetry tracing.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config controls trace export. Without an OTLP endpoint spans are printed
// to Writer (stderr by default).
type Config struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	Insecure     bool
	Writer       io.Writer
}

// Shutdown flushes and stops the tracer provider.
type Shutdown func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init installs the global tracer provider. When tracing is disabled the
// otel no-op provider stays in place.
func Init(ctx context.Context, cfg Config, logger *slog.Logger) (Shutdown, error) {
	if !cfg.Enabled {
		return noopShutdown, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "learning-assistant"
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", name),
	))
	if err != nil {
		logger.Warn("otel resource init failed (continuing)", "error", err)
	}

	exporter, err := buildExporter(ctx, cfg)
	if err != nil {
		return noopShutdown, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	logger.Info("otel tracing initialized", "service", name, "endpoint", cfg.OTLPEndpoint)
	return tp.Shutdown, nil
}

func buildExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	if endpoint := strings.TrimSpace(cfg.OTLPEndpoint); endpoint != "" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	}
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	return stdouttrace.New(stdouttrace.WithWriter(w))
}
