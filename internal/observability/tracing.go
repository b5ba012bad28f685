// Package observability exports Genkit traces over OTLP HTTP.
//
// Genkit instruments every generate and embed call with OpenTelemetry
// spans on its own TracerProvider. This package attaches a batch
// exporter to that provider so the spans reach a local collector
// (otel-collector, Jaeger, or any OTLP-capable agent) instead of being
// dropped.
//
// Tracing is opt-in: an empty endpoint leaves the provider untouched
// and Setup returns a no-op shutdown. A typical local setup:
//
//	docker run -p 4318:4318 -p 16686:16686 jaegertracing/all-in-one
//	EDUMENTOR_OTLP_ENDPOINT=localhost:4318 edumentor serve
//
// The collector is responsible for authentication and forwarding when
// spans continue to a hosted backend.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config for OTLP trace export.
type Config struct {
	// Endpoint is the OTLP HTTP host:port. Empty disables export.
	Endpoint string
	// ServiceName tags exported spans (default: edumentor).
	ServiceName string
	// Environment becomes the deployment.environment resource attribute.
	Environment string
}

// Setup registers an OTLP exporter with Genkit's TracerProvider.
// Returns a shutdown function that flushes pending spans; the returned
// function is never nil. When cfg.Endpoint is empty, or the exporter
// cannot be created, tracing stays disabled and shutdown is a no-op.
func Setup(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	if cfg.Endpoint == "" {
		slog.Debug("trace export disabled, no OTLP endpoint configured")
		return noop, nil
	}

	// Genkit's TracerProvider reads these at span-export time.
	// SAFETY: os.Setenv is not concurrent-safe, but Setup runs exactly
	// once during startup, before goroutines are spawned.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	// TLS terminates at the local collector, not here.
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		slog.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return noop, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	slog.Debug("trace export enabled",
		"endpoint", cfg.Endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return tracing.TracerProvider().Shutdown, nil
}
