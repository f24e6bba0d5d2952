package infrastructure

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/architeacher/svc-stomp-worker/internal/config"
)

const (
	exporterGRPC   = "grpc"
	exporterStdout = "stdout"
)

// InitGlobalTracer installs the global tracer provider and propagator.
// The returned function flushes and stops the provider.
func InitGlobalTracer(ctx context.Context, telemetry config.Telemetry, app config.AppConfig) (func(context.Context) error, error) {
	exporter, err := newSpanExporter(ctx, telemetry)
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx, app)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(
			sdktrace.ParentBased(sdktrace.TraceIDRatioBased(telemetry.Traces.SamplerRatio)),
		),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tracerProvider.Shutdown, nil
}

func newSpanExporter(ctx context.Context, telemetry config.Telemetry) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(telemetry.ExporterType) {
	case exporterGRPC, "":
		client := otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(fmt.Sprintf("%s:%s", telemetry.OtelGRPCHost, telemetry.OtelGRPCPort)),
			otlptracegrpc.WithInsecure(),
		)

		exporter, err := otlptrace.New(ctx, client)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}

		return exporter, nil

	case exporterStdout:
		exporter, err := stdouttrace.New(
			stdouttrace.WithWriter(os.Stdout),
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
		}

		return exporter, nil

	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", telemetry.ExporterType)
	}
}
