package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/architeacher/svc-stomp-worker/internal/config"
)

const (
	metricsNamespace = "stomp_worker"
)

type (
	Metrics interface {
		RecordItemClaimed(ctx context.Context, queueName string)
		RecordItemProcessed(ctx context.Context, queueName, outcome string, duration time.Duration)
		RecordItemCreated(ctx context.Context, queueName string, success bool)
		RecordTransportError(ctx context.Context, queueName, operation string)
		Handler() http.Handler
		Shutdown(ctx context.Context) error
	}

	OTELMetrics struct {
		meterProvider *sdkmetric.MeterProvider
		meter         metric.Meter
		logger        Logger

		itemsClaimedTotal     metric.Int64Counter
		itemsProcessedTotal   metric.Int64Counter
		itemProcessingSeconds metric.Float64Histogram
		itemsCreatedTotal     metric.Int64Counter
		transportErrorsTotal  metric.Int64Counter
	}
)

func NewMetrics(ctx context.Context, cfg config.ServiceConfig, logger Logger) (Metrics, error) {
	if !cfg.Telemetry.Metrics.Enabled {
		logger.Info().Msg("metrics disabled, using NoOp implementation")

		return &NoOpMetrics{}, nil
	}

	return NewOTELMetrics(ctx, cfg, logger)
}

func NewOTELMetrics(ctx context.Context, cfg config.ServiceConfig, logger Logger) (*OTELMetrics, error) {
	endpoint := fmt.Sprintf("%s:%s", cfg.Telemetry.OtelGRPCHost, cfg.Telemetry.OtelGRPCPort)

	conn, err := grpc.NewClient(
		endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to OTEL collector: %w", err)
	}

	exporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	res, err := newResource(ctx, cfg.AppConfig)
	if err != nil {
		return nil, err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(meterProvider)

	provider, err := newOTELMetrics(meterProvider, cfg.AppConfig.ServiceVersion, logger)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("otel_endpoint", endpoint).
		Msg("OTEL metrics provider initialized successfully")

	return provider, nil
}

func newOTELMetrics(meterProvider *sdkmetric.MeterProvider, version string, logger Logger) (*OTELMetrics, error) {
	provider := &OTELMetrics{
		meterProvider: meterProvider,
		meter: meterProvider.Meter(
			metricsNamespace,
			metric.WithInstrumentationVersion(version),
		),
		logger: logger,
	}

	if err := provider.initializeMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return provider, nil
}

func newResource(ctx context.Context, app config.AppConfig) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(app.ServiceName),
			semconv.ServiceVersionKey.String(app.ServiceVersion),
			semconv.ServiceInstanceIDKey.String(app.CommitSHA),
			semconv.DeploymentEnvironmentKey.String(app.Env),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	return res, nil
}

func (om *OTELMetrics) initializeMetrics() error {
	var err error

	om.itemsClaimedTotal, err = om.meter.Int64Counter(
		"items_claimed_total",
		metric.WithDescription("Total number of items claimed from a queue"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create items_claimed_total counter: %w", err)
	}

	om.itemsProcessedTotal, err = om.meter.Int64Counter(
		"items_processed_total",
		metric.WithDescription("Total number of claimed items by processing outcome"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create items_processed_total counter: %w", err)
	}

	om.itemProcessingSeconds, err = om.meter.Float64Histogram(
		"item_processing_duration_seconds",
		metric.WithDescription("Time spent by the worker on one item in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create item_processing_duration_seconds histogram: %w", err)
	}

	om.itemsCreatedTotal, err = om.meter.Int64Counter(
		"items_created_total",
		metric.WithDescription("Total number of items sent to a queue"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create items_created_total counter: %w", err)
	}

	om.transportErrorsTotal, err = om.meter.Int64Counter(
		"transport_errors_total",
		metric.WithDescription("Total number of broker transport errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create transport_errors_total counter: %w", err)
	}

	return nil
}

func (om *OTELMetrics) RecordItemClaimed(ctx context.Context, queueName string) {
	om.itemsClaimedTotal.Add(ctx, 1,
		metric.WithAttributes(
			QueueAttr(queueName),
		),
	)
}

func (om *OTELMetrics) RecordItemProcessed(ctx context.Context, queueName, outcome string, duration time.Duration) {
	om.itemsProcessedTotal.Add(ctx, 1,
		metric.WithAttributes(
			QueueAttr(queueName),
			OutcomeAttr(outcome),
		),
	)

	om.itemProcessingSeconds.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			QueueAttr(queueName),
			OutcomeAttr(outcome),
		),
	)
}

func (om *OTELMetrics) RecordItemCreated(ctx context.Context, queueName string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}

	om.itemsCreatedTotal.Add(ctx, 1,
		metric.WithAttributes(
			QueueAttr(queueName),
			StatusAttr(status),
		),
	)
}

func (om *OTELMetrics) RecordTransportError(ctx context.Context, queueName, operation string) {
	om.transportErrorsTotal.Add(ctx, 1,
		metric.WithAttributes(
			QueueAttr(queueName),
			OperationAttr(operation),
		),
	)
}

func (om *OTELMetrics) Handler() http.Handler {
	return promhttp.Handler()
}

func (om *OTELMetrics) Shutdown(ctx context.Context) error {
	if err := om.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}

	return nil
}
