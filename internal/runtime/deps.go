package runtime

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/vault/api"
	"github.com/spf13/afero"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/architeacher/svc-stomp-worker/internal/adapters"
	"github.com/architeacher/svc-stomp-worker/internal/adapters/middleware"
	"github.com/architeacher/svc-stomp-worker/internal/config"
	"github.com/architeacher/svc-stomp-worker/internal/consumer"
	"github.com/architeacher/svc-stomp-worker/internal/infrastructure"
	"github.com/architeacher/svc-stomp-worker/internal/ports"
)

const (
	livenessPath  = "/health/live"
	readinessPath = "/health/ready"
	metricsPath   = "/metrics"
)

type (
	TracerShutdownFunc func(ctx context.Context) error

	InfrastructureDeps struct {
		HTTPServer          *http.Server
		SecretStorageClient *api.Client
		Queues              *infrastructure.Queues
		Metrics             infrastructure.Metrics
	}

	Repos struct {
		SecretStorageRepo ports.SecretsRepository
	}

	Dependencies struct {
		Workers  *adapters.WorkerRegistry
		Consumer *consumer.Consumer

		cfg          *config.ServiceConfig
		configLoader *config.Loader

		logger infrastructure.Logger

		Infra InfrastructureDeps
		Repos Repos

		tracerShutdownFunc TracerShutdownFunc
		secretVersion      uint
	}
)

func initializeDependencies(ctx context.Context, opts ...DependencyOption) (*Dependencies, error) {
	cfg, err := config.Init()
	if err != nil {
		return nil, fmt.Errorf("unable to load service configuration: %w", err)
	}

	return newDependencies(ctx, cfg, infrastructure.New(cfg.Logging), afero.NewOsFs(), opts...)
}

func newDependencies(
	ctx context.Context,
	cfg *config.ServiceConfig,
	logger infrastructure.Logger,
	fs afero.Fs,
	opts ...DependencyOption,
) (*Dependencies, error) {
	logger.Info().Msg("initializing dependencies...")

	deps := &Dependencies{
		cfg:    cfg,
		logger: logger,
	}

	// Start with default options and append any additional options.
	options := append(defaultOptions(ctx, fs), opts...)

	for _, opt := range options {
		if err := opt(deps); err != nil {
			deps.close(ctx)

			return nil, fmt.Errorf("failed to apply dependency option: %w", err)
		}
	}

	deps.logger.Info().Msg("dependencies initialized successfully")

	return deps, nil
}

// close releases what the options built so far. It is safe on partially built dependencies.
func (d *Dependencies) close(ctx context.Context) {
	if d.Infra.Queues != nil {
		if err := d.Infra.Queues.Close(); err != nil {
			d.logger.Error().Err(err).Msg("failed to close queue connections")
		}
	}

	if d.Infra.Metrics != nil {
		if err := d.Infra.Metrics.Shutdown(ctx); err != nil {
			d.logger.Error().Err(err).Msg("failed to shutdown metrics")
		}
	}

	if d.tracerShutdownFunc != nil {
		if err := d.tracerShutdownFunc(ctx); err != nil {
			d.logger.Error().Err(err).Msg("failed to shutdown tracer")
		}
	}
}

func initHTTPServer(
	cfg *config.ServiceConfig,
	logger infrastructure.Logger,
	metrics infrastructure.Metrics,
	queues adapters.QueueStatusProvider,
) *http.Server {
	logger.Info().Msg("creating HTTP server...")

	router := chi.NewRouter()

	router.Use(initMiddlewares(cfg, logger)...)

	health := adapters.NewHealthHandler(queues, cfg.AppConfig.ServiceVersion)

	router.Get(livenessPath, health.Live)
	router.Get(readinessPath, health.Ready)
	router.Method(http.MethodGet, metricsPath, metrics.Handler())

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.HTTPServer.Host, strconv.Itoa(cfg.HTTPServer.Port)),
		Handler:      otelhttp.NewHandler(router, cfg.AppConfig.ServiceName),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	logger.Info().Str("addr", server.Addr).Msg("HTTP server created")

	return server
}

func initMiddlewares(cfg *config.ServiceConfig, logger infrastructure.Logger) []func(http.Handler) http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		chimiddleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
	}

	if cfg.Logging.AccessLog.Enabled {
		healthFilter := middleware.NewHealthFilter(cfg.Logging.AccessLog.LogHealthChecks, livenessPath, readinessPath, metricsPath)
		accessLogger := middleware.NewAccessLogger(*logger.Logger)

		middlewares = append(middlewares, healthFilter.Middleware, accessLogger.Middleware)
		logger.Info().
			Bool("log_health_checks", cfg.Logging.AccessLog.LogHealthChecks).
			Msg("structured access logging enabled")
	}

	return middlewares
}
