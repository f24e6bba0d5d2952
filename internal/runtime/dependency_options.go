package runtime

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"

	"github.com/architeacher/svc-stomp-worker/internal/adapters"
	"github.com/architeacher/svc-stomp-worker/internal/adapters/repos"
	"github.com/architeacher/svc-stomp-worker/internal/config"
	"github.com/architeacher/svc-stomp-worker/internal/consumer"
	"github.com/architeacher/svc-stomp-worker/internal/infrastructure"
	"github.com/architeacher/svc-stomp-worker/internal/shared/backoff"
	"github.com/architeacher/svc-stomp-worker/pkg/queue"
)

const (
	queueLoggerComponent = "stomp"

	// headerProducer names the service and version that sent a message.
	headerProducer = "x-producer"
)

type (
	DependencyOption func(*Dependencies) error
)

func defaultOptions(ctx context.Context, fs afero.Fs) []DependencyOption {
	return []DependencyOption{
		WithSecretStorage(),
		WithSecretStorageRepo(),
		WithConfigLoader(ctx, fs),
		WithMetrics(ctx),
		WithTracing(ctx),
	}
}

// WithSecretStorage initializes the Vault client using ENV config.
func WithSecretStorage() DependencyOption {
	return func(d *Dependencies) error {
		if !d.cfg.SecretStorage.Enabled {
			return nil
		}

		client, err := repos.NewVaultClient(d.cfg.SecretStorage)
		if err != nil {
			return err
		}

		d.Infra.SecretStorageClient = client

		return nil
	}
}

func WithSecretStorageRepo() DependencyOption {
	return func(d *Dependencies) error {
		if d.Infra.SecretStorageClient == nil {
			return nil
		}

		d.Repos.SecretStorageRepo = repos.NewVaultRepository(d.Infra.SecretStorageClient)

		return nil
	}
}

// WithConfigLoader reads the queue definitions from fs and, when secret storage is enabled,
// the broker credentials from Vault.
func WithConfigLoader(ctx context.Context, fs afero.Fs) DependencyOption {
	return func(d *Dependencies) error {
		d.configLoader = config.NewLoader(d.cfg, fs, d.Repos.SecretStorageRepo, d.secretVersion)

		if !d.cfg.SecretStorage.Enabled {
			d.logger.Info().Msg("secret storage is disabled, skipping vault configuration loading")
		} else {
			version, err := d.configLoader.Load(ctx)
			if err != nil {
				return fmt.Errorf("unable to load service configuration: %w", err)
			}

			d.secretVersion = version
		}

		if err := d.configLoader.LoadQueues(); err != nil {
			return fmt.Errorf("unable to load queue definitions: %w", err)
		}

		return nil
	}
}

func WithMetrics(ctx context.Context) DependencyOption {
	return func(d *Dependencies) error {
		metrics, err := infrastructure.NewMetrics(ctx, *d.cfg, d.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}

		d.Infra.Metrics = metrics

		return nil
	}
}

func WithTracing(ctx context.Context) DependencyOption {
	return func(d *Dependencies) error {
		if !d.cfg.Telemetry.Traces.Enabled {
			d.tracerShutdownFunc = func(_ context.Context) error {
				return nil
			}

			return nil
		}

		tracerShutdownFunc, err := infrastructure.InitGlobalTracer(ctx, d.cfg.Telemetry, d.cfg.AppConfig)
		if err != nil {
			d.logger.Error().Err(err).Msg("failed to initialize global tracer")

			return err
		}

		d.tracerShutdownFunc = tracerShutdownFunc

		return nil
	}
}

// WithQueues builds one queue adapter per loaded definition. factoryOpts are appended to the
// connection factory defaults.
func WithQueues(factoryOpts ...queue.FactoryOption) DependencyOption {
	return func(d *Dependencies) error {
		queues, err := infrastructure.NewQueues(
			d.configLoader.Queues(),
			d.configLoader.Credentials(),
			d.cfg.Stomp,
			d.logger,
			infrastructure.WithQueueLogger(d.logger.QueueLogger(d.cfg.Logging.QueueLevel, queueLoggerComponent)),
			infrastructure.WithQueueListener(producerListener(d.cfg.AppConfig)),
			infrastructure.WithFactoryOptions(factoryOpts...),
		)
		if err != nil {
			return fmt.Errorf("failed to initialize queues: %w", err)
		}

		d.Infra.Queues = queues

		return nil
	}
}

func producerListener(app config.AppConfig) queue.MessageListener {
	producer := app.ServiceName + "/" + app.ServiceVersion

	return func(_ context.Context, msg *queue.Message) error {
		msg.AddHeader(headerProducer, producer)

		return nil
	}
}

func WithWorkers() DependencyOption {
	return func(d *Dependencies) error {
		workers, err := adapters.NewWorkerRegistry(d.cfg.Workers, d.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize workers: %w", err)
		}

		d.Workers = workers

		return nil
	}
}

// WithConsumer wires the consumer on top of the queues and workers, building them when missing.
func WithConsumer(factoryOpts ...queue.FactoryOption) DependencyOption {
	return func(d *Dependencies) error {
		if d.Infra.Queues == nil {
			if err := WithQueues(factoryOpts...)(d); err != nil {
				return err
			}
		}

		if d.Workers == nil {
			if err := WithWorkers()(d); err != nil {
				return err
			}
		}

		d.Consumer = consumer.New(
			d.Infra.Queues,
			d.Workers,
			consumer.WithLogger(d.logger.QueueLogger(d.cfg.Logging.QueueLevel, "consumer")),
			consumer.WithReadInterval(d.cfg.Consumer.ReadInterval),
			consumer.WithBackoff(backoff.NewExponentialStrategy(d.cfg.Backoff)),
			consumer.WithMaxTransportErrors(d.cfg.Consumer.MaxTransportErrors),
			consumer.WithMetrics(d.Infra.Metrics),
			consumer.WithTracerProvider(otel.GetTracerProvider()),
		)

		return nil
	}
}

func WithHTTPServer() DependencyOption {
	return func(d *Dependencies) error {
		if !d.cfg.HTTPServer.Enabled {
			d.logger.Info().Msg("HTTP server is disabled")

			return nil
		}

		d.Infra.HTTPServer = initHTTPServer(d.cfg, d.logger, d.Infra.Metrics, d.Infra.Queues)

		return nil
	}
}
