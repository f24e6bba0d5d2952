package runtime

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/architeacher/svc-stomp-worker/internal/consumer"
	"github.com/architeacher/svc-stomp-worker/pkg/queue"
)

// WorkerCtx runs a single queue worker until its queue is drained to the item limit,
// the worker stops it or the process is asked to terminate.
type WorkerCtx struct {
	deps *Dependencies

	queueName string
	options   consumer.Options

	shutdownChannel chan os.Signal

	workerCtx      context.Context
	workerStopFunc context.CancelFunc

	serverReady chan struct{}
	factoryOpts []queue.FactoryOption
	worker      consumer.Worker
}

func NewWorker(queueName string, options consumer.Options, opt ...WorkerOption) *WorkerCtx {
	wCtx := &WorkerCtx{
		queueName:       queueName,
		options:         options,
		shutdownChannel: make(chan os.Signal, 1),
	}

	for i := range opt {
		opt[i](wCtx)
	}

	return wCtx
}

// Run blocks until the worker stops and returns why it stopped. A requested shutdown is not an error.
func (c *WorkerCtx) Run() error {
	if err := c.build(); err != nil {
		return err
	}

	c.startServer()
	c.monitorConfigChanges()
	c.shutdownHook()

	err := c.process()

	c.shutdown()

	return err
}

func (c *WorkerCtx) build() error {
	c.workerCtx, c.workerStopFunc = context.WithCancel(context.Background())

	deps, err := initializeDependencies(c.workerCtx, WithConsumer(c.factoryOpts...), WithHTTPServer())
	if err != nil {
		c.workerStopFunc()

		return err
	}

	c.deps = deps

	if c.worker != nil {
		c.deps.Workers.Register(c.queueName, c.worker)
	}

	return nil
}

func (c *WorkerCtx) startServer() {
	if c.deps.Infra.HTTPServer == nil {
		if c.serverReady != nil {
			c.serverReady <- struct{}{}
		}

		return
	}

	go func() {
		c.deps.logger.Info().
			Str("address", c.deps.Infra.HTTPServer.Addr).
			Msg("telemetry server starting up")

		if c.serverReady != nil {
			c.serverReady <- struct{}{}
		}

		if err := c.deps.Infra.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.deps.logger.Error().Err(err).Msg("unable to start http server")
		}
	}()
}

func (c *WorkerCtx) shutdownHook() {
	signal.Notify(c.shutdownChannel, syscall.SIGINT, syscall.SIGTERM)
}

func (c *WorkerCtx) monitorConfigChanges() {
	reloadErrors := c.deps.configLoader.WatchConfigSignals(c.workerCtx)

	go func() {
		for err := range reloadErrors {
			if err != nil {
				c.deps.logger.Error().Err(err).Msg("failed to reload config")
				continue
			}

			c.deps.logger.Info().Msg("config reloaded, queue connections keep their settings until restart")
		}

		c.deps.logger.Info().Msg("stopping config monitor")
	}()
}

// process runs the consumer and stops it when a shutdown signal arrives.
func (c *WorkerCtx) process() error {
	done := make(chan error, 1)

	c.deps.logger.Info().
		Str("queue", c.queueName).
		Dur("lease_time", c.options.Lease).
		Int("items_limit", c.options.ItemLimit).
		Msg("queue worker starting")

	go func() {
		done <- c.deps.Consumer.Process(c.workerCtx, c.queueName, c.options)
	}()

	select {
	case err := <-done:
		return err
	case <-c.shutdownChannel:
		c.deps.logger.Info().Msg("received shutdown signal")
	}

	c.deps.Consumer.Stop()

	grace := time.NewTimer(c.deps.cfg.Consumer.ShutdownTimeout)
	defer grace.Stop()

	select {
	case err := <-done:
		return err
	case <-grace.C:
		c.deps.logger.Warn().
			Str("queue", c.queueName).
			Dur("shutdown_timeout", c.deps.cfg.Consumer.ShutdownTimeout).
			Msg("current item did not finish in time, cancelling it")
	}

	c.workerStopFunc()

	return <-done
}

func (c *WorkerCtx) shutdown() {
	signal.Stop(c.shutdownChannel)

	// Cancel context that underlying processes would start cleanup.
	c.workerStopFunc()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.deps.cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	c.cleanup(shutdownCtx)

	c.deps.logger.Info().Msg("queue worker shutdown completed")
}

// WaitForServer blocks until the telemetry server is running.
// If you want to be notified when the server is running,
// make sure you instantiate the worker with WithWaitingForServer.
func (c *WorkerCtx) WaitForServer() {
	if c.serverReady != nil {
		<-c.serverReady
		close(c.serverReady)
	}
}

func (c *WorkerCtx) cleanup(shutdownCtx context.Context) {
	c.deps.logger.Info().Msg("cleaning up resources...")

	if c.deps.Infra.HTTPServer != nil {
		if err := c.deps.Infra.HTTPServer.Shutdown(shutdownCtx); err != nil {
			c.deps.logger.Error().Err(err).Msg("unable to gracefully shutdown http server")
		}
	}

	c.deps.close(shutdownCtx)

	c.deps.logger.Info().Msg("cleanup completed")
}
