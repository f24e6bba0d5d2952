package runtime

import (
	"os"

	"github.com/architeacher/svc-stomp-worker/internal/consumer"
	"github.com/architeacher/svc-stomp-worker/pkg/queue"
)

type (
	WorkerOption func(*WorkerCtx)
)

func WithWorkerTermination(ch chan os.Signal) WorkerOption {
	return func(ctx *WorkerCtx) {
		ctx.shutdownChannel = ch
	}
}

func WithWaitingForServer() WorkerOption {
	return func(ctx *WorkerCtx) {
		ctx.serverReady = make(chan struct{})
	}
}

// WithBrokerDialer replaces the network dialer of every queue connection.
func WithBrokerDialer(d queue.Dialer) WorkerOption {
	return func(ctx *WorkerCtx) {
		ctx.factoryOpts = append(ctx.factoryOpts, queue.WithDialer(d))
	}
}

// WithQueueWorker processes the worker's queue with w instead of the configured binding.
func WithQueueWorker(w consumer.Worker) WorkerOption {
	return func(ctx *WorkerCtx) {
		ctx.worker = w
	}
}
