//go:generate go tool github.com/maxbrunsfeld/counterfeiter/v6 -generate

// Package consumer drains STOMP queues: it claims items one at a time, hands them to the
// worker bound to the queue and acknowledges or releases them depending on the outcome.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/architeacher/svc-stomp-worker/pkg/queue"
)

const (
	DefaultLease        = 3600 * time.Second
	DefaultReadInterval = 500 * time.Millisecond

	OutcomeDeleted   = "deleted"
	OutcomeRequeued  = "requeued"
	OutcomeSuspended = "suspended"
	OutcomeFailed    = "failed"
	OutcomeUnacked   = "unacked"

	tracerName = "github.com/architeacher/svc-stomp-worker/internal/consumer"
)

//counterfeiter:generate -o ../mocks/worker.go . Worker
//counterfeiter:generate -o ../mocks/consumer_metrics.go -fake-name FakeConsumerMetrics . Metrics

type (
	// Worker processes the payload of one claimed item. Returning an error made with
	// Requeue or Suspend releases the item; any other error stops the consumer and
	// leaves the item unacknowledged.
	Worker interface {
		ProcessItem(ctx context.Context, data any) error
	}

	WorkerFunc func(ctx context.Context, data any) error

	// WorkerResolver returns the worker bound to a queue name.
	WorkerResolver interface {
		Resolve(queueName string) (Worker, error)
	}

	// QueueProvider returns the queue configured under a name.
	QueueProvider interface {
		Get(name string) (queue.ReliableQueue, error)
	}

	// BackoffStrategy returns the pause before the next claim after retries consecutive failures.
	BackoffStrategy interface {
		Backoff(retries int) time.Duration
	}

	Metrics interface {
		RecordItemClaimed(ctx context.Context, queueName string)
		RecordItemProcessed(ctx context.Context, queueName, outcome string, duration time.Duration)
		RecordTransportError(ctx context.Context, queueName, operation string)
	}

	// Options bound a single Process run.
	Options struct {
		// Lease is handed to ClaimItem. STOMP cannot enforce it.
		Lease time.Duration
		// ItemLimit stops the run after that many acknowledged items. Zero means unbounded.
		ItemLimit int
	}

	Option func(*Consumer)

	Consumer struct {
		queues  QueueProvider
		workers WorkerResolver

		logger             queue.Logger
		readInterval       time.Duration
		backoff            BackoffStrategy
		maxTransportErrors int
		metrics            Metrics
		tracer             trace.Tracer

		stopped  atomic.Bool
		stopOnce sync.Once
		stopCh   chan struct{}
	}

	// ConstantBackoff waits the same delay after every failure.
	ConstantBackoff time.Duration

	nopMetrics struct{}
)

func (f WorkerFunc) ProcessItem(ctx context.Context, data any) error {
	return f(ctx, data)
}

func WithLogger(l queue.Logger) Option {
	return func(c *Consumer) {
		c.logger = l
	}
}

// WithReadInterval sets the pause after a claim that returned no item.
func WithReadInterval(d time.Duration) Option {
	return func(c *Consumer) {
		c.readInterval = d
	}
}

// WithBackoff sets the pause strategy after a claim failed on the transport.
func WithBackoff(s BackoffStrategy) Option {
	return func(c *Consumer) {
		c.backoff = s
	}
}

// WithMaxTransportErrors stops a run after n consecutive failed claims. Zero keeps retrying.
func WithMaxTransportErrors(n int) Option {
	return func(c *Consumer) {
		c.maxTransportErrors = n
	}
}

func WithMetrics(m Metrics) Option {
	return func(c *Consumer) {
		c.metrics = m
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Consumer) {
		c.tracer = tp.Tracer(tracerName)
	}
}

func New(queues QueueProvider, workers WorkerResolver, opts ...Option) *Consumer {
	c := &Consumer{
		queues:       queues,
		workers:      workers,
		logger:       queue.NopLogger(),
		readInterval: DefaultReadInterval,
		backoff:      ConstantBackoff(DefaultReadInterval),
		metrics:      nopMetrics{},
		tracer:       noop.NewTracerProvider().Tracer(tracerName),
		stopCh:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Stop asks every running Process call to return after the current item and wakes idle
// or backoff waits. The item in progress keeps its context. Stop cannot be undone.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() {
		c.stopped.Store(true)
		close(c.stopCh)
	})
}

// Process drains the named queue until the item limit is reached, a worker stops it,
// Stop is called or ctx is cancelled.
func (c *Consumer) Process(ctx context.Context, name string, opts Options) error {
	reliable, err := c.queues.Get(name)
	if err != nil {
		return &ConsumerError{Queue: name, Reason: reasonNotStomp, Cause: err}
	}

	q, ok := reliable.(*queue.Stomp)
	if !ok {
		return &ConsumerError{Queue: name, Reason: reasonNotStomp}
	}

	worker, err := c.workers.Resolve(name)
	if err != nil {
		return &ConsumerError{Queue: name, Reason: reasonWorkerResolve, Cause: err}
	}

	lease := opts.Lease
	if lease <= 0 {
		lease = DefaultLease
	}

	var (
		processed       int
		transportErrors int
		result          error
	)

	running := true

	for running && !c.stopped.Load() && ctx.Err() == nil {
		item, err := q.ClaimItem(ctx, lease)
		if err != nil {
			if ctx.Err() != nil {
				break
			}

			if !errors.Is(err, queue.ErrTransport) {
				result = fmt.Errorf("failed to claim item from queue %q: %w", name, err)

				break
			}

			c.metrics.RecordTransportError(ctx, name, "claim")
			transportErrors++

			if c.maxTransportErrors > 0 && transportErrors >= c.maxTransportErrors {
				c.logger.Error().Err(err).
					Str("queue", name).
					Int("attempts", transportErrors).
					Msg("giving up on queue after consecutive transport errors")

				result = fmt.Errorf("%w: queue %q: %w", ErrTransportErrorsExceeded, name, err)

				break
			}

			delay := c.backoff.Backoff(transportErrors - 1)

			c.logger.Debug().Err(err).
				Str("queue", name).
				Str("retry_in", delay.String()).
				Msg("claim failed, backing off")

			c.sleep(ctx, delay)

			continue
		}

		transportErrors = 0

		if item == nil {
			c.sleep(ctx, c.readInterval)

			continue
		}

		c.metrics.RecordItemClaimed(ctx, name)

		outcome, err := c.handle(ctx, q, name, worker, item)

		switch outcome {
		case OutcomeDeleted:
			processed++

			c.logger.Info().
				Str("item_id", item.ID).
				Str("queue", name).
				Msg("item processed")

			if opts.ItemLimit > 0 && processed >= opts.ItemLimit {
				running = false
			}

		case OutcomeSuspended:
			running = false
			result = fmt.Errorf("%w: queue %q: %w", ErrSuspended, name, err)

		case OutcomeFailed:
			running = false
		}
	}

	c.logger.Info().
		Str("queue", name).
		Int("processed", processed).
		Msg("queue worker stopped")

	return result
}

func (c *Consumer) handle(ctx context.Context, q *queue.Stomp, name string, worker Worker, item *queue.Item) (string, error) {
	ctx, span := c.tracer.Start(ctx, "consumer.process_item",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "stomp"),
			attribute.String("messaging.destination.name", q.Destination()),
			attribute.String("messaging.message.id", item.ID),
			attribute.Bool("messaging.message.redelivered", item.Redelivered),
			attribute.String("queue.name", name),
		),
	)
	defer span.End()

	startTime := time.Now()
	outcome, err := c.dispatch(ctx, q, name, worker, item)

	c.metrics.RecordItemProcessed(ctx, name, outcome, time.Since(startTime))
	span.SetAttributes(attribute.String("item.outcome", outcome))

	switch outcome {
	case OutcomeSuspended, OutcomeFailed:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case OutcomeDeleted:
		span.SetStatus(codes.Ok, "")
	}

	return outcome, err
}

func (c *Consumer) dispatch(ctx context.Context, q *queue.Stomp, name string, worker Worker, item *queue.Item) (string, error) {
	err := worker.ProcessItem(ctx, item.Data)

	var (
		requeue *RequeueError
		suspend *SuspendError
	)

	switch {
	case err == nil:
		// The item stays unacknowledged and comes back with the next activation.
		if err := q.DeleteItem(ctx, item); err != nil {
			c.metrics.RecordTransportError(ctx, name, "delete")

			return OutcomeUnacked, nil
		}

		return OutcomeDeleted, nil

	case errors.As(err, &requeue):
		c.release(ctx, q, name, item)

		c.logger.Debug().Err(err).
			Str("item_id", item.ID).
			Str("queue", name).
			Msg("item requeued")

		return OutcomeRequeued, nil

	case errors.As(err, &suspend):
		c.release(ctx, q, name, item)

		c.logger.Error().Err(err).
			Str("item_id", item.ID).
			Str("queue", name).
			Msg("queue suspended")

		return OutcomeSuspended, err

	default:
		c.logger.Error().Err(err).
			Str("item_id", item.ID).
			Str("queue", name).
			Msg("failed to process item")

		return OutcomeFailed, err
	}
}

func (c *Consumer) release(ctx context.Context, q *queue.Stomp, name string, item *queue.Item) {
	if _, err := q.ReleaseItem(ctx, item); err != nil {
		c.metrics.RecordTransportError(ctx, name, "release")
	}
}

func (c *Consumer) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-c.stopCh:
	case <-timer.C:
	}
}

func (b ConstantBackoff) Backoff(int) time.Duration {
	return time.Duration(b)
}

func (nopMetrics) RecordItemClaimed(context.Context, string) {}

func (nopMetrics) RecordItemProcessed(context.Context, string, string, time.Duration) {}

func (nopMetrics) RecordTransportError(context.Context, string, string) {}
