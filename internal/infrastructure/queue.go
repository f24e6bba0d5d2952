package infrastructure

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sony/gobreaker"

	"github.com/architeacher/svc-stomp-worker/internal/config"
	"github.com/architeacher/svc-stomp-worker/pkg/queue"
)

var ErrUnknownQueue = errors.New("unknown queue")

type (
	// Queues holds one STOMP queue adapter per configured queue name.
	Queues struct {
		mu       sync.RWMutex
		queues   map[string]*queue.Stomp
		order    []string
		fallback bool
		logger   Logger
	}

	QueuesOption func(*queuesOptions)

	queuesOptions struct {
		factoryOpts []queue.FactoryOption
		listeners   []queue.MessageListener
		queueLogger queue.Logger
	}
)

func WithFactoryOptions(opts ...queue.FactoryOption) QueuesOption {
	return func(o *queuesOptions) {
		o.factoryOpts = append(o.factoryOpts, opts...)
	}
}

func WithQueueListener(l queue.MessageListener) QueuesOption {
	return func(o *queuesOptions) {
		o.listeners = append(o.listeners, l)
	}
}

func WithQueueLogger(l queue.Logger) QueuesOption {
	return func(o *queuesOptions) {
		o.queueLogger = l
	}
}

// BreakerSettings turns the circuit breaker settings into the breaker guarding broker connects.
func BreakerSettings(name string, cfg config.CircuitBreakerConfig, logger Logger) gobreaker.Settings {
	maxFailures := cfg.MaxFailures

	return gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return maxFailures > 0 && counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info().
				Str("name", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}
}

// NewQueues builds one adapter per definition. Building makes no network calls;
// connections are established on first use.
func NewQueues(
	defs []config.QueueDefinition,
	credentials config.Credentials,
	stompCfg config.StompConfig,
	logger Logger,
	opts ...QueuesOption,
) (*Queues, error) {
	options := queuesOptions{queueLogger: queue.NopLogger()}
	for _, opt := range opts {
		opt(&options)
	}

	q := &Queues{
		queues:   make(map[string]*queue.Stomp, len(defs)),
		fallback: stompCfg.DefaultQueueFallback,
		logger:   logger,
	}

	for _, def := range defs {
		cfg, err := def.Build(credentials)
		if err != nil {
			_ = q.Close()

			return nil, err
		}

		factoryOpts := append([]queue.FactoryOption{
			queue.WithFactoryLogger(options.queueLogger),
			queue.WithBreakerSettings(BreakerSettings("stomp-"+def.Name, stompCfg.CircuitBreaker, logger)),
		}, options.factoryOpts...)

		adapter, err := newStomp(cfg, factoryOpts, options)
		if err != nil {
			_ = q.Close()

			return nil, fmt.Errorf("queue %q: %w", def.Name, err)
		}

		q.queues[def.Name] = adapter
		q.order = append(q.order, def.Name)

		logger.Info().
			Str("queue", def.Name).
			Str("destination", cfg.Destination()).
			Str("brokers", cfg.Brokers().String()).
			Msg("queue configured")
	}

	return q, nil
}

func newStomp(cfg queue.Config, factoryOpts []queue.FactoryOption, options queuesOptions) (*queue.Stomp, error) {
	stompOpts := []queue.StompOption{queue.WithLogger(options.queueLogger)}
	for _, l := range options.listeners {
		stompOpts = append(stompOpts, queue.WithMessageListener(l))
	}

	return queue.NewStompFromConfig(queue.NewConnectionFactory(factoryOpts...), cfg, stompOpts...)
}

// Get returns the queue registered under name. Unknown names resolve to the first
// configured queue when the default queue fallback is enabled.
func (q *Queues) Get(name string) (queue.ReliableQueue, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if adapter, ok := q.queues[name]; ok {
		return adapter, nil
	}

	if q.fallback && len(q.order) > 0 {
		q.logger.Debug().
			Str("queue", name).
			Str("fallback", q.order[0]).
			Msg("queue not configured, using default queue")

		return q.queues[q.order[0]], nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownQueue, name)
}

// Names returns the configured queue names in sorted order.
func (q *Queues) Names() []string {
	q.mu.RLock()
	defer q.mu.RUnlock()

	names := append([]string(nil), q.order...)
	sort.Strings(names)

	return names
}

// Status reports for every queue whether its subscription is currently connected.
func (q *Queues) Status() map[string]bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	status := make(map[string]bool, len(q.queues))
	for name, adapter := range q.queues {
		status[name] = adapter.Subscription().IsActive()
	}

	return status
}

// Close disconnects every queue, keeping their durable subscriptions.
func (q *Queues) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	var errs []error

	for name, adapter := range q.queues {
		if err := adapter.Close(); err != nil && !errors.Is(err, queue.ErrClosed) {
			errs = append(errs, fmt.Errorf("queue %q: %w", name, err))
		}
	}

	return errors.Join(errs...)
}
