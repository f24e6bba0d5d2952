package adapters

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/architeacher/svc-stomp-worker/internal/config"
	"github.com/architeacher/svc-stomp-worker/internal/consumer"
	"github.com/architeacher/svc-stomp-worker/internal/infrastructure"
)

// AnyQueue binds a worker to every queue without a binding of its own.
const AnyQueue = "*"

var (
	ErrUnknownWorker = errors.New("unknown worker kind")
	ErrNoWorker      = errors.New("no worker bound to queue")
)

type (
	// LogWorker writes every item to the log and accepts it.
	LogWorker struct {
		queueName string
		logger    infrastructure.Logger
	}

	// DiscardWorker accepts every item without looking at it.
	DiscardWorker struct{}

	// WorkerRegistry resolves the worker bound to a queue. Queues without a binding of their
	// own get a dedicated worker of the AnyQueue kind, built on first use.
	WorkerRegistry struct {
		mu       sync.RWMutex
		workers  map[string]consumer.Worker
		derived  map[string]consumer.Worker
		wildcard string
		cfg      config.WorkersConfig
		logger   infrastructure.Logger
	}
)

func NewLogWorker(queueName string, logger infrastructure.Logger) LogWorker {
	return LogWorker{queueName: queueName, logger: logger}
}

func (w LogWorker) ProcessItem(_ context.Context, data any) error {
	w.logger.Info().
		Str("queue", w.queueName).
		Interface("data", data).
		Msg("queue item received")

	return nil
}

func (DiscardWorker) ProcessItem(context.Context, any) error {
	return nil
}

// NewWorkerRegistry builds one worker per binding. The AnyQueue binding is only validated here.
func NewWorkerRegistry(cfg config.WorkersConfig, logger infrastructure.Logger) (*WorkerRegistry, error) {
	r := &WorkerRegistry{
		workers: make(map[string]consumer.Worker, len(cfg.Bindings)),
		derived: make(map[string]consumer.Worker),
		cfg:     cfg,
		logger:  logger,
	}

	for queueName, kind := range cfg.Bindings {
		worker, err := newWorker(queueName, kind, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("worker for queue %q: %w", queueName, err)
		}

		if queueName == AnyQueue {
			r.wildcard = kind

			continue
		}

		r.Register(queueName, worker)
	}

	return r, nil
}

func newWorker(queueName, kind string, cfg config.WorkersConfig, logger infrastructure.Logger) (consumer.Worker, error) {
	switch kind {
	case config.WorkerLog:
		return NewLogWorker(queueName, logger), nil
	case config.WorkerDiscard:
		return DiscardWorker{}, nil
	case config.WorkerWebhook:
		return NewWebhookWorker(queueName, cfg.Webhook, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownWorker, kind)
	}
}

func (r *WorkerRegistry) Register(queueName string, worker consumer.Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.workers[queueName] = worker
}

func (r *WorkerRegistry) Resolve(queueName string) (consumer.Worker, error) {
	r.mu.RLock()
	worker, ok := r.workers[queueName]
	if !ok {
		worker, ok = r.derived[queueName]
	}
	wildcard := r.wildcard
	r.mu.RUnlock()

	if ok {
		return worker, nil
	}

	if wildcard == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoWorker, queueName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if worker, ok := r.derived[queueName]; ok {
		return worker, nil
	}

	worker, err := newWorker(queueName, wildcard, r.cfg, r.logger)
	if err != nil {
		return nil, fmt.Errorf("worker for queue %q: %w", queueName, err)
	}

	r.derived[queueName] = worker

	return worker, nil
}

// Queues returns the bound queue names in sorted order, AnyQueue included when bound.
func (r *WorkerRegistry) Queues() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.workers)+1)
	for name := range r.workers {
		names = append(names, name)
	}

	if r.wildcard != "" {
		names = append(names, AnyQueue)
	}

	sort.Strings(names)

	return names
}
