package runtime

import (
	"context"
	"fmt"

	"github.com/architeacher/svc-stomp-worker/pkg/queue"
)

// Send publishes data to the named queue and returns the queue-local item identifier.
func Send(ctx context.Context, queueName string, data any, factoryOpts ...queue.FactoryOption) (int64, error) {
	deps, err := initializeDependencies(ctx, WithQueues(factoryOpts...))
	if err != nil {
		return 0, err
	}
	defer deps.close(ctx)

	return send(ctx, deps, queueName, data)
}

func send(ctx context.Context, deps *Dependencies, queueName string, data any) (int64, error) {
	q, err := deps.Infra.Queues.Get(queueName)
	if err != nil {
		return 0, err
	}

	id, err := q.CreateItem(ctx, data)
	deps.Infra.Metrics.RecordItemCreated(ctx, queueName, err == nil)

	if err != nil {
		return 0, fmt.Errorf("failed to send item to queue %q: %w", queueName, err)
	}

	deps.logger.Info().
		Str("queue", queueName).
		Int64("item_id", id).
		Msg("item sent")

	return id, nil
}
