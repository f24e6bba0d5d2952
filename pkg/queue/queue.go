package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// ReliableQueue is the work-item storage contract consumed by queue workers.
type ReliableQueue interface {
	// CreateItem stores data and returns a queue-local item identifier.
	CreateItem(ctx context.Context, data any) (int64, error)
	// ClaimItem returns the next item, or nil when the queue is idle.
	ClaimItem(ctx context.Context, lease time.Duration) (*Item, error)
	// DeleteItem removes a processed item.
	DeleteItem(ctx context.Context, item *Item) error
	// ReleaseItem gives a claimed item back to the queue.
	ReleaseItem(ctx context.Context, item *Item) (bool, error)
	NumberOfItems(ctx context.Context) (int, error)
	CreateQueue(ctx context.Context) error
	DeleteQueue(ctx context.Context) error
}

// Stomp implements ReliableQueue over a durable STOMP subscription.
//
// Claims are not leased: an item stays invisible to other consumers only while it is unacknowledged
// on this connection, and is redelivered once the connection is re-established without an ack.
type Stomp struct {
	subscription  *DurableSubscription
	nackOnRelease bool
	logger        Logger
	listeners     []MessageListener

	// lastItemID is the queue-local counter handed out by CreateItem.
	lastItemID atomic.Int64
}

var _ ReliableQueue = (*Stomp)(nil)

// NewStomp creates a queue adapter on top of a durable subscription.
func NewStomp(subscription *DurableSubscription, nackOnRelease bool, opts ...StompOption) *Stomp {
	options := defaultStompOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Stomp{
		subscription:  subscription,
		nackOnRelease: nackOnRelease,
		logger:        options.logger,
		listeners:     options.listeners,
	}
}

// NewStompFromConfig builds the connection described by cfg and wraps it into a queue adapter.
func NewStompFromConfig(factory *ConnectionFactory, cfg Config, opts ...StompOption) (*Stomp, error) {
	subscription, err := factory.Create(cfg)
	if err != nil {
		return nil, err
	}

	return NewStomp(subscription, cfg.NackOnRelease(), opts...), nil
}

// Destination returns the destination the queue is bound to.
func (q *Stomp) Destination() string {
	return q.subscription.Destination()
}

// Subscription returns the underlying durable subscription.
func (q *Stomp) Subscription() *DurableSubscription {
	return q.subscription
}

// CreateItem encodes data, sends it to the destination and returns a queue-local identifier.
// Failures are logged and reported with a zero identifier.
func (q *Stomp) CreateItem(ctx context.Context, data any) (int64, error) {
	msg, err := EncodeMessage(data)
	if err != nil {
		q.logger.Error().Err(err).Str("destination", q.Destination()).Msg("failed to encode queue item")

		return 0, err
	}

	for _, listener := range q.listeners {
		if err := listener(ctx, msg); err != nil {
			q.logger.Error().Err(err).Str("destination", q.Destination()).Msg("message listener rejected queue item")

			return 0, fmt.Errorf("message listener: %w", err)
		}
	}

	msg.AddHeader(HeaderPersistent, "true")

	if err := q.subscription.Send(ctx, msg); err != nil {
		q.logger.Error().Err(err).Str("destination", q.Destination()).Msg("failed to send item to queue")

		return 0, err
	}

	return q.lastItemID.Add(1), nil
}

// ClaimItem performs a single read. It returns nil, nil when no frame arrived within the read timeout.
// The lease is accepted for compatibility only; the protocol has no broker-side lease.
func (q *Stomp) ClaimItem(ctx context.Context, _ time.Duration) (*Item, error) {
	f, err := q.subscription.Read(ctx)
	if err != nil {
		if ctx.Err() == nil {
			q.logger.Error().Err(err).Str("destination", q.Destination()).Msg("failed to read item from queue")
		}

		return nil, err
	}

	if f == nil {
		return nil, nil
	}

	item, err := toItem(f)
	if err != nil {
		q.logger.Warn().Err(err).
			Str("destination", q.Destination()).
			Str("item_id", item.ID).
			Msg("failed to decode queue item, passing the raw body")
	}

	return item, nil
}

// DeleteItem acknowledges the item. Items that were not claimed from a queue are ignored.
func (q *Stomp) DeleteItem(ctx context.Context, item *Item) error {
	if item == nil || item.Frame == nil {
		return nil
	}

	if err := q.subscription.Ack(ctx, item.Frame); err != nil {
		q.logger.Error().Err(err).
			Str("destination", q.Destination()).
			Str("item_id", item.ID).
			Msg("failed to ACK message from queue")

		return err
	}

	return nil
}

// ReleaseItem leaves the item unacknowledged so the broker redelivers it on the next activation.
// When the queue is configured to nack on release, a NACK triggers the redelivery right away.
func (q *Stomp) ReleaseItem(ctx context.Context, item *Item) (bool, error) {
	if !q.nackOnRelease {
		return true, nil
	}

	if item == nil || item.Frame == nil {
		return false, nil
	}

	if err := q.subscription.Nack(ctx, item.Frame); err != nil {
		q.logger.Error().Err(err).
			Str("destination", q.Destination()).
			Str("item_id", item.ID).
			Msg("failed to NACK message from queue")

		return false, err
	}

	return true, nil
}

// NumberOfItems always returns 0, STOMP has no queue depth query.
func (q *Stomp) NumberOfItems(_ context.Context) (int, error) {
	return 0, nil
}

// CreateQueue is a no-op, destinations are created by the broker on first send.
func (q *Stomp) CreateQueue(_ context.Context) error {
	return nil
}

// DeleteQueue is a no-op, STOMP cannot delete destinations.
func (q *Stomp) DeleteQueue(_ context.Context) error {
	return nil
}

// Close disconnects from the broker.
func (q *Stomp) Close() error {
	return q.subscription.Close()
}
