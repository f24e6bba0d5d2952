package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
)

// ErrClosed is returned by a subscription after Close.
var ErrClosed = errors.New("subscription closed")

type subscriptionParams struct {
	destination string
	readTimeout time.Duration
	connect     func(ctx context.Context) (Transport, error)
	breaker     gobreaker.Settings
	logger      Logger
}

// DurableSubscription binds a broker connection to one destination with individual client acknowledgement.
// The subscription is named after the destination, so unacknowledged frames survive disconnects and are
// redelivered on the next activation.
//
// A DurableSubscription serves one reader at a time.
type DurableSubscription struct {
	destination string
	id          string
	readTimeout time.Duration

	connect func(ctx context.Context) (Transport, error)
	breaker *gobreaker.CircuitBreaker
	logger  Logger

	mutex     sync.Mutex
	transport Transport
	inbox     Inbox
	closed    atomic.Bool

	// live mirrors inbox for readers that must not wait for the mutex.
	live atomic.Pointer[liveInbox]
}

type liveInbox struct {
	Inbox
}

func newDurableSubscription(p subscriptionParams) *DurableSubscription {
	return &DurableSubscription{
		destination: p.destination,
		id:          p.destination,
		readTimeout: p.readTimeout,
		connect:     p.connect,
		breaker:     gobreaker.NewCircuitBreaker(p.breaker),
		logger:      p.logger,
	}
}

// Destination returns the bound destination.
func (s *DurableSubscription) Destination() string {
	return s.destination
}

// ID returns the durable subscription identifier.
func (s *DurableSubscription) ID() string {
	return s.id
}

// ReadTimeout returns how long a Read waits for a frame.
func (s *DurableSubscription) ReadTimeout() time.Duration {
	return s.readTimeout
}

// IsActive reports whether the subscription currently holds a live connection and subscription.
// It does not wait for a Read in progress.
func (s *DurableSubscription) IsActive() bool {
	in := s.live.Load()

	return in != nil && in.Active()
}

// Activate connects and subscribes if needed. It is a no-op on an active subscription.
func (s *DurableSubscription) Activate(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.activate(ctx)
}

func (s *DurableSubscription) activate(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}

	// A subscription that went inactive means the connection underneath is gone.
	if s.inbox != nil && !s.inbox.Active() {
		s.drop()
	}

	if s.transport == nil {
		t, err := s.breaker.Execute(func() (any, error) {
			return s.connect(ctx)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return fmt.Errorf("%w: %w", ErrBrokerUnavailable, err)
			}

			return transportError("connect", err)
		}

		s.transport = t.(Transport)
	}

	if s.inbox == nil {
		inbox, err := s.transport.Subscribe(s.destination, s.id)
		if err != nil {
			s.drop()

			return transportError("subscribe", err)
		}

		s.inbox = inbox
		s.live.Store(&liveInbox{Inbox: inbox})

		s.logger.Debug().
			Str("destination", s.destination).
			Str("subscription", s.id).
			Msg("durable subscription activated")
	}

	return nil
}

// Read activates the subscription and waits up to the read timeout for the next frame.
// It returns nil, nil when no frame arrived.
func (s *DurableSubscription) Read(ctx context.Context) (*Frame, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.activate(ctx); err != nil {
		return nil, err
	}

	f, err := s.inbox.Read(ctx, s.readTimeout)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		s.drop()

		return nil, transportError("read", err)
	}

	return f, nil
}

// Send activates the subscription and sends msg to the bound destination.
func (s *DurableSubscription) Send(ctx context.Context, msg *Message) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.activate(ctx); err != nil {
		return err
	}

	if err := s.transport.Send(s.destination, msg); err != nil {
		s.drop()

		return transportError("send", err)
	}

	return nil
}

// Ack acknowledges f.
func (s *DurableSubscription) Ack(ctx context.Context, f *Frame) error {
	return s.acknowledge(ctx, "ack", f, func(t Transport) error { return t.Ack(f) })
}

// Nack negatively acknowledges f so that the broker redelivers it.
func (s *DurableSubscription) Nack(ctx context.Context, f *Frame) error {
	return s.acknowledge(ctx, "nack", f, func(t Transport) error { return t.Nack(f) })
}

func (s *DurableSubscription) acknowledge(ctx context.Context, op string, f *Frame, fn func(Transport) error) error {
	if f == nil {
		return fmt.Errorf("%s: %w", op, ErrForeignFrame)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.activate(ctx); err != nil {
		return err
	}

	if err := fn(s.transport); err != nil {
		if errors.Is(err, ErrForeignFrame) {
			return fmt.Errorf("%s %s: %w", op, f.MessageID(), err)
		}

		s.drop()

		return transportError(op, err)
	}

	return nil
}

// Close disconnects without unsubscribing, so the durable subscription keeps its pending frames.
func (s *DurableSubscription) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed.Swap(true) {
		return ErrClosed
	}

	if s.transport == nil {
		return nil
	}

	err := s.transport.Disconnect()
	s.transport, s.inbox = nil, nil
	s.live.Store(nil)

	return err
}

// drop forgets the current connection; the next activation reconnects.
func (s *DurableSubscription) drop() {
	if s.transport != nil {
		if err := s.transport.Disconnect(); err != nil {
			s.logger.Debug().Err(err).Str("destination", s.destination).Msg("failed to disconnect broken connection")
		}
	}

	s.transport, s.inbox = nil, nil
	s.live.Store(nil)
}
