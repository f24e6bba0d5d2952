package queue

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// BrokerList is the ordered set of broker addresses of one connection.
type BrokerList struct {
	Addresses []string
	Randomize bool
}

func (b BrokerList) clone() BrokerList {
	return BrokerList{
		Addresses: append([]string(nil), b.Addresses...),
		Randomize: b.Randomize,
	}
}

// IsFailover reports whether more than one broker is configured.
func (b BrokerList) IsFailover() bool {
	return len(b.Addresses) > 1
}

// String returns the single broker address, or the failover address list for multiple brokers.
func (b BrokerList) String() string {
	if !b.IsFailover() {
		if len(b.Addresses) == 0 {
			return ""
		}
		return b.Addresses[0]
	}

	addr := fmt.Sprintf("failover://(%s)", strings.Join(b.Addresses, ","))
	if b.Randomize {
		addr += "?randomize=true"
	}

	return addr
}

// Candidates returns the brokers in the order they are tried.
func (b BrokerList) Candidates() []string {
	candidates := append([]string(nil), b.Addresses...)

	if b.Randomize && len(candidates) > 1 {
		rand.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
	}

	return candidates
}

type (
	factoryOptions struct {
		registry *ObserverRegistry
		dialer   Dialer
		logger   Logger
		breaker  *gobreaker.Settings
	}

	// FactoryOption configures a ConnectionFactory.
	FactoryOption func(*factoryOptions)

	// ConnectionFactory builds durable subscriptions from validated configurations.
	ConnectionFactory struct {
		options factoryOptions
	}

	// connector opens a transport by walking the broker candidates.
	connector struct {
		brokers BrokerList
		request DialRequest
		dial    Dialer
		logger  Logger
	}
)

// WithObserverRegistry sets the registry used to resolve custom liveness strategies.
func WithObserverRegistry(r *ObserverRegistry) FactoryOption {
	return func(o *factoryOptions) {
		o.registry = r
	}
}

// WithDialer replaces the network dialer, mainly for tests.
func WithDialer(d Dialer) FactoryOption {
	return func(o *factoryOptions) {
		o.dialer = d
	}
}

// WithFactoryLogger sets the logger handed to the created subscriptions.
func WithFactoryLogger(l Logger) FactoryOption {
	return func(o *factoryOptions) {
		o.logger = l
	}
}

// WithBreakerSettings overrides the circuit breaker guarding connection attempts.
func WithBreakerSettings(s gobreaker.Settings) FactoryOption {
	return func(o *factoryOptions) {
		o.breaker = &s
	}
}

// NewConnectionFactory creates a factory.
func NewConnectionFactory(opts ...FactoryOption) *ConnectionFactory {
	options := factoryOptions{
		dialer: DialStomp,
		logger: NopLogger(),
	}

	for _, opt := range opts {
		opt(&options)
	}

	return &ConnectionFactory{options: options}
}

// Create resolves brokers, credentials, timeouts and liveness observers of cfg and returns a
// subscription that connects lazily on its first activation.
func (f *ConnectionFactory) Create(cfg Config) (*DurableSubscription, error) {
	if cfg.clientID == "" {
		return nil, logicError("configuration was not built with NewConfig")
	}

	negotiation, err := f.options.registry.negotiate(cfg.heartbeat)
	if err != nil {
		return nil, err
	}

	seconds, micros := SplitTimeout(cfg.timeout.Read)
	readTimeout := time.Duration(seconds)*time.Second + time.Duration(micros)*time.Microsecond

	conn := &connector{
		brokers: cfg.Brokers(),
		request: DialRequest{
			ClientID:     cfg.clientID,
			Login:        cfg.login,
			Passcode:     cfg.passcode,
			WriteTimeout: cfg.timeout.Write,
			ConnOptions:  negotiation.connOptions(),
		},
		dial:   f.options.dialer,
		logger: f.options.logger,
	}

	return newDurableSubscription(subscriptionParams{
		destination: cfg.destination,
		readTimeout: readTimeout,
		connect:     conn.connect,
		breaker:     f.breakerSettings(cfg),
		logger:      f.options.logger,
	}), nil
}

func (f *ConnectionFactory) breakerSettings(cfg Config) gobreaker.Settings {
	if f.options.breaker != nil {
		s := *f.options.breaker
		if s.Name == "" {
			s.Name = cfg.destination
		}
		return s
	}

	return gobreaker.Settings{
		Name:        cfg.destination,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.options.logger.Info().
				Str("destination", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("connection circuit breaker changed state")
		},
	}
}

func (c *connector) connect(ctx context.Context) (Transport, error) {
	var errs []error

	for _, broker := range c.brokers.Candidates() {
		req := c.request
		req.Broker = broker

		t, err := c.dial(ctx, req)
		if err == nil {
			c.logger.Debug().Str("broker", broker).Msg("connected to broker")

			return t, nil
		}

		c.logger.Error().Err(err).Str("broker", broker).Msg("failed to connect to broker")
		errs = append(errs, err)

		if ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("unable to connect to %s: %w", c.brokers.String(), errors.Join(errs...))
}
