package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration describes a malformed connection configuration.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrLogic describes a programming error while wiring the connection, e.g. an unknown liveness strategy.
	ErrLogic = errors.New("logic error")

	// ErrTransport describes a network or protocol failure while talking to the broker.
	ErrTransport = errors.New("transport error")

	// ErrBrokerUnavailable is returned while the connection circuit breaker is open.
	ErrBrokerUnavailable = fmt.Errorf("%w: broker unavailable", ErrTransport)

	// ErrUnsupportedPayload describes a payload that cannot be encoded into a STOMP message.
	ErrUnsupportedPayload = errors.New("unsupported payload type")

	// ErrForeignFrame describes a frame that was not received through the transport it is acknowledged on.
	ErrForeignFrame = errors.New("frame does not belong to this connection")
)

// ConfigurationError names the configuration key that failed validation.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %q %s", ErrInvalidConfiguration.Error(), e.Key, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidConfiguration
}

func newConfigurationError(key, reason string, args ...any) *ConfigurationError {
	return &ConfigurationError{
		Key:    key,
		Reason: fmt.Sprintf(reason, args...),
	}
}

func logicError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrLogic, fmt.Sprintf(format, args...))
}

func transportError(op string, err error) error {
	if errors.Is(err, ErrTransport) {
		return err
	}

	return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
}
