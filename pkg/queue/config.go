package queue

import (
	"net"
	"net/url"
	"regexp"
	"time"
)

const (
	destinationPattern = `^(/topic/|/queue/)`

	defaultReadTimeout  = 1500 * time.Millisecond
	defaultWriteTimeout = 0
)

var destinationRegexp = regexp.MustCompile(destinationPattern)

var supportedSchemes = map[string]bool{
	"tcp":       true,
	"stomp":     true,
	"ssl":       true,
	"stomp+ssl": true,
}

type (
	// Config describes one broker connection, its destination and the connection policies.
	// It is validated on construction and cannot be modified afterwards.
	Config struct {
		clientID      string
		brokers       BrokerList
		destination   string
		login         string
		passcode      string
		heartbeat     Heartbeat
		timeout       Timeout
		nackOnRelease bool
	}

	// Heartbeat is the heart-beating policy. The zero value disables heart-beating.
	Heartbeat struct {
		// Send is the interval at which the client emits heartbeats.
		Send time.Duration
		// Receive is the interval within which the server must send a frame.
		Receive time.Duration
		// Observers select the liveness strategies attached to the connection.
		Observers []ObserverSpec
	}

	// ObserverSpec declares one liveness strategy.
	ObserverSpec struct {
		// Strategy is the name of a built-in or registered liveness strategy.
		Strategy string
		// Factory optionally names a registered factory that builds the observer instead of the built-in.
		Factory string
	}

	// Timeout holds the read and write timeouts of the connection.
	Timeout struct {
		Read  time.Duration
		Write time.Duration
	}

	// ConfigOption sets optional Config fields.
	ConfigOption func(*Config)
)

// WithLogin sets the credentials sent on CONNECT.
func WithLogin(login, passcode string) ConfigOption {
	return func(c *Config) {
		c.login = login
		c.passcode = passcode
	}
}

// WithRandomize shuffles the failover broker list on every connection attempt.
func WithRandomize(randomize bool) ConfigOption {
	return func(c *Config) {
		c.brokers.Randomize = randomize
	}
}

// WithHeartbeat enables heart-beating with the given policy.
func WithHeartbeat(hb Heartbeat) ConfigOption {
	return func(c *Config) {
		c.heartbeat = hb
	}
}

// WithTimeout overrides the default read and write timeouts.
func WithTimeout(t Timeout) ConfigOption {
	return func(c *Config) {
		c.timeout = t
	}
}

// WithNackOnRelease makes released items be negatively acknowledged instead of left for redelivery.
func WithNackOnRelease(nack bool) ConfigOption {
	return func(c *Config) {
		c.nackOnRelease = nack
	}
}

// NewConfig validates and builds a connection configuration.
func NewConfig(clientID string, brokers []string, destination string, opts ...ConfigOption) (Config, error) {
	cfg := Config{
		clientID:    clientID,
		brokers:     BrokerList{Addresses: append([]string(nil), brokers...)},
		destination: destination,
		timeout: Timeout{
			Read:  defaultReadTimeout,
			Write: defaultWriteTimeout,
		},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	cfg.heartbeat.Observers = append([]ObserverSpec(nil), cfg.heartbeat.Observers...)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.clientID == "" {
		return newConfigurationError("clientId", "is required")
	}

	if len(c.brokers.Addresses) == 0 {
		return newConfigurationError("brokers", "requires at least one broker address")
	}

	for _, addr := range c.brokers.Addresses {
		if err := validateBroker(addr); err != nil {
			return err
		}
	}

	if !destinationRegexp.MatchString(c.destination) {
		return newConfigurationError("destination", "%q must match %s", c.destination, destinationPattern)
	}

	if c.login == "" && c.passcode != "" {
		return newConfigurationError("login", "is required when a passcode is set")
	}

	// A zero read timeout would block every claim until a frame arrives.
	if c.timeout.Read <= 0 {
		return newConfigurationError("timeout.read", "must be positive")
	}

	if c.timeout.Write < 0 {
		return newConfigurationError("timeout.write", "must not be negative")
	}

	return c.heartbeat.validate()
}

func (hb Heartbeat) validate() error {
	if hb.IsZero() {
		return nil
	}

	if hb.Send < 0 || hb.Receive < 0 {
		return newConfigurationError("heartbeat", "intervals must not be negative")
	}

	if hb.Send == 0 && hb.Receive == 0 {
		return newConfigurationError("send", "or \"receive\" heartbeat setting is required")
	}

	if len(hb.Observers) == 0 {
		return newConfigurationError("observers", "heartbeat setting is required")
	}

	for _, o := range hb.Observers {
		if o.Strategy == "" {
			return newConfigurationError("strategy", "is required for every heartbeat observer")
		}
	}

	return nil
}

func validateBroker(addr string) error {
	u, err := url.Parse(addr)
	if err != nil {
		return newConfigurationError("brokers", "%q is not a valid address: %v", addr, err)
	}

	if !supportedSchemes[u.Scheme] {
		return newConfigurationError("brokers", "%q must use one of the tcp, stomp, ssl schemes", addr)
	}

	if _, _, err := net.SplitHostPort(u.Host); err != nil {
		return newConfigurationError("brokers", "%q must have the form scheme://host:port", addr)
	}

	return nil
}

// IsZero reports whether heart-beating is disabled.
func (hb Heartbeat) IsZero() bool {
	return hb.Send == 0 && hb.Receive == 0 && len(hb.Observers) == 0
}

func (c Config) ClientID() string    { return c.clientID }
func (c Config) Brokers() BrokerList { return c.brokers.clone() }
func (c Config) Destination() string { return c.destination }
func (c Config) Login() string       { return c.login }
func (c Config) Passcode() string    { return c.passcode }
func (c Config) Timeout() Timeout    { return c.timeout }
func (c Config) NackOnRelease() bool { return c.nackOnRelease }

// Heartbeat returns a copy of the heart-beating policy.
func (c Config) Heartbeat() Heartbeat {
	hb := c.heartbeat
	hb.Observers = append([]ObserverSpec(nil), c.heartbeat.Observers...)

	return hb
}

// SplitTimeout splits a timeout into whole seconds and the remaining microseconds.
func SplitTimeout(d time.Duration) (seconds, microseconds int64) {
	seconds = int64(d / time.Second)
	microseconds = int64((d % time.Second) / time.Microsecond)

	return seconds, microseconds
}
