package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := NewConfig("worker-1", []string{"tcp://localhost:61613"}, "/queue/default")
	require.NoError(t, err)

	assert.Equal(t, "worker-1", cfg.ClientID())
	assert.Equal(t, "/queue/default", cfg.Destination())
	assert.Equal(t, Timeout{Read: 1500 * time.Millisecond, Write: 0}, cfg.Timeout())
	assert.True(t, cfg.Heartbeat().IsZero())
	assert.False(t, cfg.NackOnRelease())
	assert.False(t, cfg.Brokers().IsFailover())
	assert.Empty(t, cfg.Login())
	assert.Empty(t, cfg.Passcode())
}

func TestNewConfig_Options(t *testing.T) {
	t.Parallel()

	hb := Heartbeat{
		Send:      2 * time.Second,
		Observers: []ObserverSpec{{Strategy: StrategyEmitter}},
	}

	cfg, err := NewConfig("worker-1",
		[]string{"tcp://a:61613", "ssl://b:61614"},
		"/topic/events",
		WithLogin("guest", "secret"),
		WithRandomize(true),
		WithHeartbeat(hb),
		WithTimeout(Timeout{Read: time.Second, Write: 3 * time.Second}),
		WithNackOnRelease(true),
	)
	require.NoError(t, err)

	assert.Equal(t, "guest", cfg.Login())
	assert.Equal(t, "secret", cfg.Passcode())
	assert.True(t, cfg.Brokers().Randomize)
	assert.Equal(t, hb, cfg.Heartbeat())
	assert.Equal(t, Timeout{Read: time.Second, Write: 3 * time.Second}, cfg.Timeout())
	assert.True(t, cfg.NackOnRelease())
}

func TestNewConfig_IsImmutable(t *testing.T) {
	t.Parallel()

	brokers := []string{"tcp://a:61613"}
	observers := []ObserverSpec{{Strategy: StrategyEmitter}}

	cfg, err := NewConfig("worker-1", brokers, "/queue/default",
		WithHeartbeat(Heartbeat{Send: time.Second, Observers: observers}))
	require.NoError(t, err)

	brokers[0] = "tcp://changed:61613"
	observers[0].Strategy = "changed"

	got := cfg.Brokers()
	got.Addresses[0] = "tcp://again:61613"

	assert.Equal(t, []string{"tcp://a:61613"}, cfg.Brokers().Addresses)
	assert.Equal(t, StrategyEmitter, cfg.Heartbeat().Observers[0].Strategy)
}

func TestNewConfig_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		clientID    string
		brokers     []string
		destination string
		opts        []ConfigOption
		expectedKey string
	}{
		{
			name:        "missing client id",
			brokers:     []string{"tcp://localhost:61613"},
			destination: "/queue/a",
			expectedKey: "clientId",
		},
		{
			name:        "no brokers",
			clientID:    "c",
			destination: "/queue/a",
			expectedKey: "brokers",
		},
		{
			name:        "unsupported scheme",
			clientID:    "c",
			brokers:     []string{"amqp://localhost:5672"},
			destination: "/queue/a",
			expectedKey: "brokers",
		},
		{
			name:        "missing port",
			clientID:    "c",
			brokers:     []string{"tcp://localhost"},
			destination: "/queue/a",
			expectedKey: "brokers",
		},
		{
			name:        "destination without prefix",
			clientID:    "c",
			brokers:     []string{"tcp://localhost:61613"},
			destination: "jobs",
			expectedKey: "destination",
		},
		{
			name:        "destination with unknown prefix",
			clientID:    "c",
			brokers:     []string{"tcp://localhost:61613"},
			destination: "/temp-queue/jobs",
			expectedKey: "destination",
		},
		{
			name:        "passcode without login",
			clientID:    "c",
			brokers:     []string{"tcp://localhost:61613"},
			destination: "/queue/a",
			opts:        []ConfigOption{WithLogin("", "secret")},
			expectedKey: "login",
		},
		{
			name:        "negative read timeout",
			clientID:    "c",
			brokers:     []string{"tcp://localhost:61613"},
			destination: "/queue/a",
			opts:        []ConfigOption{WithTimeout(Timeout{Read: -time.Second})},
			expectedKey: "timeout.read",
		},
		{
			name:        "zero read timeout",
			clientID:    "c",
			brokers:     []string{"tcp://localhost:61613"},
			destination: "/queue/a",
			opts:        []ConfigOption{WithTimeout(Timeout{Write: time.Second})},
			expectedKey: "timeout.read",
		},
		{
			name:        "negative write timeout",
			clientID:    "c",
			brokers:     []string{"tcp://localhost:61613"},
			destination: "/queue/a",
			opts:        []ConfigOption{WithTimeout(Timeout{Read: time.Second, Write: -time.Second})},
			expectedKey: "timeout.write",
		},
		{
			name:        "heartbeat without intervals",
			clientID:    "c",
			brokers:     []string{"tcp://localhost:61613"},
			destination: "/queue/a",
			opts: []ConfigOption{WithHeartbeat(Heartbeat{
				Observers: []ObserverSpec{{Strategy: StrategyEmitter}},
			})},
			expectedKey: "send",
		},
		{
			name:        "heartbeat without observers",
			clientID:    "c",
			brokers:     []string{"tcp://localhost:61613"},
			destination: "/queue/a",
			opts:        []ConfigOption{WithHeartbeat(Heartbeat{Send: time.Second})},
			expectedKey: "observers",
		},
		{
			name:        "observer without strategy",
			clientID:    "c",
			brokers:     []string{"tcp://localhost:61613"},
			destination: "/queue/a",
			opts: []ConfigOption{WithHeartbeat(Heartbeat{
				Send:      time.Second,
				Observers: []ObserverSpec{{Factory: "custom"}},
			})},
			expectedKey: "strategy",
		},
		{
			name:        "negative heartbeat interval",
			clientID:    "c",
			brokers:     []string{"tcp://localhost:61613"},
			destination: "/queue/a",
			opts: []ConfigOption{WithHeartbeat(Heartbeat{
				Send:      -time.Second,
				Observers: []ObserverSpec{{Strategy: StrategyEmitter}},
			})},
			expectedKey: "heartbeat",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewConfig(tt.clientID, tt.brokers, tt.destination, tt.opts...)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)

			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.expectedKey, cfgErr.Key)
		})
	}
}

func TestNewConfig_DestinationErrorNamesPattern(t *testing.T) {
	t.Parallel()

	_, err := NewConfig("c", []string{"tcp://localhost:61613"}, "jobs")
	require.Error(t, err)

	assert.Contains(t, err.Error(), `^(/topic/|/queue/)`)
}

func TestNewConfig_AcceptedBrokerSchemes(t *testing.T) {
	t.Parallel()

	for _, broker := range []string{
		"tcp://localhost:61613",
		"stomp://localhost:61613",
		"ssl://localhost:61614",
		"stomp+ssl://localhost:61614",
	} {
		_, err := NewConfig("c", []string{broker}, "/queue/a")
		assert.NoError(t, err, broker)
	}
}

func TestSplitTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		timeout         time.Duration
		expectedSeconds int64
		expectedMicros  int64
	}{
		{name: "default read timeout", timeout: 1500 * time.Millisecond, expectedSeconds: 1, expectedMicros: 500000},
		{name: "zero", timeout: 0, expectedSeconds: 0, expectedMicros: 0},
		{name: "whole seconds", timeout: 3 * time.Second, expectedSeconds: 3, expectedMicros: 0},
		{name: "sub-millisecond", timeout: 250 * time.Microsecond, expectedSeconds: 0, expectedMicros: 250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			seconds, micros := SplitTimeout(tt.timeout)

			assert.Equal(t, tt.expectedSeconds, seconds)
			assert.Equal(t, tt.expectedMicros, micros)
		})
	}
}
