package queue

import (
	"testing"
	"time"

	"github.com/go-stomp/stomp/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	interval time.Duration
}

func (o recordingObserver) Negotiate(n *Negotiation) {
	n.Receive = o.interval
	n.Options = append(n.Options, func(*stomp.Conn) error { return nil })
}

func TestObserverRegistry_ResolveBuiltins(t *testing.T) {
	t.Parallel()

	hb := Heartbeat{Send: time.Second, Receive: 2 * time.Second}

	tests := []struct {
		name     string
		strategy string
		expected Negotiation
	}{
		{name: "emitter", strategy: StrategyEmitter, expected: Negotiation{Send: time.Second}},
		{name: "server alive", strategy: StrategyServerAlive, expected: Negotiation{Receive: 2 * time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			observer, err := NewObserverRegistry().Resolve(ObserverSpec{Strategy: tt.strategy}, hb)
			require.NoError(t, err)

			var n Negotiation
			observer.Negotiate(&n)

			assert.Equal(t, tt.expected, n)
		})
	}
}

func TestObserverRegistry_ResolveErrors(t *testing.T) {
	t.Parallel()

	registry := NewObserverRegistry()
	registry.Register("broken", func(Heartbeat) (LivenessObserver, error) {
		return nil, nil
	})

	tests := []struct {
		name        string
		spec        ObserverSpec
		hb          Heartbeat
		expectedMsg string
	}{
		{
			name:        "unknown strategy",
			spec:        ObserverSpec{Strategy: "unknown"},
			hb:          Heartbeat{Send: time.Second},
			expectedMsg: `no default strategy found for "unknown"`,
		},
		{
			name:        "unregistered factory",
			spec:        ObserverSpec{Strategy: StrategyEmitter, Factory: "missing"},
			hb:          Heartbeat{Send: time.Second},
			expectedMsg: `factory "missing" for strategy "emitter" is not registered`,
		},
		{
			name:        "factory returns no observer",
			spec:        ObserverSpec{Strategy: "custom", Factory: "broken"},
			hb:          Heartbeat{Send: time.Second},
			expectedMsg: "did not return a liveness observer",
		},
		{
			name:        "emitter without send interval",
			spec:        ObserverSpec{Strategy: StrategyEmitter},
			hb:          Heartbeat{Receive: time.Second},
			expectedMsg: "requires a \"send\" heartbeat interval",
		},
		{
			name:        "server alive without receive interval",
			spec:        ObserverSpec{Strategy: StrategyServerAlive},
			hb:          Heartbeat{Send: time.Second},
			expectedMsg: "requires a \"receive\" heartbeat interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := registry.Resolve(tt.spec, tt.hb)
			require.Error(t, err)

			assert.ErrorIs(t, err, ErrLogic)
			assert.Contains(t, err.Error(), tt.expectedMsg)
		})
	}
}

func TestObserverRegistry_CustomStrategy(t *testing.T) {
	t.Parallel()

	registry := NewObserverRegistry()
	registry.Register("audit", func(hb Heartbeat) (LivenessObserver, error) {
		return recordingObserver{interval: hb.Receive}, nil
	})
	registry.Register("alpha", func(Heartbeat) (LivenessObserver, error) {
		return recordingObserver{}, nil
	})

	assert.Equal(t, []string{"alpha", "audit"}, registry.Names())

	hb := Heartbeat{
		Send:    time.Second,
		Receive: 4 * time.Second,
		Observers: []ObserverSpec{
			{Strategy: StrategyEmitter},
			{Strategy: "audit"},
		},
	}

	n, err := registry.negotiate(hb)
	require.NoError(t, err)

	assert.Equal(t, time.Second, n.Send)
	assert.Equal(t, 4*time.Second, n.Receive)
	assert.Len(t, n.Options, 1)
	assert.Len(t, n.connOptions(), 2)
}

func TestObserverRegistry_FactoryOverridesBuiltin(t *testing.T) {
	t.Parallel()

	registry := NewObserverRegistry()
	registry.Register("slow", func(Heartbeat) (LivenessObserver, error) {
		return recordingObserver{interval: time.Minute}, nil
	})

	observer, err := registry.Resolve(ObserverSpec{Strategy: StrategyServerAlive, Factory: "slow"}, Heartbeat{Receive: time.Second})
	require.NoError(t, err)

	var n Negotiation
	observer.Negotiate(&n)

	assert.Equal(t, time.Minute, n.Receive)
}

func TestNegotiate_DisabledHeartbeat(t *testing.T) {
	t.Parallel()

	var registry *ObserverRegistry

	n, err := registry.negotiate(Heartbeat{})
	require.NoError(t, err)

	assert.Zero(t, n.Send)
	assert.Zero(t, n.Receive)
	assert.Len(t, n.connOptions(), 1)
}
