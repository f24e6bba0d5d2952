package queue

import (
	"sort"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3"
)

const (
	// StrategyEmitter proactively sends heartbeats at the negotiated client-send interval.
	StrategyEmitter = "emitter"
	// StrategyServerAlive fails the connection when the server stays silent past the receive interval.
	StrategyServerAlive = "server_alive"
)

type (
	// Negotiation collects what the liveness observers request from the broker on CONNECT.
	Negotiation struct {
		Send    time.Duration
		Receive time.Duration

		// Options are extra connect options contributed by custom observers.
		Options []func(*stomp.Conn) error
	}

	// LivenessObserver attaches a liveness strategy to a connection.
	LivenessObserver interface {
		Negotiate(n *Negotiation)
	}

	// ObserverFactory builds a LivenessObserver for the given heartbeat policy.
	ObserverFactory func(hb Heartbeat) (LivenessObserver, error)

	// ObserverRegistry resolves strategy names to observer factories.
	ObserverRegistry struct {
		mu        sync.RWMutex
		factories map[string]ObserverFactory
	}

	emitter struct {
		interval time.Duration
	}

	serverAliveMonitor struct {
		interval time.Duration
	}
)

func (e emitter) Negotiate(n *Negotiation) {
	n.Send = e.interval
}

func (m serverAliveMonitor) Negotiate(n *Negotiation) {
	n.Receive = m.interval
}

var builtinObservers = map[string]ObserverFactory{
	StrategyEmitter: func(hb Heartbeat) (LivenessObserver, error) {
		if hb.Send <= 0 {
			return nil, logicError("%s strategy requires a \"send\" heartbeat interval", StrategyEmitter)
		}

		return emitter{interval: hb.Send}, nil
	},
	StrategyServerAlive: func(hb Heartbeat) (LivenessObserver, error) {
		if hb.Receive <= 0 {
			return nil, logicError("%s strategy requires a \"receive\" heartbeat interval", StrategyServerAlive)
		}

		return serverAliveMonitor{interval: hb.Receive}, nil
	},
}

// NewObserverRegistry creates an empty registry. Built-in strategies are always resolvable.
func NewObserverRegistry() *ObserverRegistry {
	return &ObserverRegistry{
		factories: make(map[string]ObserverFactory),
	}
}

// Register adds a named factory. Registering an existing name replaces it.
func (r *ObserverRegistry) Register(name string, factory ObserverFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[name] = factory
}

// Names returns the registered factory names in sorted order.
func (r *ObserverRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func (r *ObserverRegistry) lookup(name string) (ObserverFactory, bool) {
	if r == nil {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[name]

	return f, ok
}

// Resolve builds the observer described by spec. An explicit factory wins over the built-in strategy;
// a strategy with neither a built-in nor a registered factory is a logic error.
func (r *ObserverRegistry) Resolve(spec ObserverSpec, hb Heartbeat) (LivenessObserver, error) {
	var (
		factory ObserverFactory
		ok      bool
	)

	switch {
	case spec.Factory != "":
		factory, ok = r.lookup(spec.Factory)
		if !ok {
			return nil, logicError("factory %q for strategy %q is not registered", spec.Factory, spec.Strategy)
		}
	default:
		factory, ok = builtinObservers[spec.Strategy]
		if !ok {
			factory, ok = r.lookup(spec.Strategy)
		}
		if !ok {
			return nil, logicError("no default strategy found for %q", spec.Strategy)
		}
	}

	observer, err := factory(hb)
	if err != nil {
		return nil, err
	}

	if observer == nil {
		return nil, logicError("factory for strategy %q did not return a liveness observer", spec.Strategy)
	}

	return observer, nil
}

// negotiate resolves every observer of the policy and folds their requests.
// A disabled policy negotiates no heart-beating at all.
func (r *ObserverRegistry) negotiate(hb Heartbeat) (Negotiation, error) {
	var n Negotiation

	if hb.IsZero() {
		return n, nil
	}

	for _, spec := range hb.Observers {
		observer, err := r.Resolve(spec, hb)
		if err != nil {
			return Negotiation{}, err
		}

		observer.Negotiate(&n)
	}

	return n, nil
}

func (n Negotiation) connOptions() []func(*stomp.Conn) error {
	opts := make([]func(*stomp.Conn) error, 0, len(n.Options)+1)
	opts = append(opts, stomp.ConnOpt.HeartBeat(n.Send, n.Receive))

	return append(opts, n.Options...)
}
