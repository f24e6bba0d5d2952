// Package queue provides a reliable work queue on top of a STOMP broker, backed by a durable
// subscription with individual client acknowledgement.
//
// # Overview
//
// The package turns a raw STOMP connection into a ReliableQueue: items are sent to a destination,
// claimed by reading MESSAGE frames, deleted by acknowledging them and released by leaving them
// unacknowledged (or by a NACK, when configured). The broker redelivers unacknowledged frames on
// the next activation of the durable subscription, flagged with the redelivered header.
//
// # Key Features
//
//   - Validated, immutable connection configuration
//   - Single broker or failover broker lists, optionally randomized
//   - Heart-beating with pluggable liveness strategies
//   - Lazy, idempotent activation with a circuit breaker around connection attempts
//   - Text and key-value (jms-map-json) message encoding
//   - Flexible logging interface with a severity threshold
//
// # Basic Usage
//
//	cfg, err := queue.NewConfig("worker-1", []string{"tcp://localhost:61613"}, "/queue/default",
//		queue.WithLogin("guest", "guest"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	q, err := queue.NewStompFromConfig(queue.NewConnectionFactory(), cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer q.Close()
//
//	if _, err := q.CreateItem(ctx, map[string]any{"id": "123"}); err != nil {
//		log.Printf("Failed to send: %v", err)
//	}
//
//	item, err := q.ClaimItem(ctx, time.Hour)
//	if err == nil && item != nil {
//		// process item.Data
//		_ = q.DeleteItem(ctx, item)
//	}
//
// # Heart-beating
//
// A heartbeat policy lists observers by strategy name. The built-in strategies are "emitter",
// which sends heartbeats at the client-send interval, and "server_alive", which fails the
// connection when the broker stays silent for the receive interval. Custom strategies are
// registered on an ObserverRegistry before the connection is created:
//
//	registry := queue.NewObserverRegistry()
//	registry.Register("audit", func(hb queue.Heartbeat) (queue.LivenessObserver, error) {
//		return auditObserver{}, nil
//	})
//	factory := queue.NewConnectionFactory(queue.WithObserverRegistry(registry))
//
// # Thread Safety
//
// A DurableSubscription serializes its operations but is meant for a single reader.
// Concurrent consumers of the same subscription are not supported.
//
// # Dependencies
//
//   - github.com/go-stomp/stomp/v3
//   - github.com/sony/gobreaker
//   - github.com/rs/zerolog
package queue
