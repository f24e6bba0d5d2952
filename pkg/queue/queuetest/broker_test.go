package queuetest_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/architeacher/svc-stomp-worker/pkg/queue"
	"github.com/architeacher/svc-stomp-worker/pkg/queue/queuetest"
)

const destination = "/queue/orders"

func readTwo(t *testing.T, broker *queuetest.Broker) (queue.Transport, *queue.Frame, *queue.Frame) {
	t.Helper()

	conn, err := broker.Dial(context.Background(), queue.DialRequest{Broker: "tcp://localhost:61613"})
	require.NoError(t, err)

	inbox, err := conn.Subscribe(destination, destination)
	require.NoError(t, err)

	first, err := inbox.Read(context.Background(), 0)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := inbox.Read(context.Background(), 0)
	require.NoError(t, err)
	require.NotNil(t, second)

	return conn, first, second
}

func TestBroker_IndividualAck(t *testing.T) {
	t.Parallel()

	broker := queuetest.NewBroker()
	released := broker.Publish(destination, "released")
	acked := broker.Publish(destination, "acked")

	conn, _, second := readTwo(t, broker)

	require.NoError(t, conn.Ack(second))

	assert.Equal(t, []string{acked}, broker.Acked())
	assert.Equal(t, 1, broker.InFlight())

	broker.DropConnections()

	assert.Equal(t, 1, broker.Pending(destination))

	conn, err := broker.Dial(context.Background(), queue.DialRequest{})
	require.NoError(t, err)
	inbox, err := conn.Subscribe(destination, destination)
	require.NoError(t, err)

	f, err := inbox.Read(context.Background(), 0)
	require.NoError(t, err)
	require.NotNil(t, f)

	assert.Equal(t, released, f.MessageID())
	assert.True(t, f.Redelivered())
}

func TestBroker_CumulativeAck(t *testing.T) {
	t.Parallel()

	broker := queuetest.NewBroker(queuetest.WithCumulativeAck())
	first := broker.Publish(destination, "first")
	second := broker.Publish(destination, "second")

	conn, _, secondFrame := readTwo(t, broker)

	require.NoError(t, conn.Ack(secondFrame))

	assert.Equal(t, []string{first, second}, broker.Acked())
	assert.Zero(t, broker.InFlight())

	broker.DropConnections()

	assert.Zero(t, broker.Pending(destination))
}
