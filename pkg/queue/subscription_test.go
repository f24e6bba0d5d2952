package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	blockingTransport struct {
		Transport
		inbox *blockingInbox
	}

	// blockingInbox holds every Read until release is closed.
	blockingInbox struct {
		reading chan struct{}
		release chan struct{}
	}
)

func (t blockingTransport) Subscribe(string, string) (Inbox, error) {
	return t.inbox, nil
}

func (t blockingTransport) Disconnect() error {
	return nil
}

func (in *blockingInbox) Read(ctx context.Context, _ time.Duration) (*Frame, error) {
	close(in.reading)

	select {
	case <-in.release:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (in *blockingInbox) Active() bool {
	return true
}

func TestDurableSubscription_IsActiveDuringRead(t *testing.T) {
	t.Parallel()

	inbox := &blockingInbox{reading: make(chan struct{}), release: make(chan struct{})}

	cfg, err := NewConfig("worker-1", []string{"tcp://a:61613"}, "/queue/jobs")
	require.NoError(t, err)

	sub, err := NewConnectionFactory(WithDialer(func(context.Context, DialRequest) (Transport, error) {
		return blockingTransport{inbox: inbox}, nil
	})).Create(cfg)
	require.NoError(t, err)

	assert.False(t, sub.IsActive())

	readDone := make(chan error, 1)
	go func() {
		_, err := sub.Read(t.Context())
		readDone <- err
	}()

	<-inbox.reading

	active := make(chan bool, 1)
	go func() {
		active <- sub.IsActive()
	}()

	select {
	case got := <-active:
		assert.True(t, got)
	case <-time.After(time.Second):
		t.Fatal("IsActive waited for the read in progress")
	}

	close(inbox.release)
	require.NoError(t, <-readDone)

	require.NoError(t, sub.Close())
	assert.False(t, sub.IsActive())
}
