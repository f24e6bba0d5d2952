package queue

import (
	"testing"

	"github.com/go-stomp/stomp/v3"
	"github.com/stretchr/testify/assert"
)

func TestStompTransport_AcknowledgesFramesIndividually(t *testing.T) {
	t.Parallel()

	assert.Equal(t, stomp.AckClientIndividual, subscriptionAckMode)
}
