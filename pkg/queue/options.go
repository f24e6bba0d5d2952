package queue

import (
	"context"
)

// MessageListener is called with every outgoing message before it is sent. Listeners may
// add headers or replace the body; an error aborts the send.
type MessageListener func(ctx context.Context, msg *Message) error

type stompOptions struct {
	logger    Logger
	listeners []MessageListener
}

type StompOption func(options *stompOptions)

// WithLogger returns a StompOption which sets the logger of the queue.
func WithLogger(l Logger) StompOption {
	return func(o *stompOptions) {
		o.logger = l
	}
}

// WithMessageListener returns a StompOption which registers a pre-send message listener.
func WithMessageListener(l MessageListener) StompOption {
	return func(o *stompOptions) {
		o.listeners = append(o.listeners, l)
	}
}

func defaultStompOptions() stompOptions {
	return stompOptions{
		logger: NopLogger(),
	}
}
