package queue

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/go-stomp/stomp/v3"
	"github.com/go-stomp/stomp/v3/frame"
)

// subscriptionAckMode acknowledges frames one by one. In client mode an ACK also covers every
// earlier frame of the subscription, which would settle released items.
const subscriptionAckMode = stomp.AckClientIndividual

var errSubscriptionClosed = errors.New("subscription closed")

type (
	// Transport is one live broker connection.
	Transport interface {
		Send(destination string, msg *Message) error
		Subscribe(destination, id string) (Inbox, error)
		Ack(f *Frame) error
		Nack(f *Frame) error
		Disconnect() error
	}

	// Inbox receives the frames of one subscription.
	Inbox interface {
		// Read waits up to timeout for the next frame. It returns nil, nil when none arrived.
		// A zero timeout waits until a frame arrives or ctx is done.
		Read(ctx context.Context, timeout time.Duration) (*Frame, error)
		Active() bool
	}

	// DialRequest carries everything needed to open a connection to one broker.
	DialRequest struct {
		Broker       string
		ClientID     string
		Login        string
		Passcode     string
		WriteTimeout time.Duration
		ConnOptions  []func(*stomp.Conn) error
	}

	// Dialer opens a transport to a single broker.
	Dialer func(ctx context.Context, req DialRequest) (Transport, error)

	stompTransport struct {
		conn *stomp.Conn
	}

	stompInbox struct {
		sub *stomp.Subscription
	}

	// writeDeadlineConn bounds every write by the configured write timeout.
	writeDeadlineConn struct {
		net.Conn
		timeout time.Duration
	}
)

func (c writeDeadlineConn) Write(p []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}

	return c.Conn.Write(p)
}

// DialStomp is the default Dialer. It opens a TCP (or TLS for ssl schemes) connection and performs
// the STOMP CONNECT handshake.
func DialStomp(ctx context.Context, req DialRequest) (Transport, error) {
	u, err := url.Parse(req.Broker)
	if err != nil {
		return nil, fmt.Errorf("invalid broker address %q: %w", req.Broker, err)
	}

	host, _, err := net.SplitHostPort(u.Host)
	if err != nil {
		return nil, fmt.Errorf("invalid broker address %q: %w", req.Broker, err)
	}

	var netConn net.Conn

	switch u.Scheme {
	case "ssl", "stomp+ssl":
		dialer := &tls.Dialer{Config: &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}}
		netConn, err = dialer.DialContext(ctx, "tcp", u.Host)
	default:
		var dialer net.Dialer
		netConn, err = dialer.DialContext(ctx, "tcp", u.Host)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", req.Broker, err)
	}

	if req.WriteTimeout > 0 {
		netConn = writeDeadlineConn{Conn: netConn, timeout: req.WriteTimeout}
	}

	opts := []func(*stomp.Conn) error{
		stomp.ConnOpt.Host(host),
		stomp.ConnOpt.Header(HeaderClientID, req.ClientID),
	}
	if req.Login != "" {
		opts = append(opts, stomp.ConnOpt.Login(req.Login, req.Passcode))
	}
	opts = append(opts, req.ConnOptions...)

	conn, err := stomp.Connect(netConn, opts...)
	if err != nil {
		_ = netConn.Close()

		return nil, fmt.Errorf("failed to connect to %s: %w", req.Broker, err)
	}

	return &stompTransport{conn: conn}, nil
}

func (t *stompTransport) Send(destination string, msg *Message) error {
	var opts []func(*frame.Frame) error

	if msg.Header != nil {
		opts = make([]func(*frame.Frame) error, 0, msg.Header.Len())
		for i := 0; i < msg.Header.Len(); i++ {
			key, value := msg.Header.GetAt(i)
			if key == HeaderContentType {
				continue
			}
			opts = append(opts, stomp.SendOpt.Header(key, value))
		}
	}

	return t.conn.Send(destination, msg.ContentType, msg.Body, opts...)
}

func (t *stompTransport) Subscribe(destination, id string) (Inbox, error) {
	sub, err := t.conn.Subscribe(destination, subscriptionAckMode,
		stomp.SubscribeOpt.Id(id),
		stomp.SubscribeOpt.Header(HeaderDurableName, id),
	)
	if err != nil {
		return nil, err
	}

	return &stompInbox{sub: sub}, nil
}

func (t *stompTransport) Ack(f *Frame) error {
	msg, ok := f.Handle.(*stomp.Message)
	if !ok {
		return ErrForeignFrame
	}

	return t.conn.Ack(msg)
}

func (t *stompTransport) Nack(f *Frame) error {
	msg, ok := f.Handle.(*stomp.Message)
	if !ok {
		return ErrForeignFrame
	}

	return t.conn.Nack(msg)
}

func (t *stompTransport) Disconnect() error {
	return t.conn.Disconnect()
}

func (in *stompInbox) Active() bool {
	return in.sub.Active()
}

func (in *stompInbox) Read(ctx context.Context, timeout time.Duration) (*Frame, error) {
	var expired <-chan time.Time

	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		expired = timer.C
	}

	select {
	case msg, ok := <-in.sub.C:
		if !ok {
			return nil, errSubscriptionClosed
		}
		if msg.Err != nil {
			return nil, msg.Err
		}

		return &Frame{
			Header: msg.Header,
			Body:   msg.Body,
			Handle: msg,
		}, nil
	case <-expired:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
