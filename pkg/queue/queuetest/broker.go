// Package queuetest provides an in-memory STOMP broker for tests.
//
// The broker keeps the acknowledgement semantics of a durable subscription with client-individual
// acknowledgement: frames read but not acknowledged go back to the destination when the
// connection is closed or the frame is negatively acknowledged, and are then redelivered
// with the redelivered header set. WithCumulativeAck switches to client mode, where an ACK
// also settles every frame delivered before it on the same connection.
package queuetest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"

	"github.com/architeacher/svc-stomp-worker/pkg/queue"
)

const (
	OpDial       = "dial"
	OpSend       = "send"
	OpSubscribe  = "subscribe"
	OpRead       = "read"
	OpAck        = "ack"
	OpNack       = "nack"
	OpDisconnect = "disconnect"
)

// ErrConnectionClosed is returned by operations on a disconnected connection.
var ErrConnectionClosed = errors.New("connection closed")

type (
	// Option configures a Broker.
	Option func(*Broker)

	// Broker is an in-memory broker. The zero value is not usable, use NewBroker.
	Broker struct {
		mutex sync.Mutex

		cumulativeAck bool

		pending   map[string][]*stored
		failures  map[string][]error
		skipReads int

		unreachable map[string]error
		dials       []queue.DialRequest
		acked       []string
		nacked      []string
		conns       []*Conn
	}

	stored struct {
		id          string
		destination string
		contentType string
		header      *frame.Header
		body        []byte
		delivered   bool
	}

	// Conn is one client connection to the Broker.
	Conn struct {
		broker   *Broker
		request  queue.DialRequest
		inflight map[string]*stored
		order    []string
		closed   bool
	}

	inbox struct {
		conn        *Conn
		destination string
		id          string
	}

	delivery struct {
		conn *Conn
		id   string
	}
)

// WithCumulativeAck makes an ACK settle the acknowledged frame and every frame delivered before it.
func WithCumulativeAck() Option {
	return func(b *Broker) {
		b.cumulativeAck = true
	}
}

// NewBroker creates an empty broker.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		pending:     make(map[string][]*stored),
		failures:    make(map[string][]error),
		unreachable: make(map[string]error),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Dial implements queue.Dialer.
func (b *Broker) Dial(_ context.Context, req queue.DialRequest) (queue.Transport, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.dials = append(b.dials, req)

	if err, ok := b.unreachable[req.Broker]; ok {
		return nil, err
	}

	if err := b.failure(OpDial); err != nil {
		return nil, err
	}

	c := &Conn{
		broker:   b,
		request:  req,
		inflight: make(map[string]*stored),
	}
	b.conns = append(b.conns, c)

	return c, nil
}

// Unreachable makes every dial to broker fail with err.
func (b *Broker) Unreachable(broker string, err error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.unreachable[broker] = err
}

// FailNext makes the next operation op fail with err. Failures queue up per operation.
func (b *Broker) FailNext(op string, err error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.failures[op] = append(b.failures[op], err)
}

// SkipReads makes the next n reads return no frame even if frames are pending.
func (b *Broker) SkipReads(n int) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.skipReads = n
}

// Publish stores a text frame on destination as if another producer had sent it.
func (b *Broker) Publish(destination, body string) string {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.store(destination, queue.NewTextMessage(body))
}

// PublishMessage stores msg on destination as-is and returns its message id.
func (b *Broker) PublishMessage(destination string, msg *queue.Message) string {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.store(destination, msg)
}

// Pending returns the number of frames on destination that are neither in flight nor acknowledged.
func (b *Broker) Pending(destination string) int {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return len(b.pending[destination])
}

// InFlight returns the number of frames delivered but not yet acknowledged.
func (b *Broker) InFlight() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	n := 0
	for _, c := range b.conns {
		n += len(c.inflight)
	}

	return n
}

// Acked returns the acknowledged message ids in order.
func (b *Broker) Acked() []string {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return append([]string(nil), b.acked...)
}

// Nacked returns the negatively acknowledged message ids in order.
func (b *Broker) Nacked() []string {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return append([]string(nil), b.nacked...)
}

// Dials returns every dial request received, successful or not.
func (b *Broker) Dials() []queue.DialRequest {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return append([]queue.DialRequest(nil), b.dials...)
}

// Connections returns the number of connections that were opened.
func (b *Broker) Connections() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return len(b.conns)
}

// DropConnections closes every open connection as if the network failed.
func (b *Broker) DropConnections() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for _, c := range b.conns {
		c.close()
	}
}

func (b *Broker) failure(op string) error {
	errs := b.failures[op]
	if len(errs) == 0 {
		return nil
	}

	b.failures[op] = errs[1:]

	return errs[0]
}

func (b *Broker) store(destination string, msg *queue.Message) string {
	header := frame.NewHeader()
	if msg.Header != nil {
		header = msg.Header.Clone()
	}

	s := &stored{
		id:          uuid.NewString(),
		destination: destination,
		contentType: msg.ContentType,
		header:      header,
		body:        append([]byte(nil), msg.Body...),
	}
	b.pending[destination] = append(b.pending[destination], s)

	return s.id
}

// requeue puts frames back in front of their destination, keeping their delivery order.
func (b *Broker) requeue(frames []*stored) {
	for i := len(frames) - 1; i >= 0; i-- {
		s := frames[i]
		b.pending[s.destination] = append([]*stored{s}, b.pending[s.destination]...)
	}
}

// Request returns the dial request the connection was opened with.
func (c *Conn) Request() queue.DialRequest {
	return c.request
}

func (c *Conn) Send(destination string, msg *queue.Message) error {
	c.broker.mutex.Lock()
	defer c.broker.mutex.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	if err := c.broker.failure(OpSend); err != nil {
		return err
	}

	c.broker.store(destination, msg)

	return nil
}

func (c *Conn) Subscribe(destination, id string) (queue.Inbox, error) {
	c.broker.mutex.Lock()
	defer c.broker.mutex.Unlock()

	if c.closed {
		return nil, ErrConnectionClosed
	}

	if err := c.broker.failure(OpSubscribe); err != nil {
		return nil, err
	}

	return &inbox{conn: c, destination: destination, id: id}, nil
}

func (c *Conn) Ack(f *queue.Frame) error {
	return c.settle(OpAck, f)
}

func (c *Conn) Nack(f *queue.Frame) error {
	return c.settle(OpNack, f)
}

func (c *Conn) settle(op string, f *queue.Frame) error {
	d, ok := f.Handle.(delivery)
	if !ok || d.conn != c {
		return queue.ErrForeignFrame
	}

	c.broker.mutex.Lock()
	defer c.broker.mutex.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	if err := c.broker.failure(op); err != nil {
		return err
	}

	s, ok := c.inflight[d.id]
	if !ok {
		return nil
	}

	if op == OpAck {
		settled := []string{d.id}
		if c.broker.cumulativeAck {
			settled = c.deliveredUpTo(d.id)
		}

		for _, id := range settled {
			c.forget(id)
			c.broker.acked = append(c.broker.acked, id)
		}

		return nil
	}

	c.forget(d.id)

	c.broker.nacked = append(c.broker.nacked, d.id)
	c.broker.requeue([]*stored{s})

	return nil
}

func (c *Conn) Disconnect() error {
	c.broker.mutex.Lock()
	defer c.broker.mutex.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	c.close()

	return c.broker.failure(OpDisconnect)
}

func (c *Conn) close() {
	if c.closed {
		return
	}

	frames := make([]*stored, 0, len(c.order))
	for _, id := range c.order {
		frames = append(frames, c.inflight[id])
	}

	c.broker.requeue(frames)
	c.inflight = make(map[string]*stored)
	c.order = nil
	c.closed = true
}

// deliveredUpTo returns the in-flight ids delivered before id, followed by id.
func (c *Conn) deliveredUpTo(id string) []string {
	for i, v := range c.order {
		if v == id {
			return append([]string(nil), c.order[:i+1]...)
		}
	}

	return []string{id}
}

func (c *Conn) forget(id string) {
	delete(c.inflight, id)

	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)

			break
		}
	}
}

func (in *inbox) Active() bool {
	in.conn.broker.mutex.Lock()
	defer in.conn.broker.mutex.Unlock()

	return !in.conn.closed
}

// Read never waits: an idle destination returns immediately so tests do not pay the read timeout.
func (in *inbox) Read(ctx context.Context, _ time.Duration) (*queue.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := in.conn.broker

	b.mutex.Lock()
	defer b.mutex.Unlock()

	if in.conn.closed {
		return nil, ErrConnectionClosed
	}

	if err := b.failure(OpRead); err != nil {
		return nil, err
	}

	if b.skipReads > 0 {
		b.skipReads--

		return nil, nil
	}

	queued := b.pending[in.destination]
	if len(queued) == 0 {
		return nil, nil
	}

	s := queued[0]
	b.pending[in.destination] = queued[1:]

	header := s.header.Clone()
	header.Set(queue.HeaderMessageID, s.id)
	header.Set(queue.HeaderDestination, s.destination)
	header.Set(queue.HeaderSubscription, in.id)
	if s.contentType != "" {
		header.Set(queue.HeaderContentType, s.contentType)
	}
	if s.delivered {
		header.Set(queue.HeaderRedelivered, "true")
	}

	s.delivered = true
	in.conn.inflight[s.id] = s
	in.conn.order = append(in.conn.order, s.id)

	return &queue.Frame{
		Header: header,
		Body:   append([]byte(nil), s.body...),
		Handle: delivery{conn: in.conn, id: s.id},
	}, nil
}
