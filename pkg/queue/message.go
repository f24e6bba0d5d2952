package queue

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/go-stomp/stomp/v3/frame"
)

const (
	HeaderMessageID      = "message-id"
	HeaderDestination    = "destination"
	HeaderSubscription   = "subscription"
	HeaderRedelivered    = "redelivered"
	HeaderContentType    = "content-type"
	HeaderPersistent     = "persistent"
	HeaderTransformation = "transformation"
	HeaderClientID       = "client-id"
	HeaderDurableName    = "activemq.subscriptionName"

	// TransformationMap marks a body holding a JSON encoded key-value map.
	TransformationMap = "jms-map-json"

	contentTypeText = "text/plain"
)

// Message is an outgoing STOMP message.
type Message struct {
	ContentType string
	Body        []byte
	Header      *frame.Header
}

// NewTextMessage creates a text message.
func NewTextMessage(body string) *Message {
	return &Message{
		ContentType: contentTypeText,
		Body:        []byte(body),
		Header:      frame.NewHeader(),
	}
}

// NewMapMessage creates a key-value message. The value is JSON encoded and flagged
// with the jms-map-json transformation header.
func NewMapMessage(value any) (*Message, error) {
	body, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("could not marshal map message: %w", err)
	}

	return &Message{
		ContentType: contentTypeText,
		Body:        body,
		Header:      frame.NewHeader(HeaderTransformation, TransformationMap),
	}, nil
}

// AddHeader sets a header on the message, replacing any previous value.
func (m *Message) AddHeader(key, value string) {
	if m.Header == nil {
		m.Header = frame.NewHeader()
	}

	m.Header.Set(key, value)
}

func (m *Message) clone() *Message {
	c := *m
	if m.Header != nil {
		c.Header = m.Header.Clone()
	}

	return &c
}

// EncodeMessage converts a payload into a wire message: scalars become text messages,
// maps, slices and structs become map messages and messages are copied with their own header.
func EncodeMessage(data any) (*Message, error) {
	switch v := data.(type) {
	case *Message:
		if v == nil {
			return nil, fmt.Errorf("%w: nil message", ErrUnsupportedPayload)
		}
		return v.clone(), nil
	case Message:
		return v.clone(), nil
	case string:
		return NewTextMessage(v), nil
	case []byte:
		return NewTextMessage(string(v)), nil
	case bool:
		return NewTextMessage(strconv.FormatBool(v)), nil
	case fmt.Stringer:
		return NewTextMessage(v.String()), nil
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrUnsupportedPayload)
	}

	rv := reflect.ValueOf(data)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return NewTextMessage(fmt.Sprint(rv.Interface())), nil
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return NewMapMessage(data)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedPayload, data)
	}
}

// Frame is a MESSAGE frame delivered to a subscription.
type Frame struct {
	Header *frame.Header
	Body   []byte

	// Handle is the transport specific value needed to acknowledge the frame.
	Handle any
}

func (f *Frame) header(key string) string {
	if f == nil || f.Header == nil {
		return ""
	}

	return f.Header.Get(key)
}

func (f *Frame) MessageID() string    { return f.header(HeaderMessageID) }
func (f *Frame) Destination() string  { return f.header(HeaderDestination) }
func (f *Frame) Subscription() string { return f.header(HeaderSubscription) }
func (f *Frame) ContentType() string  { return f.header(HeaderContentType) }

// Redelivered reports whether the broker has delivered the frame before.
func (f *Frame) Redelivered() bool {
	return f.header(HeaderRedelivered) == "true"
}

// IsMap reports whether the frame carries a key-value map.
func (f *Frame) IsMap() bool {
	return f.header(HeaderTransformation) == TransformationMap
}

// DecodeFrame returns the payload carried by the frame: map frames decode to their
// key-value structure, text frames to a string and anything else to the raw body.
func DecodeFrame(f *Frame) (any, error) {
	switch {
	case f.IsMap():
		var value any
		if err := json.Unmarshal(f.Body, &value); err != nil {
			return nil, fmt.Errorf("could not unmarshal map frame %s: %w", f.MessageID(), err)
		}
		return value, nil
	case isText(f.ContentType()):
		return string(f.Body), nil
	default:
		return f.Body, nil
	}
}

func isText(contentType string) bool {
	if contentType == "" {
		return true
	}

	return len(contentType) >= 5 && contentType[:5] == "text/"
}

// Item is a claimed unit of work. It is owned by the claimer until it is deleted or released.
type Item struct {
	ID          string
	Data        any
	Redelivered bool
	Frame       *Frame
}

// toItem always returns an item. When the body cannot be decoded the item carries the
// raw body and the decode error is returned alongside it.
func toItem(f *Frame) (*Item, error) {
	item := &Item{
		ID:          f.MessageID(),
		Redelivered: f.Redelivered(),
		Frame:       f,
	}

	data, err := DecodeFrame(f)
	if err != nil {
		item.Data = f.Body

		return item, err
	}

	item.Data = data

	return item, nil
}
