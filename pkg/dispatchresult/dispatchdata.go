package dispatchresult

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrInvalidMessage is returned when a DispatchData is built from a message
// that fails the reference-typed-message invariant (see DispatchData).
var ErrInvalidMessage = errors.New("dispatchresult: invalid message")

// DispatchData is the immutable envelope an application hands to the
// dispatcher: a declared message type, the message value itself, and an
// arbitrary string-keyed auxiliary map. It is never mutated in place;
// DispatchDataBuilder produces a fresh instance for every change.
//
// Invariant: message must be non-nil and messageType must not be a
// function, channel, or unsafe-pointer type. The source spec (written
// against a CLR, where "reference type" excludes structs) additionally
// forbids plain value (struct) message types; Go has no such distinction
// at the language level; one routinely dispatches plain strings and
// structs by value (see the round-trip scenario: dispatch("hello")).
// This port therefore narrows the rule to what Go actually needs to
// reject: nil messages, and function/channel/unsafe.Pointer message
// types, which cannot sensibly be routed by type.
type DispatchData struct {
	messageType reflect.Type
	message     any
	data        *Data
}

// NewDispatchData validates message and constructs a DispatchData carrying
// it, with messageType taken from message's dynamic type. Use
// NewDispatchDataBuilder to additionally attach auxiliary data.
func NewDispatchData(message any) (*DispatchData, error) {
	return NewDispatchDataBuilder().WithMessage(message).Build()
}

// MessageType returns the declared type of the dispatched message.
func (d *DispatchData) MessageType() reflect.Type { return d.messageType }

// Message returns the dispatched message value.
func (d *DispatchData) Message() any { return d.message }

// Data returns the auxiliary string-keyed map attached to this dispatch.
// The returned Data must not be mutated; use DispatchDataBuilder to derive
// a DispatchData with different auxiliary data.
func (d *DispatchData) Data() *Data { return d.data }

func validateMessageType(t reflect.Type) error {
	if t == nil {
		return fmt.Errorf("%w: nil message type", ErrInvalidMessage)
	}
	switch t.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return fmt.Errorf("%w: %s is not a routable message type", ErrInvalidMessage, t.Kind())
	}
	return nil
}

// DispatchDataBuilder constructs a DispatchData through a series of
// With* calls, each returning the same builder for chaining, finished by
// Build. It is the only supported way to produce a DispatchData whose
// fields differ from a prior instance.
type DispatchDataBuilder struct {
	message     any
	messageType reflect.Type
	data        *Data
	err         error
}

// NewDispatchDataBuilder returns an empty builder.
func NewDispatchDataBuilder() *DispatchDataBuilder {
	return &DispatchDataBuilder{data: NewData()}
}

// WithMessage sets the message and its declared type (the message's own
// dynamic type). Use WithMessageType afterwards to declare a different,
// assignable base type.
func (b *DispatchDataBuilder) WithMessage(message any) *DispatchDataBuilder {
	if message == nil {
		b.err = fmt.Errorf("%w: nil message", ErrInvalidMessage)
		return b
	}
	b.message = message
	b.messageType = reflect.TypeOf(message)
	return b
}

// WithMessageType overrides the declared message type with base, which
// must be assignable from the message's dynamic type (e.g. an interface
// the message implements, or a base type in a descent hierarchy modelled
// via embedding).
func (b *DispatchDataBuilder) WithMessageType(base reflect.Type) *DispatchDataBuilder {
	if b.message == nil {
		b.err = fmt.Errorf("%w: WithMessageType called before WithMessage", ErrInvalidMessage)
		return b
	}
	if !reflect.TypeOf(b.message).AssignableTo(base) {
		b.err = fmt.Errorf("%w: %s is not assignable to %s", ErrInvalidMessage, reflect.TypeOf(b.message), base)
		return b
	}
	b.messageType = base
	return b
}

// WithValue attaches an auxiliary key/value pair.
func (b *DispatchDataBuilder) WithValue(key string, value any) *DispatchDataBuilder {
	b.data.Set(key, value)
	return b
}

// WithData replaces the builder's auxiliary data wholesale.
func (b *DispatchDataBuilder) WithData(data *Data) *DispatchDataBuilder {
	if data == nil {
		b.data = NewData()
	} else {
		b.data = data.Clone()
	}
	return b
}

// Build validates and returns the constructed DispatchData.
func (b *DispatchDataBuilder) Build() (*DispatchData, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := validateMessageType(b.messageType); err != nil {
		return nil, err
	}
	return &DispatchData{
		messageType: b.messageType,
		message:     b.message,
		data:        b.data.Clone(),
	}, nil
}

// WithMessageType returns a new DispatchData derived from d but declaring
// base as the message type (see DispatchDataBuilder.WithMessageType).
func (d *DispatchData) WithMessageType(base reflect.Type) (*DispatchData, error) {
	return NewDispatchDataBuilder().WithMessage(d.message).WithMessageType(base).WithData(d.data).Build()
}

// WithValue returns a new DispatchData derived from d with key set to
// value in its auxiliary data.
func (d *DispatchData) WithValue(key string, value any) (*DispatchData, error) {
	b := NewDispatchDataBuilder().WithMessage(d.message).WithData(d.data).WithValue(key, value)
	b.messageType = d.messageType
	return b.Build()
}
