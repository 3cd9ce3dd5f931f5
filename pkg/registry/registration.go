// Package registry implements the handler registry: an immutable,
// atomically-swapped snapshot of HandlerRegistrations queried by message
// type, with route-descent ordering (most-derived tier first,
// registration order within a tier).
package registry

import "reflect"

// Factory builds a handler instance for a single invocation. resolver is
// whatever scoped service lookup the caller's dependency graph provides;
// the registry itself is agnostic to its shape.
type Factory func(resolver any) (any, error)

// Registration is an immutable (messageType, configuration, factory)
// tuple. Two Registrations are never compared for equality by value;
// Unregister matches by identity (the pointer returned by NewRegistration
// and passed to Register).
type Registration struct {
	// MessageType is the declared type this registration handles. A
	// dispatch for a concrete message type T matches a registration
	// whose MessageType is T itself or a type/interface T is
	// AssignableTo (a "base tier" in route-descent terms).
	MessageType reflect.Type

	// Factory constructs the handler for a single invocation.
	Factory Factory

	// config holds opaque option keys, including the two the registry
	// core interprets itself (see WithPublishOnly, WithCallOnValidation).
	config map[string]any

	order int // registration sequence, for stable ordering within a tier
}

// Option mutates a Registration's configuration before it is registered.
type Option func(*Registration)

// WithPublishOnly marks a registration as excluded from point-to-point
// (non-publish) dispatch; it is only ever invoked as part of a publish.
func WithPublishOnly(publishOnly bool) Option {
	return func(r *Registration) { r.config["publishOnly"] = publishOnly }
}

// WithCallOnValidation marks a registration as one that runs when the
// dispatched message is a Validate<T> wrapper; registrations without the
// flag are not invoked for a validation dispatch.
func WithCallOnValidation(callOnValidation bool) Option {
	return func(r *Registration) { r.config["callOnValidation"] = callOnValidation }
}

// WithOption attaches an arbitrary opaque key/value the core does not
// interpret but preserves and exposes via Registration.Option.
func WithOption(key string, value any) Option {
	return func(r *Registration) { r.config[key] = value }
}

// NewRegistration builds a Registration for messageType, applying opts.
func NewRegistration(messageType reflect.Type, factory Factory, opts ...Option) *Registration {
	r := &Registration{MessageType: messageType, Factory: factory, config: make(map[string]any)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Option returns the configured value for key and whether it was set.
func (r *Registration) Option(key string) (any, bool) {
	v, ok := r.config[key]
	return v, ok
}

// PublishOnly reports whether this registration is excluded from
// point-to-point dispatch.
func (r *Registration) PublishOnly() bool {
	v, _ := r.config["publishOnly"]
	b, _ := v.(bool)
	return b
}

// CallOnValidation reports whether this registration runs during
// validation dispatch.
func (r *Registration) CallOnValidation() bool {
	v, _ := r.config["callOnValidation"]
	b, _ := v.(bool)
	return b
}
