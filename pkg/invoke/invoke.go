// Package invoke runs the handler chain for a single dispatch: it
// instantiates the handler from its registration's factory, wraps the
// call in the registration's processor chain, injects dispatch context
// into handlers that declare one, and converts panics/errors raised
// anywhere in the chain into a Failure result rather than letting them
// escape to the dispatcher.
package invoke

import (
	"context"
	"fmt"
	"reflect"

	"github.com/dispatchmesh/dispatch/pkg/dispatchresult"
	"github.com/dispatchmesh/dispatch/pkg/registry"
)

// Handler is satisfied by any value the registry's factory produces.
// Handle receives the dispatch data and returns a result; a handler that
// needs the scoped MessageDispatchContext implements ContextAware.
type Handler interface {
	Handle(ctx context.Context, data *dispatchresult.DispatchData) (dispatchresult.DispatchResult, error)
}

// ContextAware is implemented by handlers that want the dispatcher to
// inject a MessageDispatchContext before Handle runs. This mirrors the
// source's reflective "designated context property" mechanism, expressed
// in Go as an interface rather than attribute-driven field injection.
type ContextAware interface {
	SetDispatchContext(MessageDispatchContext)
}

// MessageDispatchContext carries per-invocation ambient facts a handler
// may want without threading them through every call.
type MessageDispatchContext struct {
	Resolver        any
	Data            *dispatchresult.DispatchData
	IsPublish       bool
	IsLocalDispatch bool
	RemoteScope     string
}

// Processor wraps a single handler invocation. It may call next to run
// the remainder of the chain (including the handler itself) or return a
// result directly, short-circuiting everything after it.
type Processor func(ctx context.Context, data *dispatchresult.DispatchData, next Next) (dispatchresult.DispatchResult, error)

// Next invokes the remainder of the processor chain.
type Next func(ctx context.Context, data *dispatchresult.DispatchData) (dispatchresult.DispatchResult, error)

// ErrInvalidOperation mirrors the source's InvalidOperation exception for
// a null or wrong-type handler instance.
var ErrInvalidOperation = fmt.Errorf("invoke: handler factory produced a nil or non-assignable handler")

// Invoker runs one registration's full chain for one DispatchData.
type Invoker struct{}

// NewInvoker returns an Invoker.
func NewInvoker() *Invoker { return &Invoker{} }

// Invoke instantiates reg's handler via resolver, wraps it in processors
// (outermost first), and runs the chain against data. Any error returned
// by a processor or the handler, and any panic raised by either, is
// converted into a Failure rather than propagated.
func (inv *Invoker) Invoke(ctx context.Context, reg *registry.Registration, processors []Processor, data *dispatchresult.DispatchData, dctx MessageDispatchContext) (result dispatchresult.DispatchResult) {
	defer func() {
		if r := recover(); r != nil {
			result = dispatchresult.NewFailure("", fmt.Errorf("panic in handler chain: %v", r), nil)
		}
	}()

	handler, err := instantiate(reg, dctx.Resolver, data.MessageType())
	if err != nil {
		return dispatchresult.NewFailure("", err, nil)
	}
	if aware, ok := handler.(ContextAware); ok {
		aware.SetDispatchContext(dctx)
	}

	terminal := func(ctx context.Context, data *dispatchresult.DispatchData) (dispatchresult.DispatchResult, error) {
		return handler.Handle(ctx, data)
	}

	chain := terminal
	for i := len(processors) - 1; i >= 0; i-- {
		p := processors[i]
		next := chain
		chain = func(ctx context.Context, data *dispatchresult.DispatchData) (dispatchresult.DispatchResult, error) {
			return p(ctx, data, next)
		}
	}

	res, err := chain(ctx, data)
	if err != nil {
		return dispatchresult.NewFailure("", err, nil)
	}
	if res == nil {
		return dispatchresult.NewSuccess("", nil)
	}
	return res
}

// instantiate builds the handler and validates it against messageType,
// returning ErrInvalidOperation for a nil handler or one whose declared
// message type cannot accept messageType.
func instantiate(reg *registry.Registration, resolver any, messageType reflect.Type) (Handler, error) {
	raw, err := reg.Factory(resolver)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrInvalidOperation
	}
	handler, ok := raw.(Handler)
	if !ok {
		return nil, ErrInvalidOperation
	}
	if !messageType.AssignableTo(reg.MessageType) {
		return nil, ErrInvalidOperation
	}
	return handler, nil
}
