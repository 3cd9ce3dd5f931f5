package node

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dispatchmesh/dispatch/internal/logger"
	"github.com/dispatchmesh/dispatch/internal/telemetry"
	"github.com/dispatchmesh/dispatch/pkg/dispatchresult"
	"github.com/dispatchmesh/dispatch/pkg/invoke"
	"github.com/dispatchmesh/dispatch/pkg/metrics"
	"github.com/dispatchmesh/dispatch/pkg/multiplex"
	"github.com/dispatchmesh/dispatch/pkg/registry"
	"github.com/dispatchmesh/dispatch/pkg/wire"
)

// dispatchChannelName is the well-known multiplexer sub-endpoint name the
// Dispatcher sends and receives on.
const dispatchChannelName = "dispatch"

// Dispatcher is the public entry point applications dispatch through. It
// owns a HandlerRegistry, invokes handlers locally, and — for a non-local
// Scope — serialises the dispatch across a Multiplexer channel and
// correlates the remote peer's response.
type Dispatcher struct {
	localAddr    wire.Address
	registry     *registry.HandlerRegistry
	invoker      *invoke.Invoker
	resolver     any
	codec        *dispatchresult.ResultCodec
	typeResolver dispatchresult.TypeResolver
	channel      *multiplex.Channel
	metrics      metrics.DispatchMetrics

	procMu     sync.Mutex
	processors map[*registry.Registration][]invoke.Processor

	pendingMu       sync.Mutex
	pending         map[uint32]chan dispatchresult.DispatchResult
	nextCorrelation atomic.Uint32
}

// Option configures optional Dispatcher behavior at construction time.
type Option func(*Dispatcher)

// WithMetrics reports dispatch and handler instrumentation to m instead of
// discarding it.
func WithMetrics(m metrics.DispatchMetrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// New returns a Dispatcher bound to localAddr, sending and receiving
// remote dispatches on mux's "dispatch" channel. resolver is passed
// through to every handler invocation as the service resolver; typeResolver
// may be nil, in which case every remote message decodes generically.
func New(ctx context.Context, mux *multiplex.Multiplexer, localAddr wire.Address, resolver any, typeResolver dispatchresult.TypeResolver, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		localAddr:    localAddr,
		registry:     registry.NewHandlerRegistry(),
		invoker:      invoke.NewInvoker(),
		resolver:     resolver,
		codec:        dispatchresult.NewResultCodec(),
		typeResolver: typeResolver,
		channel:      mux.Channel(dispatchChannelName),
		metrics:      metrics.NoOp,
		processors:   make(map[*registry.Registration][]invoke.Processor),
		pending:      make(map[uint32]chan dispatchresult.DispatchResult),
	}
	for _, opt := range opts {
		opt(d)
	}
	go d.receiveLoop(ctx)
	return d
}

// RegisterHandler registers a handler factory for messageType, with its
// own processor chain (composed once per invocation from this slice, in
// order). It returns the Registration so the caller can Unregister it
// later.
func (d *Dispatcher) RegisterHandler(messageType reflect.Type, factory registry.Factory, processors []invoke.Processor, opts ...registry.Option) *registry.Registration {
	reg := registry.NewRegistration(messageType, factory, opts...)
	d.procMu.Lock()
	d.processors[reg] = processors
	d.procMu.Unlock()
	d.registry.Register(reg)
	return reg
}

// Unregister removes reg from the registry.
func (d *Dispatcher) Unregister(reg *registry.Registration) {
	d.registry.Unregister(reg)
	d.procMu.Lock()
	delete(d.processors, reg)
	d.procMu.Unlock()
}

func (d *Dispatcher) processorsFor(reg *registry.Registration) []invoke.Processor {
	d.procMu.Lock()
	defer d.procMu.Unlock()
	return d.processors[reg]
}

// GetLocalEndPoint returns the address this Dispatcher was constructed
// with.
func (d *Dispatcher) GetLocalEndPoint() wire.Address { return d.localAddr }

// GetScope returns the Scope identifying this Dispatcher's own end-point.
func (d *Dispatcher) GetScope() Scope { return NewScope(d.localAddr) }

// Dispatch routes data to scope. NoScope and a scope matching this
// Dispatcher's own address both route locally; any other scope is routed
// over the network via Dispatch's remote request/response protocol.
func (d *Dispatcher) Dispatch(ctx context.Context, data *dispatchresult.DispatchData, publish bool, scope Scope) (dispatchresult.DispatchResult, error) {
	remote := !scope.IsZero() && !scope.Address().Equal(d.localAddr)
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "dispatch.Dispatch")
	span.SetAttributes(
		attribute.String("dispatch.message_type", data.MessageType().String()),
		attribute.Bool("dispatch.publish", publish),
		attribute.Bool("dispatch.remote", remote),
	)
	defer span.End()

	var result dispatchresult.DispatchResult
	var err error
	if remote {
		result, err = d.dispatchRemote(ctx, data, publish, scope)
	} else {
		result = d.DispatchLocal(ctx, data, publish)
	}
	telemetry.RecordError(ctx, err)

	outcome := "error"
	if result != nil {
		outcome = resultOutcome(result)
	}
	span.SetAttributes(attribute.String("dispatch.outcome", outcome))
	d.metrics.DispatchCompleted(data.MessageType().String(), publish, remote, outcome, time.Since(start))
	return result, err
}

// resultOutcome names result's concrete variant for metrics labeling.
func resultOutcome(result dispatchresult.DispatchResult) string {
	switch result.(type) {
	case dispatchresult.Success:
		return "success"
	case dispatchresult.SuccessValue:
		return "success_value"
	case dispatchresult.Failure:
		return "failure"
	case dispatchresult.ValidationFailure:
		return "validation_failure"
	case dispatchresult.EntityNotFound:
		return "entity_not_found"
	case dispatchresult.EntityAlreadyPresent:
		return "entity_already_present"
	case dispatchresult.NotFound:
		return "not_found"
	case dispatchresult.DispatchFailure:
		return "dispatch_failure"
	case dispatchresult.Timeout:
		return "timeout"
	case dispatchresult.Aggregate:
		return "aggregate"
	default:
		return "unknown"
	}
}

// DispatchLocal routes data through the local registry only: point-to-
// point route descent, or a publish aggregate. A Validate<T> message (see
// invoke.ValidateMessage) is shunted to the validation-only path instead
// of invoking T's own handlers.
func (d *Dispatcher) DispatchLocal(ctx context.Context, data *dispatchresult.DispatchData, publish bool) dispatchresult.DispatchResult {
	dctx := invoke.MessageDispatchContext{Resolver: d.resolver, Data: data, IsPublish: publish, IsLocalDispatch: true}

	if vm, ok := data.Message().(invoke.ValidateMessage); ok {
		h := invoke.NewValidationMessageHandler(d.registry.Snapshot())
		result, err := h.Validate(ctx, vm, dctx, d.processorsFor)
		if err != nil {
			return dispatchresult.NewDispatchFailure("", err, nil)
		}
		return result
	}

	regs := d.registry.GetHandlers(data.MessageType())
	if publish {
		return d.dispatchPublish(ctx, regs, data, dctx)
	}
	return d.dispatchPointToPoint(ctx, regs, data, dctx)
}

// dispatchPointToPoint walks regs (already tier-ordered most-derived
// first) invoking each non-publishOnly registration until one returns a
// result other than DispatchFailure.
func (d *Dispatcher) dispatchPointToPoint(ctx context.Context, regs []*registry.Registration, data *dispatchresult.DispatchData, dctx invoke.MessageDispatchContext) dispatchresult.DispatchResult {
	for _, reg := range regs {
		if reg.PublishOnly() {
			continue
		}
		start := time.Now()
		result := d.invoker.Invoke(ctx, reg, d.processorsFor(reg), data, dctx)
		d.metrics.HandlerInvoked(data.MessageType().String(), resultOutcome(result), time.Since(start))
		if _, isDispatchFailure := result.(dispatchresult.DispatchFailure); !isDispatchFailure {
			return result
		}
	}
	return dispatchresult.NewDispatchFailure("", fmt.Errorf("no handler registered for %s", data.MessageType()), nil)
}

// dispatchPublish invokes every registration (including publishOnly ones)
// concurrently and returns their Aggregate, in the order of regs
// (most-derived tier first, registration order within a tier). An
// empty registration set is reported as Success, not DispatchFailure.
func (d *Dispatcher) dispatchPublish(ctx context.Context, regs []*registry.Registration, data *dispatchresult.DispatchData, dctx invoke.MessageDispatchContext) dispatchresult.DispatchResult {
	if len(regs) == 0 {
		return dispatchresult.NewSuccess("", nil)
	}

	results := make([]dispatchresult.DispatchResult, len(regs))
	var wg sync.WaitGroup
	for i, reg := range regs {
		wg.Add(1)
		go func(i int, reg *registry.Registration) {
			defer wg.Done()
			start := time.Now()
			result := d.invoker.Invoke(ctx, reg, d.processorsFor(reg), data, dctx)
			d.metrics.HandlerInvoked(data.MessageType().String(), resultOutcome(result), time.Since(start))
			results[i] = result
		}(i, reg)
	}
	wg.Wait()
	return dispatchresult.NewAggregate(results)
}

// dispatchRemote serialises data via the ResultCodec, sends it on the
// dispatch channel to scope's address tagged with a fresh correlation ID,
// and blocks for the matching response frame.
func (d *Dispatcher) dispatchRemote(ctx context.Context, data *dispatchresult.DispatchData, publish bool, scope Scope) (dispatchresult.DispatchResult, error) {
	corrID := d.nextCorrelation.Add(1)
	respCh := make(chan dispatchresult.DispatchResult, 1)

	d.pendingMu.Lock()
	d.pending[corrID] = respCh
	d.pendingMu.Unlock()
	defer func() {
		d.pendingMu.Lock()
		delete(d.pending, corrID)
		d.pendingMu.Unlock()
	}()

	var encoded bytes.Buffer
	if err := d.codec.EncodeData(&encoded, data); err != nil {
		return nil, err
	}
	buf := wire.NewBuffer()
	if err := buf.PushFrame(encoded.Bytes()); err != nil {
		return nil, err
	}
	if err := pushDispatchFrame(buf, dispatchFrame{kind: frameRequest, corrID: corrID, publish: publish}); err != nil {
		return nil, err
	}

	if err := d.channel.Send(ctx, scope.Address(), buf); err != nil {
		if _, hasDeadline := ctx.Deadline(); hasDeadline && ctx.Err() != nil {
			return dispatchresult.NewTimeout("", nil), nil
		}
		return nil, err
	}

	select {
	case result := <-respCh:
		return result, nil
	case <-ctx.Done():
		if _, hasDeadline := ctx.Deadline(); hasDeadline {
			return dispatchresult.NewTimeout("", nil), nil
		}
		return nil, ctx.Err()
	}
}

// receiveLoop reads every message arriving on the dispatch channel,
// dispatching remote requests to the local registry and completing
// correlation entries for responses.
func (d *Dispatcher) receiveLoop(ctx context.Context) {
	for {
		in, err := d.channel.Receive(ctx)
		if err != nil {
			return
		}
		frame, err := popDispatchFrame(in.Message)
		if err != nil {
			logger.Warn("dropping malformed dispatch frame", logger.RemoteAddr(in.Remote.String()), logger.Err(err))
			continue
		}
		payload, err := in.Message.PopFrame()
		if err != nil {
			continue
		}

		switch frame.kind {
		case frameRequest:
			go d.handleRemoteRequest(ctx, in.Remote, frame, payload.Payload)
		case frameResponse:
			d.completeCorrelation(frame.corrID, payload.Payload)
		}
	}
}

func (d *Dispatcher) handleRemoteRequest(ctx context.Context, remote wire.Address, frame dispatchFrame, raw []byte) {
	data, err := d.codec.DecodeData(bytes.NewReader(raw), d.typeResolver)
	var result dispatchresult.DispatchResult
	if err != nil {
		result = dispatchresult.NewDispatchFailure("", err, nil)
	} else {
		result = d.DispatchLocal(ctx, data, frame.publish)
	}

	var encoded bytes.Buffer
	if err := d.codec.Encode(&encoded, result); err != nil {
		logger.Warn("failed to encode remote dispatch response", logger.RemoteAddr(remote.String()), logger.Err(err))
		return
	}
	resp := wire.NewBuffer()
	if err := resp.PushFrame(encoded.Bytes()); err != nil {
		return
	}
	if err := pushDispatchFrame(resp, dispatchFrame{kind: frameResponse, corrID: frame.corrID}); err != nil {
		return
	}
	if err := d.channel.Send(ctx, remote, resp); err != nil {
		logger.Warn("failed to send remote dispatch response", logger.RemoteAddr(remote.String()), logger.Err(err))
	}
}

func (d *Dispatcher) completeCorrelation(corrID uint32, raw []byte) {
	d.pendingMu.Lock()
	ch, ok := d.pending[corrID]
	if ok {
		delete(d.pending, corrID)
	}
	d.pendingMu.Unlock()
	if !ok {
		return
	}

	result, err := d.codec.Decode(bytes.NewReader(raw))
	if err != nil {
		result = dispatchresult.NewDispatchFailure("", err, nil)
	}
	ch <- result
}
