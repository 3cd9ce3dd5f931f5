package node

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/dispatchmesh/dispatch/pkg/dispatchresult"
	"github.com/dispatchmesh/dispatch/pkg/invoke"
	"github.com/dispatchmesh/dispatch/pkg/multiplex"
	"github.com/dispatchmesh/dispatch/pkg/registry"
	"github.com/dispatchmesh/dispatch/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderPlaced struct {
	OrderID string
}

type recordingHandler struct {
	result dispatchresult.DispatchResult
	err    error
	calls  *int
}

func (h *recordingHandler) Handle(ctx context.Context, data *dispatchresult.DispatchData) (dispatchresult.DispatchResult, error) {
	if h.calls != nil {
		*h.calls++
	}
	if h.err != nil {
		return nil, h.err
	}
	return h.result, nil
}

func newLocalDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := transport.ReconnectionConfig{InitialInterval: 10 * time.Millisecond, MaxInterval: 50 * time.Millisecond}
	ep, err := transport.Listen(ctx, transport.EndPointConfig{ListenAddr: "127.0.0.1:0", Reconnect: cfg})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ep.Close() })

	mux := multiplex.New(ctx, ep)
	return New(ctx, mux, ep.Address(), nil, nil)
}

func TestDispatchLocalPointToPointReturnsFirstNonFailure(t *testing.T) {
	d := newLocalDispatcher(t)
	calls := 0
	d.RegisterHandler(reflect.TypeOf(orderPlaced{}), func(any) (any, error) {
		return &recordingHandler{result: dispatchresult.NewSuccess("handled", nil), calls: &calls}, nil
	}, nil)

	data, err := dispatchresult.NewDispatchData(orderPlaced{OrderID: "o-1"})
	require.NoError(t, err)

	result, err := d.Dispatch(context.Background(), data, false, NoScope())
	require.NoError(t, err)
	assert.True(t, result.IsSuccess())
	assert.Equal(t, 1, calls)
}

func TestDispatchLocalPointToPointNoHandlerIsDispatchFailure(t *testing.T) {
	d := newLocalDispatcher(t)
	data, err := dispatchresult.NewDispatchData(orderPlaced{OrderID: "o-2"})
	require.NoError(t, err)

	result := d.DispatchLocal(context.Background(), data, false)
	_, ok := result.(dispatchresult.DispatchFailure)
	assert.True(t, ok)
}

func TestDispatchPublishAggregatesAllHandlers(t *testing.T) {
	d := newLocalDispatcher(t)
	var calls1, calls2 int
	d.RegisterHandler(reflect.TypeOf(orderPlaced{}), func(any) (any, error) {
		return &recordingHandler{result: dispatchresult.NewSuccess("h1", nil), calls: &calls1}, nil
	}, nil, registry.WithPublishOnly(true))
	d.RegisterHandler(reflect.TypeOf(orderPlaced{}), func(any) (any, error) {
		return &recordingHandler{result: dispatchresult.NewSuccess("h2", nil), calls: &calls2}, nil
	}, nil, registry.WithPublishOnly(true))

	data, err := dispatchresult.NewDispatchData(orderPlaced{OrderID: "o-3"})
	require.NoError(t, err)

	result := d.DispatchLocal(context.Background(), data, true)
	agg, ok := result.(dispatchresult.Aggregate)
	require.True(t, ok)
	assert.True(t, agg.IsSuccess())
	assert.Len(t, agg.Children, 2)
	assert.Equal(t, 1, calls1)
	assert.Equal(t, 1, calls2)
}

func TestDispatchPublishWithNoHandlersIsSuccess(t *testing.T) {
	d := newLocalDispatcher(t)
	data, err := dispatchresult.NewDispatchData(orderPlaced{OrderID: "o-4"})
	require.NoError(t, err)

	result := d.DispatchLocal(context.Background(), data, true)
	assert.True(t, result.IsSuccess())
}

func TestDispatchLocalHandlerErrorConvertsToFailure(t *testing.T) {
	d := newLocalDispatcher(t)
	d.RegisterHandler(reflect.TypeOf(orderPlaced{}), func(any) (any, error) {
		return &recordingHandler{err: errors.New("boom")}, nil
	}, nil)

	data, err := dispatchresult.NewDispatchData(orderPlaced{OrderID: "o-5"})
	require.NoError(t, err)

	result := d.DispatchLocal(context.Background(), data, false)
	assert.False(t, result.IsSuccess())
	assert.Contains(t, result.Message(), "boom")
}

func TestDispatchLocalValidationShortcutOnlyRunsValidationHandlers(t *testing.T) {
	d := newLocalDispatcher(t)
	var businessCalls, validationCalls int
	d.RegisterHandler(reflect.TypeOf(orderPlaced{}), func(any) (any, error) {
		return &recordingHandler{result: dispatchresult.NewSuccess("handled", nil), calls: &businessCalls}, nil
	}, nil)
	d.RegisterHandler(reflect.TypeOf(orderPlaced{}), func(any) (any, error) {
		return &recordingHandler{result: dispatchresult.NewSuccess("validated", nil), calls: &validationCalls}, nil
	}, nil, registry.WithCallOnValidation(true))

	inner, err := dispatchresult.NewDispatchData(orderPlaced{OrderID: "o-6"})
	require.NoError(t, err)
	vm := invoke.NewValidateMessage(inner.Message())

	vmData, err := dispatchresult.NewDispatchData(vm)
	require.NoError(t, err)

	result := d.DispatchLocal(context.Background(), vmData, false)
	assert.True(t, result.IsSuccess())
	assert.Equal(t, 0, businessCalls, "the non-validation handler must not run on a validation dispatch")
	assert.Equal(t, 1, validationCalls, "the callOnValidation-flagged handler must run")
}

func TestDispatchRemoteRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := transport.ReconnectionConfig{InitialInterval: 10 * time.Millisecond, MaxInterval: 50 * time.Millisecond}
	epA, err := transport.Listen(ctx, transport.EndPointConfig{ListenAddr: "127.0.0.1:0", Reconnect: cfg})
	require.NoError(t, err)
	defer epA.Close()
	epB, err := transport.Listen(ctx, transport.EndPointConfig{ListenAddr: "127.0.0.1:0", Reconnect: cfg})
	require.NoError(t, err)
	defer epB.Close()

	muxA := multiplex.New(ctx, epA)
	muxB := multiplex.New(ctx, epB)

	typeRegistry := dispatchresult.NewTypeRegistry()
	typeRegistry.Register(orderPlaced{})

	dispA := New(ctx, muxA, epA.Address(), nil, typeRegistry)
	dispB := New(ctx, muxB, epB.Address(), nil, typeRegistry)

	var calls int
	dispB.RegisterHandler(reflect.TypeOf(orderPlaced{}), func(any) (any, error) {
		return &recordingHandler{result: dispatchresult.NewSuccessValue("remote-ok", 42, nil), calls: &calls}, nil
	}, nil)

	data, err := dispatchresult.NewDispatchData(orderPlaced{OrderID: "remote-1"})
	require.NoError(t, err)

	dispatchCtx, dispatchCancel := context.WithTimeout(ctx, 5*time.Second)
	defer dispatchCancel()
	result, err := dispA.Dispatch(dispatchCtx, data, false, NewScope(epB.Address()))
	require.NoError(t, err)
	require.True(t, result.IsSuccess())
	assert.Equal(t, 1, calls)

	sv, ok := result.(dispatchresult.SuccessValue)
	require.True(t, ok)
	assert.EqualValues(t, 42, sv.Value)
}

func TestDispatchRemoteTimesOutWithoutAResponse(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := transport.ReconnectionConfig{InitialInterval: 10 * time.Millisecond, MaxInterval: 50 * time.Millisecond}
	epA, err := transport.Listen(ctx, transport.EndPointConfig{ListenAddr: "127.0.0.1:0", Reconnect: cfg})
	require.NoError(t, err)
	defer epA.Close()
	epB, err := transport.Listen(ctx, transport.EndPointConfig{ListenAddr: "127.0.0.1:0", Reconnect: cfg})
	require.NoError(t, err)
	defer epB.Close()

	muxA := multiplex.New(ctx, epA)
	muxB := multiplex.New(ctx, epB)

	dispA := New(ctx, muxA, epA.Address(), nil, nil)
	// dispB registers no handler for orderPlaced, so its DispatchLocal will
	// return DispatchFailure, but we only exercise A's own Done() path by
	// using an already-expired deadline so A never even waits for a reply.
	_ = New(ctx, muxB, epB.Address(), nil, nil)

	data, err := dispatchresult.NewDispatchData(orderPlaced{OrderID: "timeout-1"})
	require.NoError(t, err)

	dispatchCtx, dispatchCancel := context.WithTimeout(ctx, 1*time.Nanosecond)
	defer dispatchCancel()
	time.Sleep(time.Millisecond)

	result, err := dispA.Dispatch(dispatchCtx, data, false, NewScope(epB.Address()))
	require.NoError(t, err)
	_, ok := result.(dispatchresult.Timeout)
	assert.True(t, ok)
}
