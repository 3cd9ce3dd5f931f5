package registry

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type baseEvent interface{ isEvent() }

type orderPlaced struct{}

func (orderPlaced) isEvent() {}

var (
	baseEventType    = reflect.TypeOf((*baseEvent)(nil)).Elem()
	orderPlacedType  = reflect.TypeOf(orderPlaced{})
	noopFactory      = func(any) (any, error) { return struct{}{}, nil }
)

func TestGetHandlersOrdersMostDerivedFirst(t *testing.T) {
	reg := NewHandlerRegistry()
	base := NewRegistration(baseEventType, noopFactory)
	derived := NewRegistration(orderPlacedType, noopFactory)

	reg.Register(base)
	reg.Register(derived)

	got := reg.GetHandlers(orderPlacedType)
	require.Len(t, got, 2)
	assert.Same(t, derived, got[0])
	assert.Same(t, base, got[1])
}

func TestGetHandlersExcludesUnrelatedTiers(t *testing.T) {
	reg := NewHandlerRegistry()
	reg.Register(NewRegistration(reflect.TypeOf(""), noopFactory))

	got := reg.GetHandlers(orderPlacedType)
	assert.Empty(t, got)
}

func TestGetHandlersPreservesRegistrationOrderWithinTier(t *testing.T) {
	reg := NewHandlerRegistry()
	first := NewRegistration(orderPlacedType, noopFactory)
	second := NewRegistration(orderPlacedType, noopFactory)
	reg.Register(first)
	reg.Register(second)

	got := reg.GetHandlers(orderPlacedType)
	require.Len(t, got, 2)
	assert.Same(t, first, got[0])
	assert.Same(t, second, got[1])
}

func TestUnregisterRemovesRegistrationAndPublishesSnapshot(t *testing.T) {
	reg := NewHandlerRegistry()
	r := NewRegistration(orderPlacedType, noopFactory)
	reg.Register(r)
	require.Len(t, reg.GetHandlers(orderPlacedType), 1)

	reg.Unregister(r)
	assert.Empty(t, reg.GetHandlers(orderPlacedType))
}

func TestSnapshotIsImmutableAcrossMutation(t *testing.T) {
	reg := NewHandlerRegistry()
	before := reg.Snapshot()
	reg.Register(NewRegistration(orderPlacedType, noopFactory))

	assert.Empty(t, before.GetHandlers(orderPlacedType))
	assert.Len(t, reg.Snapshot().GetHandlers(orderPlacedType), 1)
}

func TestPublishOnlyAndCallOnValidationOptions(t *testing.T) {
	r := NewRegistration(orderPlacedType, noopFactory, WithPublishOnly(true), WithCallOnValidation(true))
	assert.True(t, r.PublishOnly())
	assert.True(t, r.CallOnValidation())
}

func TestChangesChannelFiresOnMutation(t *testing.T) {
	reg := NewHandlerRegistry()
	ch := reg.Changes()

	reg.Register(NewRegistration(orderPlacedType, noopFactory))

	select {
	case <-ch:
	default:
		t.Fatal("expected Changes channel to be closed after Register")
	}
}
