package dispatchresult

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingMessage struct{ N int }

func TestNewDispatchDataFromString(t *testing.T) {
	dd, err := NewDispatchData("hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", dd.Message())
	assert.Equal(t, reflect.TypeOf(""), dd.MessageType())
	assert.Equal(t, 0, dd.Data().Len())
}

func TestNewDispatchDataRejectsNilMessage(t *testing.T) {
	_, err := NewDispatchData(nil)
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestNewDispatchDataRejectsFuncMessage(t *testing.T) {
	_, err := NewDispatchData(func() {})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestBuilderWithValueAndWithMessageType(t *testing.T) {
	dd, err := NewDispatchDataBuilder().
		WithMessage(pingMessage{N: 1}).
		WithValue("traceID", "abc").
		Build()
	require.NoError(t, err)
	assert.Equal(t, pingMessage{N: 1}, dd.Message())
	v, ok := dd.Data().Get("traceID")
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	widened, err := dd.WithMessageType(reflect.TypeOf((*any)(nil)).Elem())
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf((*any)(nil)).Elem(), widened.MessageType())
	// Auxiliary data carries over.
	v, ok = widened.Data().Get("traceID")
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
}

func TestWithMessageTypeRejectsNonAssignableBase(t *testing.T) {
	dd, err := NewDispatchData(pingMessage{N: 1})
	require.NoError(t, err)

	_, err = dd.WithMessageType(reflect.TypeOf(""))
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestDispatchDataWithValueReturnsNewInstance(t *testing.T) {
	dd, err := NewDispatchData("hello")
	require.NoError(t, err)

	next, err := dd.WithValue("k", "v")
	require.NoError(t, err)

	_, ok := dd.Data().Get("k")
	assert.False(t, ok, "original DispatchData must be unmodified")
	v, ok := next.Data().Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}
