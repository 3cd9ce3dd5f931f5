package dispatchresult

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderPlaced struct {
	OrderID string
	Total   float64
}

func TestCodecRoundTripsKnownDataType(t *testing.T) {
	registry := NewTypeRegistry()
	registry.Register(orderPlaced{})

	dd, err := NewDispatchDataBuilder().WithMessage(orderPlaced{OrderID: "o-1", Total: 9.5}).WithValue("traceID", "abc").Build()
	require.NoError(t, err)

	codec := NewResultCodec()
	var buf bytes.Buffer
	require.NoError(t, codec.EncodeData(&buf, dd))

	decoded, err := codec.DecodeData(&buf, registry)
	require.NoError(t, err)
	assert.Equal(t, orderPlaced{OrderID: "o-1", Total: 9.5}, decoded.Message())
	assert.Equal(t, "abc", decoded.Data().GetOrNil("traceID"))
}

func TestCodecFallsBackToGenericForUnknownType(t *testing.T) {
	dd, err := NewDispatchData(orderPlaced{OrderID: "o-2"})
	require.NoError(t, err)

	codec := NewResultCodec()
	var buf bytes.Buffer
	require.NoError(t, codec.EncodeData(&buf, dd))

	decoded, err := codec.DecodeData(&buf, NewTypeRegistry())
	require.NoError(t, err)
	generic, ok := decoded.Message().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "o-2", generic["OrderID"])
}
