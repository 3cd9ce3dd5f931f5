package dispatchresult

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, result DispatchResult) DispatchResult {
	t.Helper()
	codec := NewResultCodec()
	var buf bytes.Buffer
	require.NoError(t, codec.Encode(&buf, result))
	decoded, err := codec.Decode(&buf)
	require.NoError(t, err)
	return decoded
}

func TestCodecRoundTripsSuccess(t *testing.T) {
	d := NewData()
	d.Set("k", "v")
	decoded := roundTrip(t, NewSuccess("done", d))

	s, ok := decoded.(Success)
	require.True(t, ok)
	assert.True(t, s.IsSuccess())
	assert.Equal(t, "done", s.Message())
	assert.Equal(t, "v", s.Data().GetOrNil("k"))
}

func TestCodecRoundTripsSuccessValue(t *testing.T) {
	decoded := roundTrip(t, NewSuccessValue("ok", "payload", nil))
	sv, ok := decoded.(SuccessValue)
	require.True(t, ok)
	assert.Equal(t, "payload", sv.Value)
}

func TestCodecRoundTripsFailureWithCause(t *testing.T) {
	decoded := roundTrip(t, NewFailure("", errors.New("disk full"), nil))
	f, ok := decoded.(Failure)
	require.True(t, ok)
	assert.Equal(t, "disk full", f.Message())
	require.Error(t, f.Cause)
	assert.Equal(t, "disk full", f.Cause.Error())
}

func TestCodecRoundTripsValidationFailure(t *testing.T) {
	decoded := roundTrip(t, NewValidationFailure("bad input", []string{"Name", "Age"}, nil))
	vf, ok := decoded.(ValidationFailure)
	require.True(t, ok)
	assert.Equal(t, []string{"Name", "Age"}, vf.FailedFields)
}

func TestCodecRoundTripsEntityNotFound(t *testing.T) {
	decoded := roundTrip(t, NewEntityNotFound("", "order-42", nil))
	nf, ok := decoded.(EntityNotFound)
	require.True(t, ok)
	assert.Equal(t, "order-42", nf.EntityID)
}

func TestCodecRoundTripsAggregate(t *testing.T) {
	agg := NewAggregate([]DispatchResult{
		NewSuccess("first", nil),
		NewFailure("second failed", nil, nil),
	})
	decoded := roundTrip(t, agg)
	out, ok := decoded.(Aggregate)
	require.True(t, ok)
	assert.False(t, out.IsSuccess())
	require.Len(t, out.Children, 2)
	assert.True(t, out.Children[0].IsSuccess())
	assert.False(t, out.Children[1].IsSuccess())
}

func TestCodecRoundTripsNotFoundTimeoutDispatchFailure(t *testing.T) {
	assert.False(t, roundTrip(t, NewNotFound("", nil)).IsSuccess())
	assert.False(t, roundTrip(t, NewTimeout("", nil)).IsSuccess())
	assert.False(t, roundTrip(t, NewDispatchFailure("", errors.New("rpc error"), nil)).IsSuccess())
}
