package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndDecodeAddressRoundTrip(t *testing.T) {
	for _, text := range []string{"127.0.0.1:9000", "[::1]:9000", "node-a.internal:4000"} {
		a, err := ParseAddress(text)
		require.NoError(t, err)
		assert.Equal(t, text, a.String())

		decoded, err := DecodeAddress(a.Bytes())
		require.NoError(t, err)
		assert.True(t, a.Equal(decoded))
	}
}

func TestParseAddressRejectsMissingPort(t *testing.T) {
	_, err := ParseAddress("127.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestAddressEqualityIsStructural(t *testing.T) {
	a, _ := ParseAddress("10.0.0.1:1")
	b, _ := ParseAddress("10.0.0.1:1")
	c, _ := ParseAddress("10.0.0.2:1")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestHostAndPort(t *testing.T) {
	a, err := ParseAddress("[::1]:9000")
	require.NoError(t, err)
	assert.Equal(t, "::1", a.Host())
	assert.Equal(t, "9000", a.Port())
}
