package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopBasics(t *testing.T) {
	b := NewBuffer()
	assert.Equal(t, -1, b.FrameIndex())

	require.NoError(t, b.PushFrame([]byte("one")))
	require.NoError(t, b.PushFrame([]byte("two")))
	assert.Equal(t, 1, b.FrameIndex())

	f, err := b.PopFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), f.Payload)
	assert.Equal(t, 0, b.FrameIndex())

	f, err = b.PopFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), f.Payload)
	assert.Equal(t, -1, b.FrameIndex())
}

func TestPopUnderflow(t *testing.T) {
	b := NewBuffer()
	_, err := b.PopFrame()
	assert.ErrorIs(t, err, ErrUnderflow)
}

func TestPushTrimsFramesAboveCursor(t *testing.T) {
	b := NewBuffer()
	require.NoError(t, b.PushFrame([]byte("a")))
	require.NoError(t, b.PushFrame([]byte("b")))
	require.NoError(t, b.PushFrame([]byte("c")))

	_, err := b.PopFrame() // cursor now at "b"
	require.NoError(t, err)
	assert.Equal(t, 3, b.Len()) // "c" still physically present

	require.NoError(t, b.PushFrame([]byte("d")))
	assert.Equal(t, 3, b.Len()) // "c" discarded, "d" appended
	assert.Equal(t, 2, b.FrameIndex())

	f, _ := b.PeekFrame()
	assert.Equal(t, []byte("d"), f.Payload)
}

func TestRoundTripPreservesFramesAndCursor(t *testing.T) {
	cases := [][]string{
		{},
		{""},
		{"hello"},
		{"a", "", "ccc", "dddd", "e"},
	}
	for _, payloads := range cases {
		b := NewBuffer()
		for _, p := range payloads {
			require.NoError(t, b.PushFrame([]byte(p)))
		}
		// Leave the cursor somewhere below the top for buffers with >1 frame.
		if len(payloads) > 1 {
			_, err := b.PopFrame()
			require.NoError(t, err)
		}

		var buf bytes.Buffer
		_, err := b.WriteTo(&buf)
		require.NoError(t, err)

		parsed, err := ReadBuffer(&buf)
		require.NoError(t, err)

		assert.Equal(t, b.FrameIndex(), parsed.FrameIndex())
		assert.Equal(t, b.Len(), parsed.Len())
		for i := 0; i < b.Len(); i++ {
			require.Equal(t, b.frames[i].Payload, parsed.frames[i].Payload)
		}
	}
}

func TestEmptyFrameHasNoPadding(t *testing.T) {
	b := NewBuffer()
	require.NoError(t, b.PushFrame(nil))

	var buf bytes.Buffer
	_, err := b.WriteTo(&buf)
	require.NoError(t, err)

	// bufferHeaderLen(12) + frameHeaderLen(4), no payload, no padding.
	assert.Equal(t, bufferHeaderLen+frameHeaderLen, buf.Len())
}

func TestReadTruncatedHeaderFails(t *testing.T) {
	_, err := ReadBuffer(bytes.NewReader([]byte{0x00, 0x01, 0x02}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestReadDeclaredFrameLengthExceedsBufferFails(t *testing.T) {
	b := NewBuffer()
	require.NoError(t, b.PushFrame([]byte("short")))

	var buf bytes.Buffer
	_, err := b.WriteTo(&buf)
	require.NoError(t, err)

	corrupted := buf.Bytes()
	// Inflate the frame's declared length far beyond what follows.
	corrupted[bufferHeaderLen] = 0x7f

	_, err = ReadBuffer(bytes.NewReader(corrupted))
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestPushRejectsOversizedPayload(t *testing.T) {
	b := NewBuffer()
	err := b.PushFrame(make([]byte, maxFrameLength+1))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestReadBufferLimitRejectsOversizedDeclaredLength(t *testing.T) {
	b := NewBuffer()
	require.NoError(t, b.PushFrame([]byte("hello")))

	var buf bytes.Buffer
	_, err := b.WriteTo(&buf)
	require.NoError(t, err)

	_, err = ReadBufferLimit(bytes.NewReader(buf.Bytes()), 4)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestReadBufferLimitZeroIsUnbounded(t *testing.T) {
	b := NewBuffer()
	require.NoError(t, b.PushFrame([]byte("hello")))

	var buf bytes.Buffer
	_, err := b.WriteTo(&buf)
	require.NoError(t, err)

	got, err := ReadBufferLimit(bytes.NewReader(buf.Bytes()), 0)
	require.NoError(t, err)
	f, ok := got.PeekFrame()
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), f.Payload)
}
