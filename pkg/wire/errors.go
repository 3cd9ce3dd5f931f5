package wire

import "errors"

// Sentinel errors for MessageBuffer and Address operations. Callers should
// use errors.Is rather than comparing error strings.
var (
	// ErrUnderflow is returned by Buffer.PopFrame when the cursor is already
	// below the first frame (frameIndex == -1).
	ErrUnderflow = errors.New("wire: frame stack underflow")

	// ErrMalformedMessage is returned by ReadBuffer when the header is
	// truncated, a declared frame length exceeds the remaining buffer, or
	// padding exceeds 3 bytes.
	ErrMalformedMessage = errors.New("wire: malformed message")

	// ErrTooLarge is returned by Buffer.PushFrame when a frame payload
	// would overflow the 32-bit length field used on the wire, and by
	// ReadBufferLimit when a buffer's declared length exceeds the limit.
	ErrTooLarge = errors.New("wire: frame payload too large")

	// ErrInvalidAddress is returned when an address cannot be parsed into
	// or decoded from its wire text form.
	ErrInvalidAddress = errors.New("wire: invalid address")
)
