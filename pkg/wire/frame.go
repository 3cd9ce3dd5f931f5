package wire

// Package wire implements the framed binary envelope described in the
// message-dispatch wire format: a MessageBuffer is an ordered, LIFO-
// addressable stack of Frames, each a length-prefixed, zero-padded byte
// payload. The padding convention (length + payload, padded to a 4-byte
// boundary) mirrors the opaque<> encoding the rest of this codebase's RPC
// layer uses (see github.com/rasky/go-xdr/xdr2 and RFC 4506 §4.9); it is
// reimplemented here directly because Frame headers are not XDR structs
// (the length field excludes padding, where XDR opaque includes it in the
// rounded-up sense only implicitly).

const (
	// frameHeaderLen is the size in bytes of a Frame's length header.
	frameHeaderLen = 4

	// bufferHeaderLen is the size in bytes of a Buffer's wire header:
	// an 8-byte total length followed by a 4-byte current frame index.
	bufferHeaderLen = 8 + 4

	// maxFrameLength is the largest payload a Frame can carry without its
	// header-inclusive length overflowing the 32-bit wire field.
	maxFrameLength = (1<<31 - 1) - frameHeaderLen
)

// Frame is a single length-prefixed, padded payload within a Buffer.
type Frame struct {
	Payload []byte
}

// wireLength returns the header-inclusive, unpadded length of f on the wire.
func (f Frame) wireLength() int {
	return frameHeaderLen + len(f.Payload)
}

// paddedLength returns f's wire length rounded up to a 4-byte boundary.
func (f Frame) paddedLength() int {
	return padTo4(f.wireLength())
}

// padTo4 rounds n up to the nearest multiple of 4.
func padTo4(n int) int {
	return (n + 3) &^ 3
}
