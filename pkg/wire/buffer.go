package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dispatchmesh/dispatch/pkg/bufpool"
)

// Buffer is an ordered sequence of Frames addressed by a LIFO cursor
// (frameIndex). A cursor of -1 means "below the first frame" — an empty,
// freshly constructed Buffer starts there.
//
// PushFrame always discards any frames above the cursor before appending,
// so a Buffer can never hold "dead" frames above an active push; frames can
// only accumulate above the cursor as a side effect of PopFrame, and only
// until the next PushFrame trims them.
type Buffer struct {
	frames     []Frame
	frameIndex int
}

// NewBuffer returns an empty Buffer with the cursor below the first frame.
func NewBuffer() *Buffer {
	return &Buffer{frameIndex: -1}
}

// FrameIndex returns the current cursor position.
func (b *Buffer) FrameIndex() int { return b.frameIndex }

// Len returns the number of frames physically held by the buffer,
// including any above the cursor left over from a PopFrame.
func (b *Buffer) Len() int { return len(b.frames) }

// PushFrame appends payload as a new top frame, first discarding any frames
// above the current cursor, then advances the cursor onto the new frame.
// The payload is copied.
func (b *Buffer) PushFrame(payload []byte) error {
	if len(payload) > maxFrameLength {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, len(payload))
	}
	b.frames = b.frames[:b.frameIndex+1]
	cp := make([]byte, len(payload))
	copy(cp, payload)
	b.frames = append(b.frames, Frame{Payload: cp})
	b.frameIndex++
	return nil
}

// PopFrame returns the frame at the cursor and retreats the cursor by one.
// Popping below -1 fails with ErrUnderflow and leaves the buffer unchanged.
func (b *Buffer) PopFrame() (Frame, error) {
	if b.frameIndex < 0 {
		return Frame{}, ErrUnderflow
	}
	f := b.frames[b.frameIndex]
	b.frameIndex--
	return f, nil
}

// PeekFrame returns the frame at the cursor without moving it.
func (b *Buffer) PeekFrame() (Frame, bool) {
	if b.frameIndex < 0 {
		return Frame{}, false
	}
	return b.frames[b.frameIndex], true
}

// wireLength returns the total serialised length of b, including the
// buffer header, for every physically held frame (not just those at or
// below the cursor).
func (b *Buffer) wireLength() int {
	total := bufferHeaderLen
	for _, f := range b.frames {
		total += f.paddedLength()
	}
	return total
}

// WriteTo serialises b per the wire format: an 8-byte total length and a
// 4-byte current frame index (both big-endian), followed by every held
// frame written from the most-recently-pushed frame down to the first —
// the reverse of logical push order. ReadBuffer reverses them back, so the
// receiver reconstructs the sender's frame stack and cursor unchanged.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	total := b.wireLength()

	var header [bufferHeaderLen]byte
	binary.BigEndian.PutUint64(header[0:8], uint64(total))
	binary.BigEndian.PutUint32(header[8:12], uint32(int32(b.frameIndex)))
	n, err := w.Write(header[:])
	written := int64(n)
	if err != nil {
		return written, err
	}

	for i := len(b.frames) - 1; i >= 0; i-- {
		fn, err := writeFrame(w, b.frames[i])
		written += fn
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// writeFrame writes a single frame's header, payload, and zero padding.
func writeFrame(w io.Writer, f Frame) (int64, error) {
	var header [frameHeaderLen]byte
	binary.BigEndian.PutUint32(header[:], uint32(f.wireLength()))

	n, err := w.Write(header[:])
	written := int64(n)
	if err != nil {
		return written, err
	}

	if len(f.Payload) > 0 {
		pn, err := w.Write(f.Payload)
		written += int64(pn)
		if err != nil {
			return written, err
		}
	}

	padLen := f.paddedLength() - f.wireLength()
	if padLen > 0 {
		var pad [3]byte
		pn, err := w.Write(pad[:padLen])
		written += int64(pn)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// ReadBuffer parses a Buffer from r per the wire format. It fails with
// ErrMalformedMessage if the header is truncated, a declared frame length
// exceeds the remaining declared buffer length, or a frame's padding
// would exceed 3 bytes. It enforces no bound beyond the wire format's own
// 32-bit length field; callers reading from an untrusted peer should use
// ReadBufferLimit instead.
func ReadBuffer(r io.Reader) (*Buffer, error) {
	return ReadBufferLimit(r, 0)
}

// ReadBufferLimit is ReadBuffer with an additional caller-supplied ceiling:
// if maxSize is non-zero and the header's declared total length exceeds
// it, the buffer is rejected with ErrTooLarge before any frame is read.
// This bounds the memory a single inbound connection can force an
// endpoint to allocate, independent of the wire format's own 32-bit
// length field.
func ReadBufferLimit(r io.Reader, maxSize uint64) (*Buffer, error) {
	var header [bufferHeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, fmt.Errorf("%w: reading buffer header: %v", ErrMalformedMessage, err)
	}

	total := binary.BigEndian.Uint64(header[0:8])
	frameIndex := int32(binary.BigEndian.Uint32(header[8:12]))

	if total < bufferHeaderLen {
		return nil, fmt.Errorf("%w: declared length %d shorter than header", ErrMalformedMessage, total)
	}
	if maxSize > 0 && total > maxSize {
		return nil, fmt.Errorf("%w: declared length %d exceeds limit %d", ErrTooLarge, total, maxSize)
	}
	remaining := int64(total) - bufferHeaderLen

	var frames []Frame
	for remaining > 0 {
		f, consumed, err := readFrame(r, remaining)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
		remaining -= consumed
	}

	// Frames were read in most-recent-first (wire) order; reverse them
	// back into logical push order.
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}

	if int(frameIndex) < -1 || frameIndex >= int32(len(frames)) {
		return nil, fmt.Errorf("%w: frame index %d out of range for %d frames", ErrMalformedMessage, frameIndex, len(frames))
	}

	return &Buffer{frames: frames, frameIndex: int(frameIndex)}, nil
}

// readFrame reads one frame from r, returning it along with the number of
// wire bytes it consumed (header + payload + padding).
func readFrame(r io.Reader, budget int64) (Frame, int64, error) {
	var header [frameHeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, 0, fmt.Errorf("%w: reading frame header: %v", ErrMalformedMessage, err)
	}
	frameLen := binary.BigEndian.Uint32(header[:])
	if frameLen < frameHeaderLen {
		return Frame{}, 0, fmt.Errorf("%w: frame length %d shorter than header", ErrMalformedMessage, frameLen)
	}
	payloadLen := int(frameLen) - frameHeaderLen
	padded := padTo4(int(frameLen))
	padLen := padded - int(frameLen)
	if padLen > 3 {
		return Frame{}, 0, fmt.Errorf("%w: padding %d exceeds 3 bytes", ErrMalformedMessage, padLen)
	}
	if int64(padded) > budget {
		return Frame{}, 0, fmt.Errorf("%w: frame length %d exceeds remaining buffer", ErrMalformedMessage, frameLen)
	}

	payload := bufpool.Get(payloadLen)
	if payloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			bufpool.Put(payload)
			return Frame{}, 0, fmt.Errorf("%w: reading frame payload: %v", ErrMalformedMessage, err)
		}
	}
	cp := make([]byte, payloadLen)
	copy(cp, payload)
	bufpool.Put(payload)

	if padLen > 0 {
		var pad [3]byte
		if _, err := io.ReadFull(r, pad[:padLen]); err != nil {
			return Frame{}, 0, fmt.Errorf("%w: reading frame padding: %v", ErrMalformedMessage, err)
		}
	}

	return Frame{Payload: cp}, int64(padded), nil
}
