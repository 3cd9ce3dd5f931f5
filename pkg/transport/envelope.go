package transport

import (
	"encoding/binary"
	"fmt"

	"github.com/dispatchmesh/dispatch/pkg/wire"
)

// envelopeKind discriminates the dispatch-envelope frame pushed by the
// endpoint atop every user message.
type envelopeKind int32

const (
	kindDeliver envelopeKind = 1
	kindAck     envelopeKind = 2
)

const envelopeFrameLen = 8 // i32 messageType + i32 seqNum

// envelope is the dispatch-layer header carried as the top frame of every
// Buffer exchanged between peers.
type envelope struct {
	kind   envelopeKind
	seqNum uint32
}

func encodeEnvelope(e envelope) []byte {
	buf := make([]byte, envelopeFrameLen)
	binary.BigEndian.PutUint32(buf[0:4], uint32(e.kind))
	binary.BigEndian.PutUint32(buf[4:8], e.seqNum)
	return buf
}

func decodeEnvelope(payload []byte) (envelope, error) {
	if len(payload) != envelopeFrameLen {
		return envelope{}, fmt.Errorf("%w: envelope frame is %d bytes, want %d", ErrMalformedEnvelope, len(payload), envelopeFrameLen)
	}
	kind := envelopeKind(binary.BigEndian.Uint32(payload[0:4]))
	if kind != kindDeliver && kind != kindAck {
		return envelope{}, fmt.Errorf("%w: unknown envelope kind %d", ErrMalformedEnvelope, kind)
	}
	return envelope{kind: kind, seqNum: binary.BigEndian.Uint32(payload[4:8])}, nil
}

// pushEnvelope pushes e as the next frame onto buf, atop whatever the
// caller has already pushed (e.g. the multiplexer's name frame, or the
// user payload directly).
func pushEnvelope(buf *wire.Buffer, e envelope) error {
	return buf.PushFrame(encodeEnvelope(e))
}

// popEnvelope pops and decodes the top frame of buf as an envelope.
func popEnvelope(buf *wire.Buffer) (envelope, error) {
	f, err := buf.PopFrame()
	if err != nil {
		return envelope{}, err
	}
	return decodeEnvelope(f.Payload)
}
