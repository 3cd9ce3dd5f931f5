package node

import (
	"encoding/binary"
	"fmt"

	"github.com/dispatchmesh/dispatch/pkg/wire"
)

type dispatchFrameKind int32

const (
	frameRequest  dispatchFrameKind = 1
	frameResponse dispatchFrameKind = 2
)

const dispatchFrameLen = 9 // i32 kind + u32 corrID + 1-byte publish flag

// dispatchFrame correlates a remote dispatch's request and response,
// independent of the transport layer's own per-connection seqNum.
type dispatchFrame struct {
	kind    dispatchFrameKind
	corrID  uint32
	publish bool
}

func encodeDispatchFrame(f dispatchFrame) []byte {
	buf := make([]byte, dispatchFrameLen)
	binary.BigEndian.PutUint32(buf[0:4], uint32(f.kind))
	binary.BigEndian.PutUint32(buf[4:8], f.corrID)
	if f.publish {
		buf[8] = 1
	}
	return buf
}

func decodeDispatchFrame(payload []byte) (dispatchFrame, error) {
	if len(payload) != dispatchFrameLen {
		return dispatchFrame{}, fmt.Errorf("node: dispatch frame is %d bytes, want %d", len(payload), dispatchFrameLen)
	}
	kind := dispatchFrameKind(binary.BigEndian.Uint32(payload[0:4]))
	if kind != frameRequest && kind != frameResponse {
		return dispatchFrame{}, fmt.Errorf("node: unknown dispatch frame kind %d", kind)
	}
	return dispatchFrame{
		kind:    kind,
		corrID:  binary.BigEndian.Uint32(payload[4:8]),
		publish: payload[8] != 0,
	}, nil
}

func pushDispatchFrame(buf *wire.Buffer, f dispatchFrame) error {
	return buf.PushFrame(encodeDispatchFrame(f))
}

func popDispatchFrame(buf *wire.Buffer) (dispatchFrame, error) {
	f, err := buf.PopFrame()
	if err != nil {
		return dispatchFrame{}, err
	}
	return decodeDispatchFrame(f.Payload)
}
