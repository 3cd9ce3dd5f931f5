package transport

import "errors"

var (
	// ErrDisposed is returned by RemoteEndPoint.Send once that
	// RemoteEndPoint has been closed (LocalEndPoint.Close closes every
	// known peer).
	ErrDisposed = errors.New("transport: endpoint disposed")

	// ErrUnknownSeqNum names the case of an Ack frame whose seqNum has no
	// matching entry in the peer's txQueue. No function returns it:
	// txQueue.ack reports that case as false, and the receive loop logs
	// and drops the frame.
	ErrUnknownSeqNum = errors.New("transport: unknown sequence number")

	// ErrMalformedEnvelope indicates a dispatch-envelope frame (Deliver or
	// Ack header) could not be decoded.
	ErrMalformedEnvelope = errors.New("transport: malformed dispatch envelope")

	// ErrNotConnected is returned by RemoteEndPoint's internal transmit
	// step when no connection to the peer exists; Send logs it and keeps
	// waiting for the Ack, so Send's callers do not see it.
	ErrNotConnected = errors.New("transport: peer not connected")
)
