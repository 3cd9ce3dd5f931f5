package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging.
// These keys are shared across the transport, routing, and dispatch layers
// so that log aggregation and querying can rely on consistent names.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Addressing & Connections
	// ========================================================================
	KeyLocalAddr   = "local_addr"   // Local endpoint address
	KeyRemoteAddr  = "remote_addr"  // Remote peer address
	KeyListenAddr  = "listen_addr"  // Listener bind address
	KeyConnID      = "connection_id"
	KeyMultiplex   = "multiplex_name" // Sub-endpoint name
	KeyAttempt     = "attempt"         // Reconnection attempt number
	KeyBackoff     = "backoff"         // Backoff duration before next attempt

	// ========================================================================
	// Framing & Sequencing
	// ========================================================================
	KeySeqNum     = "seq_num"      // Transport-level send/ack sequence number
	KeyFrameIndex = "frame_index"  // MessageBuffer cursor position
	KeyFrameCount = "frame_count"  // Number of frames in a buffer
	KeyFrameLen   = "frame_len"    // Length of a single frame payload
	KeyBufferLen  = "buffer_len"   // Total wire length of a buffer

	// ========================================================================
	// Dispatch & Routing
	// ========================================================================
	KeyMessageType = "message_type" // Declared/runtime type name of a message
	KeyHandlerType = "handler_type" // Registered handler type name
	KeyPublish     = "publish"      // Publish vs point-to-point
	KeyLocal       = "local"        // Whether dispatch stayed local
	KeyScope       = "scope"        // Target route endpoint scope
	KeyResult      = "result"       // Result variant name (Success, Failure, ...)
	KeyDispatchID  = "dispatch_id"  // Dispatcher-level request/response correlation id

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorCode  = "error_code"
)

// TraceID returns a slog.Attr for an OpenTelemetry trace ID.
func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SpanID returns a slog.Attr for an OpenTelemetry span ID.
func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

// LocalAddr returns a slog.Attr for a local endpoint address.
func LocalAddr(addr string) slog.Attr { return slog.String(KeyLocalAddr, addr) }

// RemoteAddr returns a slog.Attr for a remote peer address.
func RemoteAddr(addr string) slog.Attr { return slog.String(KeyRemoteAddr, addr) }

// ListenAddr returns a slog.Attr for a listener bind address.
func ListenAddr(addr string) slog.Attr { return slog.String(KeyListenAddr, addr) }

// ConnectionID returns a slog.Attr for a connection identifier.
func ConnectionID(id string) slog.Attr { return slog.String(KeyConnID, id) }

// Multiplex returns a slog.Attr for a multiplexed sub-endpoint name.
func Multiplex(name string) slog.Attr { return slog.String(KeyMultiplex, name) }

// Attempt returns a slog.Attr for a reconnection attempt number.
func Attempt(n int) slog.Attr { return slog.Int(KeyAttempt, n) }

// Backoff returns a slog.Attr for a backoff duration, formatted as a string.
func Backoff(d fmt.Stringer) slog.Attr { return slog.String(KeyBackoff, d.String()) }

// SeqNum returns a slog.Attr for a transport sequence number.
func SeqNum(n uint64) slog.Attr { return slog.Uint64(KeySeqNum, n) }

// FrameIndex returns a slog.Attr for a MessageBuffer cursor position.
func FrameIndex(i int) slog.Attr { return slog.Int(KeyFrameIndex, i) }

// FrameCount returns a slog.Attr for the number of frames in a buffer.
func FrameCount(n int) slog.Attr { return slog.Int(KeyFrameCount, n) }

// FrameLen returns a slog.Attr for a single frame's payload length.
func FrameLen(n int) slog.Attr { return slog.Int(KeyFrameLen, n) }

// BufferLen returns a slog.Attr for a buffer's total wire length.
func BufferLen(n int) slog.Attr { return slog.Int(KeyBufferLen, n) }

// MessageType returns a slog.Attr for a message type name.
func MessageType(name string) slog.Attr { return slog.String(KeyMessageType, name) }

// HandlerType returns a slog.Attr for a handler type name.
func HandlerType(name string) slog.Attr { return slog.String(KeyHandlerType, name) }

// Publish returns a slog.Attr for the publish/point-to-point flag.
func Publish(publish bool) slog.Attr { return slog.Bool(KeyPublish, publish) }

// Local returns a slog.Attr indicating whether a dispatch stayed local.
func Local(local bool) slog.Attr { return slog.Bool(KeyLocal, local) }

// Scope returns a slog.Attr for a route endpoint scope.
func Scope(scope string) slog.Attr { return slog.String(KeyScope, scope) }

// Result returns a slog.Attr for a dispatch result variant name.
func Result(name string) slog.Attr { return slog.String(KeyResult, name) }

// DispatchID returns a slog.Attr for the dispatcher-level correlation id.
func DispatchID(id string) slog.Attr { return slog.String(KeyDispatchID, id) }

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Err returns a slog.Attr for an error, or a zero Attr if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a numeric/string error code.
func ErrorCode(code string) slog.Attr { return slog.String(KeyErrorCode, code) }
