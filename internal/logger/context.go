package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey struct{}

var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for a single dispatch or
// transport operation.
type LogContext struct {
	TraceID     string // OpenTelemetry trace ID
	SpanID      string // OpenTelemetry span ID
	MessageType string // Declared message type for the current dispatch
	RemoteAddr  string // Peer address, when the operation crosses the wire
	DispatchID  string // Dispatcher-level request/response correlation id
	StartTime   time.Time
}

// WithContext returns a new context carrying the given LogContext.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from ctx, or nil if absent.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a LogContext seeded with the current time.
func NewLogContext() *LogContext {
	return &LogContext{StartTime: time.Now()}
}

// Clone returns a copy of lc, or nil if lc is nil.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithMessageType returns a copy with MessageType set.
func (lc *LogContext) WithMessageType(messageType string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.MessageType = messageType
	}
	return clone
}

// WithRemoteAddr returns a copy with RemoteAddr set.
func (lc *LogContext) WithRemoteAddr(addr string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.RemoteAddr = addr
	}
	return clone
}

// WithTrace returns a copy with trace info set.
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
