// Package metrics declares the counters and gauges the dispatch runtime
// reports, independent of the backend that records them.
package metrics

import "time"

// DispatchMetrics receives instrumentation events from the dispatcher and
// transport layers. A nil DispatchMetrics is never passed around; callers
// that don't want metrics use NoOp.
type DispatchMetrics interface {
	// DispatchCompleted records one local or remote dispatch's outcome
	// and latency. outcome is the DispatchResult's concrete variant name
	// (e.g. "success", "dispatch_failure", "timeout").
	DispatchCompleted(messageType string, publish bool, remote bool, outcome string, took time.Duration)

	// HandlerInvoked records one handler invocation within a dispatch,
	// independent of the dispatch's own overall outcome.
	HandlerInvoked(messageType string, outcome string, took time.Duration)

	// ConnectionEstablished and ConnectionLost track the set of live
	// peer connections a LocalEndPoint is holding open.
	ConnectionEstablished(peer string)
	ConnectionLost(peer string)

	// ReconnectAttempt records one backoff-scheduled reconnect attempt
	// toward peer, successful or not.
	ReconnectAttempt(peer string, succeeded bool)

	// TxQueueDepth reports the current number of unacknowledged sends
	// queued for peer.
	TxQueueDepth(peer string, depth int)

	// FrameDropped records a message dropped from a LocalEndPoint's
	// bounded receive queue because it was full.
	FrameDropped(reason string)
}

// NoOp is a DispatchMetrics that discards every event. It is the default
// for components constructed without an explicit metrics backend.
var NoOp DispatchMetrics = noOpMetrics{}

type noOpMetrics struct{}

func (noOpMetrics) DispatchCompleted(string, bool, bool, string, time.Duration) {}
func (noOpMetrics) HandlerInvoked(string, string, time.Duration)                {}
func (noOpMetrics) ConnectionEstablished(string)                                {}
func (noOpMetrics) ConnectionLost(string)                                       {}
func (noOpMetrics) ReconnectAttempt(string, bool)                               {}
func (noOpMetrics) TxQueueDepth(string, int)                                    {}
func (noOpMetrics) FrameDropped(string)                                         {}
