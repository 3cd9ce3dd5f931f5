// Package prometheus implements metrics.DispatchMetrics atop
// prometheus/client_golang.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dispatchmesh/dispatch/pkg/metrics"
)

const namespace = "dispatch"

// Metrics is a metrics.DispatchMetrics backed by a dedicated
// *prometheus.Registry, so a process embedding this package can choose
// whether to merge it into its own default registry or serve it
// separately.
type Metrics struct {
	registry *prometheus.Registry

	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	handlerTotal     *prometheus.CounterVec
	handlerDuration  *prometheus.HistogramVec
	connections      *prometheus.GaugeVec
	reconnectTotal   *prometheus.CounterVec
	txQueueDepth     *prometheus.GaugeVec
	framesDropped    *prometheus.CounterVec
}

// New registers and returns a Metrics instance. Callers typically expose
// it via promhttp.HandlerFor(m.Registry(), ...).
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "total",
			Help:      "Dispatches completed, by message type, mode, locality and outcome.",
		}, []string{"message_type", "publish", "remote", "outcome"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "Dispatch latency in seconds, by message type and outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"message_type", "outcome"}),
		handlerTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handler",
			Name:      "invocations_total",
			Help:      "Handler invocations, by message type and outcome.",
		}, []string{"message_type", "outcome"}),
		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "handler",
			Name:      "duration_seconds",
			Help:      "Handler invocation latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"message_type", "outcome"}),
		connections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "connections",
			Help:      "Live peer connections, 1 if connected.",
		}, []string{"peer"}),
		reconnectTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "reconnect_attempts_total",
			Help:      "Reconnect attempts, by peer and outcome.",
		}, []string{"peer", "succeeded"}),
		txQueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "tx_queue_depth",
			Help:      "Unacknowledged sends queued per peer.",
		}, []string{"peer"}),
		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "frames_dropped_total",
			Help:      "Inbound frames dropped, by reason.",
		}, []string{"reason"}),
	}

	m.registry.MustRegister(
		m.dispatchTotal,
		m.dispatchDuration,
		m.handlerTotal,
		m.handlerDuration,
		m.connections,
		m.reconnectTotal,
		m.txQueueDepth,
		m.framesDropped,
	)
	return m
}

// Registry returns the registry New populated, for mounting behind
// promhttp.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// DispatchCompleted implements metrics.DispatchMetrics.
func (m *Metrics) DispatchCompleted(messageType string, publish bool, remote bool, outcome string, took time.Duration) {
	m.dispatchTotal.WithLabelValues(messageType, boolLabel(publish), boolLabel(remote), outcome).Inc()
	m.dispatchDuration.WithLabelValues(messageType, outcome).Observe(took.Seconds())
}

// HandlerInvoked implements metrics.DispatchMetrics.
func (m *Metrics) HandlerInvoked(messageType string, outcome string, took time.Duration) {
	m.handlerTotal.WithLabelValues(messageType, outcome).Inc()
	m.handlerDuration.WithLabelValues(messageType, outcome).Observe(took.Seconds())
}

// ConnectionEstablished implements metrics.DispatchMetrics.
func (m *Metrics) ConnectionEstablished(peer string) { m.connections.WithLabelValues(peer).Set(1) }

// ConnectionLost implements metrics.DispatchMetrics.
func (m *Metrics) ConnectionLost(peer string) { m.connections.WithLabelValues(peer).Set(0) }

// ReconnectAttempt implements metrics.DispatchMetrics.
func (m *Metrics) ReconnectAttempt(peer string, succeeded bool) {
	m.reconnectTotal.WithLabelValues(peer, boolLabel(succeeded)).Inc()
}

// TxQueueDepth implements metrics.DispatchMetrics.
func (m *Metrics) TxQueueDepth(peer string, depth int) {
	m.txQueueDepth.WithLabelValues(peer).Set(float64(depth))
}

// FrameDropped implements metrics.DispatchMetrics.
func (m *Metrics) FrameDropped(reason string) {
	m.framesDropped.WithLabelValues(reason).Inc()
}

var _ metrics.DispatchMetrics = (*Metrics)(nil)
