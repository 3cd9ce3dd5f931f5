package prometheus

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchCompletedIncrementsCounterAndHistogram(t *testing.T) {
	m := New()
	m.DispatchCompleted("orderPlaced", false, true, "success", 5*time.Millisecond)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.True(t, hasCounterSample(families, "dispatch_dispatch_total", 1))
}

func TestConnectionGaugeTogglesOnEstablishAndLose(t *testing.T) {
	m := New()
	m.ConnectionEstablished("127.0.0.1:9000")
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.True(t, hasGaugeSample(families, "dispatch_transport_connections", 1))

	m.ConnectionLost("127.0.0.1:9000")
	families, err = m.Registry().Gather()
	require.NoError(t, err)
	assert.True(t, hasGaugeSample(families, "dispatch_transport_connections", 0))
}

func hasCounterSample(families []*dto.MetricFamily, name string, want float64) bool {
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if metric.GetCounter().GetValue() == want {
				return true
			}
		}
	}
	return false
}

func hasGaugeSample(families []*dto.MetricFamily, name string, want float64) bool {
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if metric.GetGauge().GetValue() == want {
				return true
			}
		}
	}
	return false
}
