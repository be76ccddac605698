package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_RegistersInstruments(t *testing.T) {
	m, reg := NewTestManagerAndRegistry()

	m.CounterFrames.WithLabelValues("OUTWARD").Inc()
	m.CounterRejectedFrames.WithLabelValues("malformed_joint").Inc()
	m.CounterRepetitions.Inc()
	m.CounterHookRuns.WithLabelValues("csv-log", "ok").Inc()
	m.CounterRequests.WithLabelValues("GET", "200").Inc()
	m.GaugeActiveSessions.Set(2)
	m.GaugeLiveClients.Inc()
	m.HistRepetitionPerformance.Observe(95)
	m.HistFrameDuration.Observe(0.00002)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, name := range []string{
		"wavecoach_test_frames",
		"wavecoach_test_rejected_frames",
		"wavecoach_test_repetitions",
		"wavecoach_test_hook_runs",
		"wavecoach_test_request",
		"wavecoach_test_active_sessions",
		"wavecoach_test_live_clients",
		"wavecoach_test_repetition_performance",
		"wavecoach_test_frame_duration_seconds",
	} {
		assert.True(t, names[name], "missing metric %s", name)
	}
}

func TestNewManager_SeparateRegistries(t *testing.T) {
	// Each test manager owns its registry, so creating two must not panic
	// on duplicate registration.
	m1 := NewTestManager()
	m2 := NewTestManager()

	m1.CounterRepetitions.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m1.CounterRepetitions))
	assert.Equal(t, 0.0, testutil.ToFloat64(m2.CounterRepetitions))
}

func TestSetupPrometheus_IncludesRuntimeCollectors(t *testing.T) {
	reg := SetupPrometheus()
	m := NewManager("wavecoach", "service", reg)
	m.CounterRepetitions.Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["go_goroutines"])
	assert.True(t, names["wavecoach_service_repetitions"])
}
