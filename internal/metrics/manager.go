// Package metrics holds the Prometheus instruments of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterFrames         *prometheus.CounterVec
	CounterRejectedFrames *prometheus.CounterVec
	CounterRepetitions    prometheus.Counter
	CounterHookRuns       *prometheus.CounterVec
	CounterRequests       *prometheus.CounterVec

	// gauges
	GaugeActiveSessions prometheus.Gauge
	GaugeLiveClients    prometheus.Gauge

	// histograms
	HistRepetitionPerformance prometheus.Histogram
	HistFrameDuration         prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("wavecoach", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("wavecoach", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterFrames := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "frames",
		Help:      "The total number of analyzed frames",
	}, []string{"state"})
	counterRejectedFrames := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "rejected_frames",
		Help:      "The total number of frames that could not be analyzed",
	}, []string{"reason"})
	counterRepetitions := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "repetitions",
		Help:      "The total number of completed wave repetitions",
	})
	counterHookRuns := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "hook_runs",
		Help:      "The total number of hook executions",
	}, []string{"hook", "status"})
	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})

	gaugeActiveSessions := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "active_sessions",
		Help:      "Current number of sessions accepting frames",
	})
	gaugeLiveClients := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "live_clients",
		Help:      "Current number of connected live feed clients",
	})

	histRepetitionPerformance := factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets:   []float64{0, 25, 50, 75, 90, 100, 110, 125, 150},
			Name:      "repetition_performance",
			Help:      "Peak performance score of completed repetitions",
		},
	)
	histFrameDuration := factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets: []float64{
				0.000001, 0.0000025, 0.000005, 0.00001, 0.000025,
				0.00005, 0.0001, 0.001, 0.01, 0.1, 1,
			},
			Name: "frame_duration_seconds",
			Help: "Time spent analyzing a single frame in seconds",
		},
	)

	return &Manager{
		CounterFrames:             counterFrames,
		CounterRejectedFrames:     counterRejectedFrames,
		CounterRepetitions:        counterRepetitions,
		CounterHookRuns:           counterHookRuns,
		CounterRequests:           counterRequests,
		GaugeActiveSessions:       gaugeActiveSessions,
		GaugeLiveClients:          gaugeLiveClients,
		HistRepetitionPerformance: histRepetitionPerformance,
		HistFrameDuration:         histFrameDuration,
	}
}
