package attendance

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects counters for every service transition.
type Metrics struct {
	registry *prometheus.Registry

	transitions        *prometheus.CounterVec
	sessionDuration    prometheus.Histogram
	downstreamWarnings prometheus.Counter
}

// NewMetrics builds collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timeclock_transitions_total",
				Help: "Session operations by name and outcome",
			},
			[]string{"op", "outcome"},
		),
		sessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "timeclock_session_duration_minutes",
			Help:    "Total minutes of sessions at clock-out",
			Buckets: []float64{15, 30, 60, 120, 240, 360, 480, 600, 720, 960},
		}),
		downstreamWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timeclock_downstream_warnings_total",
			Help: "Assignment status updates that failed after clock-out",
		}),
	}

	m.registry.MustRegister(
		m.transitions,
		m.sessionDuration,
		m.downstreamWarnings,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) transition(op, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) observeDuration(minutes int) {
	if m == nil {
		return
	}
	m.sessionDuration.Observe(float64(minutes))
}

func (m *Metrics) downstreamWarning() {
	if m == nil {
		return
	}
	m.downstreamWarnings.Inc()
}
