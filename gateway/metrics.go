package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects the gateway's operational counters.
type Metrics struct {
	transitions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics builds the metric set and registers it with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swapd",
			Subsystem: "escrow",
			Name:      "transitions_total",
			Help:      "Escrow transitions processed, by transition and result.",
		}, []string{"transition", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "swapd",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	if reg != nil {
		reg.MustRegister(m.transitions, m.duration)
	}
	return m
}

func (m *Metrics) observeTransition(transition string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.transitions.WithLabelValues(transition, result).Inc()
}

func (m *Metrics) observeDuration(route string, seconds float64) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(route).Observe(seconds)
}
