package remote

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for backend requests
type Metrics struct {
	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight *prometheus.GaugeVec
}

// NewMetrics registers the client metrics on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "duvidapp",
				Subsystem: "backend",
				Name:      "requests_total",
				Help:      "Total number of backend requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "duvidapp",
				Subsystem: "backend",
				Name:      "request_duration_seconds",
				Help:      "Backend request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "duvidapp",
				Subsystem: "backend",
				Name:      "requests_in_flight",
				Help:      "Number of backend requests currently in flight",
			},
			[]string{"method"},
		),
	}
}

func (m *Metrics) begin(method string) func(route string, status int) {
	if m == nil {
		return func(string, int) {}
	}

	start := time.Now()
	m.RequestsInFlight.WithLabelValues(method).Inc()

	return func(route string, status int) {
		m.RequestsInFlight.WithLabelValues(method).Dec()
		m.RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())

		label := "network_error"
		if status > 0 {
			label = strconv.Itoa(status)
		}
		m.RequestCounter.WithLabelValues(method, route, label).Inc()
	}
}
