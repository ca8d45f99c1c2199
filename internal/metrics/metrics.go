package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SearchKind labels the kind of orchestrated search.
const (
	SearchKindFaceted   = "faceted"
	SearchKindFederated = "federated"
)

var (
	searchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "facetmux",
			Name:      "searches_total",
			Help:      "Total number of orchestrated search invocations",
		},
		[]string{"kind", "status"},
	)

	fanOutSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "facetmux",
			Name:      "fan_out_queries",
			Help:      "Number of backend queries dispatched per invocation",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"kind"},
	)

	backendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "facetmux",
			Name:      "backend_request_duration_seconds",
			Help:      "Backing search service round-trip duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(searchesTotal)
	prometheus.MustRegister(fanOutSize)
	prometheus.MustRegister(backendDuration)
}

// SearchCompleted records one settled search invocation.
func SearchCompleted(kind string, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	searchesTotal.WithLabelValues(kind, status).Inc()
}

// ObserveFanOut records the fan-out batch size of one invocation.
func ObserveFanOut(kind string, queries int) {
	fanOutSize.WithLabelValues(kind).Observe(float64(queries))
}

// ObserveBackendRequest records one backend round trip.
func ObserveBackendRequest(start time.Time, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	backendDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
}
