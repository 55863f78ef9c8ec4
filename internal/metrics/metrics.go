// Package metrics exposes Prometheus collectors for contract calls and the HTTP API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	contractCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docustore",
			Subsystem: "contract",
			Name:      "calls_total",
			Help:      "Contract queries and execute calls by message and outcome.",
		},
		[]string{"kind", "message", "outcome"},
	)

	contractDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docustore",
			Subsystem: "contract",
			Name:      "call_duration_seconds",
			Help:      "Duration of contract calls, including confirmation for execute calls.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"kind", "message"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docustore",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docustore",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"method", "path"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docustore",
			Subsystem: "session",
			Name:      "connects_minus_disconnects",
			Help:      "Wallet connects minus disconnects since process start.",
		},
	)
)

func init() {
	Registry.MustRegister(
		contractCalls,
		contractDuration,
		httpRequests,
		httpDuration,
		activeSessions,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Contract call kinds
const (
	KindQuery   = "query"
	KindExecute = "execute"
)

// ObserveContractCall records one contract call
func ObserveContractCall(kind, message string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	contractCalls.WithLabelValues(kind, message, outcome).Inc()
	contractDuration.WithLabelValues(kind, message).Observe(elapsed.Seconds())
}

// ObserveHTTPRequest records one API request. path should be the route template.
func ObserveHTTPRequest(method, path, status string, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// SessionConnected and SessionDisconnected track the session gauge
func SessionConnected() { activeSessions.Inc() }
func SessionDisconnected() { activeSessions.Dec() }
