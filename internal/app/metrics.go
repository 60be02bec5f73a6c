package app

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricsRegistry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "commerce",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "commerce",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path"},
	)

	lifecycleEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "commerce",
			Subsystem: "install",
			Name:      "events_total",
			Help:      "Setup, login and reset attempts by outcome.",
		},
		[]string{"operation", "outcome"},
	)
)

func init() {
	metricsRegistry.MustRegister(
		httpRequests,
		httpDuration,
		lifecycleEvents,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

func metricsHandler() http.Handler {
	return promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{})
}

func recordOutcome(operation, outcome string) {
	lifecycleEvents.WithLabelValues(operation, outcome).Inc()
}

func observeRequest(method, path string, status int, duration time.Duration) {
	path = canonicalPath(path)
	httpRequests.WithLabelValues(strings.ToUpper(method), path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(strings.ToUpper(method), path).Observe(duration.Seconds())
}

// canonicalPath keeps label cardinality bounded.
func canonicalPath(path string) string {
	switch path {
	case "/api/status", "/api/setup", "/api/login", "/api/session", "/api/reset",
		"/api/health", "/api/ready", "/metrics":
		return path
	default:
		return "other"
	}
}
