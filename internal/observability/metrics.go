package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Render outcomes recorded by RecordRender.
const (
	OutcomeRendered       = "rendered"
	OutcomeNoMessage      = "no_message"
	OutcomeNoSchema       = "schema_unavailable"
	OutcomeUnknownMsgType = "unknown_msg_type"
	OutcomeFailed         = "failed"
)

var (
	registerOnce sync.Once

	renders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fixlog",
			Subsystem: "render",
			Name:      "lines_total",
			Help:      "Log lines passed to the renderer, by outcome.",
		},
		[]string{"outcome"},
	)
	renderDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fixlog",
			Subsystem: "render",
			Name:      "duration_seconds",
			Help:      "Time spent rendering one log line.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		},
	)
	schemaLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fixlog",
			Subsystem: "schema",
			Name:      "loads_total",
			Help:      "Dictionary schema builds, by version key and result.",
		},
		[]string{"version", "success"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fixlog",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fixlog",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(renders, renderDuration, schemaLoads, httpRequests, httpDuration)
	})
}

func RecordRender(outcome string, duration time.Duration) {
	RegisterMetrics()
	renders.WithLabelValues(outcome).Inc()
	renderDuration.Observe(duration.Seconds())
}

func RecordSchemaLoad(version string, success bool) {
	RegisterMetrics()
	schemaLoads.WithLabelValues(version, strconv.FormatBool(success)).Inc()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
