package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	requestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumegen",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"method", "path", "status"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "resumegen",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumegen",
			Subsystem: "generation",
			Name:      "runs_total",
			Help:      "Total generation runs by terminal status.",
		},
		[]string{"status"},
	)
	generationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "resumegen",
			Subsystem: "generation",
			Name:      "run_duration_seconds",
			Help:      "Generation run duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)
	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "resumegen",
			Subsystem: "generation",
			Name:      "stage_duration_seconds",
			Help:      "Per-stage duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage"},
	)
	llmFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "resumegen",
			Subsystem: "llm",
			Name:      "fallback_total",
			Help:      "Total optimizations served by the rule-based fallback.",
		},
	)
	emailsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumegen",
			Subsystem: "email",
			Name:      "deliveries_total",
			Help:      "Total email delivery attempts by result.",
		},
		[]string{"result"},
	)
	cleanupRemovedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumegen",
			Subsystem: "cleanup",
			Name:      "removed_total",
			Help:      "Total artifacts removed by the cleanup worker.",
		},
		[]string{"kind"},
	)
)

func init() {
	registry.MustRegister(
		requestTotal,
		requestDuration,
		generationsTotal,
		generationDuration,
		stageDuration,
		llmFallbackTotal,
		emailsTotal,
		cleanupRemovedTotal,
	)
}

// IncGenerationStarted increments the started counter.
func IncGenerationStarted() {
	generationsTotal.WithLabelValues("started").Inc()
}

// IncGenerationCompleted increments the completed counter.
func IncGenerationCompleted() {
	generationsTotal.WithLabelValues("completed").Inc()
}

// IncGenerationFailed increments the failed counter.
func IncGenerationFailed() {
	generationsTotal.WithLabelValues("failed").Inc()
}

// IncGenerationCancelled increments the cancelled counter.
func IncGenerationCancelled() {
	generationsTotal.WithLabelValues("cancelled").Inc()
}

// ObserveGenerationDuration records a full run duration.
func ObserveGenerationDuration(d time.Duration) {
	generationDuration.Observe(d.Seconds())
}

// ObserveStageDuration records a single pipeline stage duration.
func ObserveStageDuration(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// IncLLMFallback increments the rule-based fallback counter.
func IncLLMFallback() {
	llmFallbackTotal.Inc()
}

// IncEmailDelivered increments the successful delivery counter.
func IncEmailDelivered() {
	emailsTotal.WithLabelValues("delivered").Inc()
}

// IncEmailFailed increments the failed delivery counter.
func IncEmailFailed() {
	emailsTotal.WithLabelValues("failed").Inc()
}

// IncCleanupRemoved adds removed artifact counts for a kind (file, run, activity).
func IncCleanupRemoved(kind string, n int) {
	if n <= 0 {
		return
	}
	cleanupRemovedTotal.WithLabelValues(kind).Add(float64(n))
}

// Handler exposes the registry in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

// HTTP instruments request counts and latency. Route templates keep label
// cardinality bounded.
func HTTP() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		requestTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
