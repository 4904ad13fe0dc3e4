// Package metrics provides Prometheus metrics collection.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements the MetricsCollector port using Prometheus.
type Collector struct {
	uploadCounter       *prometheus.CounterVec
	deleteCounter       *prometheus.CounterVec
	loadCounter         *prometheus.CounterVec
	layerCount          prometheus.Gauge
	orphanedPayloads    prometheus.Gauge
	storageOperations   *prometheus.CounterVec
	storageDuration     *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewCollector creates a new Prometheus metrics collector.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "strata"
	}

	return &Collector{
		uploadCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "layer_uploads_total",
				Help:      "Total number of layer uploads",
			},
			[]string{"status"},
		),

		deleteCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "layer_deletes_total",
				Help:      "Total number of layer deletions",
			},
			[]string{"status"},
		),

		loadCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "overlay_loads_total",
				Help:      "Total number of overlay load completions by outcome",
			},
			[]string{"outcome"},
		),

		layerCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "layers",
				Help:      "Number of cataloged layers",
			},
		),

		orphanedPayloads: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "orphaned_payloads",
				Help:      "Number of stored payloads without a catalog record",
			},
		),

		storageOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_operations_total",
				Help:      "Total number of storage operations",
			},
			[]string{"operation", "status"},
		),

		storageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "storage_duration_seconds",
				Help:      "Storage operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// IncUploadCount increments the upload counter.
func (c *Collector) IncUploadCount(success bool) {
	c.uploadCounter.WithLabelValues(statusLabel(success)).Inc()
}

// IncDeleteCount increments the delete counter.
func (c *Collector) IncDeleteCount(success bool) {
	c.deleteCounter.WithLabelValues(statusLabel(success)).Inc()
}

// IncLoadCount increments the overlay load counter by outcome.
func (c *Collector) IncLoadCount(outcome string) {
	c.loadCounter.WithLabelValues(outcome).Inc()
}

// SetLayerCount sets the number of cataloged layers.
func (c *Collector) SetLayerCount(count int) {
	c.layerCount.Set(float64(count))
}

// SetOrphanedPayloads sets the number of payloads without a record.
func (c *Collector) SetOrphanedPayloads(count int) {
	c.orphanedPayloads.Set(float64(count))
}

// IncStorageOperations increments storage operation counter.
func (c *Collector) IncStorageOperations(operation string, success bool) {
	c.storageOperations.WithLabelValues(operation, statusLabel(success)).Inc()
}

// ObserveStorageDuration records storage operation duration.
func (c *Collector) ObserveStorageDuration(operation string, duration time.Duration) {
	c.storageDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncHTTPRequests increments the HTTP request counter.
func (c *Collector) IncHTTPRequests(method, path, status string) {
	c.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// ObserveHTTPDuration records HTTP request duration.
func (c *Collector) ObserveHTTPDuration(method, path string, duration time.Duration) {
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns HTTP middleware for metrics collection.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		path := normalizePath(r.URL.Path)
		status := statusToString(wrapped.statusCode)

		c.IncHTTPRequests(r.Method, path, status)
		c.ObserveHTTPDuration(r.Method, path, duration)
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// normalizePath collapses payload filenames into a placeholder so the path
// label stays low-cardinality.
func normalizePath(path string) string {
	const dataPrefix = "/data/geojson/"
	if len(path) > len(dataPrefix) && path[:len(dataPrefix)] == dataPrefix {
		return dataPrefix + ":filename"
	}
	if len(path) > 30 {
		return path[:30] + "..."
	}
	return path
}

// statusToString converts HTTP status code to string category.
func statusToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
