// Package metrics provides Prometheus metrics for the bracketd service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the bracketd service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Level updates
	updatesProcessed prometheus.Counter
	updatesDuplicate prometheus.Counter
	updatesFailed    *prometheus.CounterVec

	// Bracket builds
	bracketRebuilds    prometheus.Counter
	rebuildLatency     prometheus.Histogram
	bracketWarnings    *prometheus.CounterVec
	staleViewsDiscard  prometheus.Counter
	tournamentsTracked prometheus.Gauge

	// Repository
	repositoryQueryLatency  prometheus.Histogram
	repositoryUpdateLatency prometheus.Histogram

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueue       prometheus.Counter
	queueDequeue       prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Websocket fan-out
	wsClients  prometheus.Gauge
	wsMessages prometheus.Counter
	wsDropped  prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
	httpRateLimited     *prometheus.CounterVec

	// Process
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "bracketd",
		subsystem:        "bracket",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   m.histogramBuckets,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.updatesProcessed = m.counter("updates_processed_total", "Total number of level updates applied")
	m.updatesDuplicate = m.counter("updates_duplicate_total", "Total number of duplicate level updates rejected")
	m.updatesFailed = m.counterVec("updates_failed_total", "Total number of level updates that failed to apply", "reason")

	m.bracketRebuilds = m.counter("rebuilds_total", "Total number of bracket rebuilds")
	m.rebuildLatency = m.histogram("rebuild_latency_milliseconds", "Bracket rebuild latency in milliseconds")
	m.bracketWarnings = m.counterVec("warnings_total", "Bracket build warnings by kind", "kind")
	m.staleViewsDiscard = m.counter("stale_views_discarded_total", "Rebuilt views dropped because a newer one was already cached")
	m.tournamentsTracked = m.gauge("tournaments", "Number of tournaments in the store")

	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds", "Repository read latency in milliseconds")
	m.repositoryUpdateLatency = m.histogram("repository_update_latency_milliseconds", "Repository write latency in milliseconds")

	m.queueSize = m.gauge("queue_size", "Current size of the level update queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Total number of updates enqueued")
	m.queueDequeue = m.counter("queue_dequeue_total", "Total number of updates dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of updates rejected by a full or closed queue")

	m.workerCount = m.gauge("worker_count", "Current number of running workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time to apply an update and refresh its bracket")
	m.workerErrors = m.counter("worker_errors_total", "Total number of worker errors")

	m.wsClients = m.gauge("ws_clients", "Connected websocket clients")
	m.wsMessages = m.counter("ws_messages_sent_total", "Bracket views written to websocket clients")
	m.wsDropped = m.counter("ws_messages_dropped_total", "Bracket views dropped for slow websocket clients")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.httpErrors = m.counterVec("http_errors_total", "HTTP error responses by endpoint and error code",
		"endpoint", "method", "error_type")
	m.httpRateLimited = m.counterVec("http_rate_limited_total", "Requests rejected by the per-client rate limiter", "endpoint")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated by the process")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of running goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds")
}

// RecordUpdateProcessed increments the applied updates counter.
func RecordUpdateProcessed() { globalManager.updatesProcessed.Inc() }

// RecordUpdateDuplicate increments the duplicate updates counter.
func RecordUpdateDuplicate() { globalManager.updatesDuplicate.Inc() }

// RecordUpdateFailed increments the failed updates counter for reason.
func RecordUpdateFailed(reason string) { globalManager.updatesFailed.WithLabelValues(reason).Inc() }

// RecordBracketRebuild records one rebuild and its latency.
func RecordBracketRebuild(latencyMs float64) {
	globalManager.bracketRebuilds.Inc()
	globalManager.rebuildLatency.Observe(latencyMs)
}

// RecordBracketWarning counts a build warning by kind.
func RecordBracketWarning(kind string) { globalManager.bracketWarnings.WithLabelValues(kind).Inc() }

// RecordStaleViewDiscarded counts a rebuild that lost the race to a newer one.
func RecordStaleViewDiscarded() { globalManager.staleViewsDiscard.Inc() }

// UpdateTournaments sets the number of stored tournaments.
func UpdateTournaments(count int) { globalManager.tournamentsTracked.Set(float64(count)) }

// RecordRepositoryQueryLatency records repository read latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// RecordRepositoryUpdateLatency records repository write latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueue.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeue.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// UpdateWSClients sets the number of connected websocket clients.
func UpdateWSClients(count int) { globalManager.wsClients.Set(float64(count)) }

// RecordWSMessage counts a view written to a websocket client.
func RecordWSMessage() { globalManager.wsMessages.Inc() }

// RecordWSDropped counts a view dropped for a slow client.
func RecordWSDropped() { globalManager.wsDropped.Inc() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError records an error response by code.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordRateLimited counts a request rejected by the rate limiter.
func RecordRateLimited(endpoint string) { globalManager.httpRateLimited.WithLabelValues(endpoint).Inc() }

// UpdateSystemMemoryUsage sets the allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(n int) { globalManager.systemGoroutineCount.Set(float64(n)) }

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(ms float64) { globalManager.systemGCPauseTime.Observe(ms) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
