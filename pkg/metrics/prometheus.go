// Package metrics provides Prometheus metrics for the Decant duel service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// Core business metrics - what matters for a duel ranking service
	duelsSubmitted    prometheus.Counter
	duelsDuplicate    prometheus.Counter
	duelsRejected     prometheus.Counter
	pairsServed       prometheus.Counter
	pairsInsufficient prometheus.Counter
	eloSwing          prometheus.Histogram

	// Best-effort pipeline metrics
	repositionLatency prometheus.Histogram
	activityAppends   prometheus.Counter
	bestEffortErrors  *prometheus.CounterVec

	// Repository metrics
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// Queue metrics
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueUtilization  prometheus.Gauge
	queueEnqueues     prometheus.Counter
	queueDequeues     prometheus.Counter
	queueEnqueueFails prometheus.Counter

	// Worker metrics
	workerActive     prometheus.Gauge
	workerLatency    prometheus.Histogram
	workerErrors     prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error accounting by component
	errorsByComponent *prometheus.CounterVec

	// Process-level metrics, fed by the main loop
	systemMemoryBytes prometheus.Gauge
	systemGoroutines  prometheus.Gauge
	systemGCPause     prometheus.Histogram
}

var defaultManager *Manager

func init() { //nolint:gochecknoinits // global metrics setup mirrors prometheus conventions
	defaultManager = NewManager()
}

// NewManager creates a metrics manager with the given options.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "decant",
		subsystem:        "duel",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		registry:         prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
		}
	}

	m.duelsSubmitted = prometheus.NewCounter(factory("duels_submitted_total", "Total duel comparisons committed."))
	m.duelsDuplicate = prometheus.NewCounter(factory("duels_duplicate_total", "Duel submissions dropped as replayed comparison ids."))
	m.duelsRejected = prometheus.NewCounter(factory("duels_rejected_total", "Duel submissions rejected before I/O (invalid winner)."))
	m.pairsServed = prometheus.NewCounter(factory("pairs_served_total", "Duel pairs returned to clients."))
	m.pairsInsufficient = prometheus.NewCounter(factory("pairs_insufficient_total", "Pair requests answered with the insufficient-candidates outcome."))
	m.activityAppends = prometheus.NewCounter(factory("activity_appends_total", "Activity feed entries appended."))
	m.queueEnqueues = prometheus.NewCounter(factory("queue_enqueues_total", "Tasks enqueued onto the best-effort queue."))
	m.queueDequeues = prometheus.NewCounter(factory("queue_dequeues_total", "Tasks dequeued from the best-effort queue."))
	m.queueEnqueueFails = prometheus.NewCounter(factory("queue_enqueue_failures_total", "Task enqueue attempts that were dropped."))
	m.workerErrors = prometheus.NewCounter(factory("worker_errors_total", "Best-effort tasks that failed in a worker."))

	m.eloSwing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "elo_swing_points",
		Help:      "Absolute rating points moved per duel.",
		Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 24, 32},
	})
	m.repositionLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reposition_latency_ms",
		Help:      "Full rank materialization latency in milliseconds.",
		Buckets:   m.histogramBuckets,
	})
	m.repositoryUpdateLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_update_latency_ms",
		Help:      "Repository write latency in milliseconds.",
		Buckets:   m.histogramBuckets,
	})
	m.repositoryQueryLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_query_latency_ms",
		Help:      "Repository read latency in milliseconds.",
		Buckets:   m.histogramBuckets,
	})
	m.workerLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_processing_latency_ms",
		Help:      "Best-effort task processing latency in milliseconds.",
		Buckets:   m.histogramBuckets,
	})

	m.queueSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_size", Help: "Current number of queued best-effort tasks.",
	})
	m.queueCapacity = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_capacity", Help: "Configured capacity of the best-effort queue.",
	})
	m.queueUtilization = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_utilization", Help: "Queue fill ratio between 0 and 1.",
	})
	m.workerActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "worker_active_count", Help: "Number of running best-effort workers.",
	})

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name: "requests_total", Help: "HTTP requests by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name: "request_duration_ms", Help: "HTTP request duration in milliseconds.",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})
	m.bestEffortErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "best_effort_failures_total", Help: "Swallowed best-effort step failures by task kind.",
	}, []string{"task"})
	m.errorsByComponent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "errors_total", Help: "Errors by component and kind.",
	}, []string{"component", "kind"})

	m.systemMemoryBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system",
		Name: "memory_bytes", Help: "Allocated heap bytes.",
	})
	m.systemGoroutines = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system",
		Name: "goroutines", Help: "Current goroutine count.",
	})
	m.systemGCPause = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "system",
		Name: "gc_pause_ms", Help: "Average GC pause in milliseconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50},
	})

	m.registry.MustRegister(
		m.duelsSubmitted, m.duelsDuplicate, m.duelsRejected,
		m.pairsServed, m.pairsInsufficient, m.eloSwing,
		m.repositionLatency, m.activityAppends, m.bestEffortErrors,
		m.repositoryUpdateLatency, m.repositoryQueryLatency,
		m.queueSize, m.queueCapacity, m.queueUtilization,
		m.queueEnqueues, m.queueDequeues, m.queueEnqueueFails,
		m.workerActive, m.workerLatency, m.workerErrors,
		m.httpRequests, m.httpRequestDuration,
		m.errorsByComponent,
		m.systemMemoryBytes, m.systemGoroutines, m.systemGCPause,
	)
}

// Package-level helpers recording against the default manager.

func RecordDuelSubmitted()  { defaultManager.duelsSubmitted.Inc() }
func RecordDuelDuplicate()  { defaultManager.duelsDuplicate.Inc() }
func RecordDuelRejected()   { defaultManager.duelsRejected.Inc() }
func RecordPairServed()     { defaultManager.pairsServed.Inc() }
func RecordInsufficientPair() { defaultManager.pairsInsufficient.Inc() }
func RecordActivityAppend() { defaultManager.activityAppends.Inc() }

// RecordEloSwing observes the absolute points moved for one wine in a duel.
func RecordEloSwing(points float64) {
	if points < 0 {
		points = -points
	}
	defaultManager.eloSwing.Observe(points)
}

func RecordRepositionLatency(latencyMs float64) {
	defaultManager.repositionLatency.Observe(latencyMs)
}

func RecordRepositoryUpdateLatency(latencyMs float64) {
	defaultManager.repositoryUpdateLatency.Observe(latencyMs)
}

func RecordRepositoryQueryLatency(latencyMs float64) {
	defaultManager.repositoryQueryLatency.Observe(latencyMs)
}

func UpdateQueueSize(size int)            { defaultManager.queueSize.Set(float64(size)) }
func UpdateQueueCapacity(capacity int)    { defaultManager.queueCapacity.Set(float64(capacity)) }
func UpdateQueueUtilization(ratio float64) { defaultManager.queueUtilization.Set(ratio) }
func RecordQueueEnqueue()                 { defaultManager.queueEnqueues.Inc() }
func RecordQueueDequeue()                 { defaultManager.queueDequeues.Inc() }
func RecordQueueEnqueueError()            { defaultManager.queueEnqueueFails.Inc() }

func UpdateWorkerActiveCount(count int) { defaultManager.workerActive.Set(float64(count)) }
func RecordWorkerProcessingLatency(latencyMs float64) {
	defaultManager.workerLatency.Observe(latencyMs)
}
func RecordWorkerError() { defaultManager.workerErrors.Inc() }

// RecordBestEffortFailure counts a swallowed failure of a best-effort task.
func RecordBestEffortFailure(task string) {
	defaultManager.bestEffortErrors.WithLabelValues(task).Inc()
}

func RecordHTTPRequest(endpoint, method, status string) {
	defaultManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, status string, durationMs float64) {
	defaultManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(durationMs)
}

func RecordErrorByComponent(component, kind string) {
	defaultManager.errorsByComponent.WithLabelValues(component, kind).Inc()
}

func UpdateSystemMemoryUsage(bytes uint64) {
	defaultManager.systemMemoryBytes.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(count int) {
	defaultManager.systemGoroutines.Set(float64(count))
}

func RecordSystemGCPauseTime(pauseMs float64) {
	defaultManager.systemGCPause.Observe(pauseMs)
}

// GetRegistry returns the registry backing the default manager, for serving
// via promhttp.
func GetRegistry() *prometheus.Registry {
	return defaultManager.registry
}
