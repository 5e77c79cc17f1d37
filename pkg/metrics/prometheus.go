// Package metrics provides Prometheus metrics for the affinity matching service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the matching service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Scoring dependency
	scoringLatency  prometheus.Histogram
	scoringRequests *prometheus.CounterVec
	healthChecks    *prometheus.CounterVec

	// Score cache
	cacheLookups *prometheus.CounterVec
	cacheClears  *prometheus.CounterVec
	cacheSize    prometheus.Gauge

	// Matching runs
	matchRuns        *prometheus.CounterVec
	matchDuration    *prometheus.HistogramVec
	assignments      *prometheus.CounterVec
	matrixPairs      prometheus.Histogram
	skippedPairs     prometheus.Counter
	inflightDeduped  prometheus.Counter
	degradedDecision *prometheus.CounterVec

	// Prewarm
	prewarmItems *prometheus.CounterVec
	queueSize    prometheus.Gauge
	queueErrors  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
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
		namespace:        "affinity",
		subsystem:        "matching",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.scoringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "scoring_latency_milliseconds",
		Help:        "Latency of single-pair calls to the scoring dependency",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})
	m.scoringRequests = m.counterVec("scoring_requests_total",
		"Scoring calls by outcome (ok, error, unavailable)", "outcome")
	m.healthChecks = m.counterVec("health_checks_total",
		"Scoring dependency health checks by result", "result")

	m.cacheLookups = m.counterVec("cache_lookups_total",
		"Score cache lookups by tier and result", "tier", "result")
	m.cacheClears = m.counterVec("cache_clears_total",
		"Score cache clears by scope (remote, local_fallback)", "scope")
	m.cacheSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "cache_local_entries",
		Help:        "Entries held by the in-process score cache",
		ConstLabels: m.constLabels,
	})

	m.matchRuns = m.counterVec("runs_total",
		"Matching runs by client kind and mode (scored, fallback, error)", "kind", "mode")
	m.matchDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "run_duration_milliseconds",
		Help:        "Duration of a full matching run",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"kind", "mode"})
	m.assignments = m.counterVec("assignments_total",
		"Client placements by pass (greedy, overflow, fallback)", "pass")
	m.matrixPairs = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "matrix_pairs",
		Help:        "Scored pairs per built matrix",
		Buckets:     prometheus.ExponentialBuckets(1, 4, 10),
		ConstLabels: m.constLabels,
	})
	m.skippedPairs = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "matrix_skipped_pairs_total",
		Help:        "Pairs dropped from a matrix because scoring failed",
		ConstLabels: m.constLabels,
	})
	m.inflightDeduped = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "scoring_inflight_shared_total",
		Help:        "Scoring calls answered by an identical in-flight request",
		ConstLabels: m.constLabels,
	})
	m.degradedDecision = m.counterVec("availability_decisions_total",
		"Degraded-mode decisions (available, degraded)", "decision")

	m.prewarmItems = m.counterVec("prewarm_clients_total",
		"Clients processed by the prewarm pass by outcome", "outcome")
	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "prewarm_queue_size",
		Help:        "Pending prewarm jobs",
		ConstLabels: m.constLabels,
	})
	m.queueErrors = m.counterVec("prewarm_queue_errors_total",
		"Rejected prewarm enqueues by reason", "reason")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = m.counterVec("errors_total",
		"Errors by component and type", "component", "error_type")
}

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordScoringRequest counts a scoring call by outcome.
func RecordScoringRequest(outcome string) {
	globalManager.scoringRequests.WithLabelValues(outcome).Inc()
}

// RecordHealthCheck counts a health check result.
func RecordHealthCheck(healthy bool) {
	result := "unhealthy"
	if healthy {
		result = "healthy"
	}
	globalManager.healthChecks.WithLabelValues(result).Inc()
}

// RecordCacheLookup counts a cache lookup on a tier ("local", "remote").
func RecordCacheLookup(tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	globalManager.cacheLookups.WithLabelValues(tier, result).Inc()
}

// RecordCacheClear counts a cache clear by scope.
func RecordCacheClear(scope string) {
	globalManager.cacheClears.WithLabelValues(scope).Inc()
}

// UpdateCacheSize sets the local cache entry count.
func UpdateCacheSize(size int) {
	globalManager.cacheSize.Set(float64(size))
}

// RecordMatchRun records one matching run and its duration.
func RecordMatchRun(kind, mode string, durationMs float64) {
	globalManager.matchRuns.WithLabelValues(kind, mode).Inc()
	globalManager.matchDuration.WithLabelValues(kind, mode).Observe(durationMs)
}

// RecordAssignments adds n placements for a pass.
func RecordAssignments(pass string, n int) {
	if n <= 0 {
		return
	}
	globalManager.assignments.WithLabelValues(pass).Add(float64(n))
}

// RecordMatrixPairs records the size of a built matrix.
func RecordMatrixPairs(n int) {
	globalManager.matrixPairs.Observe(float64(n))
}

// RecordSkippedPair counts a pair dropped from a matrix.
func RecordSkippedPair() {
	globalManager.skippedPairs.Inc()
}

// RecordInflightShared counts a scoring call served by singleflight.
func RecordInflightShared() {
	globalManager.inflightDeduped.Inc()
}

// RecordAvailability records a degraded-mode decision.
func RecordAvailability(available bool) {
	decision := "degraded"
	if available {
		decision = "available"
	}
	globalManager.degradedDecision.WithLabelValues(decision).Inc()
}

// RecordPrewarmClient counts a client processed by prewarm ("ok", "error").
func RecordPrewarmClient(outcome string) {
	globalManager.prewarmItems.WithLabelValues(outcome).Inc()
}

// UpdateQueueSize sets the pending prewarm job count.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueErrors.WithLabelValues(reason).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
