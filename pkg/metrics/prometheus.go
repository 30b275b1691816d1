// Package metrics provides Prometheus metrics for the squadmetrics service.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the squadmetrics service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          atomic.Bool
	refreshInterval  atomic.Int64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Snapshot Metrics - fetching the raw stat sheet
	snapshotFetches       *prometheus.CounterVec
	snapshotFetchDuration *prometheus.HistogramVec
	snapshotRecords       prometheus.Gauge
	snapshotPlayers       prometheus.Gauge
	snapshotLastUnix      prometheus.Gauge

	// Cache Metrics - time-boxed snapshot store
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	cacheOpDuration  *prometheus.HistogramVec
	cachePayloadSize prometheus.Gauge

	// Evaluation Metrics - normalize, score, aggregate, rank
	evaluationDuration prometheus.Histogram
	evaluationCount    prometheus.Counter
	missingOverall     prometheus.Gauge
	rankedPlayers      prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "squadmetrics",
		subsystem:        "dashboard",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}
	m.enabled.Store(true)
	m.refreshInterval.Store(int64(defaultRefreshInterval))

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval returns how often gauge metrics should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return time.Duration(m.refreshInterval.Load()) }

// Enabled reports whether metrics collection is enabled.
func (m *Manager) Enabled() bool { return m.enabled.Load() }

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) labels() prometheus.Labels {
	if len(m.customLabels) == 0 {
		return nil
	}
	out := make(prometheus.Labels, len(m.customLabels))
	for k, v := range m.customLabels {
		out[k] = v
	}
	return out
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)
	constLabels := m.labels()

	// Snapshot Metrics
	m.snapshotFetches = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("snapshot_fetches_total"),
			Help:        "Total number of stat sheet fetches by source and result",
			ConstLabels: constLabels,
		},
		[]string{"source", "result"},
	)

	m.snapshotFetchDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("snapshot_fetch_duration_milliseconds"),
			Help:        "Stat sheet fetch and parse duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: constLabels,
		},
		[]string{"source"},
	)

	m.snapshotRecords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("snapshot_records"),
		Help:        "Number of records in the current snapshot",
		ConstLabels: constLabels,
	})

	m.snapshotPlayers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("snapshot_players"),
		Help:        "Number of distinct players in the current snapshot",
		ConstLabels: constLabels,
	})

	m.snapshotLastUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("snapshot_last_fetch_unix"),
		Help:        "Unix timestamp of the last successful sheet fetch",
		ConstLabels: constLabels,
	})

	// Cache Metrics
	m.cacheHits = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("cache_hits_total"),
			Help:        "Total number of snapshot cache hits",
			ConstLabels: constLabels,
		},
		[]string{"store"},
	)

	m.cacheMisses = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("cache_misses_total"),
			Help:        "Total number of snapshot cache misses by reason",
			ConstLabels: constLabels,
		},
		[]string{"store", "reason"},
	)

	m.cacheOpDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("cache_operation_duration_milliseconds"),
			Help:        "Snapshot cache operation latency in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: constLabels,
		},
		[]string{"store", "operation"},
	)

	m.cachePayloadSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("cache_payload_bytes"),
		Help:        "Size of the last cached sheet payload in bytes",
		ConstLabels: constLabels,
	})

	// Evaluation Metrics
	m.evaluationDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("evaluation_duration_milliseconds"),
		Help:        "Duration of a full pipeline evaluation in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	})

	m.evaluationCount = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("evaluations_total"),
		Help:        "Total number of pipeline evaluations",
		ConstLabels: constLabels,
	})

	m.missingOverall = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("missing_overall_records"),
		Help:        "Records in the current snapshot whose overall score is not available",
		ConstLabels: constLabels,
	})

	m.rankedPlayers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("ranked_players"),
		Help:        "Players with an available team ranking score",
		ConstLabels: constLabels,
	})

	// HTTP Performance Metrics
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_requests_total"),
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_request_duration_milliseconds"),
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Error Metrics
	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_component_total"),
			Help:        "Total number of errors by component",
			ConstLabels: constLabels,
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_type_total"),
			Help:        "Total number of errors by type",
			ConstLabels: constLabels,
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_endpoint_total"),
			Help:        "Total number of errors by endpoint",
			ConstLabels: constLabels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_usage_bytes"),
		Help:        "System memory usage in bytes",
		ConstLabels: constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_goroutine_count"),
		Help:        "Number of goroutines",
		ConstLabels: constLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_time_milliseconds"),
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: constLabels,
	})
}

func disabled() bool { return !globalManager.enabled.Load() }

// Snapshot Metrics Functions.

// RecordSnapshotFetch counts a sheet fetch; result is "ok" or an error kind.
func RecordSnapshotFetch(source, result string) {
	if disabled() {
		return
	}
	globalManager.snapshotFetches.WithLabelValues(source, result).Inc()
}

// RecordSnapshotFetchDuration records fetch and parse latency.
func RecordSnapshotFetchDuration(source string, latencyMs float64) {
	if disabled() {
		return
	}
	globalManager.snapshotFetchDuration.WithLabelValues(source).Observe(latencyMs)
}

// UpdateSnapshotSize sets the record and player counts of the current snapshot.
func UpdateSnapshotSize(records, players int) {
	if disabled() {
		return
	}
	globalManager.snapshotRecords.Set(float64(records))
	globalManager.snapshotPlayers.Set(float64(players))
}

// UpdateSnapshotLastFetch sets the time of the last successful fetch.
func UpdateSnapshotLastFetch(t time.Time) {
	if disabled() {
		return
	}
	globalManager.snapshotLastUnix.Set(float64(t.Unix()))
}

// Cache Metrics Functions.

// RecordCacheHit increments the cache hit counter of a store.
func RecordCacheHit(store string) {
	if disabled() {
		return
	}
	globalManager.cacheHits.WithLabelValues(store).Inc()
}

// RecordCacheMiss increments the cache miss counter of a store.
func RecordCacheMiss(store, reason string) {
	if disabled() {
		return
	}
	globalManager.cacheMisses.WithLabelValues(store, reason).Inc()
}

// RecordCacheOperationLatency records a cache load or save latency.
func RecordCacheOperationLatency(store, operation string, latencyMs float64) {
	if disabled() {
		return
	}
	globalManager.cacheOpDuration.WithLabelValues(store, operation).Observe(latencyMs)
}

// UpdateCachePayloadSize sets the size of the last cached payload.
func UpdateCachePayloadSize(bytes int) {
	if disabled() {
		return
	}
	globalManager.cachePayloadSize.Set(float64(bytes))
}

// Evaluation Metrics Functions.

// RecordEvaluation records one pipeline evaluation.
func RecordEvaluation(latencyMs float64) {
	if disabled() {
		return
	}
	globalManager.evaluationCount.Inc()
	globalManager.evaluationDuration.Observe(latencyMs)
}

// UpdateMissingOverall sets the number of records with no overall score.
func UpdateMissingOverall(count int) {
	if disabled() {
		return
	}
	globalManager.missingOverall.Set(float64(count))
}

// UpdateRankedPlayers sets the number of players with a ranking score.
func UpdateRankedPlayers(count int) {
	if disabled() {
		return
	}
	globalManager.rankedPlayers.Set(float64(count))
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if disabled() {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if disabled() {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if disabled() {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if disabled() {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if disabled() {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if disabled() {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if disabled() {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if disabled() {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
