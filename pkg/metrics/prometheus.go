// Package metrics provides Prometheus metrics for the reputation service.
package metrics

import (
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultNamespace       = "reputation"
	defaultSubsystem       = "service"
	defaultRefreshInterval = 10 * time.Second
)

// DefaultLatencyBuckets are the millisecond buckets used for store and HTTP
// latency when none are configured.
var DefaultLatencyBuckets = []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000} //nolint:gochecknoglobals // read-only defaults

// Manager manages all Prometheus metrics for the reputation service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Leaderboard cache
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	cacheStale  prometheus.Counter
	cacheAge    prometheus.Gauge

	// Reputation business metrics
	awardsTotal    *prometheus.CounterVec
	pointsAwarded  prometheus.Counter
	pointsDeducted prometheus.Counter
	membersCreated prometheus.Counter
	totalMembers   prometheus.Gauge
	searchMisses   prometheus.Counter

	// Store client
	storeQueryLatency *prometheus.HistogramVec
	storeErrors       *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// Init replaces the global manager with one built from opts on a fresh
// registry. Call it once at startup, before GetRegistry is handed to the
// /metrics handler; observations made before it are dropped.
func Init(opts ...Option) *Manager {
	registry := prometheus.NewRegistry()
	m := NewManager(append(slices.Clone(opts), WithRegistry(registry))...)
	customRegistry = registry
	globalManager = m
	return m
}

// RefreshInterval reports the global manager's gauge refresh interval.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        defaultNamespace,
		subsystem:        defaultSubsystem,
		histogramBuckets: DefaultLatencyBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) opts(name, help string) prometheus.Opts {
	return prometheus.Opts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts(m.opts(name, help)))
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts(m.opts(name, help)))
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	o := m.opts(name, help)
	return prometheus.HistogramOpts{
		Namespace:   o.Namespace,
		Subsystem:   o.Subsystem,
		Name:        o.Name,
		Help:        o.Help,
		ConstLabels: o.ConstLabels,
		Buckets:     buckets,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.cacheHits = m.counter("leaderboard_cache_hits_total", "Leaderboard requests served from the fresh cache slot")
	m.cacheMisses = m.counter("leaderboard_cache_misses_total", "Leaderboard requests that queried the store")
	m.cacheStale = m.counter("leaderboard_cache_stale_total", "Leaderboard requests answered with stale data after a store failure")
	m.cacheAge = m.gauge("leaderboard_cache_age_seconds", "Age of the cached first page at last observation")

	m.awardsTotal = auto.NewCounterVec(prometheus.CounterOpts(m.opts("awards_total", "Reputation awards by category and outcome")),
		[]string{"category", "success"})
	m.pointsAwarded = m.counter("points_awarded_total", "Sum of positive point deltas applied")
	m.pointsDeducted = m.counter("points_deducted_total", "Sum of absolute negative point deltas applied")
	m.membersCreated = m.counter("members_created_total", "Members created through the API")
	m.totalMembers = m.gauge("members", "Number of members at the last leaderboard fetch")
	m.searchMisses = m.counter("search_no_match_total", "Searches that matched no member")

	m.storeQueryLatency = auto.NewHistogramVec(
		m.histogramOpts("store_query_latency_milliseconds", "Store call latency in milliseconds", m.histogramBuckets),
		[]string{"op"},
	)
	m.storeErrors = auto.NewCounterVec(prometheus.CounterOpts(m.opts("store_errors_total", "Store calls that returned an error")),
		[]string{"op"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts(m.opts("http_requests_total", "Total number of HTTP requests by endpoint and method")),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts(m.opts("errors_by_type_total", "Errors by type and severity")),
		[]string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts(m.opts("errors_by_endpoint_total", "Errors by endpoint")),
		[]string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Allocated heap bytes")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_milliseconds", "Average GC pause in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	globalManager.RecordCacheHit()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	globalManager.RecordCacheMiss()
}

// RecordCacheStale increments the stale fallback counter.
func RecordCacheStale() {
	globalManager.RecordCacheStale()
}

// UpdateCacheAge sets the observed age of the cached page.
func UpdateCacheAge(age time.Duration) {
	globalManager.UpdateCacheAge(age)
}

// RecordAward records one award call.
func RecordAward(category string, points int, success bool) {
	globalManager.RecordAward(category, points, success)
}

// RecordMemberCreated increments the members created counter.
func RecordMemberCreated() {
	globalManager.RecordMemberCreated()
}

// UpdateTotalMembers sets the member count gauge.
func UpdateTotalMembers(count int) {
	globalManager.UpdateTotalMembers(count)
}

// RecordSearchMiss increments the no-match search counter.
func RecordSearchMiss() {
	globalManager.RecordSearchMiss()
}

// RecordStoreLatency records a store call duration.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.RecordStoreLatency(op, latencyMs)
}

// RecordStoreError increments the store error counter for op.
func RecordStoreError(op string) {
	globalManager.RecordStoreError(op)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByType increments errors by type and severity.
func RecordErrorByType(errorType, severity string) {
	if globalManager.enabled {
		globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
	}
}

// RecordErrorByEndpoint increments errors by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if globalManager.enabled {
		globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// UpdateSystemMemoryUsage sets the memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	if globalManager.enabled {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	if globalManager.enabled {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if globalManager.enabled {
		globalManager.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Manager-level recorders. Disabled managers drop observations.

func (m *Manager) RecordCacheHit() {
	if m.enabled {
		m.cacheHits.Inc()
	}
}

func (m *Manager) RecordCacheMiss() {
	if m.enabled {
		m.cacheMisses.Inc()
	}
}

func (m *Manager) RecordCacheStale() {
	if m.enabled {
		m.cacheStale.Inc()
	}
}

func (m *Manager) UpdateCacheAge(age time.Duration) {
	if m.enabled {
		m.cacheAge.Set(age.Seconds())
	}
}

func (m *Manager) RecordAward(category string, points int, success bool) {
	if !m.enabled {
		return
	}
	outcome := "false"
	if success {
		outcome = "true"
	}
	m.awardsTotal.WithLabelValues(category, outcome).Inc()
	if !success {
		return
	}
	if points >= 0 {
		m.pointsAwarded.Add(float64(points))
	} else {
		m.pointsDeducted.Add(float64(-points))
	}
}

func (m *Manager) RecordMemberCreated() {
	if m.enabled {
		m.membersCreated.Inc()
	}
}

func (m *Manager) UpdateTotalMembers(count int) {
	if m.enabled {
		m.totalMembers.Set(float64(count))
	}
}

func (m *Manager) RecordSearchMiss() {
	if m.enabled {
		m.searchMisses.Inc()
	}
}

func (m *Manager) RecordStoreLatency(op string, latencyMs float64) {
	if m.enabled {
		m.storeQueryLatency.WithLabelValues(op).Observe(latencyMs)
	}
}

func (m *Manager) RecordStoreError(op string) {
	if m.enabled {
		m.storeErrors.WithLabelValues(op).Inc()
	}
}

// RefreshInterval reports how often gauge updaters should run.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}
