package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// Fetch
	UpstreamRequestsTotal   CounterVec
	UpstreamRequestDuration HistogramVec
	PagesFetchedTotal       CounterVec
	RecordsFetchedTotal     CounterVec
	RecordsFlushedTotal     CounterVec
	FlushesTotal            CounterVec
	FlushDuration           HistogramVec
	FetchFailuresTotal      CounterVec
	BufferedRecords         GaugeVec

	// Store
	StoreOperationDuration HistogramVec
	StoreErrorsTotal       CounterVec

	// HTTP API
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
}

// Default Buckets
var (
	DefaultHTTPDurationBuckets     = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultUpstreamDurationBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}
	DefaultDBDurationBuckets       = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// NewAppMetrics registers all metrics and returns AppMetrics struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// Fetch
	m.UpstreamRequestsTotal = collector.RegisterCounter("upstream_requests_total", "Grant API requests by outcome", "outcome")
	m.UpstreamRequestDuration = collector.RegisterHistogram("upstream_request_duration_seconds", "Grant API request duration", DefaultUpstreamDurationBuckets, "outcome")
	m.PagesFetchedTotal = collector.RegisterCounter("pages_fetched_total", "Grant pages fetched")
	m.RecordsFetchedTotal = collector.RegisterCounter("records_fetched_total", "Grant records mapped from fetched pages")
	m.RecordsFlushedTotal = collector.RegisterCounter("records_flushed_total", "Grant records handed to the store")
	m.FlushesTotal = collector.RegisterCounter("flushes_total", "Buffer flushes to the store")
	m.FlushDuration = collector.RegisterHistogram("flush_duration_seconds", "Buffer flush duration", DefaultDBDurationBuckets)
	m.FetchFailuresTotal = collector.RegisterCounter("fetch_failures_total", "Failed fetch runs by error kind", "kind")
	m.BufferedRecords = collector.RegisterGauge("buffered_records", "Records held in the fetch buffer awaiting a flush")

	// Store
	m.StoreOperationDuration = collector.RegisterHistogram("store_operation_duration_seconds", "Store operation duration", DefaultDBDurationBuckets, "backend", "operation")
	m.StoreErrorsTotal = collector.RegisterCounter("store_errors_total", "Failed store operations", "backend", "operation")

	// HTTP API
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")

	return m
}

// ObserveRequest records one grant API round trip.
func (m *AppMetrics) ObserveRequest(outcome string, elapsed time.Duration) {
	m.UpstreamRequestsTotal.WithLabelValues(outcome).Inc()
	m.UpstreamRequestDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObservePage records a successfully mapped page.
func (m *AppMetrics) ObservePage(records int) {
	m.PagesFetchedTotal.WithLabelValues().Inc()
	m.RecordsFetchedTotal.WithLabelValues().Add(float64(records))
}

// ObserveFlush records one buffer flush.
func (m *AppMetrics) ObserveFlush(records int, elapsed time.Duration) {
	m.FlushesTotal.WithLabelValues().Inc()
	m.RecordsFlushedTotal.WithLabelValues().Add(float64(records))
	m.FlushDuration.WithLabelValues().Observe(elapsed.Seconds())
}

// ObserveBuffered sets the current fetch buffer size.
func (m *AppMetrics) ObserveBuffered(records int) {
	m.BufferedRecords.WithLabelValues().Set(float64(records))
}

// ObserveFailure records a failed run by error kind.
func (m *AppMetrics) ObserveFailure(kind string) {
	m.FetchFailuresTotal.WithLabelValues(kind).Inc()
}

// RecordHTTPRequest counts one served request and its latency.
func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
