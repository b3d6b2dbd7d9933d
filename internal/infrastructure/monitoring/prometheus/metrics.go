package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AppMetrics holds every service-level metric.
type AppMetrics struct {
	// HTTP surface.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPActiveRequests  *prometheus.GaugeVec

	// Contract pipeline.
	ContractsUploadedTotal *prometheus.CounterVec
	AnalysesTotal          *prometheus.CounterVec
	AnalysisDuration       *prometheus.HistogramVec
	SectionsPerContract    *prometheus.HistogramVec
	ClausesPerContract     *prometheus.HistogramVec
	ContractRiskTotal      *prometheus.CounterVec

	// Worker.
	WorkerQueueDepth  *prometheus.GaugeVec
	WorkerRetriesTotal *prometheus.CounterVec

	// Backing stores.
	DBQueryDuration  *prometheus.HistogramVec
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
}

var (
	httpDurationBuckets     = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	analysisDurationBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}
	perContractBuckets      = []float64{1, 2, 5, 10, 25, 50, 100, 250, 500}
	dbDurationBuckets       = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// NewAppMetrics registers every metric on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	return &AppMetrics{
		HTTPRequestsTotal: collector.RegisterCounter(
			"http_requests_total", "Total HTTP requests", "method", "path", "status"),
		HTTPRequestDuration: collector.RegisterHistogram(
			"http_request_duration_seconds", "HTTP request duration", httpDurationBuckets, "method", "path"),
		HTTPActiveRequests: collector.RegisterGauge(
			"http_active_requests", "In-flight HTTP requests", "method"),

		ContractsUploadedTotal: collector.RegisterCounter(
			"contracts_uploaded_total", "Contracts accepted for analysis", "source"),
		AnalysesTotal: collector.RegisterCounter(
			"analyses_total", "Completed analysis runs", "status"),
		AnalysisDuration: collector.RegisterHistogram(
			"analysis_duration_seconds", "End-to-end analysis duration", analysisDurationBuckets, "source"),
		SectionsPerContract: collector.RegisterHistogram(
			"sections_per_contract", "Sections per structured contract", perContractBuckets),
		ClausesPerContract: collector.RegisterHistogram(
			"clauses_per_contract", "Clauses per structured contract", perContractBuckets),
		ContractRiskTotal: collector.RegisterCounter(
			"contract_risk_total", "Contract-level risk outcomes", "level"),

		WorkerQueueDepth: collector.RegisterGauge(
			"worker_queue_depth", "Pending jobs in the worker queue", "queue"),
		WorkerRetriesTotal: collector.RegisterCounter(
			"worker_retries_total", "Analysis retries", "reason"),

		DBQueryDuration: collector.RegisterHistogram(
			"db_query_duration_seconds", "Database query duration", dbDurationBuckets, "operation"),
		CacheHitsTotal: collector.RegisterCounter(
			"cache_hits_total", "Cache hits", "cache"),
		CacheMissesTotal: collector.RegisterCounter(
			"cache_misses_total", "Cache misses", "cache"),
		ErrorsTotal: collector.RegisterCounter(
			"errors_total", "Errors by component", "component", "code"),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Recording helpers
// ─────────────────────────────────────────────────────────────────────────────

// RecordHTTPRequest updates the request counter and latency histogram.
func (m *AppMetrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAnalysis records one analysis run.
func (m *AppMetrics) RecordAnalysis(source string, sections, clauses int, riskLevel string, duration time.Duration, failed bool) {
	status := "completed"
	if failed {
		status = "failed"
	}
	m.AnalysesTotal.WithLabelValues(status).Inc()
	m.AnalysisDuration.WithLabelValues(source).Observe(duration.Seconds())
	if !failed {
		m.SectionsPerContract.WithLabelValues().Observe(float64(sections))
		m.ClausesPerContract.WithLabelValues().Observe(float64(clauses))
		if riskLevel != "" {
			m.ContractRiskTotal.WithLabelValues(riskLevel).Inc()
		}
	}
}

// RecordCacheAccess counts one cache lookup.
func (m *AppMetrics) RecordCacheAccess(cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

// RecordError counts one error by component and code.
func (m *AppMetrics) RecordError(component, code string) {
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}
