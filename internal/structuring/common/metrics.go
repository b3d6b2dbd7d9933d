package common

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// StructuringMetrics defines the telemetry API for the structuring engine.
// Components record through this interface so the implementation (Prometheus,
// in-memory, noop) can be swapped without touching business code.
type StructuringMetrics interface {
	// RecordStructuring records one full document-structuring run.
	RecordStructuring(ctx context.Context, durationMs float64, sections, clauses int, success bool)

	// RecordRiskInference records one risk-classification call and whether it
	// was served by the model or the keyword fallback.
	RecordRiskInference(ctx context.Context, riskLevel string, durationMs float64, fallback bool)

	// RecordClauseExtraction records clause counts per segmentation strategy.
	RecordClauseExtraction(ctx context.Context, strategy string, candidates int)
}

// ---------------------------------------------------------------------------
// Prometheus implementation
// ---------------------------------------------------------------------------

const metricsPrefix = "clauselens_structuring_"

var defaultLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

type prometheusMetrics struct {
	structuringDuration *prometheus.HistogramVec
	structuringTotal    *prometheus.CounterVec
	sectionsPerDoc      prometheus.Histogram
	clausesPerDoc       prometheus.Histogram
	riskInferenceTotal  *prometheus.CounterVec
	riskDuration        *prometheus.HistogramVec
	extractionTotal     *prometheus.CounterVec
}

// NewPrometheusMetrics creates a Prometheus-backed metrics collector and
// registers all metrics with the supplied Registerer.
func NewPrometheusMetrics(registerer prometheus.Registerer) (StructuringMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &prometheusMetrics{}

	m.structuringDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    metricsPrefix + "duration_milliseconds",
		Help:    "Histogram of full document structuring duration in milliseconds.",
		Buckets: defaultLatencyBuckets,
	}, []string{"status"})

	m.structuringTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricsPrefix + "documents_total",
		Help: "Total number of structured documents.",
	}, []string{"status"})

	m.sectionsPerDoc = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    metricsPrefix + "sections_per_document",
		Help:    "Histogram of section counts per document.",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
	})

	m.clausesPerDoc = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    metricsPrefix + "clauses_per_document",
		Help:    "Histogram of clause counts per document.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
	})

	m.riskInferenceTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricsPrefix + "risk_inference_total",
		Help: "Total number of risk classifications by level and path.",
	}, []string{"risk_level", "path"})

	m.riskDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    metricsPrefix + "risk_inference_duration_milliseconds",
		Help:    "Histogram of risk classification duration in milliseconds.",
		Buckets: defaultLatencyBuckets,
	}, []string{"path"})

	m.extractionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricsPrefix + "clause_candidates_total",
		Help: "Total number of clause candidates by segmentation strategy.",
	}, []string{"strategy"})

	collectors := []prometheus.Collector{
		m.structuringDuration,
		m.structuringTotal,
		m.sectionsPerDoc,
		m.clausesPerDoc,
		m.riskInferenceTotal,
		m.riskDuration,
		m.extractionTotal,
	}
	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *prometheusMetrics) RecordStructuring(_ context.Context, durationMs float64, sections, clauses int, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.structuringDuration.WithLabelValues(status).Observe(durationMs)
	m.structuringTotal.WithLabelValues(status).Inc()
	if success {
		m.sectionsPerDoc.Observe(float64(sections))
		m.clausesPerDoc.Observe(float64(clauses))
	}
}

func (m *prometheusMetrics) RecordRiskInference(_ context.Context, riskLevel string, durationMs float64, fallback bool) {
	path := "model"
	if fallback {
		path = "fallback"
	}
	m.riskInferenceTotal.WithLabelValues(riskLevel, path).Inc()
	m.riskDuration.WithLabelValues(path).Observe(durationMs)
}

func (m *prometheusMetrics) RecordClauseExtraction(_ context.Context, strategy string, candidates int) {
	m.extractionTotal.WithLabelValues(strategy).Add(float64(candidates))
}

// ---------------------------------------------------------------------------
// Noop implementation
// ---------------------------------------------------------------------------

type noopMetrics struct{}

// NewNoopMetrics returns a no-op metrics implementation.
func NewNoopMetrics() StructuringMetrics { return noopMetrics{} }

func (noopMetrics) RecordStructuring(context.Context, float64, int, int, bool)     {}
func (noopMetrics) RecordRiskInference(context.Context, string, float64, bool)     {}
func (noopMetrics) RecordClauseExtraction(context.Context, string, int)            {}

// ---------------------------------------------------------------------------
// In-memory implementation (for testing)
// ---------------------------------------------------------------------------

type inMemoryMetrics struct {
	mu sync.Mutex

	StructuringRuns int
	RiskByLevel     map[string]int
	FallbackCount   int
	CandidatesBy    map[string]int
}

// NewInMemoryMetrics returns an in-memory metrics implementation suitable for
// unit tests.
func NewInMemoryMetrics() *inMemoryMetrics {
	return &inMemoryMetrics{
		RiskByLevel:  make(map[string]int),
		CandidatesBy: make(map[string]int),
	}
}

func (m *inMemoryMetrics) RecordStructuring(_ context.Context, _ float64, _, _ int, _ bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StructuringRuns++
}

func (m *inMemoryMetrics) RecordRiskInference(_ context.Context, riskLevel string, _ float64, fallback bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RiskByLevel[riskLevel]++
	if fallback {
		m.FallbackCount++
	}
}

func (m *inMemoryMetrics) RecordClauseExtraction(_ context.Context, strategy string, candidates int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CandidatesBy[strategy] += candidates
}

// Snapshot returns copies of the recorded counters.
func (m *inMemoryMetrics) Snapshot() (runs int, riskByLevel map[string]int, fallbacks int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rb := make(map[string]int, len(m.RiskByLevel))
	for k, v := range m.RiskByLevel {
		rb[k] = v
	}
	return m.StructuringRuns, rb, m.FallbackCount
}

// compile-time interface checks
var (
	_ StructuringMetrics = (*prometheusMetrics)(nil)
	_ StructuringMetrics = noopMetrics{}
	_ StructuringMetrics = (*inMemoryMetrics)(nil)
)
