package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	operationDuration  *prometheus.HistogramVec
	externalErrors     *prometheus.CounterVec
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	similarityRequests *prometheus.CounterVec
	reportRuns         *prometheus.CounterVec
	reportEmails       *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. A private registry lets tests call NewMetrics
// repeatedly without "duplicate collector" panics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spreadchecker_operation_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spreadchecker_external_errors_total",
				Help: "Total errors from external collaborators.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spreadchecker_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spreadchecker_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		similarityRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spreadchecker_similarity_requests_total",
				Help: "Similar-company lookups by outcome.",
			},
			[]string{"outcome"},
		),
		reportRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spreadchecker_report_companies_total",
				Help: "Per-company report outcomes.",
			},
			[]string{"mode", "status"},
		),
		reportEmails: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spreadchecker_report_emails_total",
				Help: "Report emails by delivery status.",
			},
			[]string{"status"},
		),
	}
}

// RecordDuration records the duration of an operation.
func (m *Metrics) RecordDuration(operation string, d time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrSimilarity counts a similar-company lookup by outcome
// (matched, no_source, no_candidates, error).
func (m *Metrics) IncrSimilarity(outcome string) {
	m.similarityRequests.WithLabelValues(outcome).Inc()
}

// IncrReport counts a per-company report outcome.
func (m *Metrics) IncrReport(mode, status string) {
	m.reportRuns.WithLabelValues(mode, status).Inc()
}

// IncrReportEmail counts a report email by status (sent, failed).
func (m *Metrics) IncrReportEmail(status string) {
	m.reportEmails.WithLabelValues(status).Inc()
}

// CounterValue returns the current value of one of the named counters for a
// label set. Unknown names return 0.
func (m *Metrics) CounterValue(name string, labels ...string) float64 {
	var cv *prometheus.CounterVec
	switch name {
	case "external_errors":
		cv = m.externalErrors
	case "cache_hits":
		cv = m.cacheHits
	case "cache_misses":
		cv = m.cacheMisses
	case "similarity":
		cv = m.similarityRequests
	case "reports":
		cv = m.reportRuns
	case "report_emails":
		cv = m.reportEmails
	default:
		return 0
	}
	return getCounterValue(cv, labels...)
}

// getCounterValue extracts the current float64 value from a CounterVec.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		return 0
	}
	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
