// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Fetch metrics
	FetchAttempts      *prometheus.CounterVec
	FetchOutcomes      *prometheus.CounterVec
	PostsFetched       *prometheus.CounterVec
	RateLimitWaits     *prometheus.CounterVec
	RateLimitDenied    *prometheus.CounterVec
	RateLimitRemaining *prometheus.GaugeVec

	// Discovery metrics
	CandidatesDiscovered *prometheus.CounterVec
	CandidatesFiltered   *prometheus.CounterVec
	QualityScores        prometheus.Histogram

	// Sampling metrics
	SamplingRuns     *prometheus.CounterVec
	OverallDiversity prometheus.Gauge

	// Pipeline metrics
	BatchesProcessed   prometheus.Counter
	AccountsVerified   prometheus.Counter
	AccountsUnverified prometheus.Counter
	CacheHits          prometheus.Counter
	GeneratedRatio     prometheus.Gauge
	PipelineDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "social_account_lab"
	}

	return &Metrics{
		// Fetch metrics
		FetchAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "attempts_total",
			Help:      "Total number of fetch attempts by source",
		}, []string{"source"}),
		FetchOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "outcomes_total",
			Help:      "Total number of fetch outcomes by source and status",
		}, []string{"source", "status"}),
		PostsFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "posts_total",
			Help:      "Total number of posts fetched by source",
		}, []string{"source"}),
		RateLimitWaits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "waits_total",
			Help:      "Total number of waits on an exhausted rate budget",
		}, []string{"source"}),
		RateLimitDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "denied_total",
			Help:      "Total number of reservations denied within the wait ceiling",
		}, []string{"source"}),
		RateLimitRemaining: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "remaining",
			Help:      "Last observed remaining call budget per source",
		}, []string{"source"}),

		// Discovery metrics
		CandidatesDiscovered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "candidates_total",
			Help:      "Total number of candidates discovered by origin",
		}, []string{"origin"}),
		CandidatesFiltered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "filtered_total",
			Help:      "Total number of candidates excluded by reason",
		}, []string{"reason"}),
		QualityScores: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "quality",
			Name:      "score",
			Help:      "Distribution of computed quality scores",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}),

		// Sampling metrics
		SamplingRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sampling",
			Name:      "runs_total",
			Help:      "Total number of diversity sampling runs by method",
		}, []string{"method"}),
		OverallDiversity: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sampling",
			Name:      "overall_diversity",
			Help:      "Overall diversity of the last sampled candidate set",
		}),

		// Pipeline metrics
		BatchesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "batches_total",
			Help:      "Total number of ingestion batches processed",
		}),
		AccountsVerified: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "accounts_verified_total",
			Help:      "Total number of accounts with real fetched posts",
		}),
		AccountsUnverified: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "accounts_unverified_total",
			Help:      "Total number of accounts with no usable real data",
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "cache_hits_total",
			Help:      "Total number of accounts served from cache",
		}),
		GeneratedRatio: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "generated_ratio",
			Help:      "Proportion of placeholder/synthetic records in the last batch",
		}),
		PipelineDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"mode"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordFetchAttempt increments the fetch attempt counter for a source.
func RecordFetchAttempt(source string) {
	DefaultMetrics.FetchAttempts.WithLabelValues(source).Inc()
}

// RecordFetchOutcome records a fetch outcome by source and status.
func RecordFetchOutcome(source, status string) {
	DefaultMetrics.FetchOutcomes.WithLabelValues(source, status).Inc()
}

// RecordPostsFetched adds fetched post counts for a source.
func RecordPostsFetched(source string, count int) {
	DefaultMetrics.PostsFetched.WithLabelValues(source).Add(float64(count))
}

// RecordRateLimitWait increments the wait counter for a source.
func RecordRateLimitWait(source string) {
	DefaultMetrics.RateLimitWaits.WithLabelValues(source).Inc()
}

// RecordRateLimitDenied increments the denied counter for a source.
func RecordRateLimitDenied(source string) {
	DefaultMetrics.RateLimitDenied.WithLabelValues(source).Inc()
}

// UpdateRateLimitRemaining sets the remaining budget gauge for a source.
func UpdateRateLimitRemaining(source string, remaining int) {
	DefaultMetrics.RateLimitRemaining.WithLabelValues(source).Set(float64(remaining))
}

// RecordCandidateDiscovered increments the discovery counter for an origin.
func RecordCandidateDiscovered(origin string) {
	DefaultMetrics.CandidatesDiscovered.WithLabelValues(origin).Inc()
}

// RecordCandidateFiltered records a candidate exclusion by reason.
func RecordCandidateFiltered(reason string) {
	DefaultMetrics.CandidatesFiltered.WithLabelValues(reason).Inc()
}

// RecordQualityScore observes one computed quality score.
func RecordQualityScore(score float64) {
	DefaultMetrics.QualityScores.Observe(score)
}

// RecordSamplingRun records one sampling run and its resulting diversity.
func RecordSamplingRun(method string, overallDiversity float64) {
	DefaultMetrics.SamplingRuns.WithLabelValues(method).Inc()
	DefaultMetrics.OverallDiversity.Set(overallDiversity)
}

// RecordBatch records pipeline batch-level tallies.
func RecordBatch(verified, unverified, cacheHits int) {
	DefaultMetrics.BatchesProcessed.Inc()
	DefaultMetrics.AccountsVerified.Add(float64(verified))
	DefaultMetrics.AccountsUnverified.Add(float64(unverified))
	DefaultMetrics.CacheHits.Add(float64(cacheHits))
}

// UpdateGeneratedRatio sets the placeholder record proportion gauge.
func UpdateGeneratedRatio(ratio float64) {
	DefaultMetrics.GeneratedRatio.Set(ratio)
}

// RecordPipelineDuration observes a pipeline run duration by mode.
func RecordPipelineDuration(mode string, seconds float64) {
	DefaultMetrics.PipelineDuration.WithLabelValues(mode).Observe(seconds)
}
