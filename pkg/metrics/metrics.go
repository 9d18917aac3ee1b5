// Package metrics defines the Prometheus collectors used by the indexer and
// the search service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "retrieval"

var (
	httpBuckets   = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	searchBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}
	resultBuckets = []float64{0, 1, 5, 10, 25, 50, 100}
)

type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	SearchQueriesTotal *prometheus.CounterVec
	SearchLatency      *prometheus.HistogramVec
	SearchResultsCount prometheus.Histogram
	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter

	DocsIndexedTotal   prometheus.Counter
	TokensIndexedTotal prometheus.Counter
	SnapshotOpsTotal   *prometheus.CounterVec
	CorpusDocuments    prometheus.Gauge
	CorpusTerms        prometheus.Gauge

	CircuitBreakerState *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New registers all collectors with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers all collectors with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration. When reg is also
// a Gatherer, Handler serves exactly what was registered here.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   httpBuckets,
		}, []string{"method", "path"}),
		HTTPRequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),

		SearchQueriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_queries_total",
			Help:      "Search queries by scorer and outcome (ok, zero_match, error).",
		}, []string{"scorer", "outcome"}),
		SearchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_latency_seconds",
			Help:      "Full-scan search latency in seconds.",
			Buckets:   searchBuckets,
		}, []string{"scorer"}),
		SearchResultsCount: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results_count",
			Help:      "Results returned per search.",
			Buckets:   resultBuckets,
		}),
		CacheHitsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query_cache",
			Name:      "hits_total",
			Help:      "Query cache hits.",
		}),
		CacheMissesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query_cache",
			Name:      "misses_total",
			Help:      "Query cache misses.",
		}),

		DocsIndexedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "documents_total",
			Help:      "Documents added to the corpus index.",
		}),
		TokensIndexedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "terms_total",
			Help:      "Preprocessed terms indexed across all documents.",
		}),
		SnapshotOpsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "operations_total",
			Help:      "Snapshot save and load operations by status.",
		}, []string{"op", "status"}),
		CorpusDocuments: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "corpus",
			Name:      "documents",
			Help:      "Documents in the corpus index.",
		}),
		CorpusTerms: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "corpus",
			Name:      "terms",
			Help:      "Distinct terms in the corpus index.",
		}),

		CircuitBreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open).",
		}, []string{"name"}),

		gatherer: prometheus.DefaultGatherer,
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Handler returns the scrape handler for the registry m was built with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
