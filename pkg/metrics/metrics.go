// Package metrics defines the Prometheus metric collectors used by the
// documentation search service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	FilesScannedTotal    prometheus.Counter
	FilesProcessedTotal  prometheus.Counter
	FilesFailedTotal     prometheus.Counter
	BytesProcessedTotal  prometheus.Counter
	IndexRunsTotal       *prometheus.CounterVec
	IndexRunDuration     prometheus.Histogram
	IndexDocuments       prometheus.Gauge
	IndexingInProgress   prometheus.Gauge
	SnapshotSavesTotal   *prometheus.CounterVec
}

// New creates all collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsearch_queries_total",
				Help: "Total search queries by result type (hit, zero_result).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docsearch_search_latency_seconds",
				Help:    "Search latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docsearch_search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docsearch_cache_hits_total",
				Help: "Total number of search cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docsearch_cache_misses_total",
				Help: "Total number of search cache misses.",
			},
		),
		FilesScannedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docsearch_files_scanned_total",
				Help: "Corpus files found eligible for indexing.",
			},
		),
		FilesProcessedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docsearch_files_processed_total",
				Help: "Corpus files parsed into index documents.",
			},
		),
		FilesFailedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docsearch_files_failed_total",
				Help: "Corpus files that failed to read or parse.",
			},
		),
		BytesProcessedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docsearch_bytes_processed_total",
				Help: "Bytes of corpus content read by the indexer.",
			},
		),
		IndexRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsearch_index_runs_total",
				Help: "Indexing runs by status.",
			},
			[]string{"status"},
		),
		IndexRunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docsearch_index_run_duration_seconds",
				Help:    "Wall-clock duration of indexing runs.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
		),
		IndexDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "docsearch_index_documents",
				Help: "Documents currently held in the in-memory index.",
			},
		),
		IndexingInProgress: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "docsearch_indexing_in_progress",
				Help: "1 while a background indexing run is active.",
			},
		),
		SnapshotSavesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsearch_snapshot_saves_total",
				Help: "Snapshot writes by status.",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.FilesScannedTotal,
		m.FilesProcessedTotal,
		m.FilesFailedTotal,
		m.BytesProcessedTotal,
		m.IndexRunsTotal,
		m.IndexRunDuration,
		m.IndexDocuments,
		m.IndexingInProgress,
		m.SnapshotSavesTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
