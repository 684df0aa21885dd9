// Package metrics defines the Prometheus metric collectors used by the
// indexing and search services and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the services.
type Metrics struct {
	DocsIndexedTotal      prometheus.Counter
	ChunkFlushesTotal     prometheus.Counter
	ChunkMergesTotal      prometheus.Counter
	MergeBytesTotal       prometheus.Counter
	BuildDuration         prometheus.Histogram
	SearchQueriesTotal    *prometheus.CounterVec
	SearchLatency         prometheus.Histogram
	SearchResultsCount    prometheus.Histogram
	ClassificationsTotal  *prometheus.CounterVec
	CacheHitsTotal        prometheus.Counter
	CacheMissesTotal      prometheus.Counter
	IngestedDocsTotal     prometheus.Counter
	IngestFailuresTotal   prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		DocsIndexedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docs_indexed_total",
			Help: "Total number of documents tokenized and indexed.",
		}),
		ChunkFlushesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chunk_flushes_total",
			Help: "Total number of in-memory postings buffers flushed to chunk files.",
		}),
		ChunkMergesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chunk_merges_total",
			Help: "Total number of pairwise chunk merges performed.",
		}),
		MergeBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "merge_bytes_total",
			Help: "Total bytes read from chunk inputs during merges.",
		}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "index_build_duration_seconds",
			Help:    "Wall-clock duration of full index builds.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "search_latency_seconds",
			Help:    "Search query latency in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		SearchResultsCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "search_results_count",
			Help:    "Number of ranked results returned per query.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
		ClassificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "classifications_total",
				Help: "Total k-NN classifications by outcome (labeled, no_results, error).",
			},
			[]string{"outcome"},
		),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total query cache hits.",
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total query cache misses.",
		}),
		IngestedDocsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingested_docs_total",
			Help: "Total documents received from the ingest topic.",
		}),
		IngestFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_failures_total",
			Help: "Total ingest events that could not be processed.",
		}),
	}
	prometheus.MustRegister(
		m.DocsIndexedTotal,
		m.ChunkFlushesTotal,
		m.ChunkMergesTotal,
		m.MergeBytesTotal,
		m.BuildDuration,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.ClassificationsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.IngestedDocsTotal,
		m.IngestFailuresTotal,
	)
	return m
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
