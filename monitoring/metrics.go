// Package monitoring provides metrics and observability for the HN mirror backend
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Item fetch metrics
	itemFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hnmirror_item_fetch_total",
			Help: "Total number of Hacker News item fetch attempts",
		},
		[]string{"status"},
	)

	itemFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hnmirror_item_fetch_duration_seconds",
			Help:    "Duration of Hacker News item fetches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	// Pipeline metrics
	pipelineRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hnmirror_pipeline_runs_total",
			Help: "Total number of pipeline runs by flow",
		},
		[]string{"flow", "status"},
	)

	pipelineRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hnmirror_pipeline_run_duration_seconds",
			Help:    "Duration of pipeline runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 540},
		},
		[]string{"flow", "status"},
	)

	storiesStored = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hnmirror_batch_stories_stored",
			Help:    "Number of stories stored per processed batch",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 200, 400},
		},
	)

	backlogPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hnmirror_backlog_pending_batches",
			Help: "Number of pending backlog batches",
		},
	)

	// Datastore metrics
	datastoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hnmirror_datastore_operations_total",
			Help: "Total number of datastore operations",
		},
		[]string{"operation", "status"},
	)

	datastoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hnmirror_datastore_operation_duration_seconds",
			Help:    "Duration of datastore operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	// Cache metrics
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hnmirror_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"operation"},
	)

	cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hnmirror_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"operation"},
	)

	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hnmirror_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hnmirror_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	// System metrics
	activeWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hnmirror_active_workers",
			Help: "Number of active reload job workers",
		},
	)
)

// RecordItemFetch records metrics for a single item fetch
func RecordItemFetch(status string, duration float64) {
	itemFetchTotal.WithLabelValues(status).Inc()
	itemFetchDuration.WithLabelValues(status).Observe(duration)
}

// RecordPipelineRun records metrics for a pipeline run
func RecordPipelineRun(flow, status string, duration float64) {
	pipelineRunTotal.WithLabelValues(flow, status).Inc()
	pipelineRunDuration.WithLabelValues(flow, status).Observe(duration)
}

// RecordBatchProcessed records how many stories a batch persisted
func RecordBatchProcessed(stored int) {
	storiesStored.Observe(float64(stored))
}

// UpdateBacklogPending updates the pending backlog batch gauge
func UpdateBacklogPending(count int) {
	backlogPending.Set(float64(count))
}

// RecordDatastoreOperation records datastore operation metrics
func RecordDatastoreOperation(operation, status string, duration float64) {
	datastoreOperations.WithLabelValues(operation, status).Inc()
	datastoreOperationDuration.WithLabelValues(operation, status).Observe(duration)
}

// RecordCacheHit records a cache hit
func RecordCacheHit(operation string) {
	cacheHits.WithLabelValues(operation).Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss(operation string) {
	cacheMisses.WithLabelValues(operation).Inc()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration)
}

// UpdateActiveWorkers updates the active workers gauge
func UpdateActiveWorkers(count int) {
	activeWorkers.Set(float64(count))
}
