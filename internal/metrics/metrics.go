package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txview_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "txview_http_request_duration_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txview_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)
	SuspiciousRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "txview_http_suspicious_requests_total",
			Help: "Requests matching a known attack pattern",
		},
	)

	// Dataset fetches
	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "txview_fetch_duration_seconds",
			Help:    "Duration of dataset fetches by source and result.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source", "result"},
	)
	FetchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txview_fetch_failures_total",
			Help: "Dataset fetches that failed",
		},
		[]string{"source"},
	)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txview_cache_lookups_total",
			Help: "Dataset snapshot cache lookups",
		},
		[]string{"result"}, // hit|miss|error
	)

	// Dashboard
	DatasetSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "txview_dataset_records",
			Help: "Records in the loaded dataset",
		},
		[]string{"collection"}, // customers|transactions
	)
	ChartReplacements = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "txview_chart_replacements_total",
			Help: "Charts destroyed to make room for a new one",
		},
	)
	RefreshMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txview_refresh_messages_total",
			Help: "Dataset refresh notifications consumed",
		},
		[]string{"result"}, // ack|requeue|drop
	)

	initOnce sync.Once
)

// Handler serves the /metrics endpoint.
var Handler = promhttp.Handler

// Init registers every collector with the default registry. Safe to call
// more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			RequestLatency,
			RateLimited,
			SuspiciousRequests,
			FetchDuration,
			FetchFailures,
			CacheLookups,
			DatasetSize,
			ChartReplacements,
			RefreshMessages,
		)
	})
}
