package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_proxy_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_proxy_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Generation metrics
var (
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_proxy_generations_total",
			Help: "Total number of sprite sheet generations by outcome",
		},
		[]string{"status"},
	)

	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_proxy_generation_duration_seconds",
			Help:    "Sprite sheet generation duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	GenerationsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_proxy_generations_in_flight",
			Help: "Number of generations currently running",
		},
	)

	SheetsPerGeneration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_proxy_sheets_per_generation",
			Help:    "Number of sprite sheets produced per generation",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
		},
	)
)

// Cache metrics
var (
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_proxy_cache_hits_total",
			Help: "Total number of sprite cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_proxy_cache_misses_total",
			Help: "Total number of sprite cache misses",
		},
	)

	CacheEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_proxy_cache_evictions_total",
			Help: "Total number of cache entries evicted under capacity pressure",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_proxy_cache_entries",
			Help: "Current number of cached generation results",
		},
	)

	CacheSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_proxy_cache_size_bytes",
			Help: "Estimated total size of cached sprite sheets in bytes",
		},
	)
)

// Backend metrics
var (
	BackendJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_proxy_backend_jobs_total",
			Help: "Total number of extraction jobs submitted to the backend",
		},
		[]string{"status"},
	)

	BackendCommandDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_proxy_backend_command_duration_seconds",
			Help:    "Duration of individual extraction commands",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
)
