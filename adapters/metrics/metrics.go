// Package metrics provides Prometheus metrics collection for rentdesk.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for rentdesk.
type Collector struct {
	// Transport metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Cache metrics
	CacheHits          *prometheus.CounterVec
	CacheMisses        *prometheus.CounterVec
	CacheDeduplicated  prometheus.Counter
	CacheInvalidations *prometheus.CounterVec
	CacheRefetches     *prometheus.CounterVec
	CacheEvictions     prometheus.Counter
	CacheEntries       prometheus.Gauge

	// Mutation metrics
	Mutations *prometheus.CounterVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rentdesk",
				Name:      "requests_total",
				Help:      "Total number of backend requests issued",
			},
			[]string{"endpoint", "method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rentdesk",
				Name:      "request_duration_seconds",
				Help:      "Backend request duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"endpoint", "method"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "rentdesk",
				Name:      "requests_in_flight",
				Help:      "Number of backend requests currently in flight",
			},
		),
		CacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rentdesk",
				Name:      "cache_hits_total",
				Help:      "Queries answered from a fresh cache entry",
			},
			[]string{"endpoint"},
		),
		CacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rentdesk",
				Name:      "cache_misses_total",
				Help:      "Queries that required a backend request",
			},
			[]string{"endpoint"},
		),
		CacheDeduplicated: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "rentdesk",
				Name:      "cache_dedup_total",
				Help:      "Queries that joined an identical in-flight request",
			},
		),
		CacheInvalidations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rentdesk",
				Name:      "cache_invalidations_total",
				Help:      "Tags invalidated by successful mutations",
			},
			[]string{"tag_type"},
		),
		CacheRefetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rentdesk",
				Name:      "cache_refetches_total",
				Help:      "Refetches triggered by invalidation of subscribed entries",
			},
			[]string{"endpoint"},
		),
		CacheEvictions: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "rentdesk",
				Name:      "cache_evictions_total",
				Help:      "Entries evicted after the garbage-collection delay",
			},
		),
		CacheEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "rentdesk",
				Name:      "cache_entries",
				Help:      "Number of cached query entries",
			},
		),
		Mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rentdesk",
				Name:      "mutations_total",
				Help:      "Mutations by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "rentdesk",
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "rentdesk",
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
	}
}

// StatusClass reduces label cardinality: 200 -> "2xx", 0 -> "error".
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "error"
	}
	return string(rune('0'+code/100)) + "xx"
}
