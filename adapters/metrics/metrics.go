// Package metrics provides Prometheus metrics collection for schemagate.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for schemagate.
type Collector struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Discovery metrics
	DiscoveryRuns      prometheus.Counter
	DiscoverySkipped   *prometheus.CounterVec
	SchemaFamilies     prometheus.Gauge
	SchemaVersions     prometheus.Gauge
	CacheInvalidations prometheus.Counter

	// Resolution metrics
	ResolveDuration prometheus.Histogram

	// Validation metrics
	ValidationsTotal *prometheus.CounterVec
}

// New creates a new metrics collector registered on the default registry.
func New() *Collector {
	return newCollector(promauto.With(prometheus.DefaultRegisterer))
}

// NewWithRegistry creates a collector registered on a custom registry.
// Used by tests to avoid duplicate registration.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	return newCollector(promauto.With(reg))
}

func newCollector(factory promauto.Factory) *Collector {
	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "schemagate",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "schemagate",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path", "status"},
		),

		DiscoveryRuns: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "schemagate",
				Name:      "discovery_runs_total",
				Help:      "Total number of schema discovery scans",
			},
		),
		DiscoverySkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "schemagate",
				Name:      "discovery_skipped_total",
				Help:      "Total number of schema files skipped during discovery",
			},
			[]string{"reason"},
		),
		SchemaFamilies: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "schemagate",
				Name:      "schema_families",
				Help:      "Number of schema families in the registry",
			},
		),
		SchemaVersions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "schemagate",
				Name:      "schema_versions",
				Help:      "Total number of schema versions in the registry",
			},
		),
		CacheInvalidations: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "schemagate",
				Name:      "cache_invalidations_total",
				Help:      "Total number of registry cache invalidations",
			},
		),

		ResolveDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "schemagate",
				Name:      "resolve_duration_seconds",
				Help:      "Full reference resolution duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
		),

		ValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "schemagate",
				Name:      "validations_total",
				Help:      "Total number of payload validations by outcome",
			},
			[]string{"outcome"},
		),
	}
}
