// Package metrics provides Prometheus collectors for the aggregator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	// Upstream
	UpstreamLatency *prometheus.HistogramVec
	UpstreamResults *prometheus.CounterVec

	// Classification
	Resolutions *prometheus.CounterVec

	// Market
	EnrichResults *prometheus.CounterVec
	PriceLookups  *prometheus.CounterVec

	// Analytics
	RecordsWritten prometheus.Counter
	PersistErrors  prometheus.Counter

	// HTTP
	HTTPRequests *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered on the default registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "peepshow"
	}

	return &Metrics{
		UpstreamLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Upstream request latency by endpoint",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		UpstreamResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Upstream requests by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),

		Resolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "resolve_total",
			Help:      "Address resolutions by winning strategy (or \"failed\")",
		}, []string{"strategy"}),

		EnrichResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "enrich_total",
			Help:      "Market enrichment attempts by result",
		}, []string{"result"}),
		PriceLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "price_lookups_total",
			Help:      "Native price lookups by source",
		}, []string{"from"}),

		RecordsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "records_total",
			Help:      "Total analytics records accepted",
		}),
		PersistErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "persist_errors_total",
			Help:      "Analytics document writes that failed",
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordUpstream records one upstream call.
func RecordUpstream(endpoint, outcome string, seconds float64) {
	DefaultMetrics.UpstreamLatency.WithLabelValues(endpoint).Observe(seconds)
	DefaultMetrics.UpstreamResults.WithLabelValues(endpoint, outcome).Inc()
}

// RecordResolution records which strategy answered a lookup.
func RecordResolution(strategy string) {
	DefaultMetrics.Resolutions.WithLabelValues(strategy).Inc()
}

// RecordEnrich records a market enrichment result ("ok", "no_pair", "error").
func RecordEnrich(result string) {
	DefaultMetrics.EnrichResults.WithLabelValues(result).Inc()
}

// RecordPriceLookup records where a native price came from.
func RecordPriceLookup(from string) {
	DefaultMetrics.PriceLookups.WithLabelValues(from).Inc()
}

func RecordAnalytics(err error) {
	DefaultMetrics.RecordsWritten.Inc()
	if err != nil {
		DefaultMetrics.PersistErrors.Inc()
	}
}

func RecordHTTP(route, code string) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, code).Inc()
}
