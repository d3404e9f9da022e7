package liteclient

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const MetricsSubsystem = "liteclient"

// Query outcomes used as the "outcome" metric label.
const (
	outcomeData      = "data"
	outcomeNotReady  = "not_ready"
	outcomeServerErr = "server_error"
	outcomeConnErr   = "connection_error"
	outcomeUnknown   = "unknown"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of queries sent, by outcome.
	Queries metrics.Counter
	// Number of not-ready retries.
	QueryRetries metrics.Counter
	// Histogram of query round-trip times.
	QueryDurationSeconds metrics.Histogram
	// Number of live transport connections.
	Connections metrics.Gauge
	// Number of chain-head refreshes that went to the server.
	HeadRefreshes metrics.Counter
}

// PrometheusMetrics returns Metrics built using the Prometheus client
// library.
func PrometheusMetrics(namespace string) *Metrics {
	return &Metrics{
		Queries: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "queries",
			Help:      "Number of queries sent, by outcome.",
		}, []string{"outcome"}),
		QueryRetries: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "query_retries",
			Help:      "Number of not-ready retries.",
		}, []string{}),
		QueryDurationSeconds: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "query_duration_seconds",
			Help:      "Query round-trip times.",
			Buckets:   stdprometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{}),
		Connections: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "connections",
			Help:      "Number of live transport connections.",
		}, []string{}),
		HeadRefreshes: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "head_refreshes",
			Help:      "Number of chain-head refreshes that went to the server.",
		}, []string{}),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Queries:              discard.NewCounter(),
		QueryRetries:         discard.NewCounter(),
		QueryDurationSeconds: discard.NewHistogram(),
		Connections:          discard.NewGauge(),
		HeadRefreshes:        discard.NewCounter(),
	}
}
