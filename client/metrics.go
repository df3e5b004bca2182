package client

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// MetricsSubsystem is a subsystem shared by all metrics exposed by this
// package.
const MetricsSubsystem = "participant"

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Challenges issued, labeled by kind.
	Challenges metrics.Counter
	// Responses to challenge-before issued.
	Responses metrics.Counter
	// Time taken to fetch a coin history.
	HistoryFetch metrics.Histogram
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		Challenges: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "challenges_total",
			Help:      "Number of exit challenges issued by kind.",
		}, append(labels, "kind")).With(labelsAndValues...),
		Responses: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "responses_total",
			Help:      "Number of challenge-before responses issued.",
		}, labels).With(labelsAndValues...),
		HistoryFetch: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "history_fetch_seconds",
			Help:      "Time taken to fetch a coin history.",
			Buckets:   stdprometheus.DefBuckets,
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Challenges:   discard.NewCounter(),
		Responses:    discard.NewCounter(),
		HistoryFetch: discard.NewHistogram(),
	}
}
