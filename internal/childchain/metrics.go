package childchain

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// MetricsSubsystem is a subsystem shared by all metrics exposed by this
// package.
const MetricsSubsystem = "childchain"

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Submitted transactions, labeled by result: "accepted" or the
	// rejection code.
	Transactions metrics.Counter
	// Latest checkpoint number.
	BlockHeight metrics.Gauge
	// Transactions per checkpoint.
	BlockTransactions metrics.Histogram
	// Deposits applied.
	Deposits metrics.Counter
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
		Transactions: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "transactions_total",
			Help:      "Number of submitted transactions by result.",
		}, append(labels, "result")).With(labelsAndValues...),
		BlockHeight: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "block_height",
			Help:      "Latest checkpoint number.",
		}, labels).With(labelsAndValues...),
		BlockTransactions: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "block_transactions",
			Help:      "Number of transactions per checkpoint.",
			Buckets:   stdprometheus.ExponentialBuckets(1, 4, 10),
		}, labels).With(labelsAndValues...),
		Deposits: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "deposits_total",
			Help:      "Number of deposits applied.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Transactions:      discard.NewCounter(),
		BlockHeight:       discard.NewGauge(),
		BlockTransactions: discard.NewHistogram(),
		Deposits:          discard.NewCounter(),
	}
}
