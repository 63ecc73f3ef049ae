package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Publish path metrics
	IssuesPublished     prometheus.Counter
	IdempotentReplays   prometheus.Counter
	IdempotentConflicts prometheus.Counter

	// Delivery worker metrics
	DeliveriesSent    prometheus.Counter
	DeliveriesRetried prometheus.Counter
	DeliveriesDead    prometheus.Counter
	DeliveryLatency   prometheus.Histogram
	QueueDepth        prometheus.Gauge

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// New creates and registers all application metrics on the default registry
func New(namespace string) *Metrics {
	return NewWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewWithRegistry registers metrics on a caller-supplied registry
func NewWithRegistry(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		IssuesPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issues_published_total",
			Help:      "Total number of newsletter issues published",
		}),
		IdempotentReplays: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "idempotent_replays_total",
			Help:      "Total number of publish requests answered from the response cache",
		}),
		IdempotentConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "idempotent_conflicts_total",
			Help:      "Total number of publish requests rejected while another was in flight",
		}),
		DeliveriesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_sent_total",
			Help:      "Total number of newsletter emails delivered",
		}),
		DeliveriesRetried: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_retried_total",
			Help:      "Total number of delivery attempts rescheduled after transient failure",
		}),
		DeliveriesDead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_dead_total",
			Help:      "Total number of delivery rows marked dead",
		}),
		DeliveryLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_attempt_duration_seconds",
			Help:      "Time spent on one claim-send-resolve cycle",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "delivery_queue_depth",
			Help:      "Delivery queue rows awaiting delivery",
		}),
		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Database operations by name and outcome",
		}, []string{"operation", "status"}),
	}
}
