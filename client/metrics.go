package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	connsOpen       prometheus.Gauge
	acquires        prometheus.Counter
	acquireFailures prometheus.Counter
	nodeHolds       prometheus.Counter
	retries         prometheus.Counter
	queryDuration   prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		connsOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "cassgo",
			Name:      "pool_connections_open",
			Help:      "Connections currently owned by the pool, idle or checked out.",
		}),
		acquires: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cassgo",
			Name:      "pool_acquires_total",
			Help:      "Successful connection checkouts.",
		}),
		acquireFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cassgo",
			Name:      "pool_acquire_failures_total",
			Help:      "Checkout attempts that failed after exhausting candidate nodes.",
		}),
		nodeHolds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cassgo",
			Name:      "pool_node_holds_total",
			Help:      "Times a node was placed on hold after a failed handshake.",
		}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cassgo",
			Name:      "client_retries_total",
			Help:      "Queries re-dispatched after a transport failure.",
		}),
		queryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cassgo",
			Name:      "client_query_duration_seconds",
			Help:      "Wall time of a query including checkout and decoding.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
