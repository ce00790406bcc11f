package supervisor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	routingDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netagent_routing_decisions_total",
		Help: "Supervisor routing decisions by target",
	}, []string{"target"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netagent_request_duration_seconds",
		Help:    "Time to produce a final output for a request",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	}, []string{"outcome"})
)
