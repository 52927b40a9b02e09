package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesCreated    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_hailing", Name: "rides_created_total", Help: "Total rides created"})
	RidesAccepted   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_hailing", Name: "rides_accepted_total", Help: "Total rides accepted by a driver"})
	AcceptConflicts = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_hailing", Name: "accept_conflicts_total", Help: "Accept attempts that lost the race for a pending ride"})
	LocationUpdates = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_hailing", Name: "driver_location_updates_total", Help: "Driver location updates applied"})

	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_hailing", Name: "status_transitions_total", Help: "Ride status transitions by target status"},
		[]string{"to"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_hailing", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ride_hailing",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
