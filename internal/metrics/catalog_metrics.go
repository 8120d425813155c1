package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Review outcomes recorded by ReviewsSubmitted.
const (
	ReviewAccepted     = "accepted"
	ReviewLimitReached = "limit_reached"
	ReviewInvalid      = "invalid"
)

var (
	// ProductsCreated is a Prometheus counter for tracking the total number of products created.
	ProductsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_created_total",
		Help: "The total number of products created",
	})

	// ProductsUpdated is a Prometheus counter for tracking the total number of admin product updates.
	ProductsUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_updated_total",
		Help: "The total number of products updated",
	})

	// ProductsDeleted is a Prometheus counter for tracking the total number of products deleted.
	ProductsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_deleted_total",
		Help: "The total number of products deleted",
	})

	// ReviewsSubmitted counts review submissions by outcome.
	ReviewsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reviews_submitted_total",
		Help: "The total number of review submissions by outcome",
	}, []string{"outcome"})

	// WriteConflicts counts conditional product writes that lost against a concurrent writer.
	WriteConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "product_write_conflicts_total",
		Help: "The total number of product writes retried because of a concurrent modification",
	}, []string{"operation"})

	// HTTPRequestDuration observes API latency by route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
