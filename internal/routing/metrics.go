package routing

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pointsRegistered = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mixroute",
		Subsystem: "routing",
		Name:      "points",
		Help:      "Number of registered routing points",
	})

	routesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mixroute",
		Subsystem: "routing",
		Name:      "routes",
		Help:      "Number of routes in all matrices",
	})

	routesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mixroute",
		Subsystem: "routing",
		Name:      "routes_rejected_total",
		Help:      "Route creations or re-enables rejected, by reason",
	}, []string{"reason"})

	feedbackChecks = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mixroute",
		Subsystem: "routing",
		Name:      "feedback_check_seconds",
		Help:      "Duration of feedback detection walks",
		Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
	})

	eventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mixroute",
		Subsystem: "routing",
		Name:      "events_total",
		Help:      "Matrix events delivered to handlers, by type",
	}, []string{"type"})
)

// rejectionReason maps a route error to a metric label.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrUnregisteredEndpoint):
		return "unregistered"
	case errors.Is(err, ErrIncompatibleEndpoints):
		return "incompatible"
	case errors.Is(err, ErrDuplicateRoute):
		return "duplicate"
	case errors.Is(err, ErrFeedbackLoop):
		return "feedback"
	default:
		return "other"
	}
}
