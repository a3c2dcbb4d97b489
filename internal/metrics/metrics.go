package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "slotbook"

// Booking outcome labels.
const (
	OutcomeCreated       = "created"
	OutcomeSlotFull      = "slot_full"
	OutcomeAlreadyBooked = "already_booked"
	OutcomeInvalidSlot   = "invalid_slot"
	OutcomeError         = "error"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "code"},
	)

	bookings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome.",
		},
		[]string{"outcome"},
	)

	cancellations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cancellations_total",
			Help:      "Cancelled bookings by actor.",
		},
		[]string{"actor"},
	)

	releaseFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "release_failures_total",
			Help:      "Openings that could not be returned after a cancellation.",
		},
	)

	claimDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "claim_duration_seconds",
			Help:      "Time spent creating a booking in the store.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookings, cancellations, releaseFailures, claimDuration)
	})
}

// IncHTTP increments the request counter for an endpoint label.
func IncHTTP(endpoint string, code string) {
	httpRequests.WithLabelValues(endpoint, code).Inc()
}

func IncBooking(outcome string) {
	bookings.WithLabelValues(outcome).Inc()
}

func IncCancellation(actor string) {
	cancellations.WithLabelValues(actor).Inc()
}

func IncReleaseFailure() {
	releaseFailures.Inc()
}

func ObserveClaim(d time.Duration) {
	claimDuration.Observe(d.Seconds())
}
