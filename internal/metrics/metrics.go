package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Booking create outcomes.
const (
	OutcomeCreated       = "created"
	OutcomeAlreadyBooked = "already_booked"
	OutcomeUnavailable   = "unavailable"
	OutcomeRejected      = "rejected"
	OutcomeError         = "error"
)

// Video provisioning outcomes.
const (
	VideoProvisioned = "provisioned"
	VideoPlaceholder = "placeholder"
	VideoFailed      = "failed"
)

var (
	bookingCreateTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scheduler",
			Name:      "booking_create_total",
			Help:      "Booking create attempts, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	bookingTransitionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scheduler",
			Name:      "booking_transition_total",
			Help:      "Stored booking status transitions, partitioned by target status.",
		},
		[]string{"status"},
	)

	videoProvisionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scheduler",
			Name:      "video_provision_total",
			Help:      "Video link provisioning attempts, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	videoProvisionSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "scheduler",
			Name:      "video_provision_seconds",
			Help:      "Latency of video provider calls in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8},
		},
	)

	feedbackSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scheduler",
			Name:      "feedback_submitted_total",
			Help:      "Structured feedback rows created through the API.",
		},
	)

	backfillNotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scheduler",
			Name:      "feedback_backfill_notes_total",
			Help:      "Legacy notes processed by the feedback backfill, partitioned by result.",
		},
		[]string{"result"},
	)
)

// Register attaches scheduler collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		bookingCreateTotal,
		bookingTransitionTotal,
		videoProvisionTotal,
		videoProvisionSeconds,
		feedbackSubmittedTotal,
		backfillNotesTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveBookingCreate counts a create attempt by outcome.
func ObserveBookingCreate(outcome string) {
	bookingCreateTotal.WithLabelValues(outcome).Inc()
}

// ObserveTransition counts a stored status change.
func ObserveTransition(status string) {
	bookingTransitionTotal.WithLabelValues(status).Inc()
}

// ObserveVideoProvision records a provider call duration and outcome label.
func ObserveVideoProvision(duration time.Duration, outcome string) {
	videoProvisionTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	videoProvisionSeconds.Observe(duration.Seconds())
}

func ObserveFeedbackSubmitted() {
	feedbackSubmittedTotal.Inc()
}

// ObserveBackfillNote counts one legacy note by result ("created", "skipped", "malformed").
func ObserveBackfillNote(result string) {
	backfillNotesTotal.WithLabelValues(result).Inc()
}
