package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Attempts per endpoint outcome
	racerAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swapquote",
			Subsystem: "racer",
			Name:      "attempts_total",
			Help:      "Total number of endpoint attempts",
		},
		[]string{"outcome"}, // success, error, timeout
	)

	racerAttemptDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "swapquote",
			Subsystem: "racer",
			Name:      "attempt_duration_seconds",
			Help:      "Time spent on a single endpoint attempt",
			Buckets:   prometheus.DefBuckets,
		},
	)

	racerExhaustedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "swapquote",
			Subsystem: "racer",
			Name:      "exhausted_total",
			Help:      "Races where every endpoint failed",
		},
	)
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

type RacerMetrics struct{}

func NewRacerMetrics() *RacerMetrics {
	return &RacerMetrics{}
}

func (rm *RacerMetrics) RecordAttempt(outcome string, duration time.Duration) {
	racerAttemptsTotal.WithLabelValues(outcome).Inc()
	racerAttemptDuration.Observe(duration.Seconds())
}

func (rm *RacerMetrics) RecordExhausted() {
	racerExhaustedTotal.Inc()
}
