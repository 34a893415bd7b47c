package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	quoteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swapquote",
			Subsystem: "quote",
			Name:      "requests_total",
			Help:      "Total number of quote calculations",
		},
		[]string{"provider", "direction", "status"}, // status: success, below_limit, unsupported, error
	)

	quoteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "swapquote",
			Subsystem: "quote",
			Name:      "duration_seconds",
			Help:      "Time taken to calculate a quote",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider", "direction"},
	)

	quoteStreamingSelectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swapquote",
			Subsystem: "quote",
			Name:      "execution_selected_total",
			Help:      "Which execution track won the streaming vs atomic comparison",
		},
		[]string{"provider", "track"}, // streaming, atomic
	)

	approveBroadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swapquote",
			Subsystem: "lifecycle",
			Name:      "broadcasts_total",
			Help:      "Transactions broadcast while approving quotes",
		},
		[]string{"provider", "stage", "status"}, // stage: pre_tx, main_tx
	)
)

const (
	StatusSuccess     = "success"
	StatusError       = "error"
	StatusBelowLimit  = "below_limit"
	StatusUnsupported = "unsupported"

	StagePreTx  = "pre_tx"
	StageMainTx = "main_tx"
)

type QuoteMetrics struct{}

func NewQuoteMetrics() *QuoteMetrics {
	return &QuoteMetrics{}
}

func (qm *QuoteMetrics) RecordQuote(provider, direction, status string, duration time.Duration) {
	quoteRequestsTotal.WithLabelValues(provider, direction, status).Inc()
	quoteDuration.WithLabelValues(provider, direction).Observe(duration.Seconds())
}

func (qm *QuoteMetrics) RecordTrack(provider string, streaming bool) {
	track := "atomic"
	if streaming {
		track = "streaming"
	}
	quoteStreamingSelectedTotal.WithLabelValues(provider, track).Inc()
}

type LifecycleMetrics struct{}

func NewLifecycleMetrics() *LifecycleMetrics {
	return &LifecycleMetrics{}
}

func (lm *LifecycleMetrics) RecordBroadcast(provider, stage string, success bool) {
	status := StatusSuccess
	if !success {
		status = StatusError
	}
	approveBroadcastsTotal.WithLabelValues(provider, stage, status).Inc()
}
