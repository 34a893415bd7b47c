package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

// RegisterMetrics registers metrics for the specified services
func RegisterMetrics(services []string, logger *logrus.Logger) {
	// Always register Go and process metrics
	registerIfNotExists(collectors.NewGoCollector(), "go_collector", logger)
	registerIfNotExists(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}), "process_collector", logger)

	for _, service := range services {
		switch service {
		case ServiceRacer:
			registerRacerMetrics(logger)
		case ServiceQuote:
			registerQuoteMetrics(logger)
		case ServiceLifecycle:
			registerLifecycleMetrics(logger)
		default:
			logger.Warnf("Unknown service type for metrics registration: %s", service)
		}
	}
}

// registerIfNotExists registers a collector if it's not already registered
func registerIfNotExists(collector prometheus.Collector, name string, logger *logrus.Logger) {
	if err := prometheus.Register(collector); err != nil {
		var alreadyRegErr prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegErr) {
			logger.Debugf("%s already registered", name)
		} else {
			logger.Errorf("Failed to register %s: %v", name, err)
		}
	}
}

func registerRacerMetrics(logger *logrus.Logger) {
	registerIfNotExists(racerAttemptsTotal, "racer_attempts_total", logger)
	registerIfNotExists(racerAttemptDuration, "racer_attempt_duration", logger)
	registerIfNotExists(racerExhaustedTotal, "racer_exhausted_total", logger)
}

func registerQuoteMetrics(logger *logrus.Logger) {
	registerIfNotExists(quoteRequestsTotal, "quote_requests_total", logger)
	registerIfNotExists(quoteDuration, "quote_duration", logger)
	registerIfNotExists(quoteStreamingSelectedTotal, "quote_streaming_selected_total", logger)
}

func registerLifecycleMetrics(logger *logrus.Logger) {
	registerIfNotExists(approveBroadcastsTotal, "approve_broadcasts_total", logger)
}
