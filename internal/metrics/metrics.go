// Package metrics provides Prometheus metrics collection for the quote engine.
//
// This package includes:
// - endpoint race metrics (attempts by outcome, attempt latency)
// - quote metrics (by provider, direction and status)
// - approval metrics (pre-transaction and main transaction broadcasts)
// - metrics HTTP server on configurable port
//
// Usage:
//
//	metricsServer := metrics.StartMetricsServer(cfg.Metrics, []string{metrics.ServiceRacer, metrics.ServiceQuote}, logger)
//	defer metricsServer.Stop(context.Background())
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	ServiceRacer     = "racer"
	ServiceQuote     = "quote"
	ServiceLifecycle = "lifecycle"
)

type Config struct {
	Enabled bool   `envconfig:"METRICS_ENABLED" default:"false"`
	Host    string `envconfig:"METRICS_HOST" default:"0.0.0.0"`
	Port    string `envconfig:"METRICS_PORT" default:"88"`
}

type Server struct {
	srv    *http.Server
	logger *logrus.Logger
}

// StartMetricsServer registers the requested collectors and serves /metrics in the background.
// A disabled config returns a server whose Stop is a no-op.
func StartMetricsServer(cfg Config, services []string, logger *logrus.Logger) *Server {
	RegisterMetrics(services, logger)

	if !cfg.Enabled {
		logger.Info("metrics server disabled")
		return &Server{logger: logger}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infof("metrics server listening on %s", srv.Addr)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics server failed: %v", err)
		}
	}()

	return &Server{srv: srv, logger: logger}
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
