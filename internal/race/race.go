// Package race tries a list of equivalent endpoints in order and returns the first success.
package race

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vultisig/swap-quote/internal/metrics"
	"github.com/vultisig/swap-quote/internal/swap"
)

const DefaultTimeout = 5 * time.Second

// Recorder receives per-attempt outcomes. *metrics.RacerMetrics implements it.
type Recorder interface {
	RecordAttempt(outcome string, duration time.Duration)
	RecordExhausted()
}

type Config struct {
	// Timeout bounds every single attempt. Zero means DefaultTimeout.
	Timeout time.Duration
	Logger  logrus.FieldLogger
	Metrics Recorder
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.Logger = l
	}
	if c.Metrics == nil {
		c.Metrics = nopRecorder{}
	}
	return c
}

type nopRecorder struct{}

func (nopRecorder) RecordAttempt(string, time.Duration) {}
func (nopRecorder) RecordExhausted()                    {}

type attemptResult[T any] struct {
	value T
	err   error
}

// First calls fn for each endpoint in order until one succeeds.
//
// A failed attempt advances immediately. An attempt that outlives cfg.Timeout has its context
// cancelled and its eventual result discarded, then the next endpoint is tried. Once the list is
// exhausted a single *swap.FetchError carrying the last failure is returned.
func First[T any](
	ctx context.Context,
	cfg Config,
	endpoints []string,
	fn func(ctx context.Context, endpoint string) (T, error),
) (T, error) {
	var zero T
	cfg = cfg.withDefaults()

	if len(endpoints) == 0 {
		return zero, &swap.FetchError{Last: errors.New("no endpoints configured")}
	}

	var lastErr error
	for _, endpoint := range endpoints {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		value, err := attempt(ctx, cfg, endpoint, fn)
		if err == nil {
			return value, nil
		}
		// The caller gave up; no point trying further mirrors.
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		lastErr = err
	}

	cfg.Metrics.RecordExhausted()
	return zero, &swap.FetchError{
		Endpoints: append([]string(nil), endpoints...),
		Last:      lastErr,
	}
}

func attempt[T any](
	ctx context.Context,
	cfg Config,
	endpoint string,
	fn func(ctx context.Context, endpoint string) (T, error),
) (T, error) {
	var zero T

	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so an abandoned attempt can still deliver and exit.
	done := make(chan attemptResult[T], 1)
	started := time.Now()
	go func() {
		v, err := fn(attemptCtx, endpoint)
		done <- attemptResult[T]{value: v, err: err}
	}()

	timer := time.NewTimer(cfg.Timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		elapsed := time.Since(started)
		if res.err != nil {
			cfg.Metrics.RecordAttempt(metrics.OutcomeError, elapsed)
			cfg.Logger.WithFields(logrus.Fields{
				"endpoint": endpoint,
				"elapsed":  elapsed.String(),
			}).WithError(res.err).Debug("endpoint attempt failed")
			return zero, res.err
		}
		cfg.Metrics.RecordAttempt(metrics.OutcomeSuccess, elapsed)
		return res.value, nil
	case <-timer.C:
		cfg.Metrics.RecordAttempt(metrics.OutcomeTimeout, cfg.Timeout)
		cfg.Logger.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"timeout":  cfg.Timeout.String(),
		}).Warn("endpoint attempt timed out")
		return zero, fmt.Errorf("%s: timed out after %s", endpoint, cfg.Timeout)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
