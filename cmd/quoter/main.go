package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/swap-quote/internal/exchangeinfo"
	"github.com/vultisig/swap-quote/internal/feecache"
	"github.com/vultisig/swap-quote/internal/graceful"
	"github.com/vultisig/swap-quote/internal/logging"
	"github.com/vultisig/swap-quote/internal/metrics"
	"github.com/vultisig/swap-quote/internal/race"
	"github.com/vultisig/swap-quote/internal/swap"
	"github.com/vultisig/swap-quote/internal/thorchain"
	"github.com/vultisig/swap-quote/internal/util"
)

const defaultClientID = "swap-quote"

func main() {
	cfg, err := newConfig()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	logger := logging.NewLogger(cfg.LogFormat)
	if err := logging.SetLevel(logger, cfg.LogLevel); err != nil {
		logger.Fatalf("failed to set log level: %v", err)
	}

	ctx, cancel := graceful.CancelOnSignal(context.Background(), logger)
	defer cancel()

	metricsServer := metrics.StartMetricsServer(cfg.Metrics, []string{
		metrics.ServiceRacer,
		metrics.ServiceQuote,
		metrics.ServiceLifecycle,
	}, logger)
	defer func() {
		if metricsServer != nil {
			if err := metricsServer.Stop(context.Background()); err != nil {
				logger.Errorf("failed to stop metrics server: %v", err)
			}
		}
	}()

	req, units, err := cfg.Quote.request()
	if err != nil {
		logger.Fatalf("invalid quote config: %v", err)
	}

	clk := clock.New()
	fetcher := race.NewFetcher(&http.Client{Timeout: 30 * time.Second}, race.Config{
		Timeout: cfg.Thorchain.RaceTimeout,
		Logger:  logger.WithField("pkg", "race"),
		Metrics: metrics.NewRacerMetrics(),
	})

	defaults := thorchain.DefaultInfo()
	if servers := util.SplitNonEmpty(cfg.Thorchain.ThornodeServers); len(servers) > 0 {
		defaults.ThornodeServers = servers
	}
	if servers := util.SplitNonEmpty(cfg.Thorchain.MidgardServers); len(servers) > 0 {
		defaults.MidgardServers = servers
	}

	info := exchangeinfo.NewSource(
		exchangeinfo.NewClient(fetcher, util.SplitNonEmpty(cfg.Thorchain.InfoServers), cfg.Thorchain.AppID),
		thorchain.PluginID,
		defaults,
		clk,
		logger.WithField("pkg", "exchangeinfo"),
	)
	plugin := thorchain.NewPlugin(
		thorchain.NewClient(fetcher, util.IfEmptyElse(cfg.Thorchain.ClientID, defaultClientID), logger.WithField("pkg", "thorchain.client")),
		info,
		feecache.New(clk),
		thorchain.Options{
			Thorname: cfg.Thorchain.Thorname,
			Clock:    clk,
			Logger:   logger,
		},
	)

	logger.WithFields(logrus.Fields{
		"from":      req.From.String(),
		"to":        req.To.String(),
		"amount":    req.NativeAmount.String(),
		"direction": req.Direction,
		"interval":  cfg.Quote.Interval.String(),
	}).Info("starting quoter")

	ticker := time.NewTicker(cfg.Quote.Interval)
	defer ticker.Stop()

	for {
		estimate(ctx, plugin, req, units, cfg.Quote.Destination, logger)

		select {
		case <-ctx.Done():
			logger.Info("quoter stopped")
			return
		case <-ticker.C:
		}
	}
}

func estimate(
	ctx context.Context,
	plugin *thorchain.Plugin,
	req swap.Request,
	units swap.UnitConverter,
	destination string,
	logger *logrus.Logger,
) {
	res, err := plugin.Estimate(ctx, req, units, destination)
	if err != nil {
		entry := logger.WithError(err)
		var limit *swap.LimitError
		if errors.As(err, &limit) {
			entry = entry.WithFields(logrus.Fields{
				"limit": limit.Limit.String(),
				"side":  limit.Side,
			})
		}
		entry.Warn("failed to estimate swap")
		return
	}

	logger.WithFields(logrus.Fields{
		"from_amount":   res.FromNative.String(),
		"to_amount":     res.ToNative.String(),
		"streaming":     res.CanBePartial,
		"fulfillment_s": res.MaxFulfillmentSeconds,
		"inbound":       res.InboundAddress,
		"router":        res.Router,
		"memo":          res.Memo,
	}).Info("swap estimate")
}
