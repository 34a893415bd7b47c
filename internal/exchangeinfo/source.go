package exchangeinfo

import (
	"context"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/sirupsen/logrus"
)

const (
	UpdateInterval = 60 * time.Second
	FetchTimeout   = 5 * time.Second
)

// Source serves the effective Info for one plugin, refreshing it when older than UpdateInterval.
type Source struct {
	client   *Client
	pluginID string
	defaults Info
	clk      clock.Clock
	logger   logrus.FieldLogger

	mu         sync.Mutex
	last       *remoteInfo
	lastUpdate time.Time
}

func NewSource(client *Client, pluginID string, defaults Info, clk clock.Clock, logger logrus.FieldLogger) *Source {
	if clk == nil {
		clk = clock.New()
	}
	return &Source{
		client:   client,
		pluginID: pluginID,
		defaults: defaults,
		clk:      clk,
		logger:   logger,
	}
}

// Get never fails: when the info servers are unreachable the last good copy, or the defaults, are used.
func (s *Source) Get(ctx context.Context) Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clk.Now()
	if s.last == nil || now.Sub(s.lastUpdate) > UpdateInterval {
		fetchCtx, cancel := context.WithTimeout(ctx, FetchTimeout)
		info, err := s.client.fetch(fetchCtx, s.pluginID)
		cancel()

		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"plugin":    s.pluginID,
				"have_last": s.last != nil,
			}).WithError(err).Warn("failed to refresh exchange info, using fallback")
		} else {
			s.last = info
			s.lastUpdate = now
		}
	}

	if s.last == nil {
		return s.defaults
	}
	return s.last.apply(s.defaults)
}
