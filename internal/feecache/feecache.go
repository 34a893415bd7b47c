// Package feecache keeps the custom network fees chosen while building one quote so that later
// wallet estimates in the same session reuse them.
package feecache

import (
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/google/uuid"

	"github.com/vultisig/swap-quote/internal/cache"
)

const TTL = 30 * time.Second

type Cache struct {
	entries *cache.TTL[string, map[string]string]
}

func New(clk clock.Clock) *Cache {
	return &Cache{
		entries: cache.NewTTL[string, map[string]string](clk, TTL),
	}
}

// NewSession returns a fresh identifier for one quote-building cycle.
func (c *Cache) NewSession() string {
	return uuid.NewString()
}

func (c *Cache) Get(sessionID string) (map[string]string, bool) {
	if sessionID == "" {
		return nil, false
	}
	fees, ok := c.entries.Get(sessionID)
	if !ok {
		return nil, false
	}
	return clone(fees), true
}

func (c *Cache) Set(sessionID string, fees map[string]string) {
	if sessionID == "" || len(fees) == 0 {
		return
	}
	c.entries.Set(sessionID, clone(fees))
}

func clone(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
