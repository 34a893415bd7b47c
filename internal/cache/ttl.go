// Package cache holds small in-memory caches with expiring entries.
package cache

import (
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a map whose entries expire a fixed duration after they were written.
// Expired entries are invisible to Get and are swept on the next Set.
type TTL[K comparable, V any] struct {
	mu      sync.Mutex
	clk     clock.Clock
	ttl     time.Duration
	entries map[K]entry[V]
}

func NewTTL[K comparable, V any](clk clock.Clock, ttl time.Duration) *TTL[K, V] {
	if clk == nil {
		clk = clock.New()
	}
	return &TTL[K, V]{
		clk:     clk,
		ttl:     ttl,
		entries: make(map[K]entry[V]),
	}
}

func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !c.clk.Now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clk.Now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = entry[V]{value: value, expiresAt: now.Add(c.ttl)}
}

// Len counts stored entries, including expired ones not yet swept.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
