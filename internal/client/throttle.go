package client

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultThrottleInterval is the minimum spacing of presence updates of one kind.
const DefaultThrottleInterval = 50 * time.Millisecond

// Throttle admits at most one call per key every interval. Calls inside the
// interval are rejected, not queued.
type Throttle struct {
	clock    clock.Clock
	interval time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

// NewThrottle creates a throttle. A nil clock uses the wall clock.
func NewThrottle(clk clock.Clock, interval time.Duration) *Throttle {
	if clk == nil {
		clk = clock.New()
	}
	return &Throttle{
		clock:    clk,
		interval: interval,
		last:     make(map[string]time.Time),
	}
}

// Allow reports whether a call for key may go out now and, if so, records it.
func (t *Throttle) Allow(key string) bool {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := t.last[key]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.last[key] = now
	return true
}

// Reset lets the next call for key through.
func (t *Throttle) Reset(key string) {
	t.mu.Lock()
	delete(t.last, key)
	t.mu.Unlock()
}
