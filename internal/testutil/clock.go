// Package testutil provides deterministic helpers shared by package
// tests: a manual watcher clock and fixture tree builders.
package testutil

import "time"

// ManualClock is a watcher tick source driven by the test instead of
// real time. It satisfies the runtime package's Clock seam, so sweeps
// happen exactly when the test says so.
type ManualClock struct {
	ch chan time.Time
}

// NewManualClock creates a clock with no pending ticks.
func NewManualClock() *ManualClock {
	return &ManualClock{ch: make(chan time.Time)}
}

// Ticker returns the manual tick channel. The interval is ignored and
// the stop function is a no-op; the channel belongs to the clock, not
// the consumer.
func (c *ManualClock) Ticker(time.Duration) (<-chan time.Time, func()) {
	return c.ch, func() {}
}

// Tick delivers one tick, returning once the consumer has accepted it.
// The watcher loop handles ticks on a single goroutine, so a second
// Tick returns only after the sweep triggered by the first finished.
func (c *ManualClock) Tick() {
	c.ch <- time.Now()
}
