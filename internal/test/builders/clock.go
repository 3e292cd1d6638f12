package builders

import (
	"sync"
	"time"

	"github.com/fredcamaral/slidekiosk/internal/domain/ports"
)

// ManualClock is a ports.Clock that only moves when told to
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*ManualTicker
}

// NewManualClock creates a clock frozen at start
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current fake time
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t without firing tickers
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance moves the clock forward and fires every ticker whose period elapsed
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := append([]*ManualTicker(nil), c.tickers...)
	c.mu.Unlock()

	for _, t := range tickers {
		t.fireUntil(now)
	}
}

// Tickers returns the number of tickers that are not stopped
func (c *ManualClock) Tickers() int {
	c.mu.Lock()
	tickers := append([]*ManualTicker(nil), c.tickers...)
	c.mu.Unlock()

	active := 0
	for _, t := range tickers {
		if !t.isStopped() {
			active++
		}
	}
	return active
}

// NewTicker creates a ticker driven by Advance
func (c *ManualClock) NewTicker(d time.Duration) ports.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &ManualTicker{
		ch:     make(chan time.Time, 1),
		period: d,
		next:   c.now.Add(d),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// ManualTicker is the ticker handed out by ManualClock
type ManualTicker struct {
	mu      sync.Mutex
	ch      chan time.Time
	period  time.Duration
	next    time.Time
	stopped bool
}

// C returns the tick channel
func (t *ManualTicker) C() <-chan time.Time {
	return t.ch
}

// Stop stops the ticker
func (t *ManualTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

// Reset restarts the ticker with a new period measured from its last deadline
func (t *ManualTicker) Reset(d time.Duration) {
	t.mu.Lock()
	t.next = t.next.Add(d - t.period)
	t.period = d
	t.stopped = false
	t.mu.Unlock()
}

func (t *ManualTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// fireUntil delivers at most one pending tick, dropping extras like time.Ticker
func (t *ManualTicker) fireUntil(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.period <= 0 || now.Before(t.next) {
		return
	}
	for !now.Before(t.next) {
		t.next = t.next.Add(t.period)
	}
	select {
	case t.ch <- now:
	default:
	}
}

var _ ports.Clock = (*ManualClock)(nil)
