package ratelimiter

import (
	"sync"
	"time"
)

// FixedWindowCounter allows limit requests per window; the window restarts on
// the first request after it expires.
type FixedWindowCounter struct {
	limit       int
	window      time.Duration
	count       int
	windowStart time.Time
	now         Clock
	mutex       sync.Mutex
}

// NewFixedWindowCounter creates a FixedWindowCounter. A nil clock means time.Now.
func NewFixedWindowCounter(limit int, window time.Duration, clock Clock) *FixedWindowCounter {
	if clock == nil {
		clock = time.Now
	}
	return &FixedWindowCounter{
		limit:       limit,
		window:      window,
		windowStart: clock(),
		now:         clock,
	}
}

// Allow counts the request against the current window.
func (fwc *FixedWindowCounter) Allow() bool {
	fwc.mutex.Lock()
	defer fwc.mutex.Unlock()

	now := fwc.now()
	if !now.Before(fwc.windowStart.Add(fwc.window)) {
		fwc.windowStart = now
		fwc.count = 0
	}

	if fwc.count < fwc.limit {
		fwc.count++
		return true
	}
	return false
}
