package ratelimiter

import (
	"sync"
	"time"
)

// TokenBucket allows bursts up to capacity and refills at rate tokens per second.
type TokenBucket struct {
	rate          float64
	capacity      float64
	tokens        float64
	lastTokenTime time.Time
	now           Clock
	mutex         sync.Mutex
}

// NewTokenBucket creates a full TokenBucket. A nil clock means time.Now.
func NewTokenBucket(rate float64, capacity int, clock Clock) *TokenBucket {
	if clock == nil {
		clock = time.Now
	}
	return &TokenBucket{
		rate:          rate,
		capacity:      float64(capacity),
		tokens:        float64(capacity),
		lastTokenTime: clock(),
		now:           clock,
	}
}

// Allow refills the bucket for the elapsed time and takes one token if available.
func (tb *TokenBucket) Allow() bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	now := tb.now()
	if elapsed := now.Sub(tb.lastTokenTime); elapsed > 0 {
		tb.tokens = min(tb.capacity, tb.tokens+elapsed.Seconds()*tb.rate)
		tb.lastTokenTime = now
	}

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}
