package ratelimiter

import (
	"fmt"
	"time"
)

// RateLimiter decides whether one more request may proceed right now.
type RateLimiter interface {
	// Allow returns true if the request is allowed, otherwise returns false.
	Allow() bool
}

// Clock returns the current time. Limiters take one so tests can drive time.
type Clock func() time.Time

// New builds a limiter by algorithm name: "tokenBucket" (default) or "fixedWindow".
func New(algorithm string, rate float64, capacity int, limit int, window time.Duration) (RateLimiter, error) {
	switch algorithm {
	case "", "tokenBucket":
		if rate <= 0 || capacity <= 0 {
			return nil, fmt.Errorf("tokenBucket needs positive rate and capacity, got %v/%d", rate, capacity)
		}
		return NewTokenBucket(rate, capacity, time.Now), nil
	case "fixedWindow":
		if limit <= 0 || window <= 0 {
			return nil, fmt.Errorf("fixedWindow needs positive limit and window, got %d/%s", limit, window)
		}
		return NewFixedWindowCounter(limit, window, time.Now), nil
	default:
		return nil, fmt.Errorf("unknown rate limiter algorithm: %s", algorithm)
	}
}
