package spapi

import (
	"sync"
	"time"
)

// TokenBucketRateLimiter implements a token bucket for client-side throttling.
// The SP-API orders and finances endpoints throttle aggressively, so the
// client stays a little below the documented restore rates.
type TokenBucketRateLimiter struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucketRateLimiter creates a new rate limiter with the specified parameters
func NewTokenBucketRateLimiter(maxTokens float64, refillRate float64) *TokenBucketRateLimiter {
	return &TokenBucketRateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Wait blocks until a token is available and then consumes it
func (rl *TokenBucketRateLimiter) Wait() {
	for {
		rl.mu.Lock()
		rl.refill()

		if rl.tokens >= 1 {
			rl.tokens--
			rl.mu.Unlock()
			return
		}

		// Calculate how long to wait for the next token
		tokensNeeded := 1 - rl.tokens
		waitTime := time.Duration(tokensNeeded / rl.refillRate * float64(time.Second))
		rl.mu.Unlock()

		time.Sleep(waitTime)
	}
}

// TryAcquire attempts to acquire a token without blocking
// Returns true if successful, false if no tokens available
func (rl *TokenBucketRateLimiter) TryAcquire() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}

	return false
}

// refill adds tokens based on the time elapsed since last refill
func (rl *TokenBucketRateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()

	rl.tokens = rl.tokens + elapsed*rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now
}

// GetAvailableTokens returns the current number of available tokens
func (rl *TokenBucketRateLimiter) GetAvailableTokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	return rl.tokens
}
