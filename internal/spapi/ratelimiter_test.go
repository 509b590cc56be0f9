package spapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketStartsFull(t *testing.T) {
	limiter := NewTokenBucketRateLimiter(3, 1.0)

	assert.True(t, limiter.TryAcquire())
	assert.True(t, limiter.TryAcquire())
	assert.True(t, limiter.TryAcquire())
	assert.False(t, limiter.TryAcquire())
}

func TestTokenBucketAvailableTokens(t *testing.T) {
	limiter := NewTokenBucketRateLimiter(5, 1.0)
	assert.InDelta(t, 5.0, limiter.GetAvailableTokens(), 0.1)

	limiter.TryAcquire()
	limiter.TryAcquire()
	assert.InDelta(t, 3.0, limiter.GetAvailableTokens(), 0.1)
}
