package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAttemptLimiterThreshold(t *testing.T) {
	limiter := NewAttemptLimiter(time.Hour)

	for i := 0; i < 5; i++ {
		assert.False(t, limiter.TooManyAttempts("user:1", 5))
		limiter.Hit("user:1")
	}

	assert.True(t, limiter.TooManyAttempts("user:1", 5))

	// Other keys are unaffected.
	assert.False(t, limiter.TooManyAttempts("user:2", 5))
}

func TestAttemptLimiterAvailableIn(t *testing.T) {
	limiter := NewAttemptLimiter(time.Hour)

	assert.Equal(t, 0, limiter.AvailableIn("user:1"))

	limiter.Hit("user:1")
	remaining := limiter.AvailableIn("user:1")
	assert.Greater(t, remaining, 0)
	assert.LessOrEqual(t, remaining, 3600)
}

func TestAttemptLimiterClear(t *testing.T) {
	limiter := NewAttemptLimiter(time.Hour)

	limiter.Hit("user:1")
	limiter.Hit("user:1")
	assert.True(t, limiter.TooManyAttempts("user:1", 2))

	limiter.Clear("user:1")
	assert.False(t, limiter.TooManyAttempts("user:1", 2))
	assert.Equal(t, 0, limiter.AvailableIn("user:1"))
}

func TestAttemptLimiterWindowExpiry(t *testing.T) {
	limiter := NewAttemptLimiter(50 * time.Millisecond)

	limiter.Hit("user:1")
	limiter.Hit("user:1")
	assert.True(t, limiter.TooManyAttempts("user:1", 2))

	time.Sleep(80 * time.Millisecond)

	assert.False(t, limiter.TooManyAttempts("user:1", 2))

	// A hit after the lapse starts a fresh window.
	limiter.Hit("user:1")
	assert.False(t, limiter.TooManyAttempts("user:1", 2))
}
