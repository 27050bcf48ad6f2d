package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     3,
		WindowDuration:  time.Minute,
		LockoutDuration: 5 * time.Minute,
	})
	defer rl.Stop()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	allowed, _ := rl.Allow("10.0.0.1")
	assert.True(t, allowed)

	locked, _ := rl.RecordFailure("10.0.0.1")
	assert.False(t, locked)
	rl.RecordFailure("10.0.0.1")
	locked, retry := rl.RecordFailure("10.0.0.1")
	assert.True(t, locked)
	assert.Equal(t, 5*time.Minute, retry)

	allowed, retry = rl.Allow("10.0.0.1")
	assert.False(t, allowed)
	assert.Equal(t, 5*time.Minute, retry)

	allowed, _ = rl.Allow("10.0.0.2")
	assert.True(t, allowed, "other clients are unaffected")

	now = now.Add(6 * time.Minute)
	allowed, _ = rl.Allow("10.0.0.1")
	assert.True(t, allowed, "lockout expires")

	rl.RecordFailure("10.0.0.2")
	rl.RecordSuccess("10.0.0.2")
	rl.mu.RLock()
	_, tracked := rl.attempts["10.0.0.2"]
	rl.mu.RUnlock()
	assert.False(t, tracked)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{WindowDuration: time.Minute, LockoutDuration: time.Minute})
	defer rl.Stop()

	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.RecordFailure("10.0.0.1")

	now = now.Add(3 * time.Minute)
	rl.cleanup()

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	assert.Empty(t, rl.attempts)
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxAttempts: 2, WindowDuration: time.Minute})
	defer rl.Stop()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	locked, _ := rl.RecordFailure("10.0.0.3")
	assert.False(t, locked)

	now = now.Add(2 * time.Minute)
	locked, _ = rl.RecordFailure("10.0.0.3")
	assert.False(t, locked, "the first failure fell out of the window")

	rl.Stop()
}
