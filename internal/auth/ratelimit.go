package auth

import (
	"sync"
	"time"
)

// RateLimitConfig contains configuration for the rate limiter. Zero fields
// take the defaults noted beside them.
type RateLimitConfig struct {
	MaxAttempts     int           // Bad tokens tolerated per window (5)
	WindowDuration  time.Duration // Window in which bad tokens are counted (15m)
	LockoutDuration time.Duration // Lockout once MaxAttempts is reached (30m)
	CleanupInterval time.Duration // Sweep period for expired entries (5m)
}

func (c RateLimitConfig) withDefaults() RateLimitConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.WindowDuration <= 0 {
		c.WindowDuration = 15 * time.Minute
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = 30 * time.Minute
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 5 * time.Minute
	}
	return c
}

// strikes tracks bad tokens from one client address.
type strikes struct {
	count       int
	windowStart time.Time
	lockedUntil time.Time
}

func (s *strikes) lockedAt(now time.Time) bool {
	return now.Before(s.lockedUntil)
}

func (s *strikes) windowExpiredAt(now time.Time, window time.Duration) bool {
	return now.Sub(s.windowStart) > window
}

// RateLimiter locks out client addresses that present too many invalid API
// tokens. A valid token clears the address's record.
type RateLimiter struct {
	cfg RateLimitConfig
	now func() time.Time

	mu       sync.RWMutex
	attempts map[string]*strikes

	stop     chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		cfg:      cfg.withDefaults(),
		now:      time.Now,
		attempts: make(map[string]*strikes),
		stop:     make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// Stop ends the background sweep. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Allow reports whether the address may present a token, and if not, how
// long it must wait.
func (rl *RateLimiter) Allow(ip string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.RLock()
	defer rl.mu.RUnlock()

	s, ok := rl.attempts[ip]
	switch {
	case !ok:
		return true, 0
	case s.lockedAt(now):
		return false, s.lockedUntil.Sub(now)
	case s.windowExpiredAt(now, rl.cfg.WindowDuration), s.count < rl.cfg.MaxAttempts:
		return true, 0
	default:
		return false, rl.cfg.LockoutDuration
	}
}

// RecordFailure counts a rejected token. It reports whether this failure
// locked the address out and for how long.
func (rl *RateLimiter) RecordFailure(ip string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	s, ok := rl.attempts[ip]
	if !ok || s.windowExpiredAt(now, rl.cfg.WindowDuration) {
		s = &strikes{windowStart: now}
		rl.attempts[ip] = s
	}
	s.count++

	if s.count < rl.cfg.MaxAttempts {
		return false, 0
	}
	s.lockedUntil = now.Add(rl.cfg.LockoutDuration)
	return true, rl.cfg.LockoutDuration
}

func (rl *RateLimiter) RecordSuccess(ip string) {
	rl.mu.Lock()
	delete(rl.attempts, ip)
	rl.mu.Unlock()
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

// cleanup drops addresses that are neither locked nor inside a window.
func (rl *RateLimiter) cleanup() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, s := range rl.attempts {
		if !s.lockedAt(now) && s.windowExpiredAt(now, rl.cfg.WindowDuration+rl.cfg.LockoutDuration) {
			delete(rl.attempts, ip)
		}
	}
}
