package client

import (
	"sync"
	"time"
)

const (
	defaultActivityLimit  = 5
	defaultActivityWindow = 20 * time.Second
)

// rateLimiter is a fixed window counter: once the window has elapsed it
// resets wholesale instead of sliding.
type rateLimiter struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	now         func() time.Time
	windowStart time.Time
	count       int
}

func newRateLimiter(limit int, window time.Duration, now func() time.Time) *rateLimiter {
	if now == nil {
		now = time.Now
	}
	return &rateLimiter{limit: limit, window: window, now: now}
}

// allow consumes one slot, reporting false when the window is exhausted.
// A limit of zero or less disables limiting.
func (l *rateLimiter) allow() bool {
	if l == nil || l.limit <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.window {
		l.windowStart = now
		l.count = 0
	}
	if l.count >= l.limit {
		return false
	}
	l.count++
	return true
}
