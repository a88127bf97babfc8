// Package ratelimit provides a per-key fixed-window request limiter.
package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	count int
	start time.Time
}

// FixedWindow allows at most limit requests per key in each window.
// A key's window opens on its first request and resets lazily on the
// first request after it expires. The key is the user id only, so clients
// cannot bypass throttling by switching chats.
type FixedWindow struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

// Option configures a FixedWindow.
type Option func(*FixedWindow)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(f *FixedWindow) { f.now = now }
}

// NewFixedWindow creates a limiter allowing limit requests per period.
func NewFixedWindow(limit int, period time.Duration, opts ...Option) *FixedWindow {
	f := &FixedWindow{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Allow records a request for key and reports whether it is within the limit.
func (f *FixedWindow) Allow(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	w, ok := f.windows[key]
	if !ok || now.Sub(w.start) >= f.period {
		f.windows[key] = &window{count: 1, start: now}
		return true
	}
	if w.count >= f.limit {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many requests key may still make in its current window.
func (f *FixedWindow) Remaining(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	w, ok := f.windows[key]
	if !ok || f.now().Sub(w.start) >= f.period {
		return f.limit
	}
	return f.limit - w.count
}

// Sweep drops expired windows and returns how many were removed.
func (f *FixedWindow) Sweep() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	removed := 0
	for key, w := range f.windows {
		if now.Sub(w.start) >= f.period {
			delete(f.windows, key)
			removed++
		}
	}
	return removed
}
