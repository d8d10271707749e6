package httpapi

import (
	"math"
	"sync"
	"time"
)

// RateLimiter caps bridge requests per caller in fixed windows. A UI that
// hammers the buzz endpoint gets told when its window reopens.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows map[string]callerWindow
	now     func() time.Time
}

type callerWindow struct {
	start time.Time
	used  int
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 600
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:   limit,
		window:  window,
		windows: make(map[string]callerWindow),
		now:     time.Now,
	}
}

// Allow spends one request for caller. When the window is used up it
// returns false and how long until the next window starts.
func (r *RateLimiter) Allow(caller string) (bool, time.Duration) {
	if r == nil {
		return true, 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	w, ok := r.windows[caller]
	if !ok || now.Sub(w.start) >= r.window {
		r.sweep(now)
		r.windows[caller] = callerWindow{start: now, used: 1}
		return true, 0
	}
	if w.used >= r.limit {
		return false, w.start.Add(r.window).Sub(now)
	}
	w.used++
	r.windows[caller] = w
	return true, 0
}

// sweep drops expired windows so callers that went away do not pile up.
func (r *RateLimiter) sweep(now time.Time) {
	for caller, w := range r.windows {
		if now.Sub(w.start) >= r.window {
			delete(r.windows, caller)
		}
	}
}

func (r *RateLimiter) callers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.windows)
}

// retryAfterSeconds rounds up so clients never retry early.
func retryAfterSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
