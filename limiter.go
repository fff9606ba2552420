package folio

import (
	"sync"
	"time"
)

// Contact limiter defaults.
const (
	DefaultContactLimit  = 5
	DefaultContactWindow = 15 * time.Minute
)

type contactWindow struct {
	count   int
	resetAt time.Time
}

// ContactLimiter is a fixed-window counter per IP for the contact form. A
// window starts with the first request from an IP and lasts window; once
// more than limit requests arrive inside it, further requests are rejected
// until it ends. Bursts at window edges are not smoothed, and state is
// process-local and lost on restart.
type ContactLimiter struct {
	mu      sync.Mutex
	windows map[string]*contactWindow
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewContactLimiter creates a ContactLimiter allowing limit requests per
// window. Non-positive values use the defaults.
func NewContactLimiter(limit int, window time.Duration) *ContactLimiter {
	if limit <= 0 {
		limit = DefaultContactLimit
	}
	if window <= 0 {
		window = DefaultContactWindow
	}
	return &ContactLimiter{
		windows: make(map[string]*contactWindow),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// SetClock replaces the time source; used by tests.
func (l *ContactLimiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

// Allow records a request from ip and reports whether it is within the limit.
func (l *ContactLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
		}
	}
	w, ok := l.windows[ip]
	if !ok {
		l.windows[ip] = &contactWindow{count: 1, resetAt: now.Add(l.window)}
		return true
	}
	w.count++
	return w.count <= l.limit
}

// RetryAfter returns how long ip has to wait for its window to reset.
func (l *ContactLimiter) RetryAfter(ip string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[ip]
	if !ok {
		return 0
	}
	if d := w.resetAt.Sub(l.now()); d > 0 {
		return d
	}
	return 0
}

// Len returns the number of tracked IPs.
func (l *ContactLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// LoginLimiter rate-limits failed login attempts per IP with a sliding window.
type LoginLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	max      int
	window   time.Duration
	done     chan struct{}
	once     sync.Once
}

// NewLoginLimiter creates a LoginLimiter that allows max attempts per window.
// Close stops its cleanup goroutine.
func NewLoginLimiter(max int, window time.Duration) *LoginLimiter {
	l := &LoginLimiter{
		attempts: make(map[string][]time.Time),
		max:      max,
		window:   window,
		done:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *LoginLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
		}
		cutoff := time.Now().Add(-l.window)
		l.mu.Lock()
		for ip, hits := range l.attempts {
			kept := hits[:0]
			for _, t := range hits {
				if t.After(cutoff) {
					kept = append(kept, t)
				}
			}
			if len(kept) == 0 {
				delete(l.attempts, ip)
			} else {
				l.attempts[ip] = kept
			}
		}
		l.mu.Unlock()
	}
}

// Close stops the cleanup goroutine.
func (l *LoginLimiter) Close() {
	l.once.Do(func() { close(l.done) })
}

// Check returns true if the IP has not exceeded the rate limit. It does not
// record an attempt; call Record on failure.
func (l *LoginLimiter) Check(ip string) bool {
	cutoff := time.Now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := l.attempts[ip]
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.attempts[ip] = kept
	return len(kept) < l.max
}

// Record registers a failed login attempt for the given IP.
func (l *LoginLimiter) Record(ip string) {
	l.mu.Lock()
	l.attempts[ip] = append(l.attempts[ip], time.Now())
	l.mu.Unlock()
}

// Reset forgets the attempts of ip after a successful login.
func (l *LoginLimiter) Reset(ip string) {
	l.mu.Lock()
	delete(l.attempts, ip)
	l.mu.Unlock()
}
