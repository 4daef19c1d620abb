// Package ratelimit guards the send-link endpoint per address: a bounded
// number of requests in a rolling window, with a minimum spacing between
// consecutive allowed requests.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed bool
	// Message is suitable for a 429 body when not allowed.
	Message string
}

type entry struct {
	count       int
	windowStart time.Time
	spacing     *rate.Limiter
	lastAllowed time.Time
	lastSeen    time.Time
}

// Limiter tracks one entry per key (lowercased address). Spacing is enforced
// with a one-token bucket; the window cap with an explicit rolling counter.
type Limiter struct {
	window      time.Duration
	max         int
	minInterval time.Duration
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// New builds a limiter allowing max requests per window, at least
// minInterval apart.
func New(max int, window, minInterval time.Duration) *Limiter {
	return &Limiter{
		window:      window,
		max:         max,
		minInterval: minInterval,
		now:         time.Now,
		entries:     make(map[string]*entry),
	}
}

// Allow records an attempt for key and decides it. Denied attempts never
// advance the spacing clock or the window counter.
func (l *Limiter) Allow(key string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &entry{
			windowStart: now,
			spacing:     rate.NewLimiter(rate.Every(l.minInterval), 1),
		}
		l.entries[key] = e
	}
	e.lastSeen = now

	if now.Sub(e.windowStart) > l.window {
		e.count = 0
		e.windowStart = now
	}

	if e.count >= l.max {
		return Decision{Message: "Too many requests. Please try again later."}
	}

	if !e.spacing.AllowN(now, 1) {
		wait := l.minInterval - now.Sub(e.lastAllowed)
		secs := int(wait.Seconds())
		if wait > time.Duration(secs)*time.Second {
			secs++
		}
		if secs < 1 {
			secs = 1
		}
		return Decision{Message: fmt.Sprintf("Please wait %d seconds before requesting again", secs)}
	}

	e.count++
	e.lastAllowed = now
	return Decision{Allowed: true}
}

// Janitor evicts idle entries every sweep until stop is closed.
func (l *Limiter) Janitor(sweep time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(sweep)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := l.now().Add(-3 * l.window)
			l.mu.Lock()
			for key, e := range l.entries {
				if e.lastSeen.Before(cutoff) {
					delete(l.entries, key)
				}
			}
			l.mu.Unlock()
		case <-stop:
			return
		}
	}
}
