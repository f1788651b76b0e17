// Package ratelimit implements the sliding-window rejection counter
// that guards the credential-verification path (spec.md §5): a source
// IP making more than N attempts within a window is rejected with a
// retry-after hint until the oldest attempt in its window ages out.
//
// golang.org/x/time/rate's token bucket was considered and rejected: it
// models a refill rate, not a bounded count of attempts within a fixed
// trailing window, and doesn't expose "how long until the next slot
// frees up" the way a retry-after hint needs.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter rejects more than Max attempts per source key within Window.
// It is process-local and safe for concurrent use; stale per-key state
// is garbage-collected periodically by StartGC.
type Limiter struct {
	mu       sync.Mutex
	window   time.Duration
	max      int
	attempts map[string][]time.Time
	now      func() time.Time
}

// New constructs a Limiter allowing at most max attempts per key within
// window.
func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		window:   window,
		max:      max,
		attempts: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Result is the outcome of an Allow check.
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Allow records an attempt for key and reports whether it falls within
// the allowed rate. A rejected attempt is not itself counted against
// future windows.
func (l *Limiter) Allow(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	recent := pruneBefore(l.attempts[key], cutoff)

	if len(recent) >= l.max {
		oldest := recent[0]
		retryAfter := oldest.Add(l.window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		l.attempts[key] = recent
		return Result{Allowed: false, RetryAfter: retryAfter}
	}

	l.attempts[key] = append(recent, now)
	return Result{Allowed: true}
}

func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	out := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

// GC drops any key whose every recorded attempt has aged out of the
// window, bounding the limiter's memory to active source keys.
func (l *Limiter) GC() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	for key, ts := range l.attempts {
		pruned := pruneBefore(ts, cutoff)
		if len(pruned) == 0 {
			delete(l.attempts, key)
			continue
		}
		l.attempts[key] = pruned
	}
}

// StartGC runs GC on interval until stop is closed. Callers typically
// run it once in a background goroutine for the process lifetime.
func (l *Limiter) StartGC(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.GC()
		}
	}
}
