package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterAllowsWithinBudget(t *testing.T) {
	l := New(3, time.Minute)
	for i := 0; i < 3; i++ {
		if r := l.Allow("1.2.3.4"); !r.Allowed {
			t.Fatalf("attempt %d: expected allowed", i)
		}
	}
}

func TestLimiterRejectsOverBudget(t *testing.T) {
	l := New(2, time.Minute)
	l.Allow("1.2.3.4")
	l.Allow("1.2.3.4")

	r := l.Allow("1.2.3.4")
	if r.Allowed {
		t.Fatal("expected third attempt to be rejected")
	}
	if r.RetryAfter <= 0 {
		t.Errorf("expected positive retry-after, got %v", r.RetryAfter)
	}
}

func TestLimiterIsolatesKeys(t *testing.T) {
	l := New(1, time.Minute)
	if r := l.Allow("a"); !r.Allowed {
		t.Fatal("expected key a allowed")
	}
	if r := l.Allow("b"); !r.Allowed {
		t.Fatal("expected key b allowed independently of a")
	}
	if r := l.Allow("a"); r.Allowed {
		t.Fatal("expected second attempt for key a to be rejected")
	}
}

func TestLimiterWindowSlides(t *testing.T) {
	l := New(1, time.Minute)
	base := time.Now()
	l.now = func() time.Time { return base }

	if r := l.Allow("x"); !r.Allowed {
		t.Fatal("expected first attempt allowed")
	}
	if r := l.Allow("x"); r.Allowed {
		t.Fatal("expected second attempt within window rejected")
	}

	l.now = func() time.Time { return base.Add(2 * time.Minute) }
	if r := l.Allow("x"); !r.Allowed {
		t.Fatal("expected attempt allowed once window has slid past")
	}
}

func TestLimiterGCRemovesExpiredKeys(t *testing.T) {
	l := New(1, time.Minute)
	base := time.Now()
	l.now = func() time.Time { return base }
	l.Allow("stale")

	l.now = func() time.Time { return base.Add(5 * time.Minute) }
	l.GC()

	l.mu.Lock()
	_, exists := l.attempts["stale"]
	l.mu.Unlock()
	if exists {
		t.Error("expected stale key to be garbage-collected")
	}
}

func TestLimiterRetryAfterShrinksOverTime(t *testing.T) {
	l := New(1, time.Minute)
	base := time.Now()
	l.now = func() time.Time { return base }
	l.Allow("y")

	l.now = func() time.Time { return base.Add(30 * time.Second) }
	r := l.Allow("y")
	if r.Allowed {
		t.Fatal("expected rejection inside window")
	}
	if r.RetryAfter > 31*time.Second || r.RetryAfter < 29*time.Second {
		t.Errorf("expected retry-after near 30s, got %v", r.RetryAfter)
	}
}
