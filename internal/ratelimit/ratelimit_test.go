package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestLimiter_Reserve(t *testing.T) {
	limiter := New(Config{RequestsPerSecond: 1})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = fixedClock(base)

	if wait := limiter.Reserve(); wait != 0 {
		t.Errorf("first Reserve() = %v, want 0", wait)
	}
	if wait := limiter.Reserve(); wait != time.Second {
		t.Errorf("second Reserve() = %v, want 1s", wait)
	}
	if wait := limiter.Reserve(); wait != 2*time.Second {
		t.Errorf("third Reserve() = %v, want 2s", wait)
	}
}

func TestLimiter_ReserveAfterIdle(t *testing.T) {
	limiter := New(Config{RequestsPerSecond: 2})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = fixedClock(base)
	limiter.Reserve()

	limiter.now = fixedClock(base.Add(5 * time.Second))
	if wait := limiter.Reserve(); wait != 0 {
		t.Errorf("Reserve() after idle = %v, want 0", wait)
	}
}

func TestLimiter_DefaultConfig(t *testing.T) {
	limiter := New(Config{})
	if limiter.Limit() != 1 {
		t.Errorf("Limit() = %v, want 1", limiter.Limit())
	}
	if limiter.Interval() != time.Second {
		t.Errorf("Interval() = %v, want 1s", limiter.Interval())
	}
}

func TestLimiter_SetLimit(t *testing.T) {
	limiter := New(Config{RequestsPerSecond: 1})

	limiter.SetLimit(4)
	if limiter.Interval() != 250*time.Millisecond {
		t.Errorf("Interval() = %v, want 250ms", limiter.Interval())
	}

	limiter.SetLimit(0)
	if limiter.Limit() != 4 {
		t.Errorf("SetLimit(0) changed limit to %v", limiter.Limit())
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := New(Config{RequestsPerSecond: 0.1})
	limiter.Reserve()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx); err == nil {
		t.Error("Wait() expected context error")
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter := New(Config{RequestsPerSecond: 1})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = fixedClock(base)

	var mu sync.Mutex
	seen := make(map[time.Duration]bool)
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := limiter.Reserve()
			mu.Lock()
			seen[w] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	// каждый вызов должен получить свое окно
	if len(seen) != 20 {
		t.Errorf("got %d distinct slots, want 20", len(seen))
	}
}
