package memory

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	cache := New()
	defer cache.Stop()

	cache.Set("k", "v", time.Minute)

	got, ok := cache.Get("k")
	if !ok || got != "v" {
		t.Errorf("Get() = %v, %v, want v, true", got, ok)
	}

	if got, ok := cache.Get("missing"); ok || got != nil {
		t.Errorf("Get(missing) = %v, %v, want nil, false", got, ok)
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	cache := New()
	defer cache.Stop()

	base := time.Now()
	cache.now = func() time.Time { return base }
	cache.Set("k", "v", time.Minute)

	cache.now = func() time.Time { return base.Add(59 * time.Second) }
	if _, ok := cache.Get("k"); !ok {
		t.Error("entry should be alive before TTL")
	}

	cache.now = func() time.Time { return base.Add(61 * time.Second) }
	if _, ok := cache.Get("k"); ok {
		t.Error("entry should expire after TTL")
	}
	if cache.Len() != 0 {
		t.Errorf("expired entry should be dropped on read, Len() = %d", cache.Len())
	}
}

func TestCache_HitCountAndStats(t *testing.T) {
	cache := New()
	defer cache.Stop()

	cache.Set("k", 1, time.Hour)
	cache.Get("k")
	cache.Get("k")
	cache.Get("k")
	cache.Get("nope")

	if hits := cache.HitCount("k"); hits != 3 {
		t.Errorf("HitCount() = %d, want 3", hits)
	}

	stats := cache.Stats()
	if stats.Hits != 3 || stats.Misses != 1 || stats.Size != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
	if stats.HitRate != 0.75 {
		t.Errorf("HitRate = %v, want 0.75", stats.HitRate)
	}
}

func TestCache_StatsEmpty(t *testing.T) {
	cache := New()
	defer cache.Stop()

	if s := cache.Stats(); s.HitRate != 0 {
		t.Errorf("HitRate on empty cache = %v, want 0", s.HitRate)
	}
}

func TestCache_Resize(t *testing.T) {
	cache := New()
	defer cache.Stop()

	base := time.Now()
	for i, key := range []string{"oldest", "middle", "newest"} {
		ts := base.Add(time.Duration(i) * time.Second)
		cache.now = func() time.Time { return ts }
		cache.Set(key, key, time.Hour)
	}

	// 5 чтений поднимают oldest выше newest
	for i := 0; i < 5; i++ {
		cache.Get("oldest")
	}

	cache.Resize(2)

	if cache.Len() != 2 {
		t.Fatalf("Len() after Resize(2) = %d", cache.Len())
	}
	if _, ok := cache.Get("middle"); ok {
		t.Error("middle has the lowest timestamp+hits and should be evicted")
	}
	if _, ok := cache.Get("oldest"); !ok {
		t.Error("frequently read entry should survive")
	}

	cache.Resize(-1)
	if cache.Len() != 0 {
		t.Errorf("Resize(-1) should empty the cache, Len() = %d", cache.Len())
	}
}

func TestCache_MaxEntries(t *testing.T) {
	cache := NewWithConfig(context.Background(), Config{MaxEntries: 2})
	defer cache.Stop()

	base := time.Now()
	for i, key := range []string{"a", "b", "c"} {
		ts := base.Add(time.Duration(i) * time.Second)
		cache.now = func() time.Time { return ts }
		cache.Set(key, i, time.Hour)
	}

	if cache.Len() != 2 {
		t.Errorf("Len() = %d, want 2", cache.Len())
	}
	if _, ok := cache.Get("a"); ok {
		t.Error("oldest entry should be evicted first")
	}
}

func TestCache_Clear(t *testing.T) {
	cache := New()
	defer cache.Stop()

	cache.Set("k", 1, time.Hour)
	cache.Get("k")
	cache.Get("x")

	cache.Clear()

	s := cache.Stats()
	if s.Size != 0 || s.Hits != 0 || s.Misses != 0 {
		t.Errorf("Stats() after Clear() = %+v", s)
	}
}

func TestCache_Delete(t *testing.T) {
	cache := New()
	defer cache.Stop()

	cache.Set("k", 1, time.Hour)
	cache.Delete("k")

	if _, ok := cache.Get("k"); ok {
		t.Error("key should not exist after Delete()")
	}
}

func TestCache_RemoveExpired(t *testing.T) {
	cache := New()
	defer cache.Stop()

	base := time.Now()
	cache.now = func() time.Time { return base }
	cache.Set("short", 1, time.Second)
	cache.Set("long", 2, time.Hour)

	cache.now = func() time.Time { return base.Add(time.Minute) }
	cache.removeExpired()

	if cache.Len() != 1 {
		t.Errorf("Len() after sweep = %d, want 1", cache.Len())
	}
}

func TestCache_StopTwice(t *testing.T) {
	cache := New()
	cache.Stop()
	cache.Stop()
}

func TestCache_Concurrent(t *testing.T) {
	cache := New()
	defer cache.Stop()

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				cache.Set("key", i, time.Hour)
				cache.Get("key")
				if i%50 == 0 {
					cache.Delete("key")
				}
			}
		}()
	}
	wg.Wait()

	if s := cache.Stats(); s.Hits+s.Misses != 2000 {
		t.Errorf("reads accounted = %d, want 2000", s.Hits+s.Misses)
	}
}
