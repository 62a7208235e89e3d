package cache

import (
	"context"
	"testing"
	"time"

	"github.com/kitbuilder587/webctx/internal/domain"
)

func newTestCache(t *testing.T) *ResultCache {
	t.Helper()
	c := New(context.Background(), Config{CategoryTTL: time.Hour, ResultTTL: time.Hour})
	t.Cleanup(c.Stop)
	return c
}

func TestKey(t *testing.T) {
	tests := []struct {
		name   string
		a, b   [2]string
		sameOK bool
	}{
		{"same prompt", [2]string{"hello", ""}, [2]string{"hello", ""}, true},
		{"different prompt", [2]string{"hello", ""}, [2]string{"hello!", ""}, false},
		{"model changes key", [2]string{"hello", ""}, [2]string{"hello", "gpt"}, false},
		{"model trimmed", [2]string{"hello", "gpt"}, [2]string{"hello", " gpt "}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			same := Key(tt.a[0], tt.a[1]) == Key(tt.b[0], tt.b[1])
			if same != tt.sameOK {
				t.Errorf("keys equal = %v, want %v", same, tt.sameOK)
			}
		})
	}
}

func TestResultCache_ResultSamePointer(t *testing.T) {
	c := newTestCache(t)
	res := domain.Passthrough("prompt")
	key := Key("prompt", "")

	c.SetResult(key, res)

	got, ok := c.GetResult(key)
	if !ok {
		t.Fatal("GetResult() miss")
	}
	if got != res {
		t.Error("GetResult() should return the stored pointer")
	}
}

func TestResultCache_SeparateStores(t *testing.T) {
	c := newTestCache(t)
	key := Key("prompt", "")

	c.SetCategories(key, []string{"coding"})

	if _, ok := c.GetResult(key); ok {
		t.Error("categories must not leak into results store")
	}
	cats, ok := c.GetCategories(key)
	if !ok || len(cats) != 1 || cats[0] != "coding" {
		t.Errorf("GetCategories() = %v, %v", cats, ok)
	}
}

func TestResultCache_IndependentTTL(t *testing.T) {
	c := New(context.Background(), Config{CategoryTTL: time.Hour, ResultTTL: time.Millisecond})
	defer c.Stop()
	key := Key("prompt", "")

	c.SetCategories(key, []string{"general"})
	c.SetResult(key, domain.Passthrough("prompt"))
	time.Sleep(10 * time.Millisecond)

	if _, ok := c.GetResult(key); ok {
		t.Error("result should expire")
	}
	if _, ok := c.GetCategories(key); !ok {
		t.Error("categories should still be cached")
	}
}

func TestResultCache_StatsAndClear(t *testing.T) {
	c := newTestCache(t)
	key := Key("p", "")

	c.SetResult(key, domain.Passthrough("p"))
	c.GetResult(key)
	c.GetResult(key)
	c.GetCategories(key)
	c.GetResult("other")

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 2 {
		t.Errorf("Stats() hits=%d misses=%d, want 2/2", s.Hits, s.Misses)
	}
	if s.HitRate != 0.5 {
		t.Errorf("HitRate = %v, want 0.5", s.HitRate)
	}

	c.Clear()

	s = c.Stats()
	if s.Hits != 0 || s.Misses != 0 || s.Results.Size != 0 {
		t.Errorf("Stats() after Clear() = %+v", s)
	}
	if _, ok := c.GetResult(key); ok {
		t.Error("entries should be gone after Clear()")
	}
}

func TestResultCache_Resize(t *testing.T) {
	c := newTestCache(t)
	for _, p := range []string{"a", "b", "c"} {
		c.SetResult(Key(p, ""), domain.Passthrough(p))
		c.SetCategories(Key(p, ""), []string{"general"})
	}

	c.Resize(1)

	s := c.Stats()
	if s.Results.Size != 1 || s.Categories.Size != 1 {
		t.Errorf("sizes after Resize(1) = %d/%d", s.Results.Size, s.Categories.Size)
	}
}

func TestResultCache_NilResultIgnored(t *testing.T) {
	c := newTestCache(t)
	c.SetResult("k", nil)
	if _, ok := c.GetResult("k"); ok {
		t.Error("nil result should not be cached")
	}
}
