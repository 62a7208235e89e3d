package memory

import (
	"context"
	"sort"
	"sync"
	"time"
)

type item struct {
	value     interface{}
	createdAt time.Time
	ttl       time.Duration
	hits      int64
}

func (it *item) expired(now time.Time) bool {
	return it.ttl > 0 && now.After(it.createdAt.Add(it.ttl))
}

type Stats struct {
	Hits    int64
	Misses  int64
	Size    int
	HitRate float64
}

type Config struct {
	MaxEntries      int // 0 - без ограничения
	CleanupInterval time.Duration
}

// Cache - in-memory кеш с TTL и счетчиком попаданий на запись.
type Cache struct {
	mu         sync.Mutex
	items      map[string]*item
	hits       int64
	misses     int64
	maxEntries int
	interval   time.Duration
	now        func() time.Time
	stopChan   chan struct{}
	stopped    bool
}

func New() *Cache {
	return NewWithConfig(context.Background(), Config{})
}

func NewWithContext(ctx context.Context) *Cache {
	return NewWithConfig(ctx, Config{})
}

func NewWithConfig(ctx context.Context, cfg Config) *Cache {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	c := &Cache{
		items:      make(map[string]*item),
		maxEntries: cfg.MaxEntries,
		interval:   cfg.CleanupInterval,
		now:        time.Now,
		stopChan:   make(chan struct{}),
	}
	go c.cleanup(ctx)
	return c
}

// Get увеличивает счетчик попаданий записи.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok || it.expired(c.now()) {
		if ok {
			delete(c.items, key)
		}
		c.misses++
		return nil, false
	}
	it.hits++
	c.hits++
	return it.value, true
}

func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &item{value: value, createdAt: c.now(), ttl: ttl}
	if c.maxEntries > 0 && len(c.items) > c.maxEntries {
		c.evictLocked(c.maxEntries)
	}
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// HitCount - сколько раз читали запись (0 если нет).
func (c *Cache) HitCount(key string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if it, ok := c.items[key]; ok {
		return it.hits
	}
	return 0
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Hits: c.hits, Misses: c.misses, Size: len(c.items)}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// Resize выкидывает записи с наименьшим (timestamp + hit_count), пока не останется n.
func (c *Cache) Resize(n int) {
	if n < 0 {
		n = 0
	}
	c.mu.Lock()
	c.evictLocked(n)
	c.mu.Unlock()
}

// Clear сбрасывает и записи, и счетчики.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]*item)
	c.hits = 0
	c.misses = 0
	c.mu.Unlock()
}

func (c *Cache) Stop() {
	c.mu.Lock()
	if !c.stopped {
		c.stopped = true
		close(c.stopChan)
	}
	c.mu.Unlock()
}

func (c *Cache) evictLocked(n int) {
	if len(c.items) <= n {
		return
	}

	type ranked struct {
		key  string
		rank float64
	}
	all := make([]ranked, 0, len(c.items))
	for k, it := range c.items {
		rank := float64(it.createdAt.UnixNano())/float64(time.Second) + float64(it.hits)
		all = append(all, ranked{k, rank})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].rank != all[j].rank {
			return all[i].rank < all[j].rank
		}
		return all[i].key < all[j].key
	})

	for _, r := range all[:len(all)-n] {
		delete(c.items, r.key)
	}
}

func (c *Cache) cleanup(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, it := range c.items {
		if it.expired(now) {
			delete(c.items, k)
		}
	}
}
