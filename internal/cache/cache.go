package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/kitbuilder587/webctx/internal/cache/memory"
	"github.com/kitbuilder587/webctx/internal/domain"
)

// Cache - хранилище с TTL, memory.Cache ему удовлетворяет.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	Stats() memory.Stats
	Resize(n int)
	Clear()
	Stop()
}

type Config struct {
	CategoryTTL time.Duration
	ResultTTL   time.Duration
	MaxEntries  int
}

type Stats struct {
	Categories memory.Stats
	Results    memory.Stats
	Hits       int64
	Misses     int64
	HitRate    float64
}

// ResultCache держит категории и готовые результаты в разных хранилищах,
// у каждого свой TTL.
type ResultCache struct {
	categories  Cache
	results     Cache
	categoryTTL time.Duration
	resultTTL   time.Duration
}

func New(ctx context.Context, cfg Config) *ResultCache {
	if cfg.CategoryTTL <= 0 {
		cfg.CategoryTTL = time.Hour
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 30 * time.Minute
	}
	mc := memory.Config{MaxEntries: cfg.MaxEntries}
	return NewWithStores(memory.NewWithConfig(ctx, mc), memory.NewWithConfig(ctx, mc), cfg)
}

func NewWithStores(categories, results Cache, cfg Config) *ResultCache {
	return &ResultCache{
		categories:  categories,
		results:     results,
		categoryTTL: cfg.CategoryTTL,
		resultTTL:   cfg.ResultTTL,
	}
}

// Key - стабильный хеш промпта (и модели, если задана).
func Key(prompt, model string) string {
	data := prompt
	if model = strings.TrimSpace(model); model != "" {
		data = model + "\x00" + prompt
	}
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash[:16])
}

func (c *ResultCache) GetCategories(key string) ([]string, bool) {
	v, ok := c.categories.Get("cat:" + key)
	if !ok {
		return nil, false
	}
	cats, ok := v.([]string)
	return cats, ok
}

func (c *ResultCache) SetCategories(key string, categories []string) {
	stored := make([]string, len(categories))
	copy(stored, categories)
	c.categories.Set("cat:"+key, stored, c.categoryTTL)
}

// GetResult отдает тот же указатель, что был положен.
func (c *ResultCache) GetResult(key string) (*domain.EnhancementResult, bool) {
	v, ok := c.results.Get("res:" + key)
	if !ok {
		return nil, false
	}
	res, ok := v.(*domain.EnhancementResult)
	return res, ok && res != nil
}

func (c *ResultCache) SetResult(key string, res *domain.EnhancementResult) {
	if res == nil {
		return
	}
	c.results.Set("res:"+key, res, c.resultTTL)
}

func (c *ResultCache) Stats() Stats {
	cs := c.categories.Stats()
	rs := c.results.Stats()
	s := Stats{
		Categories: cs,
		Results:    rs,
		Hits:       cs.Hits + rs.Hits,
		Misses:     cs.Misses + rs.Misses,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// Resize применяется к каждому хранилищу отдельно.
func (c *ResultCache) Resize(n int) {
	c.categories.Resize(n)
	c.results.Resize(n)
}

func (c *ResultCache) Clear() {
	c.categories.Clear()
	c.results.Clear()
}

func (c *ResultCache) Stop() {
	c.categories.Stop()
	c.results.Stop()
}
