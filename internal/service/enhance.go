package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/webctx/internal/cache"
	"github.com/kitbuilder587/webctx/internal/domain"
	"github.com/kitbuilder587/webctx/internal/enhancer"
	"github.com/kitbuilder587/webctx/internal/extractor"
	"github.com/kitbuilder587/webctx/internal/metrics"
	"github.com/kitbuilder587/webctx/internal/ranking"
	"github.com/kitbuilder587/webctx/internal/search"
)

// MaxContextItems - столько лучших страниц попадает в промпт.
const MaxContextItems = 3

type Categorizer interface {
	Categorize(prompt string) []string
}

type QueryPlanner interface {
	Plan(ctx context.Context, prompt string, categories []string) []domain.SearchQuery
	KeywordQueries(prompt string) []domain.SearchQuery
}

type Scraper interface {
	ScrapeURLs(ctx context.Context, urls []string, opts extractor.Options) []domain.ScrapedContent
}

type PromptEnhancer interface {
	Enhance(ctx context.Context, req enhancer.Request, opts enhancer.Options) (*enhancer.Result, error)
}

// SelfTester - компонент умеет проверить себя без сети.
type SelfTester interface {
	SelfTest() bool
}

// SessionCloser - browser.Pool.
type SessionCloser interface {
	CloseAll()
}

type EnhanceOptions struct {
	EnableWebSearch  bool
	MaxURLs          int
	MaxIterations    int
	CostLimit        float64
	Model            string
	MinWordCount     int
	MaxContentLength int
	ScrapeTimeout    time.Duration
}

type EnhanceConfig struct {
	Defaults        EnhanceOptions
	SearchQueries   int // сколько запросов реально отправлять в поиск
	ResultsPerQuery int
	SearchTimeout   time.Duration
	HealthTimeout   time.Duration
}

// EnhanceServiceDeps - зависимости оркестратора. Search, Scraper и Cache опциональны.
type EnhanceServiceDeps struct {
	Categorizer Categorizer
	Planner     QueryPlanner
	Search      search.SearchClient
	Scraper     Scraper
	Enhancer    PromptEnhancer
	Cache       *cache.ResultCache
	Sessions    SessionCloser
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Config      EnhanceConfig
}

type EnhanceService struct {
	categorizer Categorizer
	planner     QueryPlanner
	search      search.SearchClient
	scraper     Scraper
	enhancer    PromptEnhancer
	cache       *cache.ResultCache
	sessions    SessionCloser
	logger      *zap.Logger
	metrics     *metrics.Metrics
	config      EnhanceConfig
	now         func() time.Time

	cleanupOnce sync.Once
}

func NewEnhanceService(deps EnhanceServiceDeps) *EnhanceService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	cfg := deps.Config
	if cfg.SearchQueries <= 0 {
		cfg.SearchQueries = 2
	}
	if cfg.ResultsPerQuery <= 0 {
		cfg.ResultsPerQuery = 5
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = 30 * time.Second
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = 10 * time.Second
	}
	if cfg.Defaults.MaxURLs <= 0 {
		cfg.Defaults.MaxURLs = 3
	}

	return &EnhanceService{
		categorizer: deps.Categorizer,
		planner:     deps.Planner,
		search:      deps.Search,
		scraper:     deps.Scraper,
		enhancer:    deps.Enhancer,
		cache:       deps.Cache,
		sessions:    deps.Sessions,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		config:      cfg,
		now:         time.Now,
	}
}

// DefaultOptions - опции из конфигурации, от них удобно отталкиваться вызывающему.
func (s *EnhanceService) DefaultOptions() EnhanceOptions {
	return s.config.Defaults
}

func (s *EnhanceService) merge(opts EnhanceOptions) EnhanceOptions {
	d := s.config.Defaults
	if opts.MaxURLs <= 0 {
		opts.MaxURLs = d.MaxURLs
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = d.MaxIterations
	}
	if opts.CostLimit == 0 {
		opts.CostLimit = d.CostLimit
	}
	if opts.Model == "" {
		opts.Model = d.Model
	}
	if opts.MinWordCount == 0 {
		opts.MinWordCount = d.MinWordCount
	}
	if opts.MaxContentLength <= 0 {
		opts.MaxContentLength = d.MaxContentLength
	}
	if opts.ScrapeTimeout <= 0 {
		opts.ScrapeTimeout = d.ScrapeTimeout
	}
	return opts
}

// Enhance никогда не возвращает ошибку: на любом сбое результат деградирует,
// в худшем случае промпт отдается как есть.
func (s *EnhanceService) Enhance(ctx context.Context, prompt string, opts EnhanceOptions) (result *domain.EnhancementResult) {
	start := s.now()
	status := "ok"

	if s.metrics != nil {
		s.metrics.IncInFlight()
		defer s.metrics.DecInFlight()
	}
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordEnhance(status, s.now().Sub(start))
		}
	}()

	if err := domain.ValidatePrompt(prompt); err != nil {
		s.logger.Warn("prompt rejected, passing through", zap.Error(err))
		status = "invalid"
		return domain.Passthrough(prompt)
	}
	opts = s.merge(opts)
	key := s.cacheKey(prompt, opts)

	if s.cache != nil {
		if cached, ok := s.cache.GetResult(key); ok {
			s.recordCache("result", true)
			status = "cached"
			s.logger.Debug("enhancement served from cache", zap.String("key", key))
			return cached
		}
		s.recordCache("result", false)
	}

	s.logger.Info("enhancing prompt",
		zap.Int("prompt_length", len(prompt)),
		zap.Bool("web_search", opts.EnableWebSearch),
		zap.Int("max_urls", opts.MaxURLs),
	)

	res, final := s.runGuarded(ctx, prompt, key, opts, start)
	switch {
	case final:
		status = "passthrough"
	case res.Metadata.Degraded:
		status = "degraded"
	}

	// окончательный passthrough не кешируем, в следующий раз может повезти
	if s.cache != nil && !final {
		s.cache.SetResult(key, res)
	}

	s.logger.Info("prompt enhanced",
		zap.String("status", status),
		zap.Int("web_context", len(res.WebContext)),
		zap.Duration("total", res.Metadata.TotalTime),
	)
	return res
}

// runGuarded - полный пайплайн, при панике только категории, при второй панике passthrough.
func (s *EnhanceService) runGuarded(ctx context.Context, prompt, key string, opts EnhanceOptions, start time.Time) (res *domain.EnhancementResult, final bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("enhancement pipeline panicked, falling back to categories only",
				zap.Any("panic", r),
			)
			res, final = s.categoryOnly(ctx, prompt, key, opts, start)
		}
	}()
	return s.run(ctx, prompt, key, opts, start), false
}

func (s *EnhanceService) categoryOnly(ctx context.Context, prompt, key string, opts EnhanceOptions, start time.Time) (res *domain.EnhancementResult, final bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("category-only enhancement panicked, returning prompt as is",
				zap.Any("panic", r),
			)
			res, final = domain.Passthrough(prompt), true
		}
	}()

	categories := s.categories(prompt, key)
	res = &domain.EnhancementResult{
		OriginalPrompt:    prompt,
		EnhancedPrompt:    prompt,
		MatchedCategories: categories,
		WebContext:        []domain.ScrapedContent{},
		SearchQueries:     []string{},
	}
	s.enhance(ctx, res, prompt, opts)
	res.Metadata.Degraded = true
	res.Metadata.TotalTime = s.now().Sub(start)
	return res, false
}

func (s *EnhanceService) run(ctx context.Context, prompt, key string, opts EnhanceOptions, start time.Time) *domain.EnhancementResult {
	res := &domain.EnhancementResult{
		OriginalPrompt:    prompt,
		EnhancedPrompt:    prompt,
		MatchedCategories: []string{},
		WebContext:        []domain.ScrapedContent{},
		SearchQueries:     []string{},
	}

	planStart := s.now()
	res.MatchedCategories = s.categories(prompt, key)
	queries := s.plan(ctx, prompt, res.MatchedCategories)
	s.recordStage("plan", s.now().Sub(planStart))

	if opts.EnableWebSearch && s.search != nil {
		searchStart := s.now()
		usedKeywords := false
		if len(queries) == 0 {
			queries = s.keywordQueries(prompt)
			usedKeywords = true
		}
		urls := s.searchURLs(ctx, queries, opts.MaxURLs)
		if len(urls) == 0 && !usedKeywords {
			s.logger.Debug("planned queries found nothing, retrying with prompt keywords")
			if kw := s.keywordQueries(prompt); len(kw) > 0 {
				queries = append(queries, kw...)
				urls = s.searchURLs(ctx, kw, opts.MaxURLs)
			}
		}
		res.Metadata.SearchTime = s.now().Sub(searchStart)
		s.recordStage("search", res.Metadata.SearchTime)

		if len(urls) > 0 && s.scraper != nil {
			scrapeStart := s.now()
			scraped := s.scraper.ScrapeURLs(ctx, urls, extractor.Options{
				Timeout:          opts.ScrapeTimeout,
				MinWordCount:     opts.MinWordCount,
				MaxContentLength: opts.MaxContentLength,
				MaxURLs:          opts.MaxURLs,
			})
			res.Metadata.ScrapeTime = s.now().Sub(scrapeStart)
			s.recordStage("scrape", res.Metadata.ScrapeTime)

			res.Metadata.URLsAttempted = len(urls)
			res.Metadata.SuccessRate = domain.SuccessRate(len(scraped), len(urls))

			ranked := ranking.RankContent(scraped)
			if len(ranked) > MaxContextItems {
				ranked = ranked[:MaxContextItems]
			}
			res.WebContext = ranked
		}
	}
	for _, q := range queries {
		res.SearchQueries = append(res.SearchQueries, q.Text)
	}

	s.enhance(ctx, res, BuildContextPrompt(prompt, res.WebContext), opts)
	res.Metadata.TotalTime = s.now().Sub(start)
	return res
}

// enhance пишет в res результат внешнего улучшения. При ошибке в res остается input.
func (s *EnhanceService) enhance(ctx context.Context, res *domain.EnhancementResult, input string, opts EnhanceOptions) {
	res.EnhancedPrompt = input
	if s.enhancer == nil {
		return
	}

	enhanceStart := s.now()
	out, err := s.enhancer.Enhance(ctx, enhancer.Request{
		Prompt:     input,
		Original:   res.OriginalPrompt,
		Categories: res.MatchedCategories,
	}, enhancer.Options{
		MaxIterations: opts.MaxIterations,
		CostLimit:     opts.CostLimit,
		Model:         opts.Model,
	})
	s.recordStage("enhance", s.now().Sub(enhanceStart))
	if err != nil {
		s.logger.Warn("enhancer failed, keeping context prompt", zap.Error(err))
		res.Metadata.Degraded = true
		return
	}

	if out.Prompt != "" {
		res.EnhancedPrompt = out.Prompt
	}
	res.Metadata.Iterations = out.Iterations
	res.Metadata.Cost = out.Cost
	res.Metadata.TokensUsed = out.TokensUsed
}

func (s *EnhanceService) categories(prompt, key string) []string {
	if s.categorizer == nil {
		return []string{}
	}
	if s.cache != nil {
		if cats, ok := s.cache.GetCategories(key); ok {
			s.recordCache("category", true)
			return cats
		}
		s.recordCache("category", false)
	}

	cats := s.categorizer.Categorize(prompt)
	if cats == nil {
		cats = []string{}
	}
	if s.cache != nil {
		s.cache.SetCategories(key, cats)
	}
	return cats
}

func (s *EnhanceService) plan(ctx context.Context, prompt string, categories []string) (queries []domain.SearchQuery) {
	if s.planner == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("planner panicked", zap.Any("panic", r))
			queries = nil
		}
	}()
	return s.planner.Plan(ctx, prompt, categories)
}

func (s *EnhanceService) keywordQueries(prompt string) []domain.SearchQuery {
	if s.planner == nil {
		return nil
	}
	return s.planner.KeywordQueries(prompt)
}

// searchURLs ищет по нескольким первым запросам параллельно. Порядок URL
// следует приоритету запросов, поэтому результаты собираются по индексам.
func (s *EnhanceService) searchURLs(ctx context.Context, queries []domain.SearchQuery, maxURLs int) []string {
	if len(queries) == 0 {
		return nil
	}
	sorted := make([]domain.SearchQuery, len(queries))
	copy(sorted, queries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	if len(sorted) > s.config.SearchQueries {
		sorted = sorted[:s.config.SearchQueries]
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.SearchTimeout)
	defer cancel()

	perQuery := make([][]search.SearchResult, len(sorted))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range sorted {
		g.Go(func() error {
			results, err := s.searchOne(gctx, q)
			if err != nil {
				s.logger.Warn("search query failed",
					zap.Error(err),
					zap.String("query", q.Text),
				)
				return nil
			}
			perQuery[i] = results
			return nil
		})
	}
	_ = g.Wait()

	var all []search.SearchResult
	for _, rs := range perQuery {
		for _, r := range rs {
			if search.ValidResultURL(r.URL) {
				all = append(all, r)
			}
		}
	}
	return search.DedupeURLs(all, maxURLs)
}

func (s *EnhanceService) searchOne(ctx context.Context, q domain.SearchQuery) ([]search.SearchResult, error) {
	engine := ""
	if len(q.Engines) > 0 {
		engine = q.Engines[0]
	}

	start := s.now()
	resp, err := s.search.Search(ctx, search.SearchRequest{
		Query:      q.Text,
		MaxResults: s.config.ResultsPerQuery,
		Engine:     engine,
	})
	label := engine
	if label == "" {
		label = "default"
	}
	if err != nil {
		s.recordSearch(label, "error", s.now().Sub(start))
		return nil, err
	}
	s.recordSearch(label, "success", s.now().Sub(start))
	return resp.Results, nil
}

func (s *EnhanceService) cacheKey(prompt string, opts EnhanceOptions) string {
	model := opts.Model
	if !opts.EnableWebSearch {
		model += "|noweb"
	}
	return cache.Key(prompt, model)
}

func (s *EnhanceService) recordCache(store string, hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.RecordCacheHit(store)
	} else {
		s.metrics.RecordCacheMiss(store)
	}
}

func (s *EnhanceService) recordStage(stage string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordStage(stage, d)
	}
}

func (s *EnhanceService) recordSearch(engine, status string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordSearchRequest(engine, status, d)
	}
}
