package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/webctx/internal/behavior"
	"github.com/kitbuilder587/webctx/internal/browser"
	"github.com/kitbuilder587/webctx/internal/cache"
	"github.com/kitbuilder587/webctx/internal/category"
	"github.com/kitbuilder587/webctx/internal/config"
	"github.com/kitbuilder587/webctx/internal/domain"
	"github.com/kitbuilder587/webctx/internal/enhancer"
	"github.com/kitbuilder587/webctx/internal/extractor"
	"github.com/kitbuilder587/webctx/internal/llm"
	"github.com/kitbuilder587/webctx/internal/llm/gigachat"
	llmmock "github.com/kitbuilder587/webctx/internal/llm/mock"
	"github.com/kitbuilder587/webctx/internal/llm/openrouter"
	"github.com/kitbuilder587/webctx/internal/metrics"
	"github.com/kitbuilder587/webctx/internal/planner"
	"github.com/kitbuilder587/webctx/internal/search"
	"github.com/kitbuilder587/webctx/internal/search/brave"
	"github.com/kitbuilder587/webctx/internal/search/tavily"
	"github.com/kitbuilder587/webctx/internal/service"
)

func main() {
	os.Exit(run())
}

func run() int {
	prompt := flag.String("prompt", "", "prompt to enhance (default: read stdin)")
	noWeb := flag.Bool("no-web", false, "skip web search and scraping")
	health := flag.Bool("health", false, "run health check and exit")
	timeout := flag.Duration("timeout", 3*time.Minute, "overall deadline for one enhancement")
	metricsAddr := flag.String("metrics-addr", "", "serve /metrics on this address (overrides METRICS_ADDR)")
	envFile := flag.String("env", ".env", "dotenv file to load if present")
	flag.Parse()

	config.LoadDotEnv(*envFile)
	if *noWeb {
		// без веб-поиска ключ Brave не обязателен
		os.Setenv("WEB_SEARCH_ENABLED", "false")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 2
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, m, logger)
		defer srv.Close()
	}

	svc, err := buildService(ctx, cfg, m, logger)
	if err != nil {
		logger.Error("failed to build service", zap.Error(err))
		return 1
	}
	defer svc.Cleanup()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if *health {
		h := svc.HealthCheck(ctx)
		_ = enc.Encode(h)
		if h.Status == domain.HealthDown {
			return 1
		}
		return 0
	}

	text := *prompt
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			logger.Error("failed to read stdin", zap.Error(err))
			return 1
		}
		text = strings.TrimRight(string(data), "\n")
	}

	runCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	opts := svc.DefaultOptions()
	opts.EnableWebSearch = cfg.WebSearch
	res := svc.Enhance(runCtx, text, opts)
	if err := enc.Encode(toOutput(res)); err != nil {
		logger.Error("failed to write result", zap.Error(err))
		return 1
	}
	return 0
}

func buildService(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) (*service.EnhanceService, error) {
	registry := category.Defaults()
	if cfg.Categories.Path != "" {
		r, err := category.LoadFile(cfg.Categories.Path)
		if err != nil {
			return nil, err
		}
		registry = r
	}

	provider := newLLM(cfg.LLM, logger)

	deps := service.EnhanceServiceDeps{
		Categorizer: category.NewCategorizer(registry),
		Planner:     planner.New(provider, logger.Named("planner")),
		Enhancer: enhancer.New(enhancer.Deps{
			LLM:      provider,
			Registry: registry,
			Policy: enhancer.AcceptancePolicy{
				MinLengthDelta:   cfg.Enhance.MinLengthDelta,
				RequireStructure: cfg.Enhance.RequireStructure,
			},
			Logger:  logger.Named("enhancer"),
			Metrics: m,
			Options: enhancer.Options{
				MaxIterations: cfg.Enhance.MaxIterations,
				CostLimit:     cfg.Enhance.CostLimit,
			},
		}),
		Cache: cache.New(ctx, cache.Config{
			CategoryTTL: cfg.Cache.CategoryTTL,
			ResultTTL:   cfg.Cache.ResultTTL,
			MaxEntries:  cfg.Cache.MaxEntries,
		}),
		Logger:  logger,
		Metrics: m,
		Config: service.EnhanceConfig{
			Defaults: service.EnhanceOptions{
				EnableWebSearch:  cfg.WebSearch,
				MaxURLs:          cfg.Scrape.MaxURLs,
				MaxIterations:    cfg.Enhance.MaxIterations,
				CostLimit:        cfg.Enhance.CostLimit,
				MinWordCount:     cfg.Scrape.MinWordCount,
				MaxContentLength: cfg.Scrape.MaxContentLength,
				ScrapeTimeout:    cfg.Browser.NavTimeout,
			},
		},
	}

	if cfg.WebSearch {
		searcher, err := newSearch(cfg, logger)
		if err != nil {
			return nil, err
		}
		deps.Search = searcher

		pool := browser.NewPool(browser.PoolDeps{
			Config: browser.Config{
				Headless:     cfg.Browser.Headless,
				ChromePath:   cfg.Browser.ChromePath,
				Proxy:        cfg.Browser.Proxy,
				HTTPFallback: cfg.Browser.HTTPFallback,
			},
			Logger:  logger.Named("browser"),
			Metrics: m,
		})
		pool.StartSweeper(ctx, cfg.Browser.SweepInterval, cfg.Browser.SessionMaxAge)
		deps.Sessions = pool
		deps.Scraper = extractor.New(extractor.Deps{
			Pool:     pool,
			Behavior: behavior.New(logger.Named("behavior")),
			Logger:   logger.Named("extractor"),
			Metrics:  m,
			Options: extractor.Options{
				Timeout:          cfg.Browser.NavTimeout,
				MinWordCount:     cfg.Scrape.MinWordCount,
				MaxContentLength: cfg.Scrape.MaxContentLength,
				MaxURLs:          cfg.Scrape.MaxURLs,
			},
		})
	}

	return service.NewEnhanceService(deps), nil
}

func newLLM(cfg config.LLMConfig, logger *zap.Logger) llm.Provider {
	switch cfg.Provider {
	case "openrouter":
		return openrouter.New(openrouter.Config{
			APIKey:     cfg.OpenRouter.APIKey,
			Model:      cfg.OpenRouter.Model,
			BaseURL:    cfg.OpenRouter.BaseURL,
			PricePer1K: cfg.OpenRouter.PricePer1K,
		}, logger.Named("openrouter"))
	case "gigachat":
		return gigachat.New(gigachat.Config{
			AuthKey:      cfg.GigaChat.AuthKey,
			ClientID:     cfg.GigaChat.ClientID,
			ClientSecret: cfg.GigaChat.ClientSecret,
			Scope:        cfg.GigaChat.Scope,
			AuthURL:      cfg.GigaChat.AuthURL,
			BaseURL:      cfg.GigaChat.BaseURL,
			Model:        cfg.GigaChat.Model,
			PricePer1K:   cfg.GigaChat.PricePer1K,
		}, logger.Named("gigachat"))
	default:
		logger.Warn("using mock LLM provider")
		return llmmock.New()
	}
}

// newSearch - Brave основным движком, Tavily подключается если задан ключ.
func newSearch(cfg *config.Config, logger *zap.Logger) (search.SearchClient, error) {
	primary, err := brave.New(brave.Config{
		APIKey:            cfg.Brave.APIKey,
		BaseURL:           cfg.Brave.BaseURL,
		Timeout:           cfg.Brave.Timeout,
		MaxRetries:        cfg.Brave.MaxRetries,
		BaseDelay:         cfg.Brave.BaseDelay,
		RequestsPerSecond: cfg.Brave.RequestsPerSecond,
		Country:           cfg.Brave.Country,
		SearchLang:        cfg.Brave.SearchLang,
		SafeSearch:        cfg.Brave.SafeSearch,
	}, logger.Named("brave"))
	if err != nil {
		return nil, err
	}
	router := search.NewRouter(brave.EngineName, primary)

	if cfg.Tavily.APIKey != "" {
		secondary, err := tavily.New(tavily.Config{
			APIKey:  cfg.Tavily.APIKey,
			BaseURL: cfg.Tavily.BaseURL,
			Timeout: cfg.Tavily.Timeout,
		}, logger.Named("tavily"))
		if err != nil {
			return nil, err
		}
		router.Register(tavily.EngineName, secondary)
	}
	return router, nil
}

func serveMetrics(addr string, m *metrics.Metrics, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return srv
}

type output struct {
	OriginalPrompt    string          `json:"original_prompt"`
	EnhancedPrompt    string          `json:"enhanced_prompt"`
	MatchedCategories []string        `json:"matched_categories"`
	SearchQueries     []string        `json:"search_queries"`
	WebContext        []contextOutput `json:"web_context"`
	Metadata          metadataOutput  `json:"metadata"`
}

type contextOutput struct {
	URL            string  `json:"url"`
	Title          string  `json:"title"`
	WordCount      int     `json:"word_count"`
	RelevanceScore float64 `json:"relevance_score"`
}

type metadataOutput struct {
	SearchTimeMs  int64   `json:"search_time_ms"`
	ScrapeTimeMs  int64   `json:"scrape_time_ms"`
	TotalTimeMs   int64   `json:"total_time_ms"`
	URLsAttempted int     `json:"urls_attempted"`
	SuccessRate   float64 `json:"success_rate"`
	Iterations    int     `json:"iterations"`
	Cost          float64 `json:"cost"`
	TokensUsed    int     `json:"tokens_used"`
	Degraded      bool    `json:"degraded"`
}

func toOutput(res *domain.EnhancementResult) output {
	ctxOut := make([]contextOutput, len(res.WebContext))
	for i, c := range res.WebContext {
		ctxOut[i] = contextOutput{URL: c.URL, Title: c.Title, WordCount: c.WordCount, RelevanceScore: c.RelevanceScore}
	}
	md := res.Metadata
	return output{
		OriginalPrompt:    res.OriginalPrompt,
		EnhancedPrompt:    res.EnhancedPrompt,
		MatchedCategories: res.MatchedCategories,
		SearchQueries:     res.SearchQueries,
		WebContext:        ctxOut,
		Metadata: metadataOutput{
			SearchTimeMs:  md.SearchTime.Milliseconds(),
			ScrapeTimeMs:  md.ScrapeTime.Milliseconds(),
			TotalTimeMs:   md.TotalTime.Milliseconds(),
			URLsAttempted: md.URLsAttempted,
			SuccessRate:   md.SuccessRate,
			Iterations:    md.Iterations,
			Cost:          md.Cost,
			TokensUsed:    md.TokensUsed,
			Degraded:      md.Degraded,
		},
	}
}
