package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kitbuilder587/webctx/internal/domain"
)

var (
	ErrMissingSearchKey = fmt.Errorf("%w: BRAVE_API_KEY is required when web search is enabled", domain.ErrConfiguration)
	ErrInvalidProvider  = errors.New("invalid LLM provider")
	ErrInvalidLimits    = errors.New("invalid scrape limits")
)

type Config struct {
	LLM        LLMConfig
	Brave      BraveConfig
	Tavily     TavilyConfig
	Browser    BrowserConfig
	Scrape     ScrapeConfig
	Cache      CacheConfig
	Enhance    EnhanceConfig
	Categories CategoriesConfig
	Log        LogConfig
	Metrics    MetricsConfig
	WebSearch  bool
}

type LLMConfig struct {
	Provider   string
	OpenRouter OpenRouterConfig
	GigaChat   GigaChatConfig
}

type OpenRouterConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	PricePer1K float64
}

type GigaChatConfig struct {
	AuthKey      string
	ClientID     string
	ClientSecret string
	Scope        string
	AuthURL      string
	BaseURL      string
	Model        string
	PricePer1K   float64
}

type BraveConfig struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	MaxRetries        int
	BaseDelay         time.Duration
	RequestsPerSecond float64
	Country           string
	SearchLang        string
	SafeSearch        string
}

type TavilyConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type BrowserConfig struct {
	Headless      bool
	ChromePath    string
	Proxy         string
	HTTPFallback  bool
	NavTimeout    time.Duration
	SessionMaxAge time.Duration
	SweepInterval time.Duration
}

type ScrapeConfig struct {
	MinWordCount     int
	MaxContentLength int
	MaxURLs          int
}

type CacheConfig struct {
	CategoryTTL time.Duration
	ResultTTL   time.Duration
	MaxEntries  int
}

type EnhanceConfig struct {
	MaxIterations    int
	CostLimit        float64
	MinLengthDelta   int
	RequireStructure bool
}

type CategoriesConfig struct {
	Path string // пусто - встроенные категории
}

type LogConfig struct {
	Level string
}

type MetricsConfig struct {
	Addr string
}

// LoadDotEnv подхватывает .env из текущей директории, если он есть.
// Уже выставленные переменные окружения не перетираются.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

func Load() (*Config, error) {
	cfg := &Config{
		LLM: LLMConfig{
			Provider: getEnvOrDefault("LLM_PROVIDER", "mock"),
			OpenRouter: OpenRouterConfig{
				APIKey:     os.Getenv("OPENROUTER_API_KEY"),
				Model:      getEnvOrDefault("OPENROUTER_MODEL", "deepseek/deepseek-chat"),
				BaseURL:    getEnvOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
				PricePer1K: getEnvFloatOrDefault("OPENROUTER_PRICE_PER_1K", 0),
			},
			GigaChat: GigaChatConfig{
				AuthKey:      os.Getenv("GIGACHAT_AUTH_KEY"),
				ClientID:     os.Getenv("GIGACHAT_CLIENT_ID"),
				ClientSecret: os.Getenv("GIGACHAT_CLIENT_SECRET"),
				Scope:        getEnvOrDefault("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
				AuthURL:      getEnvOrDefault("GIGACHAT_AUTH_URL", "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"),
				BaseURL:      getEnvOrDefault("GIGACHAT_BASE_URL", "https://gigachat.devices.sberbank.ru/api/v1"),
				Model:        getEnvOrDefault("GIGACHAT_MODEL", "GigaChat"),
				PricePer1K:   getEnvFloatOrDefault("GIGACHAT_PRICE_PER_1K", 0),
			},
		},
		Brave: BraveConfig{
			APIKey:            os.Getenv("BRAVE_API_KEY"),
			BaseURL:           getEnvOrDefault("BRAVE_BASE_URL", "https://api.search.brave.com"),
			Timeout:           time.Duration(getEnvIntOrDefault("BRAVE_TIMEOUT_SEC", 30)) * time.Second,
			MaxRetries:        getEnvIntOrDefault("BRAVE_MAX_RETRIES", 3),
			BaseDelay:         time.Duration(getEnvIntOrDefault("BRAVE_BASE_DELAY_MS", 1000)) * time.Millisecond,
			RequestsPerSecond: getEnvFloatOrDefault("BRAVE_RPS", 1),
			Country:           getEnvOrDefault("BRAVE_COUNTRY", "US"),
			SearchLang:        getEnvOrDefault("BRAVE_SEARCH_LANG", "en"),
			SafeSearch:        getEnvOrDefault("BRAVE_SAFESEARCH", "moderate"),
		},
		Tavily: TavilyConfig{
			APIKey:  os.Getenv("TAVILY_API_KEY"),
			BaseURL: getEnvOrDefault("TAVILY_BASE_URL", "https://api.tavily.com"),
			Timeout: time.Duration(getEnvIntOrDefault("TAVILY_TIMEOUT_SEC", 30)) * time.Second,
		},
		Browser: BrowserConfig{
			Headless:      getEnvBoolOrDefault("BROWSER_HEADLESS", true),
			ChromePath:    os.Getenv("BROWSER_CHROME_PATH"),
			Proxy:         os.Getenv("BROWSER_PROXY"),
			HTTPFallback:  getEnvBoolOrDefault("BROWSER_HTTP_FALLBACK", false),
			NavTimeout:    time.Duration(getEnvIntOrDefault("BROWSER_NAV_TIMEOUT_SEC", 30)) * time.Second,
			SessionMaxAge: time.Duration(getEnvIntOrDefault("BROWSER_SESSION_MAX_AGE_SEC", 300)) * time.Second,
			SweepInterval: time.Duration(getEnvIntOrDefault("BROWSER_SWEEP_INTERVAL_SEC", 60)) * time.Second,
		},
		Scrape: ScrapeConfig{
			MinWordCount:     getEnvIntOrDefault("SCRAPE_MIN_WORDS", 50),
			MaxContentLength: getEnvIntOrDefault("SCRAPE_MAX_CONTENT", 8000),
			MaxURLs:          getEnvIntOrDefault("SCRAPE_MAX_URLS", 3),
		},
		Cache: CacheConfig{
			CategoryTTL: time.Duration(getEnvIntOrDefault("CACHE_CATEGORY_TTL_SEC", 3600)) * time.Second,
			ResultTTL:   time.Duration(getEnvIntOrDefault("CACHE_RESULT_TTL_SEC", 1800)) * time.Second,
			MaxEntries:  getEnvIntOrDefault("CACHE_MAX_ENTRIES", 500),
		},
		Enhance: EnhanceConfig{
			MaxIterations:    getEnvIntOrDefault("ENHANCE_MAX_ITERATIONS", 2),
			CostLimit:        getEnvFloatOrDefault("ENHANCE_COST_LIMIT", 0.05),
			MinLengthDelta:   getEnvIntOrDefault("ENHANCE_MIN_LENGTH_DELTA", 20),
			RequireStructure: getEnvBoolOrDefault("ENHANCE_REQUIRE_STRUCTURE", false),
		},
		Categories: CategoriesConfig{
			Path: os.Getenv("CATEGORIES_FILE"),
		},
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Addr: os.Getenv("METRICS_ADDR"),
		},
		WebSearch: getEnvBoolOrDefault("WEB_SEARCH_ENABLED", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.WebSearch && c.Brave.APIKey == "" {
		return ErrMissingSearchKey
	}
	switch c.LLM.Provider {
	case "openrouter", "gigachat", "mock":
	default:
		return ErrInvalidProvider
	}
	if c.Scrape.MinWordCount < 0 || c.Scrape.MaxContentLength <= 0 || c.Scrape.MaxURLs <= 0 {
		return ErrInvalidLimits
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}
