package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/webctx/internal/domain"
	"github.com/kitbuilder587/webctx/internal/ratelimit"
	"github.com/kitbuilder587/webctx/internal/search"
)

const EngineName = "brave"

type Config struct {
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

type Client struct {
	apiKey     string
	baseURL    string
	country    string
	searchLang string
	safeSearch string
	maxRetries int
	baseDelay  time.Duration

	client  *http.Client
	limiter *ratelimit.Limiter
	logger  *zap.Logger

	// подменяются в тестах
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

// New падает сразу без ключа - до любого сетевого вызова.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, search.ErrMissingAPIKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.search.brave.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.Country == "" {
		cfg.Country = "us"
	}
	if cfg.SearchLang == "" {
		cfg.SearchLang = "en"
	}
	if cfg.SafeSearch == "" {
		cfg.SafeSearch = "moderate"
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		country:    cfg.Country,
		searchLang: cfg.SearchLang,
		safeSearch: cfg.SafeSearch,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    ratelimit.New(ratelimit.Config{RequestsPerSecond: cfg.RequestsPerSecond}),
		logger:     logger,
		sleep:      sleepCtx,
		jitter:     randomJitter,
	}, nil
}

type braveResponse struct {
	Query struct {
		Original string `json:"original"`
	} `json:"query"`
	Web struct {
		Results []braveResult `json:"results"`
	} `json:"web"`
}

type braveResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Age         string `json:"age"`
	PageAge     string `json:"page_age"`
	Language    string `json:"language"`
}

type braveError struct {
	Error struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
		Meta   struct {
			RateLimit   float64 `json:"rate_limit"`
			RateCurrent float64 `json:"rate_current"`
		} `json:"meta"`
	} `json:"error"`
}

func (c *Client) Search(ctx context.Context, req search.SearchRequest) (*search.SearchResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, search.ErrInvalidRequest
	}
	count := search.ClampMaxResults(req.MaxResults, 10)
	endpoint := c.buildURL(req, count)

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt)
			c.logger.Warn("brave rate limited, backing off",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, status, header, err := c.do(ctx, endpoint)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrTransientNetwork, err)
		}
		c.updateLimitFromHeaders(header)

		switch {
		case status == http.StatusOK:
			var br braveResponse
			if err := json.Unmarshal(body, &br); err != nil {
				return nil, fmt.Errorf("unmarshal response: %w", err)
			}
			return c.toSearchResponse(req.Query, &br, count), nil

		case status == http.StatusTooManyRequests:
			c.updateLimitFromPayload(body)
			if attempt >= c.maxRetries {
				return nil, fmt.Errorf("%w: gave up after %d retries", search.ErrRateLimit, attempt)
			}

		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return nil, search.ErrUnauthorized

		case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
			return nil, search.ErrInvalidRequest

		case status >= 500:
			return nil, fmt.Errorf("%w: status %d", search.ErrServer, status)

		default:
			return nil, fmt.Errorf("%w: status %d", search.ErrSearchFailed, status)
		}
	}
}

// HealthCheck - пробный поиск, ок только если пришел хотя бы один результат.
func (c *Client) HealthCheck(ctx context.Context) bool {
	resp, err := c.Search(ctx, search.SearchRequest{Query: "golang documentation", MaxResults: 1})
	if err != nil {
		c.logger.Warn("brave health check failed", zap.Error(err))
		return false
	}
	return len(resp.Results) > 0
}

func (c *Client) buildURL(req search.SearchRequest, count int) string {
	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("count", strconv.Itoa(count))
	params.Set("country", firstNonEmpty(req.Country, c.country))
	params.Set("search_lang", firstNonEmpty(req.Language, c.searchLang))
	params.Set("safesearch", firstNonEmpty(req.SafeSearch, c.safeSearch))
	if req.Freshness != "" {
		params.Set("freshness", req.Freshness)
	}
	return c.baseURL + "/res/v1/web/search?" + params.Encode()
}

func (c *Client) do(ctx context.Context, endpoint string) ([]byte, int, http.Header, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, resp.Header, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, resp.Header, nil
}

func (c *Client) toSearchResponse(query string, resp *braveResponse, count int) *search.SearchResponse {
	results := make([]search.SearchResult, 0, len(resp.Web.Results))
	for _, r := range resp.Web.Results {
		// записи без url/title или с кривым url пропускаем молча
		if r.Title == "" || !search.ValidResultURL(r.URL) {
			continue
		}
		results = append(results, search.SearchResult{
			Title:         r.Title,
			URL:           r.URL,
			Snippet:       r.Description,
			Engine:        EngineName,
			Rank:          len(results) + 1,
			PublishedDate: r.PageAge,
			Language:      r.Language,
			Age:           r.Age,
		})
		if len(results) >= count {
			break
		}
	}

	q := resp.Query.Original
	if q == "" {
		q = query
	}
	return &search.SearchResponse{Query: q, Engine: EngineName, Results: results}
}

// backoff: base * 2^(attempt-1) + jitter до 1s
func (c *Client) backoff(attempt int) time.Duration {
	return c.baseDelay*time.Duration(1<<(attempt-1)) + c.jitter()
}

func (c *Client) updateLimitFromPayload(body []byte) {
	var be braveError
	if err := json.Unmarshal(body, &be); err != nil {
		return
	}
	if be.Error.Meta.RateLimit > 0 {
		c.limiter.SetLimit(be.Error.Meta.RateLimit)
		c.logger.Debug("brave rate limit updated from payload",
			zap.Float64("limit", be.Error.Meta.RateLimit),
		)
	}
}

// X-RateLimit-Limit: "1, 15000" - первое значение это запросы в секунду
func (c *Client) updateLimitFromHeaders(h http.Header) {
	raw := h.Get("X-RateLimit-Limit")
	if raw == "" {
		return
	}
	first := strings.TrimSpace(strings.Split(raw, ",")[0])
	if v, err := strconv.ParseFloat(first, 64); err == nil && v > 0 {
		c.limiter.SetLimit(v)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func randomJitter() time.Duration {
	return time.Duration(rand.Int64N(int64(time.Second)))
}
