package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/webctx/internal/search"
)

const EngineName = "tavily"

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client - запасной движок, подключается через search.Router.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
	backoff []time.Duration
}

func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, search.ErrMissingAPIKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.tavily.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
		backoff: []time.Duration{1 * time.Second, 2 * time.Second},
	}, nil
}

type tavilyRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results,omitempty"`
	SearchDepth       string `json:"search_depth,omitempty"`
	TimeRange         string `json:"time_range,omitempty"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyResponse struct {
	Query   string         `json:"query"`
	Results []tavilyResult `json:"results"`
}

type tavilyResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date"`
}

func (c *Client) Search(ctx context.Context, req search.SearchRequest) (*search.SearchResponse, error) {
	maxResults := search.ClampMaxResults(req.MaxResults, 5)

	body, err := json.Marshal(tavilyRequest{
		APIKey:      c.apiKey,
		Query:       req.Query,
		MaxResults:  maxResults,
		SearchDepth: "basic",
		TimeRange:   freshnessToTimeRange(req.Freshness),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= len(c.backoff); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff[attempt-1]):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("do request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		switch resp.StatusCode {
		case http.StatusOK:
			var tr tavilyResponse
			if err := json.Unmarshal(respBody, &tr); err != nil {
				return nil, fmt.Errorf("unmarshal response: %w", err)
			}
			out := c.toSearchResponse(req.Query, &tr, maxResults)
			if len(out.Results) == 0 {
				return nil, search.ErrEmptyResults
			}
			return out, nil

		case http.StatusUnauthorized:
			return nil, search.ErrUnauthorized

		case http.StatusTooManyRequests:
			return nil, search.ErrRateLimit

		case http.StatusBadRequest:
			return nil, search.ErrInvalidRequest

		default:
			if resp.StatusCode >= 500 {
				lastErr = fmt.Errorf("%w: status %d", search.ErrServer, resp.StatusCode)
				c.logger.Warn("tavily server error, retrying",
					zap.Int("status", resp.StatusCode),
					zap.Int("attempt", attempt),
				)
				continue
			}
			return nil, fmt.Errorf("%w: status %d", search.ErrSearchFailed, resp.StatusCode)
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", search.ErrSearchFailed, lastErr)
	}
	return nil, search.ErrSearchFailed
}

func (c *Client) HealthCheck(ctx context.Context) bool {
	resp, err := c.Search(ctx, search.SearchRequest{Query: "golang documentation", MaxResults: 1})
	return err == nil && len(resp.Results) > 0
}

func (c *Client) toSearchResponse(query string, resp *tavilyResponse, maxResults int) *search.SearchResponse {
	results := make([]search.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.Title == "" || !search.ValidResultURL(r.URL) {
			continue
		}
		results = append(results, search.SearchResult{
			Title:         r.Title,
			URL:           r.URL,
			Snippet:       r.Content,
			Engine:        EngineName,
			Rank:          len(results) + 1,
			Score:         r.Score,
			PublishedDate: r.PublishedDate,
		})
		if len(results) >= maxResults {
			break
		}
	}

	q := resp.Query
	if q == "" {
		q = query
	}
	return &search.SearchResponse{Query: q, Engine: EngineName, Results: results}
}

// brave-style freshness (pd/pw/pm/py) -> tavily time_range
func freshnessToTimeRange(f string) string {
	switch f {
	case "pd":
		return "day"
	case "pw":
		return "week"
	case "pm":
		return "month"
	case "py":
		return "year"
	}
	return ""
}
