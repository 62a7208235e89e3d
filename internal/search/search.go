package search

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/kitbuilder587/webctx/internal/domain"
)

var (
	ErrMissingAPIKey  = fmt.Errorf("%w: search API key is required", domain.ErrConfiguration)
	ErrUnauthorized   = fmt.Errorf("%w: invalid API key", domain.ErrConfiguration)
	ErrRateLimit      = fmt.Errorf("%w: rate limit exceeded", domain.ErrTransientNetwork)
	ErrServer         = fmt.Errorf("%w: search backend unavailable", domain.ErrTransientNetwork)
	ErrInvalidRequest = errors.New("invalid request parameters")
	ErrSearchFailed   = errors.New("search request failed")
	ErrEmptyResults   = errors.New("no results found")
	ErrUnknownEngine  = errors.New("unknown search engine")
)

// MaxResultsLimit - больше бэкенд не отдает за один запрос.
const MaxResultsLimit = 20

type SearchClient interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// HealthChecker - клиент умеет проверить себя пробным запросом.
type HealthChecker interface {
	HealthCheck(ctx context.Context) bool
}

type SearchRequest struct {
	Query      string
	MaxResults int
	Engine     string
	Country    string
	Language   string
	SafeSearch string
	Freshness  string
}

type SearchResponse struct {
	Query   string
	Engine  string
	Results []SearchResult
}

type SearchResult struct {
	Title         string
	URL           string
	Snippet       string
	Engine        string
	Rank          int
	Score         float64
	PublishedDate string
	Language      string
	Age           string
}

// ClampMaxResults приводит maxResults к [1, MaxResultsLimit], 0 - дефолт.
func ClampMaxResults(n, def int) int {
	if n <= 0 {
		n = def
	}
	if n > MaxResultsLimit {
		n = MaxResultsLimit
	}
	return n
}

// ValidResultURL - только http/https с хостом.
func ValidResultURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// DedupeURLs сохраняет порядок первого появления.
func DedupeURLs(results []SearchResult, limit int) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, r := range results {
		if seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		urls = append(urls, r.URL)
		if limit > 0 && len(urls) >= limit {
			break
		}
	}
	return urls
}
