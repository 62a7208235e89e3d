package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/webctx/internal/search"
)

type Client struct {
	Results  []search.SearchResult
	PerQuery map[string][]search.SearchResult
	Error    error
	Delay    time.Duration
	Healthy  bool

	CallCount   int
	LastRequest search.SearchRequest
	AllRequests []search.SearchRequest

	mu sync.Mutex
}

func New() *Client {
	return &Client{Healthy: true}
}

func (c *Client) WithResults(results []search.SearchResult) *Client {
	c.Results = results
	return c
}

// WithQueryResults - отдельная выдача на конкретный текст запроса.
func (c *Client) WithQueryResults(query string, results []search.SearchResult) *Client {
	if c.PerQuery == nil {
		c.PerQuery = make(map[string][]search.SearchResult)
	}
	c.PerQuery[query] = results
	return c
}

func (c *Client) WithError(err error) *Client {
	c.Error = err
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

func (c *Client) Search(ctx context.Context, req search.SearchRequest) (*search.SearchResponse, error) {
	c.mu.Lock()
	c.CallCount++
	c.LastRequest = req
	c.AllRequests = append(c.AllRequests, req)
	delay := c.Delay
	err := c.Error
	results := c.Results
	if r, ok := c.PerQuery[req.Query]; ok {
		results = r
	}
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return nil, search.ErrEmptyResults
	}

	if req.MaxResults > 0 && len(results) > req.MaxResults {
		results = results[:req.MaxResults]
	}

	return &search.SearchResponse{
		Query:   req.Query,
		Engine:  "mock",
		Results: results,
	}, nil
}

func (c *Client) HealthCheck(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Healthy && c.Error == nil
}

func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CallCount
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCount = 0
	c.LastRequest = search.SearchRequest{}
	c.AllRequests = nil
}

var _ search.SearchClient = (*Client)(nil)
