package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/webctx/internal/llm"
)

type Client struct {
	Response string
	// Generations - ответы Generate по очереди; когда кончатся, берется Response.
	Generations []string
	Error       error
	GenError    error
	Delay       time.Duration
	CostPerCall float64
	TokensPer   int

	CallCount  int
	GenCount   int
	LastSystem string
	LastPrompt string
	AllCalls   []LLMCall

	mu sync.Mutex
}

type LLMCall struct {
	System string
	Prompt string
	Kind   string // complete | generate
}

func New() *Client {
	return &Client{
		Response:  "This is a mock response.",
		TokensPer: 100,
	}
}

func (c *Client) WithResponse(response string) *Client {
	c.Response = response
	return c
}

func (c *Client) WithGenerations(responses ...string) *Client {
	c.Generations = responses
	return c
}

func (c *Client) WithError(err error) *Client {
	c.Error = err
	return c
}

func (c *Client) WithGenerateError(err error) *Client {
	c.GenError = err
	return c
}

func (c *Client) WithCost(cost float64) *Client {
	c.CostPerCall = cost
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

func (c *Client) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	c.mu.Lock()
	c.CallCount++
	c.LastSystem = system
	c.LastPrompt = prompt
	c.AllCalls = append(c.AllCalls, LLMCall{System: system, Prompt: prompt, Kind: "complete"})
	delay, err, resp := c.Delay, c.Error, c.Response
	c.mu.Unlock()

	if err := wait(ctx, delay); err != nil {
		return "", err
	}
	if err != nil {
		return "", err
	}
	return resp, nil
}

func (c *Client) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.Generation, error) {
	c.mu.Lock()
	idx := c.GenCount
	c.GenCount++
	c.LastSystem = req.System
	c.LastPrompt = req.Prompt
	c.AllCalls = append(c.AllCalls, LLMCall{System: req.System, Prompt: req.Prompt, Kind: "generate"})
	delay, err := c.Delay, c.GenError
	content := c.Response
	if idx < len(c.Generations) {
		content = c.Generations[idx]
	}
	cost, tokens := c.CostPerCall, c.TokensPer
	c.mu.Unlock()

	if err := wait(ctx, delay); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = "mock-model"
	}
	return &llm.Generation{
		Content:    content,
		TokensUsed: tokens,
		Cost:       cost,
		Model:      model,
		Provider:   "mock",
	}, nil
}

// GeneratePrompts - промпты всех вызовов Generate по порядку.
func (c *Client) GeneratePrompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, call := range c.AllCalls {
		if call.Kind == "generate" {
			out = append(out, call.Prompt)
		}
	}
	return out
}

func (c *Client) Calls() (complete, generate int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CallCount, c.GenCount
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCount = 0
	c.GenCount = 0
	c.LastSystem = ""
	c.LastPrompt = ""
	c.AllCalls = nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

var _ llm.Provider = (*Client)(nil)
