package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/webctx/internal/llm"
)

const ProviderName = "openrouter"

type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	PricePer1K float64 // если openrouter не вернул usage.cost
}

type Client struct {
	apiKey     string
	model      string
	baseURL    string
	pricePer1K float64
	client     *http.Client
	logger     *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "deepseek/deepseek-chat"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		pricePer1K: cfg.PricePer1K,
		client:     &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type openRouterResponse struct {
	llm.ChatResponse
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

func (c *Client) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.chat(ctx, llm.NewChatRequest(c.model, system, prompt))
	if err != nil {
		return "", err
	}
	return llm.ExtractContent(resp)
}

func (c *Client) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.Generation, error) {
	chatReq := llm.NewGenerateChatRequest(c.model, req)
	chatReq.Usage = &llm.UsageOptions{Include: true}

	resp, err := c.chat(ctx, chatReq)
	if err != nil {
		return nil, err
	}
	return llm.ToGeneration(resp, ProviderName, chatReq.Model, c.pricePer1K)
}

func (c *Client) chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("HTTP-Referer", "https://github.com/kitbuilder587/webctx")
	httpReq.Header.Set("X-Title", "webctx prompt enhancer")

	respBody, statusCode, err := llm.DoRequest(c.client, httpReq)
	if err != nil {
		return nil, err
	}

	if statusCode != http.StatusOK {
		return nil, llm.HandleHTTPError(statusCode, respBody, c.logger, ProviderName)
	}

	var chatResp openRouterResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if chatResp.Error != nil {
		return nil, fmt.Errorf("%w: %s", llm.ErrRequestFailed, chatResp.Error.Message)
	}

	return &chatResp.ChatResponse, nil
}

var _ llm.Provider = (*Client)(nil)
