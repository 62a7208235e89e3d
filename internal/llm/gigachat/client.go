package gigachat

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/webctx/internal/llm"
)

const ProviderName = "gigachat"

type Config struct {
	AuthKey      string // готовый ключ авторизации (предпочтительно)
	ClientID     string // альтернатива: будет base64(id:secret)
	ClientSecret string
	Scope        string
	AuthURL      string
	BaseURL      string
	Model        string
	Timeout      time.Duration
	PricePer1K   float64 // гигачат не отдает стоимость, считаем сами
}

func (c Config) withDefaults() Config {
	if c.AuthURL == "" {
		c.AuthURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://gigachat.devices.sberbank.ru/api/v1"
	}
	if c.Scope == "" {
		c.Scope = "GIGACHAT_API_PERS"
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.Model == "" {
		c.Model = "GigaChat"
	}
	if c.AuthKey == "" && c.ClientID != "" && c.ClientSecret != "" {
		c.AuthKey = base64.StdEncoding.EncodeToString([]byte(c.ClientID + ":" + c.ClientSecret))
	}
	return c
}

type Client struct {
	model   string
	price   float64
	baseURL string
	client  *http.Client
	tokens  *tokenSource
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	// У Сбера самоподписанный сертификат, приходится отключать проверку
	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}

	return &Client{
		model:   cfg.Model,
		price:   cfg.PricePer1K,
		baseURL: cfg.BaseURL,
		client:  httpClient,
		logger:  logger,
		tokens: &tokenSource{
			authKey: cfg.AuthKey,
			scope:   cfg.Scope,
			authURL: cfg.AuthURL,
			client:  httpClient,
			logger:  logger,
			now:     time.Now,
		},
	}
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
	resp, err := c.chat(ctx, chatReq)
	if err != nil {
		return nil, err
	}
	return llm.ToGeneration(resp, ProviderName, chatReq.Model, c.price)
}

// chat при 401 один раз обновляет токен и повторяет запрос.
func (c *Client) chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+token)

		respBody, status, err := llm.DoRequest(c.client, httpReq)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			c.logger.Debug("gigachat token rejected, refreshing", zap.Int("attempt", attempt+1))
			c.tokens.Invalidate()
			continue
		}
		if status != http.StatusOK {
			return nil, llm.HandleHTTPError(status, respBody, c.logger, ProviderName)
		}
		return llm.ParseChatResponse(respBody)
	}
	return nil, llm.ErrAuthFailed
}

var _ llm.Provider = (*Client)(nil)
