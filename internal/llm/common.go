package llm

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []Message     `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	Usage       *UsageOptions `json:"usage,omitempty"`
}

type UsageOptions struct {
	Include bool `json:"include"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatResponse struct {
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

type Choice struct {
	Message Message `json:"message"`
}

type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"cost,omitempty"`
}

func NewChatRequest(model, system, prompt string) ChatRequest {
	msgs := make([]Message, 0, 2)
	if system != "" {
		msgs = append(msgs, Message{Role: "system", Content: system})
	}
	msgs = append(msgs, Message{Role: "user", Content: prompt})
	return ChatRequest{
		Model:    model,
		Messages: msgs,
	}
}

// NewGenerateChatRequest - то же что NewChatRequest, плюс параметры генерации.
func NewGenerateChatRequest(model string, req GenerateRequest) ChatRequest {
	if req.Model != "" {
		model = req.Model
	}
	cr := NewChatRequest(model, req.System, req.Prompt)
	cr.MaxTokens = req.MaxTokens
	if req.Temperature > 0 {
		t := req.Temperature
		cr.Temperature = &t
	}
	return cr
}

func HandleHTTPError(statusCode int, body []byte, logger *zap.Logger, provider string) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrAuthFailed
	case http.StatusTooManyRequests:
		return ErrRateLimit
	default:
		logger.Error(provider+" request failed",
			zap.Int("status", statusCode),
			zap.String("body", string(body)),
		)
		return fmt.Errorf("%w: status %d", ErrRequestFailed, statusCode)
	}
}

func ParseChatResponse(body []byte) (*ChatResponse, error) {
	var resp ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &resp, nil
}

func ExtractContent(resp *ChatResponse) (string, error) {
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// ToGeneration собирает Generation из ответа. Если провайдер не прислал cost,
// считаем по цене за 1k токенов.
func ToGeneration(resp *ChatResponse, provider, model string, pricePer1K float64) (*Generation, error) {
	content, err := ExtractContent(resp)
	if err != nil {
		return nil, err
	}

	gen := &Generation{
		Content:  content,
		Model:    model,
		Provider: provider,
	}
	if resp.Model != "" {
		gen.Model = resp.Model
	}
	if resp.Usage != nil {
		gen.TokensUsed = resp.Usage.TotalTokens
		if gen.TokensUsed == 0 {
			gen.TokensUsed = resp.Usage.PromptTokens + resp.Usage.CompletionTokens
		}
		gen.Cost = resp.Usage.Cost
	}
	if gen.Cost == 0 && pricePer1K > 0 {
		gen.Cost = float64(gen.TokensUsed) / 1000 * pricePer1K
	}
	return gen, nil
}

func DoRequest(client *http.Client, req *http.Request) ([]byte, int, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	return body, resp.StatusCode, nil
}
