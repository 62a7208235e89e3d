package llm

import (
	"context"
	"errors"
)

var (
	ErrAuthFailed    = errors.New("authentication failed")
	ErrRequestFailed = errors.New("request failed")
	ErrEmptyResponse = errors.New("empty response")
	ErrRateLimit     = errors.New("rate limit exceeded")
)

// Client - короткий чат-вызов (планировщик запросов и т.п.)
type Client interface {
	CompleteWithSystem(ctx context.Context, system, prompt string) (string, error)
}

// Generator - полный вызов генерации с учетом токенов и стоимости.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Generation, error)
}

// Provider умеет и то и другое.
type Provider interface {
	Client
	Generator
}

type GenerateRequest struct {
	System      string
	Prompt      string
	Model       string // пусто = модель клиента
	MaxTokens   int
	Temperature float64
}

type Generation struct {
	Content    string
	TokensUsed int
	Cost       float64
	Model      string
	Provider   string
}
