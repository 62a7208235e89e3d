package gigachat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kitbuilder587/webctx/internal/llm"
)

// токен считаем протухшим заранее, чтобы не словить 401 посреди запроса
const tokenMargin = 5 * time.Minute

type authResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"` // unix ms
}

// tokenSource выдает OAuth токен и обновляет его по истечении.
type tokenSource struct {
	authKey string
	scope   string
	authURL string
	client  *http.Client
	logger  *zap.Logger
	now     func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func (ts *tokenSource) valid() bool {
	return ts.token != "" && ts.now().Before(ts.expiry.Add(-tokenMargin))
}

// Token держит лок на время обновления, параллельные вызовы ждут один запрос.
func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.valid() {
		return ts.token, nil
	}

	form := url.Values{}
	form.Set("scope", ts.scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.authURL, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create auth request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+ts.authKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", uuid.New().String()) // Сбер требует уникальный id запроса

	resp, err := ts.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", llm.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		ts.logger.Error("gigachat auth failed",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return "", llm.ErrAuthFailed
	}

	var ar authResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return "", fmt.Errorf("decode auth response: %w", err)
	}
	if ar.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", llm.ErrAuthFailed)
	}

	ts.token = ar.AccessToken
	ts.expiry = time.UnixMilli(ar.ExpiresAt)
	ts.logger.Debug("gigachat token refreshed", zap.Time("expires", ts.expiry))
	return ts.token, nil
}

func (ts *tokenSource) Invalidate() {
	ts.mu.Lock()
	ts.token = ""
	ts.expiry = time.Time{}
	ts.mu.Unlock()
}
