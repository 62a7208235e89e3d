package tavily

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/webctx/internal/search"
)

func TestNew_MissingAPIKey(t *testing.T) {
	if _, err := New(Config{}, zap.NewNop()); !errors.Is(err, search.ErrMissingAPIKey) {
		t.Errorf("New() error = %v, want ErrMissingAPIKey", err)
	}
}

func TestClient_Search(t *testing.T) {
	tests := []struct {
		name       string
		response   interface{}
		statusCode int
		wantErr    error
	}{
		{
			name: "successful search",
			response: tavilyResponse{
				Query: "test query",
				Results: []tavilyResult{
					{Title: "Test", URL: "https://example.com", Content: "Content", Score: 0.9},
					{Title: "", URL: "https://example.com/untitled"},
				},
			},
			statusCode: http.StatusOK,
		},
		{
			name:       "empty results",
			response:   tavilyResponse{Query: "test query", Results: []tavilyResult{}},
			statusCode: http.StatusOK,
			wantErr:    search.ErrEmptyResults,
		},
		{
			name:       "unauthorized",
			response:   map[string]string{"error": "unauthorized"},
			statusCode: http.StatusUnauthorized,
			wantErr:    search.ErrUnauthorized,
		},
		{
			name:       "rate limit",
			response:   map[string]string{"error": "rate limit"},
			statusCode: http.StatusTooManyRequests,
			wantErr:    search.ErrRateLimit,
		},
		{
			name:       "bad request",
			response:   map[string]string{"error": "bad request"},
			statusCode: http.StatusBadRequest,
			wantErr:    search.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				json.NewEncoder(w).Encode(tt.response)
			}))
			defer server.Close()

			client, err := New(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5 * time.Second}, zap.NewNop())
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			resp, err := client.Search(context.Background(), search.SearchRequest{Query: "test query", MaxResults: 5})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Search() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Search() unexpected error = %v", err)
			}
			if len(resp.Results) != 1 || resp.Results[0].Engine != EngineName {
				t.Errorf("Search() results = %+v", resp.Results)
			}
		})
	}
}

func TestClient_Search_RequestBody(t *testing.T) {
	var received tavilyRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		json.NewEncoder(w).Encode(tavilyResponse{
			Query:   received.Query,
			Results: []tavilyResult{{Title: "Test", URL: "https://go.dev", Content: "Content"}},
		})
	}))
	defer server.Close()

	client, _ := New(Config{APIKey: "test-key", BaseURL: server.URL}, zap.NewNop())
	_, err := client.Search(context.Background(), search.SearchRequest{Query: "go generics", MaxResults: 40, Freshness: "pw"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if received.APIKey != "test-key" || received.MaxResults != search.MaxResultsLimit || received.TimeRange != "week" {
		t.Errorf("request = %+v", received)
	}
}

func TestClient_Search_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	client, _ := New(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 100 * time.Millisecond}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if _, err := client.Search(ctx, search.SearchRequest{Query: "test"}); err == nil {
		t.Error("Search() expected timeout error")
	}
}
