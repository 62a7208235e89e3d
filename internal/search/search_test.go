package search

import (
	"context"
	"errors"
	"testing"

	"github.com/kitbuilder587/webctx/internal/domain"
)

type stubClient struct {
	name    string
	healthy bool
	calls   int
}

func (s *stubClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	s.calls++
	return &SearchResponse{Query: req.Query, Engine: s.name}, nil
}

func (s *stubClient) HealthCheck(ctx context.Context) bool { return s.healthy }

func TestRouter_Search(t *testing.T) {
	brave := &stubClient{name: "brave", healthy: true}
	tavily := &stubClient{name: "tavily"}
	router := NewRouter("brave", brave).Register("Tavily", tavily)

	tests := []struct {
		name    string
		engine  string
		want    string
		wantErr error
	}{
		{"default primary", "", "brave", nil},
		{"explicit secondary", "tavily", "tavily", nil},
		{"case insensitive", "BRAVE", "brave", nil},
		{"unknown", "bing", "", ErrUnknownEngine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := router.Search(context.Background(), SearchRequest{Query: "q", Engine: tt.engine})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Search() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Search() unexpected error = %v", err)
			}
			if resp.Engine != tt.want {
				t.Errorf("Engine = %v, want %v", resp.Engine, tt.want)
			}
		})
	}

	if !router.HealthCheck(context.Background()) {
		t.Error("HealthCheck() should follow primary")
	}
}

func TestErrorsClassified(t *testing.T) {
	if !errors.Is(ErrMissingAPIKey, domain.ErrConfiguration) {
		t.Error("ErrMissingAPIKey should be a configuration error")
	}
	if !errors.Is(ErrRateLimit, domain.ErrTransientNetwork) {
		t.Error("ErrRateLimit should be transient")
	}
}

func TestClampMaxResults(t *testing.T) {
	tests := []struct{ in, def, want int }{
		{0, 5, 5},
		{3, 5, 3},
		{50, 5, MaxResultsLimit},
		{-1, 10, 10},
	}
	for _, tt := range tests {
		if got := ClampMaxResults(tt.in, tt.def); got != tt.want {
			t.Errorf("ClampMaxResults(%d, %d) = %d, want %d", tt.in, tt.def, got, tt.want)
		}
	}
}

func TestValidResultURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://fastapi.tiangolo.com/advanced/websockets/", true},
		{"http://example.com", true},
		{"ftp://example.com/file", false},
		{"not a url", false},
		{"https://", false},
		{"", false},
		{"://broken", false},
	}
	for _, tt := range tests {
		if got := ValidResultURL(tt.url); got != tt.want {
			t.Errorf("ValidResultURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestDedupeURLs(t *testing.T) {
	results := []SearchResult{
		{URL: "https://a.com"}, {URL: "https://b.com"}, {URL: "https://a.com"},
		{URL: "https://c.com"}, {URL: "https://d.com"},
	}

	got := DedupeURLs(results, 3)
	want := []string{"https://a.com", "https://b.com", "https://c.com"}
	if len(got) != len(want) {
		t.Fatalf("DedupeURLs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("DedupeURLs()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
