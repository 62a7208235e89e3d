package search

import (
	"context"
	"fmt"
	"strings"
)

// Router раскидывает запросы по движкам. Без явного движка идет в primary.
type Router struct {
	primary string
	engines map[string]SearchClient
}

func NewRouter(primary string, primaryClient SearchClient) *Router {
	r := &Router{
		primary: strings.ToLower(primary),
		engines: make(map[string]SearchClient),
	}
	r.engines[r.primary] = primaryClient
	return r
}

func (r *Router) Register(name string, client SearchClient) *Router {
	r.engines[strings.ToLower(name)] = client
	return r
}

func (r *Router) Engines() []string {
	names := make([]string, 0, len(r.engines))
	names = append(names, r.primary)
	for name := range r.engines {
		if name != r.primary {
			names = append(names, name)
		}
	}
	return names
}

func (r *Router) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	engine := strings.ToLower(req.Engine)
	if engine == "" {
		engine = r.primary
	}

	client, ok := r.engines[engine]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, req.Engine)
	}
	return client.Search(ctx, req)
}

// HealthCheck проверяет только primary, остальные движки опциональны.
func (r *Router) HealthCheck(ctx context.Context) bool {
	hc, ok := r.engines[r.primary].(HealthChecker)
	if !ok {
		return false
	}
	return hc.HealthCheck(ctx)
}
