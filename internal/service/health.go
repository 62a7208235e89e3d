package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/kitbuilder587/webctx/internal/domain"
	"github.com/kitbuilder587/webctx/internal/search"
)

// HealthCheck опрашивает поиск, экстрактор и категоризатор.
func (s *EnhanceService) HealthCheck(ctx context.Context) domain.Health {
	ctx, cancel := context.WithTimeout(ctx, s.config.HealthTimeout)
	defer cancel()

	components := map[string]bool{
		"search":      false,
		"extractor":   false,
		"categorizer": false,
	}

	if hc, ok := s.search.(search.HealthChecker); ok {
		components["search"] = hc.HealthCheck(ctx)
	}
	if st, ok := s.scraper.(SelfTester); ok {
		components["extractor"] = st.SelfTest()
	}
	if st, ok := s.categorizer.(SelfTester); ok {
		components["categorizer"] = st.SelfTest()
	}

	h := domain.NewHealth(components)
	s.logger.Info("health check",
		zap.String("status", string(h.Status)),
		zap.Bool("search", components["search"]),
		zap.Bool("extractor", components["extractor"]),
		zap.Bool("categorizer", components["categorizer"]),
	)
	return h
}

// Cleanup закрывает браузерные сессии и останавливает кеш. Повторный вызов ничего не делает.
func (s *EnhanceService) Cleanup() {
	s.cleanupOnce.Do(func() {
		if s.sessions != nil {
			s.sessions.CloseAll()
		}
		if s.cache != nil {
			s.cache.Stop()
		}
		s.logger.Info("enhance service cleaned up")
	})
}
