package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestMetrics_Record(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.RecordEnhance("ok", time.Second)
	m.RecordEnhance("ok", time.Second)
	m.RecordEnhance("degraded", time.Second)
	m.RecordCacheHit("result")
	m.RecordLaunchFailure("generic")
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.RecordScrape("retained")

	out := scrape(t, m)

	wants := []string{
		`webctx_enhance_requests_total{status="ok"} 2`,
		`webctx_enhance_requests_total{status="degraded"} 1`,
		`webctx_cache_hits_total{store="result"} 1`,
		`webctx_browser_launch_failures_total{strategy="generic"} 1`,
		`webctx_browser_sessions_open 1`,
		`webctx_scrape_urls_total{outcome="retained"} 1`,
	}
	for _, w := range wants {
		if !strings.Contains(out, w) {
			t.Errorf("metrics output missing %q", w)
		}
	}
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	// второй реестр не должен паниковать на повторной регистрации
	NewWithRegistry(prometheus.NewRegistry())
	NewWithRegistry(prometheus.NewRegistry())
}
