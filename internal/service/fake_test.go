package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kitbuilder587/webctx/internal/behavior"
	"github.com/kitbuilder587/webctx/internal/browser"
	"github.com/kitbuilder587/webctx/internal/domain"
	"github.com/kitbuilder587/webctx/internal/enhancer"
	"github.com/kitbuilder587/webctx/internal/extractor"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("token%d", i)
	}
	return strings.Join(w, " ")
}

func articlePage(title string, n int) string {
	return fmt.Sprintf(`<html><head><title>%s</title>
<meta name="description" content="%s"></head><body>
<nav>Home Blog Login</nav>
<article><p>%s</p></article>
<footer>Footer</footer></body></html>`, title, title, words(n))
}

// fakeWeb - браузер, который отдает страницы из map.
type fakeWeb struct {
	mu     sync.Mutex
	pages  map[string]string
	opened int
	closed int
}

type fakePage struct {
	web     *fakeWeb
	current string
}

func (p *fakePage) Configure(context.Context, browser.PageSetup) error { return nil }

func (p *fakePage) Navigate(_ context.Context, u string) error {
	p.current = u
	return nil
}

func (p *fakePage) Title(context.Context) (string, error) { return "", nil }

func (p *fakePage) HTML(context.Context) (string, error) {
	p.web.mu.Lock()
	defer p.web.mu.Unlock()
	html, ok := p.web.pages[p.current]
	if !ok {
		return "", fmt.Errorf("404 %s", p.current)
	}
	return html, nil
}

func (p *fakePage) Scroll(context.Context, int) error { return nil }

func (p *fakePage) MoveMouse(context.Context, float64, float64) error { return nil }

func (p *fakePage) Close() error {
	p.web.mu.Lock()
	p.web.closed++
	p.web.mu.Unlock()
	return nil
}

func (w *fakeWeb) pool() *browser.Pool {
	env := browser.Environment{Platform: "linux", Arch: "amd64"}
	return browser.NewPool(browser.PoolDeps{
		Environment: &env,
		Strategies:  []browser.LaunchStrategy{{Name: "fake", Backend: browser.BackendChrome}},
		Launchers: map[browser.Backend]browser.Launcher{
			browser.BackendChrome: browser.LauncherFunc(func(context.Context, browser.LaunchOptions) (browser.Page, error) {
				w.mu.Lock()
				w.opened++
				w.mu.Unlock()
				return &fakePage{web: w}, nil
			}),
		},
	})
}

// instantPacer - без пауз.
type instantPacer struct{}

func (instantPacer) Delay(context.Context, time.Duration, time.Duration) error { return nil }

func (instantPacer) Perform(context.Context, behavior.Page, behavior.Mode) error { return nil }

type panicScraper struct {
	mu    sync.Mutex
	calls int
}

func (s *panicScraper) ScrapeURLs(context.Context, []string, extractor.Options) []domain.ScrapedContent {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	panic("scraper exploded")
}

type panicEnhancer struct{}

func (panicEnhancer) Enhance(context.Context, enhancer.Request, enhancer.Options) (*enhancer.Result, error) {
	panic("enhancer exploded")
}

// stubPlanner отдает заранее заданные запросы.
type stubPlanner struct {
	planned  []domain.SearchQuery
	keywords []domain.SearchQuery
	kwCalls  int
}

func (p *stubPlanner) Plan(context.Context, string, []string) []domain.SearchQuery {
	return p.planned
}

func (p *stubPlanner) KeywordQueries(string) []domain.SearchQuery {
	p.kwCalls++
	return p.keywords
}

type countingSessions struct{ closes int }

func (c *countingSessions) CloseAll() { c.closes++ }
