package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kitbuilder587/webctx/internal/behavior"
	"github.com/kitbuilder587/webctx/internal/browser"
	"github.com/kitbuilder587/webctx/internal/domain"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(w, " ")
}

func articlePage(title string, n int) string {
	return fmt.Sprintf(`<html><head><title>%s</title></head><body>
<nav>Menu Login Signup</nav>
<article><p>%s</p></article>
<footer>Footer links</footer></body></html>`, title, words(n))
}

type site struct {
	mu      sync.Mutex
	pages   map[string]string
	navErr  map[string]error
	opened  int
	closed  int
	visited []string
}

type sitePage struct {
	site    *site
	current string
}

func (p *sitePage) Configure(context.Context, browser.PageSetup) error { return nil }

func (p *sitePage) Navigate(_ context.Context, u string) error {
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	p.site.visited = append(p.site.visited, u)
	p.current = u
	return p.site.navErr[u]
}

func (p *sitePage) Title(context.Context) (string, error) { return "", nil }

func (p *sitePage) HTML(context.Context) (string, error) {
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	return p.site.pages[p.current], nil
}

func (p *sitePage) Scroll(context.Context, int) error { return nil }

func (p *sitePage) MoveMouse(context.Context, float64, float64) error { return nil }

func (p *sitePage) Close() error {
	p.site.mu.Lock()
	p.site.closed++
	p.site.mu.Unlock()
	return nil
}

func (s *site) pool() *browser.Pool {
	env := browser.Environment{Platform: "linux", Arch: "amd64"}
	return browser.NewPool(browser.PoolDeps{
		Environment: &env,
		Strategies:  []browser.LaunchStrategy{{Name: "fake", Backend: browser.BackendChrome}},
		Launchers: map[browser.Backend]browser.Launcher{
			browser.BackendChrome: browser.LauncherFunc(func(context.Context, browser.LaunchOptions) (browser.Page, error) {
				s.mu.Lock()
				s.opened++
				s.mu.Unlock()
				return &sitePage{site: s}, nil
			}),
		},
	})
}

type delay struct{ min, max time.Duration }

type fakePacer struct {
	delays   []delay
	performs int
}

func (p *fakePacer) Delay(_ context.Context, min, max time.Duration) error {
	p.delays = append(p.delays, delay{min, max})
	return nil
}

func (p *fakePacer) Perform(context.Context, behavior.Page, behavior.Mode) error {
	p.performs++
	return nil
}

func newTestExtractor(s *site) (*Extractor, *browser.Pool, *fakePacer) {
	pool := s.pool()
	pacer := &fakePacer{}
	return New(Deps{Pool: pool, Behavior: pacer}), pool, pacer
}

func TestScrapeURLs_MinWordCountGate(t *testing.T) {
	s := &site{pages: map[string]string{
		"https://a.example/short": articlePage("Short", 30),
		"https://b.example/long":  articlePage("Long guide", 300),
	}}
	ex, pool, _ := newTestExtractor(s)

	got := ex.ScrapeURLs(context.Background(),
		[]string{"https://a.example/short", "https://b.example/long"},
		Options{MinWordCount: 50})

	if len(got) != 1 {
		t.Fatalf("retained %d items, want 1", len(got))
	}
	if got[0].Title != "Long guide" || got[0].URL != "https://b.example/long" {
		t.Errorf("retained = %s %s", got[0].Title, got[0].URL)
	}
	if got[0].WordCount != 300 {
		t.Errorf("WordCount = %d, want 300", got[0].WordCount)
	}
	if strings.Contains(got[0].Content, "Menu Login") {
		t.Error("navigation should be stripped")
	}
	if s.opened != 2 || s.closed != 2 || pool.Len() != 0 {
		t.Errorf("opened=%d closed=%d open=%d, want every session released", s.opened, s.closed, pool.Len())
	}
}

func TestScrapeURLs_SkipsFailures(t *testing.T) {
	s := &site{
		pages: map[string]string{
			"https://ok.example/":   articlePage("Ok", 120),
			"https://slow.example/": articlePage("Slow", 120),
		},
		navErr: map[string]error{"https://slow.example/": context.DeadlineExceeded},
	}
	ex, pool, _ := newTestExtractor(s)

	got := ex.ScrapeURLs(context.Background(),
		[]string{"not a url", "ftp://files.example/x", "https://slow.example/", "https://ok.example/"},
		Options{})

	if len(got) != 1 || got[0].Title != "Ok" {
		t.Fatalf("got %+v", got)
	}
	if s.opened != 2 {
		t.Errorf("sessions opened = %d, invalid urls must not open sessions", s.opened)
	}
	if pool.Len() != 0 || s.closed != 2 {
		t.Errorf("closed=%d open=%d", s.closed, pool.Len())
	}
}

func TestScrapeURLs_SequentialPacing(t *testing.T) {
	s := &site{pages: map[string]string{
		"https://a.example/": articlePage("A", 100),
		"https://b.example/": articlePage("B", 100),
		"https://c.example/": articlePage("C", 100),
	}}
	ex, _, pacer := newTestExtractor(s)

	ex.ScrapeURLs(context.Background(),
		[]string{"https://a.example/", "https://b.example/", "https://c.example/"}, Options{})

	var preNav, between int
	for _, d := range pacer.delays {
		switch d {
		case delay{time.Second, 3 * time.Second}:
			preNav++
		case delay{2 * time.Second, 5 * time.Second}:
			between++
		default:
			t.Errorf("unexpected delay range %+v", d)
		}
	}
	if preNav != 3 || between != 2 {
		t.Errorf("preNav=%d between=%d, want 3/2", preNav, between)
	}
	if pacer.performs != 3 {
		t.Errorf("read simulations = %d, want 3", pacer.performs)
	}
	want := []string{"https://a.example/", "https://b.example/", "https://c.example/"}
	if strings.Join(s.visited, ",") != strings.Join(want, ",") {
		t.Errorf("visit order = %v", s.visited)
	}
}

func TestScrapeURLs_MaxURLs(t *testing.T) {
	s := &site{pages: map[string]string{}}
	urls := make([]string, 5)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://site%d.example/", i)
		s.pages[urls[i]] = articlePage("P", 80)
	}
	ex, _, _ := newTestExtractor(s)

	got := ex.ScrapeURLs(context.Background(), urls, Options{})
	if len(got) != 3 {
		t.Errorf("retained = %d, want default cap 3", len(got))
	}
}

func TestScrapeURLs_InvalidURLsDoNotConsumeLimit(t *testing.T) {
	s := &site{pages: map[string]string{
		"https://a.example/": articlePage("A", 80),
		"https://b.example/": articlePage("B", 80),
		"https://c.example/": articlePage("C", 80),
	}}
	ex, _, _ := newTestExtractor(s)

	got := ex.ScrapeURLs(context.Background(), []string{
		"not a url",
		"https://a.example/",
		"mailto:x@example.com",
		"ftp://files.example/x",
		"https://b.example/",
		"https://c.example/",
	}, Options{MaxURLs: 2})

	if len(got) != 2 {
		t.Fatalf("retained = %d, want 2", len(got))
	}
	want := []string{"https://a.example/", "https://b.example/"}
	if strings.Join(s.visited, ",") != strings.Join(want, ",") {
		t.Errorf("visited = %v, want %v", s.visited, want)
	}
}

func TestScrapeURLs_LaunchFailure(t *testing.T) {
	env := browser.Environment{Platform: "linux", Arch: "amd64"}
	pool := browser.NewPool(browser.PoolDeps{
		Environment: &env,
		Strategies:  []browser.LaunchStrategy{{Name: "broken", Backend: browser.BackendChrome}},
		Launchers: map[browser.Backend]browser.Launcher{
			browser.BackendChrome: browser.LauncherFunc(func(context.Context, browser.LaunchOptions) (browser.Page, error) {
				return nil, errors.New("no chrome")
			}),
		},
	})
	ex := New(Deps{Pool: pool, Behavior: &fakePacer{}})

	got := ex.ScrapeURLs(context.Background(), []string{"https://a.example/"}, Options{})
	if len(got) != 0 {
		t.Errorf("got %d items, want none", len(got))
	}
}

func TestExtractFromHTML(t *testing.T) {
	u, _ := url.Parse("https://docs.example/page")

	tests := []struct {
		name         string
		html         string
		opts         Options
		wantErr      error
		wantContains string
		wantMissing  string
	}{
		{
			name:         "article preferred over body",
			html:         articlePage("Doc", 100),
			opts:         Options{MinWordCount: 50},
			wantContains: "word99",
			wantMissing:  "Footer links",
		},
		{
			name: "main region",
			html: `<html><body><div class="sidebar">` + words(40) + `</div><main>` +
				strings.Repeat("gamma ", 60) + `</main></body></html>`,
			opts:         Options{MinWordCount: 50},
			wantContains: "gamma gamma",
			wantMissing:  "word39",
		},
		{
			name: "short regions fall back to page text",
			html: `<html><body><article>tiny</article><div><p>` + strings.Repeat("delta epsilon ", 40) +
				`</p></div><script>var x = "hidden script";</script></body></html>`,
			opts:         Options{MinWordCount: 10},
			wantContains: "delta epsilon",
			wantMissing:  "hidden script",
		},
		{
			name:    "below minimum words",
			html:    articlePage("Short", 30),
			opts:    Options{MinWordCount: 50},
			wantErr: domain.ErrContentQuality,
		},
		{
			name:    "empty body",
			html:    `<html><body><script>only()</script></body></html>`,
			opts:    Options{MinWordCount: 1},
			wantErr: ErrNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ExtractFromHTML(tt.html, u, tt.opts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ExtractFromHTML() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractFromHTML() error = %v", err)
			}
			if !strings.Contains(c.Content, tt.wantContains) {
				t.Errorf("content missing %q: %.120s", tt.wantContains, c.Content)
			}
			if tt.wantMissing != "" && strings.Contains(c.Content, tt.wantMissing) {
				t.Errorf("content should not contain %q", tt.wantMissing)
			}
			if strings.Contains(c.Content, "  ") {
				t.Error("whitespace should be collapsed")
			}
		})
	}
}

func TestExtractFromHTML_Metadata(t *testing.T) {
	html := `<html><head><title> Guide </title>
<meta name="description" content="A guide">
<meta name="keywords" content="Go, HTTP , ,servers"></head>
<body><article>` + words(80) + `</article></body></html>`

	c, err := ExtractFromHTML(html, nil, Options{MinWordCount: 10})
	if err != nil {
		t.Fatal(err)
	}
	if c.Title != "Guide" || c.Metadata.Description != "A guide" {
		t.Errorf("title=%q desc=%q", c.Title, c.Metadata.Description)
	}
	if strings.Join(c.Metadata.Keywords, "|") != "go|http|servers" {
		t.Errorf("keywords = %v", c.Metadata.Keywords)
	}
}

func TestExtractFromHTML_Truncate(t *testing.T) {
	c, err := ExtractFromHTML(articlePage("Long", 500), nil, Options{MinWordCount: 10, MaxContentLength: 300})
	if err != nil {
		t.Fatal(err)
	}
	if len([]rune(c.Content)) > 300 {
		t.Errorf("content length = %d, want <= 300", len([]rune(c.Content)))
	}
	if c.WordCount != len(strings.Fields(c.Content)) {
		t.Errorf("WordCount = %d, should match truncated text", c.WordCount)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello world", 100, "hello world"},
		{"hello world again", 13, "hello world"},
		{"привет мир", 6, "привет"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestSelfTest(t *testing.T) {
	ex := New(Deps{})
	if !ex.SelfTest() {
		t.Error("SelfTest() = false")
	}
}
