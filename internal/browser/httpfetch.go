package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

var ErrNotNavigated = errors.New("page not navigated")

// HTTPLauncher - запасной бэкенд без браузера: обычный GET, JS не выполняется.
type HTTPLauncher struct {
	Client  *http.Client
	MaxBody int64
}

func (l HTTPLauncher) Launch(_ context.Context, opts LaunchOptions) (Page, error) {
	client := l.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	maxBody := l.MaxBody
	if maxBody <= 0 {
		maxBody = 5 << 20
	}
	return &httpPage{client: client, maxBody: maxBody, userAgent: opts.UserAgent}, nil
}

type httpPage struct {
	client  *http.Client
	maxBody int64

	mu        sync.Mutex
	userAgent string
	headers   map[string]string
	html      string
	loaded    bool
}

func (p *httpPage) Configure(_ context.Context, setup PageSetup) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if setup.UserAgent != "" {
		p.userAgent = setup.UserAgent
	}
	p.headers = setup.Headers
	return nil
}

func (p *httpPage) Navigate(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	p.mu.Lock()
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	p.mu.Unlock()
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return fmt.Errorf("fetch %s: http status %d", url, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, _ := mime.ParseMediaType(contentType); mediaType != "" &&
		!strings.Contains(mediaType, "html") && !strings.Contains(mediaType, "xml") {
		return fmt.Errorf("fetch %s: non-html content %q", url, mediaType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBody))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	enc, _, _ := charset.DetermineEncoding(data, contentType)
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		decoded = data
	}

	p.mu.Lock()
	p.html = string(decoded)
	p.loaded = true
	p.mu.Unlock()
	return nil
}

func (p *httpPage) Title(_ context.Context) (string, error) {
	html, err := p.HTML(context.Background())
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return strings.TrimSpace(doc.Find("title").First().Text()), nil
}

func (p *httpPage) HTML(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return "", ErrNotNavigated
	}
	return p.html, nil
}

// без JS скролл и мышь ничего не делают
func (p *httpPage) Scroll(context.Context, int) error { return nil }

func (p *httpPage) MoveMouse(context.Context, float64, float64) error { return nil }

func (p *httpPage) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
