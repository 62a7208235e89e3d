package browser

import (
	"context"
	"sync"
)

type fakePage struct {
	mu         sync.Mutex
	html       string
	title      string
	navErr     error
	navigated  []string
	scrolls    []int
	configured *PageSetup
	closed     int
}

func (p *fakePage) Configure(_ context.Context, setup PageSetup) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.configured = &setup
	return nil
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigated = append(p.navigated, url)
	return p.navErr
}

func (p *fakePage) Title(context.Context) (string, error) { return p.title, nil }

func (p *fakePage) HTML(context.Context) (string, error) { return p.html, nil }

func (p *fakePage) Scroll(_ context.Context, dy int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrolls = append(p.scrolls, dy)
	return nil
}

func (p *fakePage) MoveMouse(context.Context, float64, float64) error { return nil }

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

func (p *fakePage) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
