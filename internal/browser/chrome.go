package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromeLauncher запускает локальный Chrome/Chromium через chromedp.
type ChromeLauncher struct{}

func (ChromeLauncher) Launch(ctx context.Context, opts LaunchOptions) (Page, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}
	if opts.DisableGPU {
		allocOpts = append(allocOpts, chromedp.DisableGPU)
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}
	if opts.Width > 0 && opts.Height > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.Width, opts.Height))
	}
	for name, value := range opts.Flags {
		allocOpts = append(allocOpts, chromedp.Flag(name, value))
	}
	allocOpts = append(allocOpts, chromedp.Flag("disable-blink-features", "AutomationControlled"))

	// браузер живет дольше ctx запуска, поэтому аллокатор от Background
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	p := &chromePage{ctx: tabCtx, cancel: func() {
		tabCancel()
		allocCancel()
	}}

	// первый Run поднимает процесс; таймаут на него вешать нельзя, иначе убьет браузер
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(tabCtx) }()

	select {
	case err := <-started:
		if err != nil {
			p.cancel()
			return nil, fmt.Errorf("start chrome: %w", err)
		}
	case <-ctx.Done():
		p.cancel()
		return nil, ctx.Err()
	}
	return p, nil
}

type chromePage struct {
	ctx    context.Context
	cancel func()
}

// run выполняет действия во вкладке с дедлайном и отменой вызывающего ctx.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Configure(ctx context.Context, setup PageSetup) error {
	actions := []chromedp.Action{network.Enable()}
	if setup.Width > 0 && setup.Height > 0 {
		actions = append(actions, emulation.SetDeviceMetricsOverride(int64(setup.Width), int64(setup.Height), 1, false))
	}
	if setup.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(setup.UserAgent))
	}
	if len(setup.Headers) > 0 {
		headers := make(network.Headers, len(setup.Headers))
		for k, v := range setup.Headers {
			headers[k] = v
		}
		actions = append(actions, network.SetExtraHTTPHeaders(headers))
	}
	if setup.StealthScript != "" {
		script := setup.StealthScript
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
			return err
		}))
	}
	return p.run(ctx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery))
}

func (p *chromePage) Title(ctx context.Context) (string, error) {
	var title string
	err := p.run(ctx, chromedp.Title(&title))
	return title, err
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (p *chromePage) Scroll(ctx context.Context, dy int) error {
	var ok bool
	return p.run(ctx, chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d); true", dy), &ok))
}

func (p *chromePage) MoveMouse(ctx context.Context, x, y float64) error {
	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
}

func (p *chromePage) Close() error {
	err := chromedp.Cancel(p.ctx)
	p.cancel()
	return err
}
