package browser

import "context"

// Page - открытая вкладка, с которой работают экстрактор и симулятор поведения.
type Page interface {
	Configure(ctx context.Context, setup PageSetup) error
	Navigate(ctx context.Context, url string) error
	Title(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Scroll(ctx context.Context, dy int) error
	MoveMouse(ctx context.Context, x, y float64) error
	Close() error
}

type PageSetup struct {
	UserAgent     string
	Width         int
	Height        int
	Headers       map[string]string
	StealthScript string
}

// Launcher поднимает браузер по опциям стратегии.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Page, error)
}

type LauncherFunc func(ctx context.Context, opts LaunchOptions) (Page, error)

func (f LauncherFunc) Launch(ctx context.Context, opts LaunchOptions) (Page, error) {
	return f(ctx, opts)
}
