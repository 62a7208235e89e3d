package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/webctx/internal/behavior"
	"github.com/kitbuilder587/webctx/internal/browser"
	"github.com/kitbuilder587/webctx/internal/domain"
	"github.com/kitbuilder587/webctx/internal/metrics"
	"github.com/kitbuilder587/webctx/internal/search"
)

type Options struct {
	Timeout          time.Duration
	MinWordCount     int
	MaxContentLength int
	MaxURLs          int
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	// отрицательное значение отключает порог
	switch {
	case o.MinWordCount == 0:
		o.MinWordCount = 50
	case o.MinWordCount < 0:
		o.MinWordCount = 0
	}
	if o.MaxContentLength <= 0 {
		o.MaxContentLength = 8000
	}
	if o.MaxURLs <= 0 {
		o.MaxURLs = 3
	}
	return o
}

// SessionProvider - browser.Pool.
type SessionProvider interface {
	WithSession(ctx context.Context, fn func(s *browser.Session) error) error
}

// Pacer - паузы и имитация чтения, behavior.Simulator.
type Pacer interface {
	Delay(ctx context.Context, min, max time.Duration) error
	Perform(ctx context.Context, page behavior.Page, mode behavior.Mode) error
}

type Deps struct {
	Pool     SessionProvider
	Behavior Pacer
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Options  Options
}

type Extractor struct {
	pool     SessionProvider
	behavior Pacer
	logger   *zap.Logger
	metrics  *metrics.Metrics
	defaults Options

	preNavMin, preNavMax   time.Duration
	betweenMin, betweenMax time.Duration
}

func New(deps Deps) *Extractor {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Behavior == nil {
		deps.Behavior = behavior.New(deps.Logger)
	}
	return &Extractor{
		pool:       deps.Pool,
		behavior:   deps.Behavior,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		defaults:   deps.Options.withDefaults(),
		preNavMin:  time.Second,
		preNavMax:  3 * time.Second,
		betweenMin: 2 * time.Second,
		betweenMax: 5 * time.Second,
	}
}

func (e *Extractor) merge(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = e.defaults.Timeout
	}
	if opts.MinWordCount == 0 {
		opts.MinWordCount = e.defaults.MinWordCount
	}
	if opts.MaxContentLength <= 0 {
		opts.MaxContentLength = e.defaults.MaxContentLength
	}
	if opts.MaxURLs <= 0 {
		opts.MaxURLs = e.defaults.MaxURLs
	}
	return opts
}

// ScrapeURLs обходит адреса строго по очереди. Ошибки по отдельным URL
// логируются и пропускаются, возвращается то, что прошло порог.
func (e *Extractor) ScrapeURLs(ctx context.Context, urls []string, opts Options) []domain.ScrapedContent {
	opts = e.merge(opts)

	// лимит считается только по валидным адресам
	results := make([]domain.ScrapedContent, 0, opts.MaxURLs)
	visited := 0
	for _, raw := range urls {
		if ctx.Err() != nil {
			break
		}

		u, err := parseURL(raw)
		if err != nil {
			e.logger.Debug("skip invalid url", zap.String("url", raw))
			e.record("invalid")
			continue
		}
		if visited >= opts.MaxURLs {
			break
		}

		if visited > 0 {
			if err := e.behavior.Delay(ctx, e.betweenMin, e.betweenMax); err != nil {
				break
			}
		}
		visited++

		content, err := e.ScrapeURL(ctx, u, opts)
		if err != nil {
			outcome := "failed"
			if errors.Is(err, domain.ErrContentQuality) {
				outcome = "low_quality"
			}
			e.record(outcome)
			e.logger.Debug("scrape skipped",
				zap.String("url", raw),
				zap.String("outcome", outcome),
				zap.Error(err),
			)
			continue
		}

		e.record("retained")
		results = append(results, *content)
	}

	e.logger.Info("scrape finished",
		zap.Int("urls", len(urls)),
		zap.Int("visited", visited),
		zap.Int("retained", len(results)),
	)
	return results
}

// ScrapeURL - одна страница в своей сессии, сессия закрывается на любом выходе.
func (e *Extractor) ScrapeURL(ctx context.Context, u *url.URL, opts Options) (content *domain.ScrapedContent, err error) {
	if e.pool == nil {
		return nil, fmt.Errorf("%w: no session provider", domain.ErrAcquisition)
	}
	opts = e.merge(opts)

	defer func() {
		if r := recover(); r != nil {
			content, err = nil, fmt.Errorf("scrape panic: %v", r)
		}
	}()

	err = e.pool.WithSession(ctx, func(s *browser.Session) error {
		if err := e.behavior.Delay(ctx, e.preNavMin, e.preNavMax); err != nil {
			return err
		}

		navCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		defer cancel()

		if err := s.Navigate(navCtx, u.String()); err != nil {
			return fmt.Errorf("navigate: %w", err)
		}
		if err := e.behavior.Perform(navCtx, s.Page(), behavior.ModeRead); err != nil && navCtx.Err() != nil {
			return fmt.Errorf("read page: %w", err)
		}

		rawHTML, err := s.Page().HTML(navCtx)
		if err != nil {
			return fmt.Errorf("get html: %w", err)
		}

		c, err := ExtractFromHTML(rawHTML, u, opts)
		if err != nil {
			return err
		}
		if c.Title == "" {
			if t, terr := s.Page().Title(navCtx); terr == nil {
				c.Title = t
			}
		}
		content = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return content, nil
}

func (e *Extractor) record(outcome string) {
	if e.metrics != nil {
		e.metrics.RecordScrape(outcome)
	}
}

func parseURL(raw string) (*url.URL, error) {
	if !search.ValidResultURL(raw) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return url.Parse(raw)
}
