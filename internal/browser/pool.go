package browser

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kitbuilder587/webctx/internal/domain"
	"github.com/kitbuilder587/webctx/internal/metrics"
)

var (
	ErrAllStrategiesFailed = fmt.Errorf("%w: all launch strategies failed", domain.ErrAcquisition)
	ErrNoStrategies        = errors.New("no launch strategy applies to this environment")
	ErrNoLauncher          = errors.New("no launcher for backend")
	ErrSessionNotFound     = errors.New("session not found")
	ErrPoolClosed          = errors.New("pool is closed")
)

// LaunchError - ни одна стратегия не поднялась. Err - последняя ошибка.
type LaunchError struct {
	Platform string
	Arch     string
	Attempts int
	Err      error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("browser launch failed on %s/%s after %d strategies: %v", e.Platform, e.Arch, e.Attempts, e.Err)
}

func (e *LaunchError) Unwrap() []error {
	return []error{ErrAllStrategiesFailed, e.Err}
}

type Session struct {
	ID        string
	CreatedAt time.Time
	UserAgent string
	Proxy     string
	Strategy  string
	Width     int
	Height    int

	page Page

	mu           sync.Mutex
	lastActivity time.Time
	requestCount int
	now          func() time.Time
}

func (s *Session) Page() Page { return s.page }

// Navigate считает запросы и обновляет время активности.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.touch()
	return s.page.Navigate(ctx, url)
}

func (s *Session) touch() {
	s.mu.Lock()
	s.requestCount++
	s.lastActivity = s.now()
	s.mu.Unlock()
}

func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func (s *Session) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestCount
}

type Config struct {
	Headless     bool
	ChromePath   string
	Proxy        string
	HTTPFallback bool
}

type PoolDeps struct {
	Config  Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// для тестов и нестандартных окружений
	Environment *Environment
	Strategies  []LaunchStrategy
	Launchers   map[Backend]Launcher
}

// Pool создает и закрывает браузерные сессии. Стратегии выбираются один раз при создании.
type Pool struct {
	env        Environment
	strategies []LaunchStrategy
	launchers  map[Backend]Launcher
	proxy      string
	logger     *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
	pick       func(n int) int

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

func NewPool(deps PoolDeps) *Pool {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	env := DetectEnvironment()
	if deps.Environment != nil {
		env = *deps.Environment
	}
	all := deps.Strategies
	if all == nil {
		all = DefaultStrategies(StrategyConfig{
			Headless:     deps.Config.Headless,
			ChromePath:   deps.Config.ChromePath,
			HTTPFallback: deps.Config.HTTPFallback,
		})
	}
	launchers := deps.Launchers
	if launchers == nil {
		launchers = map[Backend]Launcher{
			BackendChrome: ChromeLauncher{},
			BackendHTTP:   HTTPLauncher{},
		}
	}

	p := &Pool{
		env:        env,
		strategies: SelectStrategies(env, all),
		launchers:  launchers,
		proxy:      deps.Config.Proxy,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		now:        time.Now,
		pick:       rand.IntN,
		sessions:   make(map[string]*Session),
	}

	names := make([]string, len(p.strategies))
	for i, s := range p.strategies {
		names[i] = s.Name
	}
	p.logger.Debug("browser strategies selected",
		zap.String("env", env.String()),
		zap.Strings("strategies", names),
	)
	return p
}

func (p *Pool) Environment() Environment { return p.env }

func (p *Pool) Strategies() []LaunchStrategy {
	out := make([]LaunchStrategy, len(p.strategies))
	copy(out, p.strategies)
	return out
}

// CreateSession пробует стратегии по порядку до первой удачной.
func (p *Pool) CreateSession(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrPoolClosed
	}

	if len(p.strategies) == 0 {
		return nil, &LaunchError{Platform: p.env.Platform, Arch: p.env.Arch, Err: ErrNoStrategies}
	}

	ua := userAgents[p.pick(len(userAgents))]
	w, h := p.viewport()

	var lastErr error
	attempts := 0
	for _, st := range p.strategies {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}
		attempts++

		launcher, ok := p.launchers[st.Backend]
		if !ok {
			lastErr = fmt.Errorf("%w: %s", ErrNoLauncher, st.Backend)
			continue
		}

		opts := st.Options
		opts.UserAgent = ua
		opts.Proxy = p.proxy
		opts.Width, opts.Height = w, h

		page, err := launcher.Launch(ctx, opts)
		if err != nil {
			p.logger.Warn("launch strategy failed",
				zap.String("strategy", st.Name),
				zap.String("env", p.env.String()),
				zap.Error(err),
			)
			if p.metrics != nil {
				p.metrics.RecordLaunchFailure(st.Name)
			}
			lastErr = err
			continue
		}

		return p.register(page, st.Name, ua, w, h), nil
	}

	return nil, &LaunchError{Platform: p.env.Platform, Arch: p.env.Arch, Attempts: attempts, Err: lastErr}
}

func (p *Pool) register(page Page, strategy, ua string, w, h int) *Session {
	now := p.now()
	s := &Session{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		UserAgent:    ua,
		Proxy:        p.proxy,
		Strategy:     strategy,
		Width:        w,
		Height:       h,
		page:         page,
		lastActivity: now,
		now:          p.now,
	}

	p.mu.Lock()
	p.sessions[s.ID] = s
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.SessionOpened()
	}
	p.logger.Debug("browser session created",
		zap.String("session_id", s.ID),
		zap.String("strategy", strategy),
	)
	return s
}

func (p *Pool) viewport() (int, int) {
	v := viewports[p.pick(len(viewports))]
	return v[0], v[1]
}

// SetupSession настраивает страницу до первой навигации.
func (p *Pool) SetupSession(ctx context.Context, id string) error {
	s, ok := p.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	// окно и эмуляция устройства должны совпадать
	headers := make(map[string]string, len(defaultHeaders))
	for k, v := range defaultHeaders {
		headers[k] = v
	}
	return s.page.Configure(ctx, PageSetup{
		UserAgent:     s.UserAgent,
		Width:         s.Width,
		Height:        s.Height,
		Headers:       headers,
		StealthScript: stealthScript,
	})
}

func (p *Pool) Get(id string) (*Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[id]
	return s, ok
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// CloseSession закрывает браузер и удаляет запись.
func (p *Pool) CloseSession(id string) error {
	p.mu.Lock()
	s, ok := p.sessions[id]
	delete(p.sessions, id)
	p.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if p.metrics != nil {
		p.metrics.SessionClosed()
	}
	if err := s.page.Close(); err != nil {
		p.logger.Warn("close session", zap.String("session_id", id), zap.Error(err))
		return err
	}
	return nil
}

// WithSession - создать, настроить, отдать в fn и закрыть на любом выходе, включая панику.
func (p *Pool) WithSession(ctx context.Context, fn func(s *Session) error) error {
	s, err := p.CreateSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = p.CloseSession(s.ID)
	}()

	if err := p.SetupSession(ctx, s.ID); err != nil {
		return fmt.Errorf("setup session: %w", err)
	}
	return fn(s)
}

// CleanupOldSessions закрывает сессии без активности дольше maxAge.
func (p *Pool) CleanupOldSessions(maxAge time.Duration) int {
	cutoff := p.now().Add(-maxAge)

	p.mu.Lock()
	var stale []string
	for id, s := range p.sessions {
		if s.LastActivity().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	p.mu.Unlock()

	closed := 0
	for _, id := range stale {
		if err := p.CloseSession(id); err == nil || !errors.Is(err, ErrSessionNotFound) {
			closed++
		}
	}
	if closed > 0 {
		p.logger.Info("idle browser sessions closed", zap.Int("count", closed))
	}
	return closed
}

// StartSweeper периодически чистит простаивающие сессии, пока жив ctx.
func (p *Pool) StartSweeper(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.CleanupOldSessions(maxAge)
			}
		}
	}()
}

// CloseAll можно вызывать повторно.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	p.closed = true
	ids := make([]string, 0, len(p.sessions))
	for id := range p.sessions {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		_ = p.CloseSession(id)
	}
}
