package behavior

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Mode string

const (
	ModeRead Mode = "read"
	ModeSkim Mode = "skim"
)

type ActionKind string

const (
	ActionScroll ActionKind = "scroll"
	ActionMouse  ActionKind = "mouse"
	ActionPause  ActionKind = "pause"
)

type Action struct {
	Kind  ActionKind
	DY    int
	X, Y  float64
	Pause time.Duration
}

// Page - то, что нужно симулятору от вкладки.
type Page interface {
	Scroll(ctx context.Context, dy int) error
	MoveMouse(ctx context.Context, x, y float64) error
}

type profile struct {
	scrollsMin, scrollsMax int
	stepMin, stepMax       int
	pauseMin, pauseMax     time.Duration
	dwellMin, dwellMax     time.Duration
	mouseMoves             int
	scrollBackChance       float64
}

var profiles = map[Mode]profile{
	ModeRead: {
		scrollsMin: 3, scrollsMax: 6,
		stepMin: 200, stepMax: 600,
		pauseMin: 300 * time.Millisecond, pauseMax: 900 * time.Millisecond,
		dwellMin: 2 * time.Second, dwellMax: 5 * time.Second,
		mouseMoves:       3,
		scrollBackChance: 0.2,
	},
	ModeSkim: {
		scrollsMin: 1, scrollsMax: 2,
		stepMin: 500, stepMax: 1200,
		pauseMin: 150 * time.Millisecond, pauseMax: 400 * time.Millisecond,
		dwellMin: 500 * time.Millisecond, dwellMax: 1500 * time.Millisecond,
		mouseMoves: 1,
	},
}

// Simulator генерирует и проигрывает "человеческие" действия на странице.
type Simulator struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	width  float64
	height float64
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func New(logger *zap.Logger) *Simulator {
	return NewWithSeed(rand.Uint64(), logger)
}

func NewWithSeed(seed uint64, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		rnd:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		width:  1366,
		height: 768,
		logger: logger,
		sleep:  Sleep,
	}
}

// SetSleep подменяет ожидание, в тестах чтобы не ждать реально.
func (s *Simulator) SetSleep(fn func(ctx context.Context, d time.Duration) error) {
	s.sleep = fn
}

func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Simulator) durationBetween(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(s.rnd.Int64N(int64(max-min)+1))
}

func (s *Simulator) intBetween(min, max int) int {
	if max <= min {
		return min
	}
	return min + s.rnd.IntN(max-min+1)
}

// Plan строит последовательность действий для режима; неизвестный режим = read.
// Последнее действие всегда пауза-"чтение".
func (s *Simulator) Plan(mode Mode) []Action {
	p, ok := profiles[mode]
	if !ok {
		p = profiles[ModeRead]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	scrolls := s.intBetween(p.scrollsMin, p.scrollsMax)
	actions := make([]Action, 0, scrolls*2+p.mouseMoves+1)

	moveEvery := scrolls/(p.mouseMoves+1) + 1
	moves := 0
	for i := 0; i < scrolls; i++ {
		dy := s.intBetween(p.stepMin, p.stepMax)
		if i > 0 && s.rnd.Float64() < p.scrollBackChance {
			dy = -dy / 3
		}
		actions = append(actions, Action{Kind: ActionScroll, DY: dy})

		if moves < p.mouseMoves && i%moveEvery == 0 {
			actions = append(actions, Action{
				Kind: ActionMouse,
				X:    s.rnd.Float64() * s.width,
				Y:    s.rnd.Float64() * s.height,
			})
			moves++
		}
		actions = append(actions, Action{Kind: ActionPause, Pause: s.durationBetween(p.pauseMin, p.pauseMax)})
	}

	actions = append(actions, Action{Kind: ActionPause, Pause: s.durationBetween(p.dwellMin, p.dwellMax)})
	return actions
}

// Perform проигрывает план. Ошибки скролла/мыши не фатальны, прерывает только ctx.
func (s *Simulator) Perform(ctx context.Context, page Page, mode Mode) error {
	for _, a := range s.Plan(mode) {
		switch a.Kind {
		case ActionScroll:
			if err := page.Scroll(ctx, a.DY); err != nil {
				s.logger.Debug("scroll failed", zap.Error(err))
			}
		case ActionMouse:
			if err := page.MoveMouse(ctx, a.X, a.Y); err != nil {
				s.logger.Debug("mouse move failed", zap.Error(err))
			}
		case ActionPause:
			if err := s.sleep(ctx, a.Pause); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// Delay - случайная пауза в [min, max].
func (s *Simulator) Delay(ctx context.Context, min, max time.Duration) error {
	s.mu.Lock()
	d := s.durationBetween(min, max)
	s.mu.Unlock()
	return s.sleep(ctx, d)
}
