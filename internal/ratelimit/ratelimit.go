package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter - минимальный интервал между запросами к одному бэкенду.
// Состояние (время последнего запроса и текущий лимит) меняется только под mu,
// чтобы конкурентные вызовы не получили одно и то же окно.
type Limiter struct {
	mu          sync.Mutex
	lastRequest time.Time
	limit       float64 // запросов в секунду
	now         func() time.Time
}

type Config struct {
	RequestsPerSecond float64
}

func New(cfg Config) *Limiter {
	limit := cfg.RequestsPerSecond
	if limit <= 0 {
		limit = 1
	}
	return &Limiter{
		limit: limit,
		now:   time.Now,
	}
}

// Reserve занимает следующий слот и возвращает сколько нужно подождать до него.
func (l *Limiter) Reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	next := now
	if !l.lastRequest.IsZero() {
		if slot := l.lastRequest.Add(l.interval()); slot.After(now) {
			next = slot
		}
	}
	l.lastRequest = next
	return next.Sub(now)
}

// Wait резервирует слот и спит до него.
func (l *Limiter) Wait(ctx context.Context) error {
	wait := l.Reserve()
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SetLimit обновляет лимит по метаданным от бэкенда. Неположительные значения игнорируются.
func (l *Limiter) SetLimit(requestsPerSecond float64) {
	if requestsPerSecond <= 0 {
		return
	}
	l.mu.Lock()
	l.limit = requestsPerSecond
	l.mu.Unlock()
}

func (l *Limiter) Limit() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit
}

func (l *Limiter) Interval() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.interval()
}

func (l *Limiter) interval() time.Duration {
	return time.Duration(float64(time.Second) / l.limit)
}
