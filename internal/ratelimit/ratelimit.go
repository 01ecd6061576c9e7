package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

type RateLimiter interface {
	Wait(ctx context.Context) error
	SetRate(rps float64)
}

// Feedback is implemented by limiters that slow down after upstream errors.
type Feedback interface {
	RecordSuccess()
	RecordError()
}

// Limiter is a token bucket with a burst of one, so requests are spaced
// evenly at the configured rate.
type Limiter struct {
	limiter *rate.Limiter
}

func New(rps float64) *Limiter {
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

func (l *Limiter) SetRate(rps float64) {
	l.limiter.SetLimit(rate.Limit(rps))
}

func (l *Limiter) Rate() float64 {
	return float64(l.limiter.Limit())
}

// AdaptiveLimiter halves its rate after maxErrors consecutive errors, never
// going below minRPS, and returns to the base rate after a run of successes.
type AdaptiveLimiter struct {
	*Limiter

	mu           sync.Mutex
	baseRPS      float64
	minRPS       float64
	errorCount   int
	successCount int
	maxErrors    int
	recoverAfter int
}

func NewAdaptive(rps, minRPS float64) *AdaptiveLimiter {
	if minRPS > rps {
		minRPS = rps
	}
	return &AdaptiveLimiter{
		Limiter:      New(rps),
		baseRPS:      rps,
		minRPS:       minRPS,
		maxErrors:    3,
		recoverAfter: 5,
	}
}

func (a *AdaptiveLimiter) SetRate(rps float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.baseRPS = rps
	if a.minRPS > rps {
		a.minRPS = rps
	}
	a.Limiter.SetRate(rps)
}

func (a *AdaptiveLimiter) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.errorCount = 0
	a.successCount++

	if a.successCount >= a.recoverAfter {
		a.successCount = 0
		a.Limiter.SetRate(a.baseRPS)
	}
}

func (a *AdaptiveLimiter) RecordError() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.successCount = 0
	a.errorCount++

	if a.errorCount >= a.maxErrors {
		a.errorCount = 0
		next := a.Limiter.Rate() / 2
		if next < a.minRPS {
			next = a.minRPS
		}
		a.Limiter.SetRate(next)
	}
}
