package infra

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

const jitterRatio = 0.2

// Backoff is a jittered exponential delay shared by the daemons' retry loops.
// The delay starts at base, is multiplied by factor after every attempt and
// never exceeds ceiling (before jitter).
type Backoff struct {
	mu       sync.Mutex
	base     time.Duration
	ceiling  time.Duration
	factor   float64
	delay    time.Duration
	attempts int
}

func NewBackoff(base, ceiling time.Duration, factor float64) *Backoff {
	return &Backoff{base: base, ceiling: ceiling, factor: factor, delay: base}
}

// Next returns the delay for this attempt, within ±20% of the current step
// and never below base.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.attempts++
	spread := (rand.Float64()*2 - 1) * jitterRatio
	d := max(b.delay+time.Duration(spread*float64(b.delay)), b.base)

	b.delay = min(time.Duration(float64(b.delay)*b.factor), b.ceiling)
	return d
}

// Wait sleeps for Next() and returns false if ctx ended first.
func (b *Backoff) Wait(ctx context.Context) bool {
	t := time.NewTimer(b.Next())
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (b *Backoff) Reset() {
	b.mu.Lock()
	b.delay, b.attempts = b.base, 0
	b.mu.Unlock()
}

func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}
