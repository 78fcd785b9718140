package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a keyed token bucket: each key holds up to capacity tokens,
// refilled at refillPerSec.
type Limiter struct {
	capacity     float64
	refillPerSec float64
	now          func() time.Time

	mu sync.Mutex
	m  map[string]*bucket
}

func New(capacity int, refillPerSec float64) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	return &Limiter{
		capacity:     float64(capacity),
		refillPerSec: refillPerSec,
		now:          time.Now,
		m:            make(map[string]*bucket),
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = min(l.capacity, b.tokens+elapsed*l.refillPerSec)
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// RetryAfter is how long key waits for its next token.
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.m[key]
	if !ok || b.tokens >= 1 || l.refillPerSec <= 0 {
		return 0
	}
	return time.Duration((1 - b.tokens) / l.refillPerSec * float64(time.Second))
}

// Sweep drops buckets that have refilled completely, which are equivalent to absent ones.
func (l *Limiter) Sweep() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, b := range l.m {
		if b.tokens+now.Sub(b.last).Seconds()*l.refillPerSec >= l.capacity {
			delete(l.m, k)
			n++
		}
	}
	return n
}

// SweepEvery runs Sweep on every tick until ctx is done.
func (l *Limiter) SweepEvery(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Sweep()
		}
	}
}
