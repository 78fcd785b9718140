package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClockedLimiter(capacity int, refill float64) (*Limiter, *time.Time) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(capacity, refill)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiterBurstThenRefill(t *testing.T) {
	l, now := newClockedLimiter(3, 1)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("1.2.3.4"), "token %d", i)
	}
	assert.False(t, l.Allow("1.2.3.4"))
	assert.Equal(t, time.Second, l.RetryAfter("1.2.3.4"))

	// other keys have their own bucket
	assert.True(t, l.Allow("5.6.7.8"))

	*now = now.Add(1500 * time.Millisecond)
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))
	assert.Equal(t, 500*time.Millisecond, l.RetryAfter("1.2.3.4"))
}

func TestLimiterCapsAtCapacity(t *testing.T) {
	l, now := newClockedLimiter(2, 10)
	assert.True(t, l.Allow("k"))
	*now = now.Add(time.Hour)
	assert.True(t, l.Allow("k"))
	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))
}

func TestLimiterSweep(t *testing.T) {
	l, now := newClockedLimiter(2, 1)
	l.Allow("a")
	l.Allow("b")
	l.Allow("b")

	*now = now.Add(1500 * time.Millisecond)
	assert.Equal(t, 1, l.Sweep()) // a is full again, b is not
	*now = now.Add(time.Second)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, time.Duration(0), l.RetryAfter("b"))
}

func TestLimiterConcurrent(t *testing.T) {
	l := New(100, 0.0001)
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if l.Allow("shared") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, allowed)
}

func TestLimiterSweepEvery(t *testing.T) {
	l := New(1, 1000)
	require.True(t, l.Allow("a"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.SweepEvery(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.m) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SweepEvery did not stop")
	}
}
