package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T, clock *fakeClock, perMinute, perHour int) *Limiter {
	t.Helper()
	l := New(Config{
		PerMinute:     perMinute,
		PerHour:       perHour,
		Now:           clock.Now,
		SweepInterval: -1,
	}, nil)
	t.Cleanup(l.Stop)
	return l
}

func TestLimiter_MinuteWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	l := newTestLimiter(t, clock, 10, 100)

	for i := range 10 {
		d := l.TryAcquire("admin-1")
		require.True(t, d.Allowed, "call %d", i+1)
		assert.Equal(t, 10-(i+1), d.RemainingMinute)
		assert.Equal(t, 100-(i+1), d.RemainingHour)
	}

	d := l.TryAcquire("admin-1")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.RemainingMinute)
	assert.Equal(t, 90, d.RemainingHour)
	assert.Equal(t, time.Minute, d.RetryAfter)

	clock.Advance(59 * time.Second)
	d = l.TryAcquire("admin-1")
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Second, d.RetryAfter)

	clock.Advance(time.Second)
	d = l.TryAcquire("admin-1")
	assert.True(t, d.Allowed)
	assert.Equal(t, 9, d.RemainingMinute)
	// отклоненные вызовы квоту не расходуют
	assert.Equal(t, 89, d.RemainingHour)
}

func TestLimiter_HourWindow(t *testing.T) {
	start := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}
	l := newTestLimiter(t, clock, 10, 15)

	for range 10 {
		require.True(t, l.TryAcquire("admin-1").Allowed)
	}

	clock.Advance(time.Minute)
	for range 5 {
		require.True(t, l.TryAcquire("admin-1").Allowed)
	}

	d := l.TryAcquire("admin-1")
	assert.False(t, d.Allowed)
	assert.Equal(t, 5, d.RemainingMinute)
	assert.Equal(t, 0, d.RemainingHour)
	assert.Equal(t, 59*time.Minute, d.RetryAfter)

	clock.Advance(59 * time.Minute)
	d = l.TryAcquire("admin-1")
	assert.True(t, d.Allowed)
	assert.Equal(t, 14, d.RemainingHour)
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	l := newTestLimiter(t, clock, 2, 100)

	assert.True(t, l.TryAcquire("a").Allowed)
	assert.True(t, l.TryAcquire("a").Allowed)
	assert.False(t, l.TryAcquire("a").Allowed)

	assert.True(t, l.TryAcquire("b").Allowed)
	assert.Equal(t, 2, l.Len())
}

func TestLimiter_Defaults(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	l := New(Config{Now: clock.Now, SweepInterval: -1}, nil)
	defer l.Stop()

	d := l.TryAcquire("admin-1")
	require.True(t, d.Allowed)
	assert.Equal(t, DefaultPerMinute-1, d.RemainingMinute)
	assert.Equal(t, DefaultPerHour-1, d.RemainingHour)
}

func TestLimiter_Concurrent(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	l := newTestLimiter(t, clock, 50, 1000)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryAcquire("admin-1").Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), allowed.Load())

	// после отклонений счетчик часа отражает только разрешенные вызовы
	clock.Advance(time.Minute)
	d := l.TryAcquire("admin-1")
	require.True(t, d.Allowed)
	assert.Equal(t, 1000-51, d.RemainingHour)
}

func TestLimiter_Sweep(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	l := newTestLimiter(t, clock, 1, 100)

	require.True(t, l.TryAcquire("idle").Allowed)
	require.False(t, l.TryAcquire("idle").Allowed)

	clock.Advance(30 * time.Minute)
	require.True(t, l.TryAcquire("active").Allowed)
	assert.Equal(t, 0, l.sweep())
	assert.Equal(t, 2, l.Len())

	clock.Advance(30 * time.Minute)
	assert.Equal(t, 1, l.sweep())
	assert.Equal(t, 1, l.Len())

	// удаленный ключ начинает с чистых окон
	d := l.TryAcquire("idle")
	assert.True(t, d.Allowed)
	assert.Equal(t, 99, d.RemainingHour)
}

func TestLimiter_EvictedStateIsNotReused(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	l := newTestLimiter(t, clock, 5, 100)

	require.True(t, l.TryAcquire("admin-1").Allowed)
	stale := l.state("admin-1")

	clock.Advance(time.Hour)
	require.Equal(t, 1, l.sweep())

	stale.mu.Lock()
	assert.True(t, stale.evicted)
	stale.mu.Unlock()

	require.True(t, l.TryAcquire("admin-1").Allowed)
	assert.NotSame(t, stale, l.state("admin-1"))
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	l := New(Config{SweepInterval: time.Millisecond}, nil)
	assert.NotPanics(t, func() {
		l.Stop()
		l.Stop()
	})
}
