package service

import (
	"sync"
	"testing"
	"time"

	"downloadgateway/internal/model"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(requests, window int) (*RateLimitService, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	rls := NewRateLimitService(&model.RateLimitConfig{Enabled: true, Requests: requests, WindowSeconds: window})
	rls.now = clock.Now
	return rls, clock
}

func TestRateLimit_FixedWindow(t *testing.T) {
	rls, clock := newTestLimiter(3, 60)
	defer rls.Stop()

	for i := 0; i < 3; i++ {
		d := rls.Allow("client-a")
		assert.True(t, d.Allowed, "request %d", i+1)
		assert.Equal(t, 2-i, d.Remaining)
		assert.Equal(t, 3, d.Limit)
	}

	d := rls.Allow("client-a")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	// Other clients are independent
	assert.True(t, rls.Allow("client-b").Allowed)

	clock.Advance(60 * time.Second)
	assert.True(t, rls.Allow("client-a").Allowed)
}

func TestRateLimit_Disabled(t *testing.T) {
	rls := NewRateLimitService(&model.RateLimitConfig{Enabled: false, Requests: 1, WindowSeconds: 1})
	defer rls.Stop()

	for i := 0; i < 10; i++ {
		d := rls.Allow("x")
		assert.True(t, d.Allowed)
		assert.Equal(t, -1, d.Remaining)
	}
}

func TestRateLimit_CleanupDropsExpiredWindows(t *testing.T) {
	rls, clock := newTestLimiter(1, 10)
	defer rls.Stop()

	rls.Allow("a")
	clock.Advance(5 * time.Second)
	rls.Allow("b")
	assert.False(t, rls.Allow("b").Allowed)

	clock.Advance(6 * time.Second)
	assert.Equal(t, 1, rls.cleanup())

	clock.Advance(5 * time.Second)
	assert.Equal(t, 1, rls.cleanup())
	assert.Zero(t, rls.cleanup())
}

func TestRateLimit_Concurrent(t *testing.T) {
	rls, _ := newTestLimiter(50, 60)
	defer rls.Stop()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rls.Allow("shared").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}
