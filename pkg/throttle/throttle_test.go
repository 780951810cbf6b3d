package throttle_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/docuconvo/auth/pkg/throttle"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestAllow(t *testing.T) {
	t.Parallel()

	c := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := throttle.New(time.Minute, 2, throttle.WithClock(c.Now))

	assert.True(t, l.Allow("jane@example.com"))
	assert.True(t, l.Allow("JANE@example.com "), "keys are case-insensitive")
	assert.False(t, l.Allow("jane@example.com"), "burst exhausted")
	assert.True(t, l.Allow("bob@example.com"), "keys are independent")

	c.Advance(time.Minute)
	assert.True(t, l.Allow("jane@example.com"), "one token refilled")
	assert.False(t, l.Allow("jane@example.com"))
}

func TestSweep(t *testing.T) {
	t.Parallel()

	c := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := throttle.NewFromConfig(throttle.Config{Every: time.Minute, Burst: 1, Idle: 10 * time.Minute}, throttle.WithClock(c.Now))

	l.Allow("a")
	c.Advance(6 * time.Minute)
	l.Allow("b")
	assert.Equal(t, 2, l.Len())

	c.Advance(5 * time.Minute)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())

	assert.True(t, l.Allow("a"), "evicted key starts with a full bucket")
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Parallel()

	l := throttle.New(time.Second, 1, throttle.WithIdle(time.Nanosecond))
	l.Allow("x")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestRun_NonPositiveInterval(t *testing.T) {
	t.Parallel()

	l := throttle.New(time.Second, 1)
	for _, interval := range []time.Duration{0, -time.Second} {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			assert.NotPanics(t, func() { l.Run(ctx, interval) })
		}()
		cancel()
		<-done
	}
}
