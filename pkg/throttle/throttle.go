// Package throttle keeps one token-bucket limiter per key (an email address,
// a client IP) and evicts limiters that have been idle for a while.
package throttle

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config is the environment-driven limiter configuration.
type Config struct {
	Every time.Duration `env:"SIGNIN_THROTTLE_EVERY" envDefault:"1m"`
	Burst int           `env:"SIGNIN_THROTTLE_BURST" envDefault:"3"`
	Idle  time.Duration `env:"SIGNIN_THROTTLE_IDLE" envDefault:"30m"`
}

type entry struct {
	limiter *rate.Limiter
	seen    time.Time
}

// Limiter is a keyed set of rate.Limiters. The zero value is not usable.
type Limiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithIdle sets how long an unused key is kept. Defaults to 30 minutes.
func WithIdle(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.idle = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New allows burst events at once per key, refilled one every interval.
func New(every time.Duration, burst int, opts ...Option) *Limiter {
	l := &Limiter{
		limit:   rate.Every(every),
		burst:   max(burst, 1),
		idle:    30 * time.Minute,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewFromConfig builds a Limiter from cfg.
func NewFromConfig(cfg Config, opts ...Option) *Limiter {
	return New(cfg.Every, cfg.Burst, append([]Option{WithIdle(cfg.Idle)}, opts...)...)
}

// Allow reports whether an event for key may happen now and records it.
// Keys are compared case-insensitively.
func (l *Limiter) Allow(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	now := l.now()

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.seen = now
	l.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// Sweep drops keys not seen within the idle window and returns how many were removed.
func (l *Limiter) Sweep() int {
	cutoff := l.now().Add(-l.idle)

	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, e := range l.entries {
		if e.seen.Before(cutoff) {
			delete(l.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// DefaultSweepInterval is used when Run gets a non-positive interval.
const DefaultSweepInterval = 5 * time.Minute

// Run sweeps every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	t := time.NewTicker(interval)
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
