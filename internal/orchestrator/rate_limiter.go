package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// RateLimiter is a token-bucket limiter gating request starts to a
// target requests-per-second. A non-positive target disables limiting
// entirely so unconfigured runs never pay the lock/refill overhead.
type RateLimiter struct {
	tokens     float64
	maxTokens  float64
	lastRefill time.Time
	refillRate float64
	mu         sync.Mutex
	enabled    atomic.Bool
}

// NewRateLimiter builds a limiter for targetRPS, with burst capacity
// equal to one second's worth of tokens (clamped to [1, 10000]).
func NewRateLimiter(targetRPS float64) *RateLimiter {
	r := &RateLimiter{}

	if targetRPS <= 0 {
		r.enabled.Store(false)
		return r
	}

	maxTokens := targetRPS
	if maxTokens < 1 {
		maxTokens = 1
	}
	if maxTokens > 10000 {
		maxTokens = 10000
	}

	r.tokens = maxTokens
	r.maxTokens = maxTokens
	r.lastRefill = time.Now()
	r.refillRate = targetRPS
	r.enabled.Store(true)

	return r
}

// Acquire blocks until a token is available or ctx is done.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	if !r.enabled.Load() {
		return nil
	}

	for {
		waitDuration, done := func() (time.Duration, bool) {
			r.mu.Lock()
			defer r.mu.Unlock()

			if !r.enabled.Load() {
				return 0, true
			}

			r.refill()

			if r.tokens >= 1 {
				r.tokens--
				return 0, true
			}

			wait := time.Duration(float64(time.Second) / r.refillRate)
			if wait < 100*time.Microsecond {
				wait = 100 * time.Microsecond
			}
			return wait, false
		}()

		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitDuration):
		}
	}
}

func (r *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(r.lastRefill).Seconds()
	r.lastRefill = now

	r.tokens += elapsed * r.refillRate
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}
}

// Enabled reports whether the limiter is actively gating requests.
func (r *RateLimiter) Enabled() bool {
	return r.enabled.Load()
}

// InFlightLimiter caps how many requests may be outstanding at once,
// using a condition variable so Release wakes exactly the waiters it
// can admit rather than every goroutine polling in a loop.
type InFlightLimiter struct {
	maxInFlight int
	current     int
	mu          sync.Mutex
	cond        *sync.Cond
}

// NewInFlightLimiter builds a limiter admitting at most maxInFlight
// concurrent requests.
func NewInFlightLimiter(maxInFlight int) *InFlightLimiter {
	l := &InFlightLimiter{maxInFlight: maxInFlight}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Acquire blocks until a slot is free or ctx is done.
func (l *InFlightLimiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current >= l.maxInFlight {
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				l.cond.Broadcast()
			case <-done:
			}
		}()
		defer close(done)

		for l.current >= l.maxInFlight {
			l.cond.Wait()

			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}

	l.current++
	return nil
}

// TryAcquire takes a slot if one is immediately free.
func (l *InFlightLimiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current >= l.maxInFlight {
		return false
	}

	l.current++
	return true
}

// Release frees a slot and wakes one waiter, if any.
func (l *InFlightLimiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current > 0 {
		l.current--
	}
	l.cond.Signal()
}
