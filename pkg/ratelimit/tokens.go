package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

const (
	// jitterFactor spreads waiting callers out by ±20% so that several
	// workers blocked on the same bucket don't retry in lockstep.
	jitterFactor = 0.2

	// minWait is the floor for any computed sleep, preventing busy
	// looping when the deficit is tiny.
	minWait = 10 * time.Millisecond
)

// TokenBucket paces API calls against the gallery service. Tokens refill
// continuously at a fixed rate and are consumed one per call. Acquire never
// denies a caller; it only delays. Callers are not served in strict order --
// each computes its own wait independently, which is acceptable at API call
// rates.
type TokenBucket struct {
	burst      float64 // maximum token count
	rate       float64 // tokens added per second
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a bucket that starts full.
func NewTokenBucket(burst float64, ratePerSecond float64) *TokenBucket {
	return &TokenBucket{
		burst:      burst,
		rate:       ratePerSecond,
		tokens:     burst,
		lastRefill: time.Now(),
	}
}

// Acquire consumes one token, sleeping until enough have accrued. After the
// sleep the token is force-consumed even if scheduling jitter made the sleep
// undershoot, flooring the count at zero rather than strictly enforcing the
// rate. The only error returned is the context's.
func (tb *TokenBucket) Acquire(ctx context.Context) error {
	tb.mu.Lock()
	tb.refill()

	if tb.tokens >= 1 {
		tb.tokens--
		tb.mu.Unlock()
		return nil
	}

	deficit := 1 - tb.tokens
	wait := time.Duration(deficit / tb.rate * float64(time.Second))
	// Symmetric jitter in [-20%, +20%].
	jitter := time.Duration((rand.Float64()*2 - 1) * jitterFactor * float64(wait))
	wait += jitter
	if wait < minWait {
		wait = minWait
	}
	tb.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}

	tb.mu.Lock()
	tb.refill()
	tb.tokens--
	if tb.tokens < 0 {
		tb.tokens = 0
	}
	tb.mu.Unlock()
	return nil
}

// Tokens reports the current token count after a refill.
func (tb *TokenBucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return tb.tokens
}

// Reset restores the bucket to full capacity.
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.tokens = tb.burst
	tb.lastRefill = time.Now()
}

// refill accrues tokens for the time elapsed since the last refill, capped
// at the burst capacity. Caller must hold mu.
func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.lastRefill = now

	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.burst {
		tb.tokens = tb.burst
	}
}
