package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	errs "ehgrab/pkg/errors"
)

// BackoffStrategy computes the delay before a retry attempt. Attempt
// numbering starts at 1.
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff grows the delay geometrically per attempt, capped at
// MaxDelay, with optional symmetric jitter so parallel workers retrying
// against the same host don't resume in lockstep.
type ExponentialBackoff struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64 // 0.0 to 1.0
}

// DefaultExponentialBackoff is the general-purpose curve: 1s, 2s, 4s...
// capped at 60s with 10% jitter.
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    1 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	mult := eb.Multiplier
	if mult <= 0 {
		mult = 2.0
	}

	delay := float64(eb.BaseDelay) * math.Pow(mult, float64(attempt-1))
	if eb.MaxDelay > 0 && delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}
	if eb.JitterFactor > 0 {
		delay += (rand.Float64()*2 - 1) * eb.JitterFactor * delay
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// ConstantBackoff waits the same delay every attempt. Tests use it to keep
// retry loops fast and deterministic.
type ConstantBackoff struct {
	Delay time.Duration
}

func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// Schedule picks a backoff per gallery-service error class. The service
// throttles hard once it starts answering 429s, and an impatient client
// earns a temporary IP ban, so rate-limit waits are an order of magnitude
// longer than ordinary network hiccups.
type Schedule struct {
	Network   BackoffStrategy
	RateLimit BackoffStrategy
	Server    BackoffStrategy
	Fallback  BackoffStrategy
}

// DefaultSchedule returns the per-class curves tuned for the gallery
// service.
func DefaultSchedule() *Schedule {
	return &Schedule{
		Network: &ExponentialBackoff{
			BaseDelay:    1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.2,
		},
		RateLimit: &ExponentialBackoff{
			BaseDelay:    30 * time.Second,
			MaxDelay:     5 * time.Minute,
			Multiplier:   1.5,
			JitterFactor: 0.3,
		},
		Server: &ExponentialBackoff{
			BaseDelay:    5 * time.Second,
			MaxDelay:     60 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		Fallback: DefaultExponentialBackoff(),
	}
}

// For returns the strategy for the given error's class. Untyped errors and
// unmapped classes get the fallback.
func (s *Schedule) For(err error) BackoffStrategy {
	var typed *errs.Error
	if errors.As(err, &typed) {
		switch typed.Type {
		case errs.ErrorTypeNetwork:
			if s.Network != nil {
				return s.Network
			}
		case errs.ErrorTypeRateLimit:
			if s.RateLimit != nil {
				return s.RateLimit
			}
		case errs.ErrorTypeServerError:
			if s.Server != nil {
				return s.Server
			}
		}
	}
	if s.Fallback != nil {
		return s.Fallback
	}
	return DefaultExponentialBackoff()
}

// sleep blocks for the delay or until the context is cancelled.
func sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
