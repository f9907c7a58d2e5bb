package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "ehgrab/pkg/errors"
	"ehgrab/pkg/logger"
)

// Operation is a unit of work that may be attempted more than once.
type Operation func() error

// OperationWithResult is an Operation that also produces a value.
type OperationWithResult[T any] func() (T, error)

// Config controls how Do drives an operation.
type Config struct {
	// MaxAttempts bounds the total attempts. 0 means retry until the
	// context ends.
	MaxAttempts int
	// Backoff is the delay curve between attempts.
	Backoff BackoffStrategy
	// Schedule, when set, selects the curve per error class and takes
	// precedence over Backoff.
	Schedule *Schedule
	// RetryIf decides whether a failure is worth another attempt.
	RetryIf func(error) bool
	// OnRetry runs before each wait, after a failed attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
	// Context bounds the whole loop, including waits.
	Context context.Context
	Logger  logger.Logger
}

// DefaultConfig retries three times with the gallery-service schedule.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Schedule:    DefaultSchedule(),
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.GetLogger(),
	}
}

// DefaultRetryIf retries transient service failures and gives up on
// everything a repeat attempt cannot change. Disk-full and storage-not-ready
// conditions are terminal here: waiting does not free disk space or create
// the download directory.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	var typed *errs.Error
	if errors.As(err, &typed) {
		return errs.IsRetryable(typed.Type)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Untyped errors are usually transport-level; give them a chance.
	return true
}

// Do runs op until it succeeds, exhausts the attempt budget, fails
// terminally, or the context ends.
func Do(op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}

	var lastErr error
	for attempt := 1; cfg.MaxAttempts <= 0 || attempt <= cfg.MaxAttempts; attempt++ {
		err := op()
		if err == nil {
			if attempt > 1 && cfg.Logger != nil {
				cfg.Logger.DebugWithFields("Operation recovered", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		if !retryIf(err) {
			if cfg.Logger != nil {
				cfg.Logger.DebugWithFields("Giving up, error is terminal", map[string]interface{}{
					"attempt": attempt,
					"error":   err.Error(),
				})
			}
			return err
		}

		// Last permitted attempt just failed; don't wait for nothing.
		if cfg.MaxAttempts > 0 && attempt == cfg.MaxAttempts {
			break
		}

		delay := cfg.backoffFor(err).NextDelay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}
		if cfg.Logger != nil {
			cfg.Logger.WarnWithFields("Retrying after failure", map[string]interface{}{
				"attempt":  attempt,
				"delay_ms": delay.Milliseconds(),
				"error":    err.Error(),
			})
		}

		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}

	return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
}

// DoWithResult is Do for operations that produce a value.
func DoWithResult[T any](op OperationWithResult[T], cfg *Config) (T, error) {
	var result T
	err := Do(func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, cfg)
	return result, err
}

func (cfg *Config) backoffFor(err error) BackoffStrategy {
	if cfg.Schedule != nil {
		return cfg.Schedule.For(err)
	}
	if cfg.Backoff != nil {
		return cfg.Backoff
	}
	return DefaultExponentialBackoff()
}
