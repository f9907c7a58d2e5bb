package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	errs "ehgrab/pkg/errors"
)

func typedErr(t errs.ErrorType, code int) *errs.Error {
	return &errs.Error{Type: t, Message: "test", Code: code}
}

func TestExponentialBackoffCurve(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second}, // capped
		{6, 1 * time.Second},
		{0, 0},
	}

	for _, tt := range tests {
		if got := eb.NextDelay(tt.attempt); got != tt.want {
			t.Errorf("NextDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.2,
	}

	for i := 0; i < 50; i++ {
		d := eb.NextDelay(2)
		if d < 160*time.Millisecond || d > 240*time.Millisecond {
			t.Errorf("NextDelay(2) = %v, want within ±20%% of 200ms", d)
		}
	}
}

func TestDoRecoversAfterTransientFailure(t *testing.T) {
	attempts := 0
	err := Do(func() error {
		attempts++
		if attempts < 3 {
			return typedErr(errs.ErrorTypeNetwork, 0)
		}
		return nil
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		Context:     context.Background(),
	})

	if err != nil {
		t.Errorf("Expected recovery, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestDoStopsAtMaxAttempts(t *testing.T) {
	attempts := 0
	err := Do(func() error {
		attempts++
		return typedErr(errs.ErrorTypeServerError, 503)
	}, &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		Context:     context.Background(),
	})

	if err == nil {
		t.Error("Expected error after exhausting attempts")
	}
	if attempts != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", attempts)
	}
}

func TestDoAbortsOnDiskFull(t *testing.T) {
	// A full disk does not empty itself between attempts. The loop must
	// return the error from the first attempt without waiting.
	attempts := 0
	start := time.Now()
	err := Do(func() error {
		attempts++
		return typedErr(errs.ErrorTypeDiskFull, 0)
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: 500 * time.Millisecond},
		Context:     context.Background(),
	})

	if err == nil {
		t.Fatal("Expected the disk-full error to be returned")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Expected an immediate abort, took %v", elapsed)
	}

	var typed *errs.Error
	if !errors.As(err, &typed) || typed.Type != errs.ErrorTypeDiskFull {
		t.Errorf("Expected the original disk_full error, got %v", err)
	}
}

func TestDoAbortsOnStorageNotReady(t *testing.T) {
	// Storage that failed to initialize needs user action, not patience.
	attempts := 0
	err := Do(func() error {
		attempts++
		return typedErr(errs.ErrorTypeNotReady, 0)
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: 500 * time.Millisecond},
		Context:     context.Background(),
	})

	if err == nil {
		t.Fatal("Expected the not-ready error to be returned")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestDoAbortsOnAuthError(t *testing.T) {
	attempts := 0
	err := Do(func() error {
		attempts++
		return typedErr(errs.ErrorTypeAuth, 403)
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		Context:     context.Background(),
	})

	if err == nil {
		t.Fatal("Expected the auth error to be returned")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestDoCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(func() error {
			attempts++
			return typedErr(errs.ErrorTypeNetwork, 0)
		}, &Config{
			MaxAttempts: 10,
			Backoff:     &ConstantBackoff{Delay: 5 * time.Second},
			Context:     ctx,
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Expected a cancellation error")
		}
	case <-time.After(time.Second):
		t.Fatal("Do did not return after context cancellation")
	}

	if attempts != 1 {
		t.Errorf("Expected 1 attempt before cancellation, got %d", attempts)
	}
}

func TestDoUsesSchedulePerErrorClass(t *testing.T) {
	// Rate-limit failures must wait on the long curve even when network
	// failures in the same loop wait on the short one.
	sched := &Schedule{
		Network:   &ConstantBackoff{Delay: 1 * time.Millisecond},
		RateLimit: &ConstantBackoff{Delay: 7 * time.Millisecond},
		Fallback:  &ConstantBackoff{Delay: 3 * time.Millisecond},
	}

	var delays []time.Duration
	failures := []*errs.Error{
		typedErr(errs.ErrorTypeNetwork, 0),
		typedErr(errs.ErrorTypeRateLimit, 429),
	}

	attempts := 0
	err := Do(func() error {
		attempts++
		if attempts <= len(failures) {
			return failures[attempts-1]
		}
		return nil
	}, &Config{
		MaxAttempts: 5,
		Schedule:    sched,
		Context:     context.Background(),
		OnRetry: func(attempt int, err error, delay time.Duration) {
			delays = append(delays, delay)
		},
	})

	if err != nil {
		t.Fatalf("Expected recovery, got error: %v", err)
	}
	want := []time.Duration{1 * time.Millisecond, 7 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("Expected %d waits, got %d", len(want), len(delays))
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("Wait %d = %v, want %v", i+1, delays[i], want[i])
		}
	}
}

func TestScheduleFallback(t *testing.T) {
	sched := DefaultSchedule()

	if got := sched.For(typedErr(errs.ErrorTypeRateLimit, 429)); got != sched.RateLimit {
		t.Error("Expected the rate-limit curve for a rate_limit error")
	}
	if got := sched.For(fmt.Errorf("plain failure")); got != sched.Fallback {
		t.Error("Expected the fallback curve for an untyped error")
	}
	if got := sched.For(typedErr(errs.ErrorTypeUnknown, 0)); got != sched.Fallback {
		t.Error("Expected the fallback curve for an unmapped class")
	}
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	data, err := DoWithResult(func() ([]byte, error) {
		attempts++
		if attempts < 2 {
			return nil, typedErr(errs.ErrorTypeServerError, 502)
		}
		return []byte("page bytes"), nil
	}, &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		Context:     context.Background(),
	})

	if err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if string(data) != "page bytes" {
		t.Errorf("Expected result to survive the retry, got %q", data)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network", typedErr(errs.ErrorTypeNetwork, 0), true},
		{"rate limit", typedErr(errs.ErrorTypeRateLimit, 429), true},
		{"server error", typedErr(errs.ErrorTypeServerError, 503), true},
		{"auth", typedErr(errs.ErrorTypeAuth, 401), false},
		{"not found", typedErr(errs.ErrorTypeNotFound, 404), false},
		{"disk full", typedErr(errs.ErrorTypeDiskFull, 0), false},
		{"not ready", typedErr(errs.ErrorTypeNotReady, 0), false},
		{"context cancelled", context.Canceled, false},
		{"untyped", fmt.Errorf("connection reset"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultRetryIf(tt.err); got != tt.want {
				t.Errorf("DefaultRetryIf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
