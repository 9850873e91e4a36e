package store

import (
	"context"
	"errors"
	"time"
)

// RetryableError wraps an error to indicate it should trigger a retry.
type RetryableError struct{ Err error }

// Retryable wraps an error as a RetryableError.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// Error returns the error message of the wrapped error.
func (e *RetryableError) Error() string { return e.Err.Error() }

// Unwrap returns the wrapped error.
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable checks if an error is wrapped with RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// retryPolicy bounds how often a backend re-pings a server that is not up
// yet, such as a database container started alongside the CLI.
type retryPolicy struct {
	attempts int
	delay    time.Duration // doubled after every attempt
}

var defaultRetry = retryPolicy{attempts: 3, delay: time.Second}

// connect calls ping until it succeeds, fails with an error not marked
// Retryable, or the attempts run out. The last error is returned unwrapped.
func (o options) connect(ctx context.Context, backend string, ping func(context.Context) error) error {
	delay := o.retry.delay
	var err error
	for attempt := 1; ; attempt++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt >= o.retry.attempts {
			break
		}
		o.logger.Warn("store unreachable, retrying", "backend", backend, "attempt", attempt, "in", delay, "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	var re *RetryableError
	if errors.As(err, &re) {
		return re.Err
	}
	return err
}
