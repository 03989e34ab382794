// Package retry wraps calls against external services in bounded
// exponential backoff. Transient failures (network errors, rate limits,
// server errors) are retried up to a configured attempt limit with the
// delay doubling from a base up to a cap, plus a small random jitter so
// concurrent clients do not hammer the backend in lockstep. Non-transient
// failures (permission denied, not found, bad request) propagate
// immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds retry configuration for a class of external calls.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first
	// (default: 5).
	MaxAttempts int

	// BaseDelay is the delay before the second attempt; it doubles on
	// each subsequent attempt (default: 1s).
	BaseDelay time.Duration

	// MaxDelay caps the backoff delay (default: 60s).
	MaxDelay time.Duration

	// Jitter is the maximum random duration added to each delay to avoid
	// thundering-herd retries (default: 250ms).
	Jitter time.Duration
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 5,
		BaseDelay:   1 * time.Second,
		MaxDelay:    60 * time.Second,
		Jitter:      250 * time.Millisecond,
	}
}

// withDefaults fills in zero fields so a partially specified config is
// still usable.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = def.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
	return c
}

// transientError marks an error as retryable.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps an error to mark it as a retryable, transient failure.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// FatalError is returned when retries are exhausted or a non-transient
// failure occurs. It carries the number of attempts actually made.
type FatalError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsTransient reports whether an error should be retried. Errors wrapped
// with Transient always are; otherwise the error text is inspected for
// rate-limit, server-error, and network failure signatures the external
// SDKs surface as plain errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	// Rate limits (429) are retryable.
	if strings.Contains(errStr, "429") || strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "quota exceeded") {
		return true
	}

	// Server errors (5xx) are retryable.
	if strings.Contains(errStr, "500") || strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") || strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "bad gateway") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "gateway timeout") {
		return true
	}

	// Network/connection errors are retryable.
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "network") {
		return true
	}

	// Everything else - permission denied, not found, malformed request -
	// will not succeed on retry.
	return false
}

// Do executes fn with bounded exponential backoff. On success it returns
// nil. A non-transient error propagates immediately, wrapped in a
// FatalError carrying the attempt count; exhausted retries escalate the
// last transient error the same way.
func Do(ctx context.Context, cfg Config, logger *zap.Logger, op string, fn func(context.Context) error) error {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("call succeeded after retries",
					zap.String("op", op),
					zap.Int("attempts", attempt))
			}
			return nil
		}
		lastErr = err

		if !IsTransient(err) {
			return &FatalError{Op: op, Attempts: attempt, Err: err}
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		if ctx.Err() != nil {
			return &FatalError{Op: op, Attempts: attempt, Err: ctx.Err()}
		}

		wait := delay
		if cfg.Jitter > 0 {
			wait += time.Duration(rand.Int63n(int64(cfg.Jitter)))
		}
		logger.Warn("transient failure, backing off",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.Duration("backoff", wait),
			zap.Error(err))

		select {
		case <-time.After(wait):
			delay *= 2
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		case <-ctx.Done():
			return &FatalError{Op: op, Attempts: attempt, Err: ctx.Err()}
		}
	}

	return &FatalError{Op: op, Attempts: cfg.MaxAttempts, Err: lastErr}
}
