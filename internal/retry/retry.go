// Package retry wraps upstream calls in a bounded exponential backoff policy.
// Exhausting the policy is surfaced as *ExhaustedError.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/albapepper/scoracle-predict/internal/provider"
)

// ErrExhausted matches any *ExhaustedError.
var ErrExhausted = errors.New("retries exhausted")

// ExhaustedError reports that an operation failed on every allowed attempt.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrExhausted) true for any ExhaustedError.
func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }

// Policy bounds how hard an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of calls, including the first.
	// Zero or less retries until success or context cancellation.
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// Jitter is the randomization factor applied to each interval (0..1).
	Jitter float64
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     8,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		Multiplier:      2,
		Jitter:          0.2,
	}
}

func (p Policy) normalize() Policy {
	defaults := DefaultPolicy()
	if p.MaxAttempts < 0 {
		p.MaxAttempts = 0
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = defaults.InitialInterval
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = p.InitialInterval
	}
	if p.Multiplier < 1 {
		p.Multiplier = defaults.Multiplier
	}
	if p.Jitter < 0 || p.Jitter >= 1 {
		p.Jitter = 0
	}
	return p
}

func (p Policy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = p.Jitter
	return b
}

// IsPermanent reports whether retrying err cannot help.
func IsPermanent(err error) bool {
	return errors.Is(err, provider.ErrPermanent) || errors.Is(err, provider.ErrNoRows)
}

// Do calls fn until it succeeds, returns a permanent error, the context is
// done, or the policy's attempts run out. Each failed attempt that will be
// retried is logged at WARN.
func Do[T any](ctx context.Context, p Policy, op string, logger *slog.Logger, fn func(context.Context) (T, error)) (T, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p = p.normalize()

	attempts := 0
	permanent := false
	operation := func() (T, error) {
		attempts++
		v, err := fn(ctx)
		if err != nil && IsPermanent(err) {
			permanent = true
			return v, backoff.Permanent(err)
		}
		return v, err
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("upstream call failed, retrying",
			"op", op, "attempt", attempts, "backoff", wait.Round(time.Millisecond), "error", err)
	}

	v, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(p.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	if err == nil {
		return v, nil
	}
	if permanent || ctx.Err() != nil {
		return v, err
	}
	return v, &ExhaustedError{Op: op, Attempts: attempts, Err: err}
}
