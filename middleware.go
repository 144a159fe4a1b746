package xexec

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// StepInfo describes the work item a Step is about to run.
type StepInfo struct {
	Bus         BusKind
	PayloadType string
	Seq         uint64
	Name        string
	Priority    int
	Extra       []int
}

// Step runs one work item. Middlewares see it without the payload type.
type Step func(ctx context.Context, info StepInfo) error

// Middleware composes processing concerns around a Step.
type Middleware func(next Step) Step

// RetryConfig controls retry behavior for work item middleware.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first execution.
	MaxAttempts int
	// Backoff computes the base wait before the next attempt (e.g., exponential backoff).
	Backoff func(attempt int) time.Duration
	// RetryIf, when provided, returns true if the error should be retried.
	// If nil, all errors are retried (bounded by MaxAttempts).
	RetryIf func(err error) bool
	// Jitter adds up to [0, Jitter] random delay to the base backoff.
	Jitter time.Duration
}

// RetryMiddleware provides bounded, selective retries around a work item. The
// wait happens inside the item, so later items of the chain keep waiting for it.
func RetryMiddleware(cfg RetryConfig) Middleware {
	return func(next Step) Step {
		return func(ctx context.Context, info StepInfo) error {
			var lastErr error
			attempts := cfg.MaxAttempts
			if attempts < 1 {
				attempts = 1
			}
			shouldRetry := cfg.RetryIf
			if shouldRetry == nil {
				shouldRetry = func(error) bool { return true }
			}
			for i := 1; i <= attempts; i++ {
				lastErr = next(ctx, info)
				if lastErr == nil {
					return nil
				}
				if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return lastErr
				}
				// panics are programming errors, retrying them only repeats the panic
				if i == attempts || errors.Is(lastErr, ErrWorkPanic) || !shouldRetry(lastErr) {
					return lastErr
				}
				if cfg.Backoff != nil {
					wait := cfg.Backoff(i)
					if cfg.Jitter > 0 {
						wait += time.Duration(rand.Int63n(int64(cfg.Jitter)))
					}
					select {
					case <-ctx.Done():
						return lastErr
					case <-time.After(wait):
					}
				}
			}
			return lastErr
		}
	}
}

// DeadlineMiddleware hands each work item a context that expires after d. Work
// items are never interrupted; they are expected to observe ctx themselves.
func DeadlineMiddleware(d time.Duration) Middleware {
	if d <= 0 {
		return func(next Step) Step { return next }
	}
	return func(next Step) Step {
		return func(ctx context.Context, info StepInfo) error {
			tctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(tctx, info)
		}
	}
}

// RecoveryMiddleware converts panics into errors wrapping ErrWorkPanic. The
// executor always recovers at its boundary; this is for steps run elsewhere.
func RecoveryMiddleware() Middleware {
	return func(next Step) Step {
		return func(ctx context.Context, info StepInfo) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %v", ErrWorkPanic, r)
				}
			}()
			return next(ctx, info)
		}
	}
}

// Compose wraps s in mws, first middleware outermost.
func Compose(s Step, mws ...Middleware) Step {
	if len(mws) == 0 {
		return s
	}
	wrapped := s
	// Apply in reverse so that first middleware wraps last.
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		wrapped = mws[i](wrapped)
	}
	return wrapped
}
