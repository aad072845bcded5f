package retry

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

// Backoff computes the wait before the given retry attempt (1-based).
type Backoff func(attempt int) time.Duration

// Linear returns a backoff that grows by a fixed step each attempt:
// step, 2*step, 3*step, ...
func Linear(step time.Duration) Backoff {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

// Exponential returns a backoff that doubles from initial up to max.
func Exponential(initial, max time.Duration) Backoff {
	return func(attempt int) time.Duration {
		d := initial
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= max {
				return max
			}
		}
		if d > max {
			return max
		}
		return d
	}
}

// Config defines retry behavior shared across call sites.
type Config struct {
	MaxAttempts  int     // total attempts including the first
	Backoff      Backoff // wait between attempts
	JitterFactor float64 // 0.0-1.0, +/- proportional jitter on each wait
}

// DefaultConfig returns the policy used for datasource operations:
// 3 attempts with 250ms linear backoff and 10% jitter.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:  3,
		Backoff:      Linear(250 * time.Millisecond),
		JitterFactor: 0.1,
	}
}

func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

// DoWithResult executes fn until it succeeds or attempts are exhausted,
// returning both result and error. Respects context cancellation during
// wait periods. Useful for constructors like pgxpool.NewWithConfig.
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var result T
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}
		result = r
		lastErr = err

		if attempt < cfg.MaxAttempts {
			select {
			case <-time.After(applyJitter(cfg.Backoff(attempt), cfg.JitterFactor)):
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}
	}
	return result, lastErr
}

// DoIfRetryable executes fn until it succeeds or attempts are exhausted,
// but gives up immediately on errors that are not transient (bad SQL, auth
// failures), so retries are not wasted.
func DoIfRetryable(ctx context.Context, cfg *Config, fn func() error) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}

		if attempt < cfg.MaxAttempts {
			select {
			case <-time.After(applyJitter(cfg.Backoff(attempt), cfg.JitterFactor)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

// RetryableError lets an error declare its own retryability.
type RetryableError interface {
	error
	IsRetryable() bool
}

// IsRetryable reports whether an error is transient and worth retrying.
// Errors implementing RetryableError decide for themselves; everything else
// is pattern-matched against known transient database/network failures.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if r, ok := err.(RetryableError); ok {
		return r.IsRetryable()
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"connection refused",
		"connection reset",
		"connection timed out",
		"broken pipe",
		"no such host",
		"timeout",
		"timed out",
		"temporary failure",
		"too many connections",
		"too many clients",
		"deadlock",
		"i/o timeout",
		"network is unreachable",
		"unexpected eof",
		"server closed the connection",
		"cannot acquire",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
