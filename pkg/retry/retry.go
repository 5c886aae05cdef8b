// Package retry implements exponential backoff with jitter for
// transient failures (image fetches, LLM calls).
package retry

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

// Config defines retry behavior with exponential backoff.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64 // 0.0-1.0, +/- fraction of the delay
}

// DefaultConfig returns sensible defaults for network operations:
// 3 retries starting at 100ms, doubling up to 5s, with 10% jitter.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// applyJitter spreads delays to prevent synchronized retries.
func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

// Do executes fn with backoff, returning nil on success or the last
// error after all retries. Respects context cancellation while waiting.
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult executes fn with backoff and returns its result.
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var result T
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}
		result = r
		lastErr = err

		if attempt < cfg.MaxRetries {
			select {
			case <-time.After(applyJitter(delay, cfg.JitterFactor)):
				delay = time.Duration(float64(delay) * cfg.Multiplier)
				if delay > cfg.MaxDelay {
					delay = cfg.MaxDelay
				}
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}
	}

	return result, lastErr
}

// DoIfRetryable retries fn only while its error looks transient.
// Permanent failures (auth errors, rejected SQL, bad requests) return
// immediately instead of burning retries.
func DoIfRetryable(ctx context.Context, cfg *Config, fn func() error) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}

		if attempt < cfg.MaxRetries {
			select {
			case <-time.After(applyJitter(delay, cfg.JitterFactor)):
				delay = time.Duration(float64(delay) * cfg.Multiplier)
				if delay > cfg.MaxDelay {
					delay = cfg.MaxDelay
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return lastErr
}

// DoWithResultIfRetryable executes fn with backoff and returns its
// result, retrying only while the error looks transient.
func DoWithResultIfRetryable[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var result T
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}
		result = r
		lastErr = err

		if !IsRetryable(err) {
			return result, err
		}

		if attempt < cfg.MaxRetries {
			select {
			case <-time.After(applyJitter(delay, cfg.JitterFactor)):
				delay = time.Duration(float64(delay) * cfg.Multiplier)
				if delay > cfg.MaxDelay {
					delay = cfg.MaxDelay
				}
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}
	}

	return result, lastErr
}

// RetryableError lets errors declare their own retryability.
type RetryableError interface {
	error
	IsRetryable() bool
}

// IsRetryable reports whether an error is transient and worth retrying.
// Errors implementing RetryableError are asked directly; everything else
// is pattern-matched against known transient failure strings.
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
		"broken pipe",
		"no such host",
		"timeout",
		"timed out",
		"temporary failure",
		"i/o timeout",
		"network is unreachable",
		"429",
		"500",
		"502",
		"503",
		"504",
		"rate limit",
		"service unavailable",
		"too many requests",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
