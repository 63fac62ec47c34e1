package jabaerr

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryConfig holds exponential-backoff retry parameters, identical in
// shape to the teacher's RetryConfig.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultRetryConfig mirrors the teacher's defaults, tuned down slightly
// since review-service calls happen once per tick rather than per LLM
// completion.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Second,
		MaxBackoff:     16 * time.Second,
		Multiplier:     2.0,
	}
}

// ExponentialBackoff calculates wait time with ±25% jitter, capped at
// MaxBackoff (teacher's formula, unchanged).
func ExponentialBackoff(attempt int, cfg RetryConfig) time.Duration {
	backoff := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt))
	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}
	jitterRange := 0.25 * backoff
	jitter := (rand.Float64() * 2 * jitterRange) - jitterRange
	result := backoff + jitter
	if result > float64(cfg.MaxBackoff) {
		result = float64(cfg.MaxBackoff)
	}
	if result < 0 {
		result = 0
	}
	return time.Duration(result)
}

// ShouldRetry reports whether err is a *Error whose Kind the client's own
// loop should retry.
func ShouldRetry(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return false
}

// Operation is a retryable unit of work.
type Operation func(ctx context.Context) error

// WithBackoff runs op with exponential-backoff retry, the same control flow
// as the teacher's RetryWithBackoff.
func WithBackoff(ctx context.Context, op Operation, cfg RetryConfig) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !ShouldRetry(err) {
			return err
		}
		if attempt >= cfg.MaxRetries {
			return err
		}
		select {
		case <-time.After(ExponentialBackoff(attempt, cfg)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
