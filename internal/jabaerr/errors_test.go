package jabaerr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatusCode(t *testing.T) {
	cases := []struct {
		name string
		code int
		want Kind
	}{
		{"unauthorized", 401, KindAuth},
		{"forbidden", 403, KindAuth},
		{"rate limited", 429, KindRateLimited},
		{"server error", 500, KindTransientNetwork},
		{"bad gateway", 502, KindTransientNetwork},
		{"not found", 404, KindContract},
		{"bad request", 400, KindContract},
		{"ok", 200, KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyStatusCode(tc.code))
		})
	}
}

func TestErrorIsComparesKindOnly(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	a := New(KindTransientNetwork, "ListOpenMergeRequests", 503, cause)
	b := New(KindTransientNetwork, "CreateCommitStatus", 502, nil)
	c := New(KindAuth, "ListOpenMergeRequests", 401, cause)

	assert.True(t, a.Is(b))
	assert.False(t, a.Is(c))
	assert.True(t, errors.Is(a, b))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := New(KindDecode, "decode", 0, cause)
	assert.Equal(t, cause, errors.Unwrap(e))
	assert.ErrorIs(t, e, cause)
}

func TestErrorRetryable(t *testing.T) {
	retryable := []Kind{KindTransientNetwork, KindRateLimited}
	notRetryable := []Kind{KindAuth, KindDecode, KindConflict, KindContract, KindUnknown}

	for _, k := range retryable {
		e := New(k, "op", 0, nil)
		assert.Truef(t, e.Retryable(), "%s should be retryable", k)
	}
	for _, k := range notRetryable {
		e := New(k, "op", 0, nil)
		assert.Falsef(t, e.Retryable(), "%s should not be retryable", k)
	}
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, ShouldRetry(New(KindRateLimited, "op", 429, nil)))
	assert.False(t, ShouldRetry(New(KindAuth, "op", 401, nil)))
	assert.False(t, ShouldRetry(errors.New("plain error")))
}

func TestWithBackoffRetriesTransientThenSucceeds(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, Multiplier: 2}
	attempts := 0
	err := WithBackoff(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return New(KindTransientNetwork, "op", 503, nil)
		}
		return nil
	}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithBackoffStopsOnPermanentError(t *testing.T) {
	cfg := DefaultRetryConfig()
	attempts := 0
	permanent := New(KindAuth, "op", 401, nil)
	err := WithBackoff(context.Background(), func(ctx context.Context) error {
		attempts++
		return permanent
	}, cfg)
	assert.Equal(t, permanent, err)
	assert.Equal(t, 1, attempts)
}

func TestWithBackoffExhaustsRetries(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, Multiplier: 2}
	attempts := 0
	transient := New(KindTransientNetwork, "op", 503, nil)
	err := WithBackoff(context.Background(), func(ctx context.Context) error {
		attempts++
		return transient
	}, cfg)
	assert.Equal(t, transient, err)
	assert.Equal(t, cfg.MaxRetries+1, attempts)
}

func TestWithBackoffHonorsContextCancellation(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 5, InitialBackoff: 50 * time.Millisecond, MaxBackoff: time.Second, Multiplier: 2}
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := WithBackoff(ctx, func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			cancel()
		}
		return New(KindTransientNetwork, "op", 503, nil)
	}, cfg)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExponentialBackoffCapsAtMax(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: time.Second, MaxBackoff: 2 * time.Second, Multiplier: 10}
	d := ExponentialBackoff(5, cfg)
	assert.LessOrEqual(t, d, cfg.MaxBackoff)
	assert.GreaterOrEqual(t, d, time.Duration(0))
}
