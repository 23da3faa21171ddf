package service

import (
	"context"
	"fmt"
	"time"

	apperrors "discord-giveaway-bot/internal/common/errors"
)

// retryPolicy retries transient platform errors with linear backoff.
type retryPolicy struct {
	attempts int
	delay    time.Duration
	// retryable overrides apperrors.IsTransient when set.
	retryable func(error) bool
}

// rateLimitedOnly narrows the policy for calls that create something. A 5xx
// or a dropped connection may arrive after the platform already acted, so
// only requests refused up front are repeated.
func (p retryPolicy) rateLimitedOnly() retryPolicy {
	p.retryable = apperrors.IsRateLimited
	return p
}

func (p retryPolicy) do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.attempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.retryable
	if retryable == nil {
		retryable = apperrors.IsTransient
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry aborted after %d attempts: %w", attempt, lastErr)
		case <-time.After(p.delay * time.Duration(attempt)):
		}
	}
	return lastErr
}
