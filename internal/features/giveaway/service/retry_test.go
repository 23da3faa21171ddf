package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "discord-giveaway-bot/internal/common/errors"
)

func countingCall(calls *int, err error) func(context.Context) error {
	return func(context.Context) error {
		*calls++
		return err
	}
}

func TestRetryPolicy(t *testing.T) {
	policy := retryPolicy{attempts: 3}
	serverErr := apperrors.NewTransientPlatformError("op", errors.New("502"))
	limited := apperrors.NewRateLimitedError("op", errors.New("429"))
	permanent := apperrors.NewPlatformError("op", errors.New("403"))

	cases := []struct {
		name   string
		policy retryPolicy
		err    error
		calls  int
	}{
		{"server error retried", policy, serverErr, 3},
		{"rate limit retried", policy, limited, 3},
		{"permanent not retried", policy, permanent, 1},
		{"server error not repeated for creates", policy.rateLimitedOnly(), serverErr, 1},
		{"rate limit repeated for creates", policy.rateLimitedOnly(), limited, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			err := tc.policy.do(context.Background(), countingCall(&calls, tc.err))
			assert.ErrorIs(t, err, tc.err)
			assert.Equal(t, tc.calls, calls)
		})
	}
}

func TestRetryPolicy_StopsOnSuccess(t *testing.T) {
	calls := 0
	err := retryPolicy{attempts: 5}.do(context.Background(), func(context.Context) error {
		calls++
		if calls < 2 {
			return apperrors.NewRateLimitedError("op", errors.New("429"))
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}
