package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoffSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), func() error {
		calls++
		return nil
	}, 3, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoffEventualSuccess(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, 5, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoffExhaustsAttempts(t *testing.T) {
	calls := 0
	wantErr := errors.New("persistent")
	err := RetryWithBackoff(context.Background(), func() error {
		calls++
		return wantErr
	}, 3, time.Millisecond)

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoffInvalidAttempts(t *testing.T) {
	err := RetryWithBackoff(context.Background(), func() error { return nil }, 0, time.Millisecond)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestRetryWithBackoffRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error {
		return errors.New("should not matter")
	}, 3, time.Minute)

	assert.ErrorIs(t, err, context.Canceled)
}
