package evidence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenpath/investigator/internal/apperrors"
)

func TestRetryOnce_SucceedsWithoutRetryingOnFirstTry(t *testing.T) {
	calls := 0
	err := retryOnce(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryOnce_RetriesATransientErrorExactlyOnce(t *testing.T) {
	calls := 0
	err := retryOnce(context.Background(), func() error {
		calls++
		if calls == 1 {
			return assert.AnError
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryOnce_FatalErrorIsNotRetried(t *testing.T) {
	calls := 0
	err := retryOnce(context.Background(), func() error {
		calls++
		return apperrors.NewRunError(apperrors.CodeProvider, "unauthorized", false, nil)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryOnce_CancelledContextSkipsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := retryOnce(ctx, func() error {
		calls++
		return assert.AnError
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
