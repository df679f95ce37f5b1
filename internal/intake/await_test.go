package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwaitWithTimeout_FirstAttemptDone(t *testing.T) {
	calls := 0
	got, err := awaitWithTimeout(context.Background(), time.Millisecond, 5, func(context.Context) (int, bool, error) {
		calls++
		return 42, true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 1, calls)
}

func TestAwaitWithTimeout_EventuallyDone(t *testing.T) {
	calls := 0
	got, err := awaitWithTimeout(context.Background(), time.Millisecond, 5, func(context.Context) (string, bool, error) {
		calls++
		if calls < 3 {
			return "", false, nil
		}
		return "ready", true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ready", got)
	assert.Equal(t, 3, calls)
}

func TestAwaitWithTimeout_BudgetExhausted(t *testing.T) {
	calls := 0
	_, err := awaitWithTimeout(context.Background(), time.Millisecond, 3, func(context.Context) (int, bool, error) {
		calls++
		return 0, false, nil
	})
	assert.ErrorIs(t, err, ErrProviderTimeout)
	assert.Equal(t, 3, calls)
}

func TestAwaitWithTimeout_ErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := awaitWithTimeout(context.Background(), time.Millisecond, 5, func(context.Context) (int, bool, error) {
		calls++
		return 0, false, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestAwaitWithTimeout_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := awaitWithTimeout(ctx, time.Minute, 2, func(context.Context) (int, bool, error) {
		return 0, false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAwaitWithTimeout_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, err := awaitWithTimeout(context.Background(), time.Millisecond, 0, func(context.Context) (int, bool, error) {
		calls++
		return 0, false, nil
	})
	assert.ErrorIs(t, err, ErrProviderTimeout)
	assert.Equal(t, 1, calls)
}
