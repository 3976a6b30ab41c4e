package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvokeRetriesTransientFailures(t *testing.T) {
	calls := 0
	err := Invoke(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestInvokeExhaustsAttempts(t *testing.T) {
	boom := errors.New("still broken")
	calls := 0
	err := Invoke(context.Background(), func() error {
		calls++
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, MaxInvocationAttempts, calls)
}

func TestInvokeHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Invoke(ctx, func() error {
		calls++
		return errors.New("never retried")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}
