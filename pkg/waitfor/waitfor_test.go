package waitfor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntilImmediate(t *testing.T) {
	var calls int32
	err := Until(context.Background(), 5, time.Millisecond, func() bool {
		atomic.AddInt32(&calls, 1)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls)
}

func TestUntilEventually(t *testing.T) {
	var calls int32
	err := Until(context.Background(), 10, time.Millisecond, func() bool {
		return atomic.AddInt32(&calls, 1) >= 3
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls)
}

func TestUntilExhausted(t *testing.T) {
	var calls int32
	err := Until(context.Background(), 4, time.Millisecond, func() bool {
		atomic.AddInt32(&calls, 1)
		return false
	})

	var timeout *ErrTimeout
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, 4, timeout.Attempts)
	// 4 polls inside the loop plus the final check after the budget.
	assert.Equal(t, int32(5), calls)
}

func TestUntilContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Until(ctx, 100, time.Second, func() bool { return false })
	require.ErrorIs(t, err, context.Canceled)
}
