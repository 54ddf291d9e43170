package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhoini/offline-cashier/pkg/logger"
)

var fastRetry = RetryConfig{MaxInterval: 5 * time.Millisecond, MaxElapsedTime: 2 * time.Second}

func TestWithRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetry, logger.Nop(), "test", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_StopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	connErr := errors.New("connection refused")
	err := WithRetry(ctx, fastRetry, logger.Nop(), "test", func(ctx context.Context) error {
		return connErr
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to test")
}
