package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRetry(t *testing.T) {
	connectBackoff = time.Millisecond
	t.Cleanup(func() { connectBackoff = 500 * time.Millisecond })

	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		err := retry(context.Background(), zerolog.Nop(), func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up", func(t *testing.T) {
		calls := 0
		err := retry(context.Background(), zerolog.Nop(), func(ctx context.Context) error {
			calls++
			return errors.New("connection refused")
		})
		assert.EqualError(t, err, "connection refused")
		assert.Equal(t, connectAttempts, calls)
	})

	t.Run("stops on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := retry(ctx, zerolog.Nop(), func(ctx context.Context) error {
			return errors.New("connection refused")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
