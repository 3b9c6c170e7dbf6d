package redisclient

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutexLocker_SerializesSameKey(t *testing.T) {
	locker := NewMutexLocker()
	practitioner := uuid.New()

	const workers = 16

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithScheduleLock(context.Background(), practitioner, "2026-03-02", func(context.Context) error {
				// Unsynchronized on purpose; the lock is the only guard.
				counter++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestMutexLocker_DistinctKeysDoNotBlock(t *testing.T) {
	locker := NewMutexLocker()
	practitioner := uuid.New()

	// Hold the lock for one day and take another day's lock inside it. This
	// deadlocks unless keys are independent.
	err := locker.WithScheduleLock(context.Background(), practitioner, "2026-03-02", func(ctx context.Context) error {
		return locker.WithScheduleLock(ctx, practitioner, "2026-03-03", func(context.Context) error {
			return nil
		})
	})
	require.NoError(t, err)
}

func TestMutexLocker_CancelledContext(t *testing.T) {
	locker := NewMutexLocker()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := locker.WithScheduleLock(ctx, uuid.New(), "2026-03-02", func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
