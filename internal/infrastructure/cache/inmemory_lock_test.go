package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clinic-ledger/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryLock_TryLock(t *testing.T) {
	ctx := context.Background()
	lock := NewInMemoryLock()

	token, ok, err := lock.TryLock(ctx, "tick", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = lock.TryLock(ctx, "tick", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held key cannot be acquired")

	_, ok, err = lock.TryLock(ctx, "other", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")

	require.NoError(t, lock.Unlock(ctx, "tick", token))

	_, ok, err = lock.TryLock(ctx, "tick", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInMemoryLock_Expiry(t *testing.T) {
	ctx := context.Background()
	lock := NewInMemoryLock()
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	lock.now = func() time.Time { return now }

	stale, ok, err := lock.TryLock(ctx, "tick", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)

	fresh, ok, err := lock.TryLock(ctx, "tick", time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "expired lease is taken over")

	assert.ErrorIs(t, lock.Unlock(ctx, "tick", stale), ErrLockNotHeld, "old owner cannot release the new lease")
	assert.NoError(t, lock.Unlock(ctx, "tick", fresh))
	assert.ErrorIs(t, lock.Unlock(ctx, "tick", fresh), ErrLockNotHeld)
}

func TestInMemoryLock_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := NewInMemoryLock().TryLock(ctx, "tick", time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)
}

func TestInMemoryLock_ConcurrentAcquire(t *testing.T) {
	lock := NewInMemoryLock()
	var winners atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := lock.TryLock(context.Background(), "tick", time.Minute); ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestLockFactory_CreateLock(t *testing.T) {
	t.Run("redis disabled", func(t *testing.T) {
		lock, err := NewLockFactory(config.RedisConfig{}).CreateLock(context.Background())
		require.NoError(t, err)
		assert.IsType(t, &InMemoryLock{}, lock)
	})

	unreachable := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	t.Run("redis unreachable without fallback", func(t *testing.T) {
		_, err := NewLockFactory(unreachable).CreateLock(context.Background())
		assert.Error(t, err)
	})

	t.Run("redis unreachable with fallback", func(t *testing.T) {
		lock, err := NewLockFactory(unreachable, WithInMemoryFallback(true)).CreateLock(context.Background())
		require.NoError(t, err)
		assert.IsType(t, &InMemoryLock{}, lock)
	})
}
