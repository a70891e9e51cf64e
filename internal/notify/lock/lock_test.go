// internal/notify/lock/lock_test.go
package lock

import (
	"context"
	"testing"
	"time"

	"journal-notifier/internal/common/errors"
	"journal-notifier/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLock(t *testing.T, ttl time.Duration) (*LeaseLock, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewLeaseLock(client, "test:scan-lock", ttl, logger.NewTestLogger(t)), mr
}

func TestLeaseLock_TryAcquire_MutualExclusion(t *testing.T) {
	l, _ := newTestLock(t, 30*time.Second)
	ctx := context.Background()

	token, ok, err := l.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, token)

	// A second acquisition (another instance's tick) must be refused.
	_, ok, err = l.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// After release the lease is free again.
	l.Release(ctx, token)
	_, ok, err = l.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLeaseLock_Release_IgnoresForeignToken(t *testing.T) {
	l, mr := newTestLock(t, 30*time.Second)
	ctx := context.Background()

	token, ok, err := l.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// Releasing with the wrong token must not free the holder's lease.
	l.Release(ctx, "not-the-owner")
	assert.True(t, mr.Exists("test:scan-lock"))

	l.Release(ctx, token)
	assert.False(t, mr.Exists("test:scan-lock"))
}

func TestLeaseLock_TryAcquire_RedisDownReportsLockUnavailable(t *testing.T) {
	l, mr := newTestLock(t, 30*time.Second)
	mr.Close()

	_, ok, err := l.TryAcquire(context.Background())

	require.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, errors.ErrCodeLockUnavailable, errors.CodeOf(err))
}

func TestLeaseLock_TTLExpiryFreesCrashedHolder(t *testing.T) {
	l, mr := newTestLock(t, 2*time.Second)
	ctx := context.Background()

	_, ok, err := l.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// Simulate the holder crashing without releasing: the TTL elapses.
	mr.FastForward(3 * time.Second)

	_, ok, err = l.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}
