// internal/notify/lock/lock.go
package lock

import (
	"context"
	"time"

	"journal-notifier/internal/common/errors"
	"journal-notifier/internal/common/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease only when the caller still owns it, so a
// slow holder whose TTL already expired cannot free someone else's lease.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// LeaseLock is a cross-process try-lock backed by a Redis key with a TTL.
// The TTL guarantees release even when the holder crashes, which is why the
// scan guard uses a lease instead of a manually-released lock.
type LeaseLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger logger.Logger
}

func NewLeaseLock(client *redis.Client, key string, ttl time.Duration, log logger.Logger) *LeaseLock {
	return &LeaseLock{
		client: client,
		key:    key,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "scan_lock", "key": key}),
	}
}

// TryAcquire attempts to take the lease without blocking. On success it
// returns an owner token to pass to Release; ok=false means another instance
// holds the lease and this tick should be skipped.
func (l *LeaseLock) TryAcquire(ctx context.Context) (token string, ok bool, err error) {
	token = uuid.NewString()
	ok, err = l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return "", false, errors.NewLockUnavailableError(l.key, err.Error())
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release frees the lease if the token still owns it. Failures are logged,
// never propagated: the TTL bounds the damage of a missed release.
func (l *LeaseLock) Release(ctx context.Context, token string) {
	deleted, err := l.client.Eval(ctx, releaseScript, []string{l.key}, token).Int()
	if err != nil {
		l.logger.Warn("scan lock release failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if deleted == 0 {
		l.logger.Debug("scan lock already expired or re-acquired elsewhere", nil)
	}
}
