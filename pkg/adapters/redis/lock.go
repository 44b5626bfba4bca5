package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/intake/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// ErrLockAcquire wraps a backend failure while taking a user lock.
var ErrLockAcquire = errors.New("redis lock")

// retryEvery is how often a held user lock is polled.
const retryEvery = 100 * time.Millisecond

// unlockScript deletes KEYS[1] only while it holds the caller's token, so
// a lock that expired and was taken over survives a late unlock.
var unlockScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Locker serializes one user key across replicas. Keys are
// {prefix}lock:{userKey}.
type Locker struct {
	client *backend.Client
	prefix string
}

// NewLocker creates a locker over client.
func NewLocker(client *backend.Client, prefix string) *Locker {
	return &Locker{client: client, prefix: prefix}
}

// Lock implements ports.DistributedLocker. It polls until the key is free,
// ctx is done or redis fails.
func (l *Locker) Lock(ctx context.Context, userKey string, ttl time.Duration) (ports.UnlockFunc, error) {
	key := l.prefix + "lock:" + userKey
	token := uuid.NewString()

	var retry *time.Ticker
	for {
		held, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %v", ErrLockAcquire, err)
		}
		if held {
			break
		}
		if retry == nil {
			retry = time.NewTicker(retryEvery)
			defer retry.Stop()
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-retry.C:
		}
	}

	return func(ctx context.Context) error {
		return unlockScript.Run(ctx, l.client, []string{key}, token).Err()
	}, nil
}
