package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another holder owns the lock
var ErrLockHeld = errors.New("lock held by another run")

// releaseScript deletes the key only if it still carries our token, so a
// holder whose TTL expired cannot release a lock someone else took since.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Locker hands out named mutual-exclusion locks backed by SET NX PX
// ⭐ SSOT: 분산 락은 여기서만
type Locker struct {
	client *Client
	prefix string
}

// Lock is a held lock. Release is safe to call more than once.
type Lock struct {
	locker *Locker
	key    string
	token  string
}

// NewLocker creates a new locker
func NewLocker(client *Client, prefix string) *Locker {
	return &Locker{client: client, prefix: prefix}
}

// Acquire takes the named lock for ttl. When Redis is disabled it always
// succeeds and the returned lock is inert.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lock, error) {
	key := fmt.Sprintf("%s:lock:%s", l.prefix, name)
	lock := &Lock{locker: l, key: key, token: uuid.NewString()}

	if !l.client.Enabled() {
		return lock, nil
	}

	ok, err := l.client.Redis().SetNX(ctx, key, lock.token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrLockHeld)
	}

	return lock, nil
}

// Release frees the lock if this holder still owns it
func (lk *Lock) Release(ctx context.Context) error {
	if lk == nil || !lk.locker.client.Enabled() {
		return nil
	}

	if err := releaseScript.Run(ctx, lk.locker.client.Redis(), []string{lk.key}, lk.token).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", lk.key, err)
	}
	return nil
}
