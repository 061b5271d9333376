package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotHeld is returned when releasing a lock owned by another holder
var ErrLockNotHeld = errors.New("lock not held")

// RunLock is a Redis-backed mutual exclusion guard for scheduled runs.
// It keeps overlapping runs of the same job out of each other's way,
// including across multiple service instances.
type RunLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// NewRunLock creates a lock on the given key with a per-instance token
func NewRunLock(client *redis.Client, key string, ttl time.Duration) *RunLock {
	return &RunLock{
		client: client,
		key:    key,
		token:  uuid.New().String(),
		ttl:    ttl,
	}
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false otherwise.
func (l *RunLock) TryLock(ctx context.Context) (bool, error) {
	if l.client == nil {
		// No Redis configured, fall back to running unguarded
		return true, nil
	}
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return ok, nil
}

// Unlock releases the lock if it is held by this instance
func (l *RunLock) Unlock(ctx context.Context) error {
	if l.client == nil {
		return nil
	}

	// Atomically check and delete so another holder's lock survives
	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)

	result, err := script.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}
