package redis

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/clauselens/clauselens/pkg/errors"
)

var (
	ErrLockNotAcquired = errors.New(errors.ErrCodeConflict, "analysis lock not acquired")
	ErrLockNotHeld     = errors.New(errors.ErrCodeConflict, "analysis lock not held by this owner")
)

// unlockScript releases the lock only when the caller still owns it.
var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// AnalysisLock is a distributed mutex keyed by contract ID.  The worker takes
// it before running the structuring pipeline so a contract queued twice (for
// example via the inbox watcher and the Kafka topic) is analyzed once.
type AnalysisLock struct {
	client     *Client
	contractID uuid.UUID
	token      string
	ttl        time.Duration
}

// NewAnalysisLock builds a lock for one contract.  The TTL bounds how long a
// crashed worker can block re-analysis.
func NewAnalysisLock(client *Client, contractID uuid.UUID, ttl time.Duration) *AnalysisLock {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AnalysisLock{
		client:     client,
		contractID: contractID,
		token:      uuid.New().String(),
		ttl:        ttl,
	}
}

// TryAcquire attempts to take the lock without blocking.
func (l *AnalysisLock) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.client.raw().SetNX(ctx, l.key(), l.token, l.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "acquire analysis lock")
	}
	return ok, nil
}

// Acquire blocks until the lock is taken, the context is cancelled, or the
// retry budget runs out.
func (l *AnalysisLock) Acquire(ctx context.Context) error {
	const (
		retryDelay = 100 * time.Millisecond
		retryCount = 50
	)
	for i := 0; i < retryCount; i++ {
		ok, err := l.TryAcquire(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return ErrLockNotAcquired
}

// Release frees the lock if this instance still owns it.
func (l *AnalysisLock) Release(ctx context.Context) error {
	res, err := unlockScript.Run(ctx, l.client.raw(), []string{l.key()}, l.token).Result()
	if err != nil && !stderrors.Is(err, redis.Nil) {
		return errors.Wrap(err, errors.ErrCodeCacheError, "release analysis lock")
	}
	if n, ok := res.(int64); ok && n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Extend renews the TTL while a long analysis is still running.
func (l *AnalysisLock) Extend(ctx context.Context) (bool, error) {
	res, err := extendScript.Run(ctx, l.client.raw(), []string{l.key()}, l.token, l.ttl.Milliseconds()).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "extend analysis lock")
	}
	n, ok := res.(int64)
	return ok && n == 1, nil
}

func (l *AnalysisLock) key() string {
	return l.client.Key("lock", "analysis", l.contractID.String())
}
