package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// submitLockTTL bounds how long a submission lock can outlive a crashed
// process. A submission finishes in well under this.
const submitLockTTL = 30 * time.Second

// StageLocker serializes evaluation submissions for one (project, department)
// pair across processes.
type StageLocker interface {
	Acquire(ctx context.Context, projectID uuid.UUID, departmentNumber int) (release func(), acquired bool, err error)
}

// RedisLocker implements StageLocker with a Redis SET NX lock.
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker creates a Redis-backed stage locker.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

var _ StageLocker = (*RedisLocker)(nil)

// Acquire takes the submission lock for one stage. When acquired is false
// another submission for the same stage is already in flight.
func (l *RedisLocker) Acquire(ctx context.Context, projectID uuid.UUID, departmentNumber int) (func(), bool, error) {
	key := lockKey(projectID, departmentNumber)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, submitLockTTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire submit lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// Release only our own token so an expired lock re-acquired by
		// another process is never deleted by mistake.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		l.client.Eval(releaseCtx, releaseScript, []string{key}, token)
	}
	return release, true, nil
}

// MemoryLocker is an in-process StageLocker for deployments without Redis.
// It only guards against concurrent submissions within a single process.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryLocker creates an in-process stage locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

var _ StageLocker = (*MemoryLocker)(nil)

func (l *MemoryLocker) Acquire(_ context.Context, projectID uuid.UUID, departmentNumber int) (func(), bool, error) {
	key := lockKey(projectID, departmentNumber)

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.held[key]; taken {
		return nil, false, nil
	}
	l.held[key] = struct{}{}

	release := func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}
	return release, true, nil
}

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

func lockKey(projectID uuid.UUID, departmentNumber int) string {
	return fmt.Sprintf("evaluation:submit:%s:%d", projectID, departmentNumber)
}
