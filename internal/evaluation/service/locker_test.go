package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestLocker(t *testing.T) *RedisLocker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLocker(client)
}

func TestRedisLockerMutualExclusion(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()
	projectID := uuid.New()

	release, acquired, err := locker.Acquire(ctx, projectID, 1)
	if err != nil || !acquired {
		t.Fatalf("first acquire should succeed: acquired=%v err=%v", acquired, err)
	}

	_, acquired, err = locker.Acquire(ctx, projectID, 1)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if acquired {
		t.Fatal("second acquire of a held lock must fail")
	}

	release()

	_, acquired, err = locker.Acquire(ctx, projectID, 1)
	if err != nil || !acquired {
		t.Fatalf("acquire after release should succeed: acquired=%v err=%v", acquired, err)
	}
}

func TestRedisLockerScopedPerStage(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()
	projectID := uuid.New()

	_, acquired, err := locker.Acquire(ctx, projectID, 1)
	if err != nil || !acquired {
		t.Fatalf("acquire: acquired=%v err=%v", acquired, err)
	}

	// A different department of the same project is an independent lock.
	_, acquired, err = locker.Acquire(ctx, projectID, 2)
	if err != nil || !acquired {
		t.Fatalf("other department should acquire: acquired=%v err=%v", acquired, err)
	}

	// Same department of another project too.
	_, acquired, err = locker.Acquire(ctx, uuid.New(), 1)
	if err != nil || !acquired {
		t.Fatalf("other project should acquire: acquired=%v err=%v", acquired, err)
	}
}
