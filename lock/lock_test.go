package lock

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpinLock(t *testing.T) {
	l := NewSpinLock()
	n := 0
	wg := sync.WaitGroup{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				l.Lock()
				n++
				l.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 8000, n)
}

func TestSpinLockTryLock(t *testing.T) {
	var l SpinLock
	assert.True(t, l.TryLock())
	assert.False(t, l.TryLock())

	acquired := make(chan struct{})
	released := make(chan struct{})
	go func() {
		l.Lock()
		close(acquired)
		l.Unlock()
		close(released)
	}()
	select {
	case <-acquired:
		t.Fatal("Lock succeeded while held")
	case <-time.After(20 * time.Millisecond):
	}
	l.Unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("Lock not acquired after Unlock")
	}
	<-released
	assert.Panics(t, func() { l.Unlock() })
}

func TestGeneLockEntityUnique(t *testing.T) {
	a, b := GeneLockEntity(), GeneLockEntity()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func testRedis(t *testing.T) redis.Cmdable {
	addr := os.Getenv("WINTIMER_TEST_REDIS")
	if addr == "" {
		t.Skip("WINTIMER_TEST_REDIS not set")
	}
	cli := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { cli.Close() })
	return cli
}

func TestRedLockExclusive(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()
	key := "wintimer:test:lock:" + GeneLockEntity()

	a := NewRedLock(rdb, GeneLockEntity())
	b := NewRedLock(rdb, GeneLockEntity())

	ok, err := a.TryLock(ctx, key, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.TryLock(ctx, key, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, b.Refresh(ctx, key, time.Second), ErrNotOwner)
	assert.NoError(t, a.Refresh(ctx, key, 2*time.Second))

	released, err := b.UnLock(ctx, key)
	require.NoError(t, err)
	assert.False(t, released)

	released, err = a.UnLock(ctx, key)
	require.NoError(t, err)
	assert.True(t, released)
}
