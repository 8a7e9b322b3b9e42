package clock

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fixkme/wintimer/util/errs"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flagNotifier struct{ n atomic.Int32 }

func (f *flagNotifier) SetTickPending() { f.n.Add(1) }

func TestAdvanceBumpsCounterAndFlagsTarget(t *testing.T) {
	s := NewSource(NewLocalCounter())
	n := &flagNotifier{}
	s.SetTarget(n)

	s.Advance()
	s.Advance()
	assert.Equal(t, uint64(2), s.Current())
	assert.Equal(t, int32(2), n.n.Load())

	s.SetTarget(nil)
	s.Advance()
	assert.Equal(t, uint64(3), s.Current())
	assert.Equal(t, int32(2), n.n.Load())
}

func TestAdvanceConcurrentReaders(t *testing.T) {
	s := NewSource(nil)
	wg := sync.WaitGroup{}
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var last uint64
			for {
				select {
				case <-stop:
					return
				default:
				}
				v := s.Current()
				if v < last {
					t.Errorf("tick went backwards: %d < %d", v, last)
					return
				}
				last = v
			}
		}()
	}
	for i := 0; i < 10000; i++ {
		s.Advance()
	}
	close(stop)
	wg.Wait()
	assert.Equal(t, uint64(10000), s.Current())
}

func TestInitResetsCounter(t *testing.T) {
	c := NewLocalCounter()
	c.Store(42)
	s := NewSource(c, WithDriver(DriverTicker))
	require.NoError(t, s.Init(true))
	defer s.Terminate(true)
	assert.Less(t, s.Current(), uint64(42))
}

func TestInitTwiceFails(t *testing.T) {
	s := NewSource(nil)
	require.NoError(t, s.Init(false))
	err := s.Init(false)
	assert.ErrorIs(t, err, errs.ClockState)
	require.NoError(t, s.Terminate(false))
	require.NoError(t, s.Terminate(false))
	assert.False(t, s.Running())
}

func TestPullModeFollowsWallClock(t *testing.T) {
	s := NewSource(nil, WithInterval(5*time.Millisecond))
	require.NoError(t, s.Init(false))
	defer s.Terminate(false)
	assert.Equal(t, DriverKind(""), s.DriverKind())

	first := s.Current()
	time.Sleep(60 * time.Millisecond)
	second := s.Current()
	assert.GreaterOrEqual(t, second-first, uint64(10))
	assert.Equal(t, second, s.Counter().Load())
}

func TestTickerDriver(t *testing.T) {
	s := NewSource(nil, WithDriver(DriverTicker), WithInterval(2*time.Millisecond))
	n := &flagNotifier{}
	s.SetTarget(n)
	require.NoError(t, s.Init(true))
	assert.Equal(t, DriverTicker, s.DriverKind())

	require.Eventually(t, func() bool { return s.Current() >= 10 }, 2*time.Second, time.Millisecond)
	require.NoError(t, s.Terminate(true))

	stopped := s.Current()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, s.Current())
	assert.GreaterOrEqual(t, int64(n.n.Load()), int64(stopped))
}

func TestInterruptDriver(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("interrupt driver is linux only")
	}
	s := NewSource(nil, WithDriver(DriverInterrupt))
	require.NoError(t, s.Init(true))
	assert.Equal(t, DriverInterrupt, s.DriverKind())
	require.Eventually(t, func() bool { return s.Current() >= 5 }, 2*time.Second, time.Millisecond)
	require.NoError(t, s.Terminate(true))

	stopped := s.Current()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, s.Current())
}

func TestReadOnlySourceKeepsSharedCount(t *testing.T) {
	c := NewLocalCounter()
	c.Store(500)
	s := NewSource(c, ReadOnly())
	require.NoError(t, s.Init(true))
	assert.Equal(t, uint64(500), s.Current())
	assert.Equal(t, DriverKind(""), s.DriverKind())
	require.NoError(t, s.Terminate(true))
}

func TestShmCounterShared(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("shared memory counter needs mmap")
	}
	path := filepath.Join(t.TempDir(), "ticks")
	writer, err := OpenShmCounter(path)
	require.NoError(t, err)
	defer writer.Close()
	reader, err := OpenShmCounter(path)
	require.NoError(t, err)
	defer reader.Close()

	server := NewSource(writer)
	client := NewSource(reader, ReadOnly())
	require.NoError(t, client.Init(true))
	for i := 0; i < 7; i++ {
		server.Advance()
	}
	assert.Equal(t, uint64(7), client.Current())

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(shmCellSize), fi.Size())
	assert.NoError(t, writer.Close())
	assert.NoError(t, writer.Close())
}

func TestDefaultSource(t *testing.T) {
	SetDefault(nil)
	assert.Equal(t, uint64(0), TickCount())
	s := NewSource(nil)
	s.Advance()
	SetDefault(s)
	defer SetDefault(nil)
	assert.Equal(t, uint64(1), TickCount())
	assert.Same(t, s, Default())
}

func TestRedisCounterWriterReader(t *testing.T) {
	addr := os.Getenv("WINTIMER_TEST_REDIS")
	if addr == "" {
		t.Skip("WINTIMER_TEST_REDIS not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	ctx := context.Background()
	key := "wintimer:test:ticks:" + time.Now().Format("150405.000000")
	defer rdb.Del(ctx, key)

	period := 5 * time.Millisecond
	w, err := NewRedisCounter(ctx, rdb, RedisCounterOptions{Key: key, Writer: true, Period: period})
	require.NoError(t, err)
	defer w.Close()

	_, err = NewRedisCounter(ctx, rdb, RedisCounterOptions{Key: key, Writer: true, Period: period})
	assert.ErrorIs(t, err, errs.WriterLocked)

	r, err := NewRedisCounter(ctx, rdb, RedisCounterOptions{Key: key, Period: period})
	require.NoError(t, err)
	defer r.Close()

	server := NewSource(w)
	for i := 0; i < 9; i++ {
		server.Advance()
	}
	require.Eventually(t, func() bool { return r.Load() == 9 }, time.Second, period)
}

func TestRedisWriterStepsDownOnLostLock(t *testing.T) {
	addr := os.Getenv("WINTIMER_TEST_REDIS")
	if addr == "" {
		t.Skip("WINTIMER_TEST_REDIS not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	ctx := context.Background()
	key := "wintimer:test:takeover:" + time.Now().Format("150405.000000")

	period := 5 * time.Millisecond
	w, err := NewRedisCounter(ctx, rdb, RedisCounterOptions{Key: key, Writer: true, Period: period})
	require.NoError(t, err)
	defer w.Close()
	defer rdb.Del(ctx, key, w.lockKey)
	require.True(t, w.Writer())

	// another process takes the lock and publishes its own count
	require.NoError(t, rdb.Set(ctx, w.lockKey, "other-entity", 0).Err())
	require.NoError(t, rdb.Set(ctx, key, 100, 0).Err())

	src := NewSource(w)
	src.Advance()
	require.Eventually(t, func() bool { return !w.Writer() }, time.Second, period)

	for i := 0; i < 5; i++ {
		src.Advance()
	}
	time.Sleep(4 * period)
	v, err := rdb.Get(ctx, key).Uint64()
	require.NoError(t, err)
	assert.EqualValues(t, 100, v)
	require.Eventually(t, func() bool { return w.Load() == 100 }, time.Second, period)

	require.NoError(t, w.Close())
	owner, err := rdb.Get(ctx, w.lockKey).Result()
	require.NoError(t, err)
	assert.Equal(t, "other-entity", owner)
}
