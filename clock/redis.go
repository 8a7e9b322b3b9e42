package clock

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fixkme/wintimer/lock"
	"github.com/fixkme/wintimer/mlog"
	"github.com/fixkme/wintimer/util/errs"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisSyncPeriod = TickInterval
	defaultRedisLockTTL    = 3 * time.Second

	// 只有锁的持有者才能写计数
	publishScriptLua = `
		if redis.call("get",KEYS[1]) == ARGV[1] then
			redis.call("set",KEYS[2],ARGV[2])
			return 1
		else
			return 0
		end
	`
)

var publishScript = redis.NewScript(publishScriptLua)

type RedisCounterOptions struct {
	Key     string
	Writer  bool          // 写者持有锁并发布计数, 读者只同步
	Period  time.Duration // 同步周期
	LockTTL time.Duration
	Entity  string // 锁实例, 为空时自动生成
}

// RedisCounter mirrors the shared tick count in a local atomic word. Inc and
// Load only touch the mirror; a sync goroutine publishes the mirror to redis
// (writer) or refreshes it from redis (reader) once per period.
type RedisCounter struct {
	rdb     redis.Cmdable
	opt     RedisCounterOptions
	lockKey string
	lock    *lock.RedLock
	local   atomic.Uint64
	dirty   atomic.Bool
	writing atomic.Bool // 持有写锁, 丢锁后降为读者
	quit    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewRedisCounter(ctx context.Context, rdb redis.Cmdable, opt RedisCounterOptions) (*RedisCounter, error) {
	if rdb == nil {
		return nil, errs.InvalidArgument.Print("nil redis client")
	}
	if opt.Key == "" {
		return nil, errs.InvalidArgument.Print("empty redis counter key")
	}
	if opt.Period <= 0 {
		opt.Period = defaultRedisSyncPeriod
	}
	if opt.LockTTL <= 0 {
		opt.LockTTL = defaultRedisLockTTL
	}
	if opt.Entity == "" {
		opt.Entity = lock.GeneLockEntity()
	}
	c := &RedisCounter{
		rdb:     rdb,
		opt:     opt,
		lockKey: "{" + opt.Key + "}:writer", // 与计数同槽, 集群下脚本可同时访问
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if opt.Writer {
		c.lock = lock.NewRedLock(rdb, opt.Entity)
		ok, err := c.lock.TryLock(ctx, c.lockKey, opt.LockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			owner, _ := rdb.Get(ctx, c.lockKey).Result()
			return nil, errs.WriterLocked.Printf("key %s held by %s", c.lockKey, owner)
		}
		c.writing.Store(true)
	}
	if err := c.pull(ctx); err != nil {
		if c.lock != nil {
			c.lock.UnLock(ctx, c.lockKey)
		}
		return nil, err
	}
	go c.run()
	return c, nil
}

func (c *RedisCounter) Key() string { return c.opt.Key }

// Writer reports whether c still publishes the count.
func (c *RedisCounter) Writer() bool { return c.writing.Load() }
func (c *RedisCounter) Load() uint64 { return c.local.Load() }

func (c *RedisCounter) Store(v uint64) {
	c.local.Store(v)
	c.dirty.Store(true)
}

func (c *RedisCounter) Inc() uint64 {
	v := c.local.Add(1)
	c.dirty.Store(true)
	return v
}

func (c *RedisCounter) pull(ctx context.Context) error {
	s, err := c.rdb.Get(ctx, c.opt.Key).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return errs.InvalidArgument.Printf("redis key %s holds %q", c.opt.Key, s)
	}
	c.local.Store(v)
	return nil
}

// push publishes the mirror, failing with lock.ErrNotOwner once another
// entity holds the writer lock.
func (c *RedisCounter) push(ctx context.Context) error {
	if !c.writing.Load() || !c.dirty.Swap(false) {
		return nil
	}
	keys := []string{c.lockKey, c.opt.Key}
	n, err := publishScript.Run(ctx, c.rdb, keys, c.lock.Entity(), c.local.Load()).Int64()
	if err != nil {
		c.dirty.Store(true)
		return err
	}
	if n == 0 {
		return lock.ErrNotOwner
	}
	return nil
}

// demote turns a writer that lost its lock into a reader.
func (c *RedisCounter) demote(ctx context.Context) {
	c.writing.Store(false)
	owner, _ := c.rdb.Get(ctx, c.lockKey).Result()
	mlog.Errorf("redis tick counter %s lost writer lock to %q, following as reader", c.opt.Key, owner)
}

func (c *RedisCounter) run() {
	defer close(c.done)
	syncTicker := time.NewTicker(c.opt.Period)
	defer syncTicker.Stop()
	refreshSpan := c.opt.LockTTL / 3
	lastRefresh := time.Now()
	failing := false

	for {
		select {
		case <-c.quit:
			return
		case now := <-syncTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.opt.Period*4)
			var err error
			if c.writing.Load() {
				err = c.push(ctx)
				if err == nil && now.Sub(lastRefresh) >= refreshSpan {
					if err = c.lock.Refresh(ctx, c.lockKey, c.opt.LockTTL); err == nil {
						lastRefresh = now
					}
				}
				if errors.Is(err, lock.ErrNotOwner) {
					c.demote(ctx)
					err = c.pull(ctx)
				}
			} else {
				err = c.pull(ctx)
			}
			cancel()
			// 只在状态变化时打日志, 避免每个周期刷屏
			if err != nil && !failing {
				mlog.Warnf("redis tick counter %s sync failed: %v", c.opt.Key, err)
			} else if err == nil && failing {
				mlog.Infof("redis tick counter %s sync recovered", c.opt.Key)
			}
			failing = err != nil
		}
	}
}

func (c *RedisCounter) Close() (err error) {
	c.once.Do(func() {
		close(c.quit)
		<-c.done
		if c.lock == nil || !c.writing.Load() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err = c.push(ctx); err != nil {
			mlog.Warnf("redis tick counter %s final push failed: %v", c.opt.Key, err)
		}
		_, err = c.lock.UnLock(ctx, c.lockKey)
	})
	return
}
