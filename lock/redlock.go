package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"
)

var (
	ErrFailedLock = errors.New("failed to acquire lock")
	ErrNotOwner   = errors.New("lock is not held by this entity")
)

type RedLock struct {
	rdb    redis.Cmdable
	entity string //请求锁的唯一实例
}

func NewRedLock(rdb redis.Cmdable, entity string) *RedLock {
	return &RedLock{rdb: rdb, entity: entity}
}

func (l *RedLock) Entity() string {
	return l.entity
}

// Lock 在 expiry 内每 checkInterval 重试一次
func (l *RedLock) Lock(ctx context.Context, lockKey string, expiry time.Duration, checkInterval time.Duration) error {
	lockTries := int(expiry/checkInterval) + 1
	for i := 0; i < lockTries; i++ {
		if i != 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(checkInterval):
			}
		}
		ok, err := l.rdb.SetNX(ctx, lockKey, l.entity, expiry).Result()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return ErrFailedLock
}

func (l *RedLock) TryLock(ctx context.Context, lockKey string, expiry time.Duration) (bool, error) {
	return l.rdb.SetNX(ctx, lockKey, l.entity, expiry).Result()
}

const (
	unlockScriptLua = `
		if redis.call("get",KEYS[1]) == ARGV[1] then
			return redis.call("del",KEYS[1])
		else
			return 0
		end
	`
	refreshScriptLua = `
		if redis.call("get",KEYS[1]) == ARGV[1] then
			return redis.call("pexpire",KEYS[1],ARGV[2])
		else
			return 0
		end
	`
)

var (
	unlockScript  = redis.NewScript(unlockScriptLua)
	refreshScript = redis.NewScript(refreshScriptLua)
)

func (l *RedLock) UnLock(ctx context.Context, lockKey string) (bool, error) {
	num, err := unlockScript.Run(ctx, l.rdb, []string{lockKey}, l.entity).Int64()
	if err != nil {
		return false, err
	}
	return num != 0, nil
}

// Refresh 续期, 锁已经被别人拿走时返回 ErrNotOwner
func (l *RedLock) Refresh(ctx context.Context, lockKey string, expiry time.Duration) error {
	num, err := refreshScript.Run(ctx, l.rdb, []string{lockKey}, l.entity, expiry.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if num == 0 {
		return ErrNotOwner
	}
	return nil
}

// GeneLockEntity 生成请求锁的唯一实例
func GeneLockEntity() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return xid.New().String()
	}
	return id.String()
}
