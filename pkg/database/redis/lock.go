package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const defaultLockTTL = 10 * time.Second

var (
	unlockScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

	refreshScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`)
)

// Lock 单节点分布式锁，value 为持有者标识
type Lock struct {
	client *Client
	key    string
	value  string
	ttl    time.Duration
}

// NewLock 创建锁
func NewLock(client *Client, key string, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Lock{
		client: client,
		key:    client.Key("lock:" + key),
		value:  uuid.NewString(),
		ttl:    ttl,
	}
}

// TryLock 尝试获取锁，立即返回
func (l *Lock) TryLock(ctx context.Context) (bool, error) {
	ok, err := l.client.rdb.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to try lock: %w", err)
	}
	return ok, nil
}

// Lock 获取锁，已被占用时返回 ErrLockFailed
func (l *Lock) Lock(ctx context.Context) error {
	ok, err := l.TryLock(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockFailed
	}
	return nil
}

// Unlock 仅持有者可释放
func (l *Lock) Unlock(ctx context.Context) error {
	n, err := unlockScript.Run(ctx, l.client.rdb, []string{l.key}, l.value).Int64()
	if err != nil {
		return fmt.Errorf("failed to unlock: %w", err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Refresh 延长持有时间
func (l *Lock) Refresh(ctx context.Context) error {
	n, err := refreshScript.Run(ctx, l.client.rdb, []string{l.key}, l.value, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to refresh lock: %w", err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// WithLock 在锁保护下执行 fn，锁被占用时返回 ErrLockFailed
func (c *Client) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	lock := NewLock(c, key, ttl)
	if err := lock.Lock(ctx); err != nil {
		return err
	}
	defer func() {
		_ = lock.Unlock(context.WithoutCancel(ctx))
	}()
	return fn(ctx)
}
