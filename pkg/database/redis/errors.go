package redis

import "errors"

var (
	ErrNilConfig     = errors.New("redis: config is nil")
	ErrInvalidConfig = errors.New("redis: invalid config")

	// ErrNil 键不存在
	ErrNil = errors.New("redis: nil")

	// ErrLockFailed 获取锁失败
	ErrLockFailed = errors.New("redis: failed to acquire lock")

	// ErrLockNotHeld 锁不存在或已被其他持有者占用
	ErrLockNotHeld = errors.New("redis: lock not held")
)
