package gacha

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrEmptyPool 卡池为空或没有可抽中的物品，属于配置问题
	ErrEmptyPool = errors.New("gacha: item pool is empty")
	// ErrInvalidPool 卡池包含负数或非有限权重
	ErrInvalidPool = errors.New("gacha: item pool has invalid weight")
	// ErrInvalidBatchSize 连抽次数越界
	ErrInvalidBatchSize = errors.New("gacha: invalid batch size")
	// ErrBannerNotFound 卡池不存在或未开放
	ErrBannerNotFound = errors.New("gacha: banner not found")
	// ErrNoDrawToCorrect 连抽修正时找不到最新流水
	ErrNoDrawToCorrect = errors.New("gacha: no draw record to correct")

	// ErrPersistenceConflict 同一玩家并发写冲突，可重试
	ErrPersistenceConflict = errors.New("gacha: persistence conflict")
	// ErrPersistenceFailure 存储不可用，不重试
	ErrPersistenceFailure = errors.New("gacha: persistence failure")
)

// MarkConflict 将存储错误标记为可重试冲突，保留原始错误信息
func MarkConflict(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrPersistenceConflict)
}

// MarkFailure 将存储错误标记为存储故障
func MarkFailure(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrPersistenceFailure)
}

// IsConflict 是否为可重试冲突
func IsConflict(err error) bool {
	return errors.Is(err, ErrPersistenceConflict)
}

// IsFailure 是否为存储故障
func IsFailure(err error) bool {
	return errors.Is(err, ErrPersistenceFailure)
}
