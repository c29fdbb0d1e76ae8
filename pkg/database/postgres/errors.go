package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNilConfig     = errors.New("postgres: config is nil")
	ErrInvalidConfig = errors.New("postgres: invalid config")
	ErrNoRows        = errors.New("postgres: no rows in result set")
)

// SQLSTATE
const (
	CodeUniqueViolation      = "23505"
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
	CodeLockNotAvailable     = "55P03"
)

// SQLState 返回错误链中 PgError 的 SQLSTATE，不存在时返回空串
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation 唯一约束冲突
func IsUniqueViolation(err error) bool {
	return SQLState(err) == CodeUniqueViolation
}

// IsSerializationFailure 可串行化冲突或死锁
func IsSerializationFailure(err error) bool {
	switch SQLState(err) {
	case CodeSerializationFailure, CodeDeadlockDetected:
		return true
	}
	return false
}

// IsRetryable 并发写冲突，重新执行整个事务可能成功
func IsRetryable(err error) bool {
	switch SQLState(err) {
	case CodeSerializationFailure, CodeDeadlockDetected, CodeLockNotAvailable, CodeUniqueViolation:
		return true
	}
	return false
}
