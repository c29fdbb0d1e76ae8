package postgres

import (
	"time"

	"github.com/Masterminds/squirrel"
)

// PoolStats 连接池统计
type PoolStats struct {
	AcquireCount         int64
	AcquireDuration      time.Duration
	AcquiredConns        int32
	CanceledAcquireCount int64
	IdleConns            int32
	MaxConns             int32
	TotalConns           int32
}

// QueryBuilder squirrel 构建器（$n 占位符）
var QueryBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
