package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// QueryOne 查询单行并按 db tag 映射到 T，无结果返回 ErrNoRows
func QueryOne[T any](ctx context.Context, q Querier, sql string, args ...any) (*T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	v, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByNameLax[T])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	return v, nil
}

// QueryAll 查询多行并按 db tag 映射到 T
func QueryAll[T any](ctx context.Context, q Querier, sql string, args ...any) ([]*T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[T])
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	return out, nil
}

// QueryOneBuilder 使用 squirrel 构建器执行 QueryOne
func QueryOneBuilder[T any](ctx context.Context, q Querier, b squirrel.Sqlizer) (*T, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sql: %w", err)
	}
	return QueryOne[T](ctx, q, sql, args...)
}

// QueryAllBuilder 使用 squirrel 构建器执行 QueryAll
func QueryAllBuilder[T any](ctx context.Context, q Querier, b squirrel.Sqlizer) ([]*T, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sql: %w", err)
	}
	return QueryAll[T](ctx, q, sql, args...)
}

// ExecBuilder 执行 squirrel 构建的写语句，返回影响行数
func ExecBuilder(ctx context.Context, q Querier, b squirrel.Sqlizer) (int64, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build sql: %w", err)
	}
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("exec failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ScanBuilder 执行 squirrel 查询并将单行扫描到 dest
func ScanBuilder(ctx context.Context, q Querier, b squirrel.Sqlizer, dest ...any) error {
	sql, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build sql: %w", err)
	}
	if err := q.QueryRow(ctx, sql, args...).Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNoRows
		}
		return fmt.Errorf("scan failed: %w", err)
	}
	return nil
}
