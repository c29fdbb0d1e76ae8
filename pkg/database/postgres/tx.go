package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Tx 事务，可作为 Querier 传给 DAO
type Tx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxIsolationLevel 事务隔离级别
type TxIsolationLevel string

const (
	TxIsolationLevelDefault        TxIsolationLevel = ""
	TxIsolationLevelReadCommitted  TxIsolationLevel = "read committed"
	TxIsolationLevelRepeatableRead TxIsolationLevel = "repeatable read"
	TxIsolationLevelSerializable   TxIsolationLevel = "serializable"
)

// TxAccessMode 事务访问模式
type TxAccessMode string

const (
	TxAccessModeDefault   TxAccessMode = ""
	TxAccessModeReadWrite TxAccessMode = "read write"
	TxAccessModeReadOnly  TxAccessMode = "read only"
)

// TxOptions 事务选项
type TxOptions struct {
	IsoLevel   TxIsolationLevel
	AccessMode TxAccessMode
}

// BeginTx 在主库开启事务
func (c *Client) BeginTx(ctx context.Context, opts TxOptions) (Tx, error) {
	tx, err := c.primary.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.TxIsoLevel(opts.IsoLevel),
		AccessMode: pgx.TxAccessMode(opts.AccessMode),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// WithTx 在事务中执行 fn，fn 返回错误或 panic 时回滚
// 回滚使用不可取消的 context，保证请求超时后仍能释放连接
func (c *Client) WithTx(ctx context.Context, opts TxOptions, fn func(tx Tx) error) (err error) {
	tx, err := c.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
