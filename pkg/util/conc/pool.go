package conc

import (
	"fmt"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"
)

// poolOption 协程池选项
type poolOption struct {
	preAlloc       bool
	nonBlocking    bool
	expiryDuration time.Duration
	panicHandler   func(any)
}

// PoolOption 协程池配置函数
type PoolOption func(*poolOption)

// WithPreAlloc 是否预分配 worker 队列
func WithPreAlloc(v bool) PoolOption {
	return func(o *poolOption) {
		o.preAlloc = v
	}
}

// WithNonBlocking 池满时是否立即返回错误
func WithNonBlocking(v bool) PoolOption {
	return func(o *poolOption) {
		o.nonBlocking = v
	}
}

// WithExpiryDuration 空闲 worker 回收间隔
func WithExpiryDuration(d time.Duration) PoolOption {
	return func(o *poolOption) {
		o.expiryDuration = d
	}
}

// WithPanicHandler 任务 panic 处理函数
func WithPanicHandler(fn func(any)) PoolOption {
	return func(o *poolOption) {
		o.panicHandler = fn
	}
}

// Pool 基于 ants 的泛型协程池
type Pool[T any] struct {
	inner *ants.Pool
}

// NewPool 创建容量为 cap 的协程池
func NewPool[T any](cap int, opts ...PoolOption) *Pool[T] {
	o := &poolOption{expiryDuration: time.Second}
	for _, opt := range opts {
		opt(o)
	}

	antsOpts := []ants.Option{
		ants.WithPreAlloc(o.preAlloc),
		ants.WithNonblocking(o.nonBlocking),
		ants.WithExpiryDuration(o.expiryDuration),
	}
	if o.panicHandler != nil {
		antsOpts = append(antsOpts, ants.WithPanicHandler(o.panicHandler))
	}

	pool, err := ants.NewPool(cap, antsOpts...)
	if err != nil {
		panic(fmt.Sprintf("conc: failed to create pool: %v", err))
	}
	return &Pool[T]{inner: pool}
}

// NewDefaultPool 创建容量为 CPU 数两倍的协程池
func NewDefaultPool[T any]() *Pool[T] {
	return NewPool[T](runtime.GOMAXPROCS(0) * 2)
}

// Submit 提交任务，任务结果通过 Future 获取
func (p *Pool[T]) Submit(method func() (T, error)) *Future[T] {
	future := newFuture[T]()
	err := p.inner.Submit(func() {
		var (
			value T
			err   error
		)
		defer func() {
			if r := recover(); r != nil {
				future.complete(value, fmt.Errorf("conc: task panicked: %v", r))
				panic(r)
			}
		}()
		value, err = method()
		future.complete(value, err)
	})
	if err != nil {
		var zero T
		future.complete(zero, err)
	}
	return future
}

// Cap 池容量
func (p *Pool[T]) Cap() int {
	return p.inner.Cap()
}

// Running 正在运行的 worker 数
func (p *Pool[T]) Running() int {
	return p.inner.Running()
}

// Free 空闲容量
func (p *Pool[T]) Free() int {
	return p.inner.Free()
}

// Release 释放协程池
func (p *Pool[T]) Release() {
	p.inner.Release()
}
