package conc

// Future 异步任务结果
type Future[T any] struct {
	ch    chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{ch: make(chan struct{})}
}

func (f *Future[T]) complete(value T, err error) {
	f.value = value
	f.err = err
	close(f.ch)
}

// Await 阻塞等待任务完成并返回结果
func (f *Future[T]) Await() (T, error) {
	<-f.ch
	return f.value, f.err
}

// Value 等待完成后返回结果值
func (f *Future[T]) Value() T {
	<-f.ch
	return f.value
}

// Err 等待完成后返回错误
func (f *Future[T]) Err() error {
	<-f.ch
	return f.err
}

// Done 任务是否已完成（非阻塞）
func (f *Future[T]) Done() bool {
	select {
	case <-f.ch:
		return true
	default:
		return false
	}
}

// Inner 返回完成信号 channel，可用于 select
func (f *Future[T]) Inner() <-chan struct{} {
	return f.ch
}

// Go 在新的 goroutine 中执行 fn
func Go[T any](fn func() (T, error)) *Future[T] {
	future := newFuture[T]()
	go func() {
		future.complete(fn())
	}()
	return future
}

// AwaitAll 等待所有 future 完成，返回第一个错误
func AwaitAll[T any](futures ...*Future[T]) error {
	var firstErr error
	for _, f := range futures {
		if err := f.Err(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
