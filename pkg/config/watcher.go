package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher 配置文件热更新监听器
type Watcher[T any] struct {
	path      string
	mu        sync.RWMutex
	current   *T
	callbacks []func(*T)
	onError   func(error)
	stopped   bool
}

// NewWatcher 加载 path 并开始监听，decode 负责将文件内容转换为 T
func NewWatcher[T any](path string, decode func(m Manager) (*T, error), onError func(error)) (*Watcher[T], error) {
	m := NewManager()
	if err := m.LoadFile(path); err != nil {
		return nil, err
	}
	cfg, err := decode(m)
	if err != nil {
		return nil, err
	}

	w := &Watcher[T]{path: path, current: cfg, onError: onError}
	m.Watch(func(fsnotify.Event) {
		w.reload(decode)
	})
	return w, nil
}

func (w *Watcher[T]) reload(decode func(m Manager) (*T, error)) {
	m := NewManager()
	cfg, err := func() (*T, error) {
		if err := m.LoadFile(w.path); err != nil {
			return nil, err
		}
		return decode(m)
	}()

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	if err != nil {
		onError := w.onError
		w.mu.Unlock()
		if onError != nil {
			onError(err)
		}
		return
	}
	w.current = cfg
	callbacks := w.callbacks
	w.mu.Unlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
}

// Current 当前生效的配置
func (w *Watcher[T]) Current() *T {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange 注册变化回调
func (w *Watcher[T]) OnChange(callback func(*T)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Stop 停止分发变化；viper 没有取消 WatchConfig 的接口，底层 goroutine 随进程退出
func (w *Watcher[T]) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return ErrWatcherStopped
	}
	w.stopped = true
	return nil
}
