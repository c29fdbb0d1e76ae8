package config

import "errors"

var (
	// ErrNilConfig 配置为 nil
	ErrNilConfig = errors.New("config: config cannot be nil")

	// ErrValidationFailed 配置验证失败
	ErrValidationFailed = errors.New("config: validation failed")

	// ErrWatcherStopped 监听器已停止
	ErrWatcherStopped = errors.New("config: watcher stopped")
)
