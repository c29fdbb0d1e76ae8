package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Manager 配置管理器
type Manager interface {
	// LoadFile 加载配置文件（yaml/json/toml 由扩展名决定）
	LoadFile(path string) error
	// Unmarshal 解析整个配置到结构体（mapstructure tag）
	Unmarshal(v any) error
	// UnmarshalKey 解析指定路径，如 "database.postgres"
	UnmarshalKey(key string, v any) error
	IsSet(key string) bool
	GetString(key string) string
	// Watch 监听配置文件变化
	Watch(callback func(e fsnotify.Event))
}

// Option 配置管理器选项
type Option func(*manager)

// WithDefaults 设置默认值
func WithDefaults(defaults map[string]any) Option {
	return func(m *manager) {
		for key, value := range defaults {
			m.v.SetDefault(key, value)
		}
	}
}

// WithEnvPrefix 启用环境变量覆盖，如前缀 GACHA 时 GACHA_LOG_LEVEL 对应 log.level
func WithEnvPrefix(prefix string) Option {
	return func(m *manager) {
		if prefix == "" {
			return
		}
		m.v.SetEnvPrefix(prefix)
		m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		m.v.AutomaticEnv()
	}
}

// WithViper 使用外部 viper 实例
func WithViper(v *viper.Viper) Option {
	return func(m *manager) {
		m.v = v
	}
}

type manager struct {
	v         *viper.Viper
	mu        sync.RWMutex
	callbacks []func(e fsnotify.Event)
	watching  bool
}

// NewManager 创建配置管理器
func NewManager(opts ...Option) Manager {
	m := &manager{v: viper.New()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *manager) LoadFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.v.SetConfigFile(path)
	if err := m.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

func (m *manager) Unmarshal(v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.v.Unmarshal(v); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

func (m *manager) UnmarshalKey(key string, v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.v.UnmarshalKey(key, v); err != nil {
		return fmt.Errorf("failed to unmarshal key %s: %w", key, err)
	}
	return nil
}

func (m *manager) IsSet(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.IsSet(key)
}

func (m *manager) GetString(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.GetString(key)
}

func (m *manager) Watch(callback func(e fsnotify.Event)) {
	m.mu.Lock()
	m.callbacks = append(m.callbacks, callback)
	start := !m.watching
	m.watching = true
	m.mu.Unlock()

	if !start {
		return
	}
	m.v.OnConfigChange(func(e fsnotify.Event) {
		m.mu.RLock()
		callbacks := m.callbacks
		m.mu.RUnlock()
		for _, cb := range callbacks {
			cb(e)
		}
	})
	m.v.WatchConfig()
}
