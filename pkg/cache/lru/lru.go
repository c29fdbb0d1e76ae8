package lru

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lk2023060901/xdooria-gacha/pkg/util/conc"
)

// Config LRU 配置
type Config struct {
	MaxSize         int           `mapstructure:"max_size" json:"max_size" yaml:"max_size"`
	DefaultTTL      time.Duration `mapstructure:"default_ttl" json:"default_ttl" yaml:"default_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" json:"cleanup_interval" yaml:"cleanup_interval"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		MaxSize:         1024,
		DefaultTTL:      time.Minute,
		CleanupInterval: 30 * time.Second,
	}
}

// Stats 命中统计
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// LRU 带过期时间的内存 LRU 缓存
type LRU[K comparable, V any] struct {
	config *Config
	cache  *list.List
	items  map[K]*list.Element
	mu     sync.Mutex
	pool   *conc.Pool[struct{}]
	stopCh chan struct{}
	once   sync.Once

	hits, misses, evictions atomic.Uint64

	onEvict func(key K, value V)
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// Option LRU 选项
type Option[K comparable, V any] func(*LRU[K, V])

// WithOnEvict 设置淘汰回调（容量淘汰与过期清理都会触发，Delete/Clear 不触发）
func WithOnEvict[K comparable, V any](fn func(key K, value V)) Option[K, V] {
	return func(c *LRU[K, V]) {
		c.onEvict = fn
	}
}

// New 创建 LRU 缓存，cfg 为 nil 时使用默认配置
func New[K comparable, V any](cfg *Config, opts ...Option[K, V]) *LRU[K, V] {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := &LRU[K, V]{
		config: cfg,
		cache:  list.New(),
		items:  make(map[K]*list.Element),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.CleanupInterval > 0 {
		c.pool = conc.NewPool[struct{}](1)
		c.pool.Submit(c.cleanupLoop)
	}
	return c
}

func (c *LRU[K, V]) cleanupLoop() (struct{}, error) {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopCh:
			return struct{}{}, nil
		}
	}
}

func (c *LRU[K, V]) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for e := c.cache.Back(); e != nil; {
		prev := e.Prev()
		if now.After(e.Value.(*entry[K, V]).expiresAt) {
			c.evict(e)
		}
		e = prev
	}
}

// Get 获取值，过期条目视为不存在
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry[K, V])
		if time.Now().Before(ent.expiresAt) {
			c.cache.MoveToFront(elem)
			c.hits.Add(1)
			return ent.value, true
		}
		c.evict(elem)
	}

	c.misses.Add(1)
	var zero V
	return zero, false
}

// Set 使用默认 TTL 写入
func (c *LRU[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, c.config.DefaultTTL)
}

// SetWithTTL 使用自定义 TTL 写入
func (c *LRU[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(ttl)
	if elem, ok := c.items[key]; ok {
		c.cache.MoveToFront(elem)
		ent := elem.Value.(*entry[K, V])
		ent.value = value
		ent.expiresAt = expiresAt
		return
	}

	c.items[key] = c.cache.PushFront(&entry[K, V]{key: key, value: value, expiresAt: expiresAt})
	for c.config.MaxSize > 0 && c.cache.Len() > c.config.MaxSize {
		c.evict(c.cache.Back())
	}
}

// Delete 删除单个键
func (c *LRU[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
}

// DeleteFunc 删除所有满足条件的键，返回删除数量
func (c *LRU[K, V]) DeleteFunc(match func(key K, value V) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for e := c.cache.Front(); e != nil; {
		next := e.Next()
		ent := e.Value.(*entry[K, V])
		if match(ent.key, ent.value) {
			c.remove(e)
			n++
		}
		e = next
	}
	return n
}

// Len 当前条目数（包含尚未清理的过期条目）
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}

// Clear 清空
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Init()
	c.items = make(map[K]*list.Element)
}

// Stats 命中统计
func (c *LRU[K, V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Close 停止后台清理，可重复调用
func (c *LRU[K, V]) Close() error {
	c.once.Do(func() {
		close(c.stopCh)
		if c.pool != nil {
			c.pool.Release()
		}
	})
	return nil
}

func (c *LRU[K, V]) remove(elem *list.Element) *entry[K, V] {
	c.cache.Remove(elem)
	ent := elem.Value.(*entry[K, V])
	delete(c.items, ent.key)
	return ent
}

func (c *LRU[K, V]) evict(elem *list.Element) {
	ent := c.remove(elem)
	c.evictions.Add(1)
	if c.onEvict != nil {
		c.onEvict(ent.key, ent.value)
	}
}
