package metrics

import (
	"fmt"
	"strconv"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
)

// Config 指标配置
type Config struct {
	// Namespace 指标命名空间
	Namespace string `mapstructure:"namespace" json:"namespace" yaml:"namespace"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Namespace: "gacha",
	}
}

// GachaMetrics 抽卡服务指标，同时作为引擎的事件观察者
// 所有 Record 方法对 nil 接收者安全
type GachaMetrics struct {
	config *Config

	// 抽卡指标
	DrawsTotal           *prometheus.CounterVec // 抽卡次数（按卡池、稀有度）
	PityTotal            *prometheus.CounterVec // 保底触发次数（按卡池、稀有度）
	CorrectionsTotal     *prometheus.CounterVec // 十连修正次数（按卡池）
	ConflictRetriesTotal prometheus.Counter     // 并发冲突重试次数

	// 数据库指标
	DBQueryTotal    *prometheus.CounterVec
	DBQueryDuration *prometheus.HistogramVec

	// 缓存指标
	CacheHitTotal  *prometheus.CounterVec
	CacheMissTotal *prometheus.CounterVec

	// 对账指标
	HoldingsDrift prometheus.Gauge // 最近一次对账发现的不一致条目数
}

// New 创建抽卡指标
func New(cfg *Config) (*GachaMetrics, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge metrics config: %w", err)
	}
	ns := newCfg.Namespace

	return &GachaMetrics{
		config: newCfg,

		DrawsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "draws_total",
				Help:      "抽卡总次数",
			},
			[]string{"banner_id", "rarity"},
		),
		PityTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "pity_total",
				Help:      "保底触发次数",
			},
			[]string{"banner_id", "rarity"},
		),
		CorrectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "batch_corrections_total",
				Help:      "十连最后一抽修正次数",
			},
			[]string{"banner_id"},
		),
		ConflictRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "conflict_retries_total",
				Help:      "并发冲突重试次数",
			},
		),

		DBQueryTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "db_queries_total",
				Help:      "数据库查询总数",
			},
			[]string{"operation", "result"}, // operation: select/insert/update/upsert
		),
		DBQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "db_query_duration_seconds",
				Help:      "数据库查询延迟（秒）",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"operation"},
		),

		CacheHitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "cache_hits_total",
				Help:      "缓存命中次数",
			},
			[]string{"cache"}, // cache: local/redis
		),
		CacheMissTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "cache_misses_total",
				Help:      "缓存未命中次数",
			},
			[]string{"cache"},
		),

		HoldingsDrift: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: ns,
				Name:      "holdings_drift_entries",
				Help:      "持有数与流水不一致的条目数",
			},
		),
	}, nil
}

// Register 注册到 registerer
func (m *GachaMetrics) Register(r prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.DrawsTotal,
		m.PityTotal,
		m.CorrectionsTotal,
		m.ConflictRetriesTotal,
		m.DBQueryTotal,
		m.DBQueryDuration,
		m.CacheHitTotal,
		m.CacheMissTotal,
		m.HoldingsDrift,
	}
	for _, c := range collectors {
		if err := r.Register(c); err != nil {
			return fmt.Errorf("failed to register gacha metrics: %w", err)
		}
	}
	return nil
}

// RecordDBQuery 记录数据库查询
func (m *GachaMetrics) RecordDBQuery(operation string, success bool, duration float64) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failed"
	}
	m.DBQueryTotal.WithLabelValues(operation, result).Inc()
	m.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// RecordCacheHit 记录缓存命中
func (m *GachaMetrics) RecordCacheHit(cache string) {
	if m == nil {
		return
	}
	m.CacheHitTotal.WithLabelValues(cache).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (m *GachaMetrics) RecordCacheMiss(cache string) {
	if m == nil {
		return
	}
	m.CacheMissTotal.WithLabelValues(cache).Inc()
}

// SetHoldingsDrift 记录对账结果
func (m *GachaMetrics) SetHoldingsDrift(n int) {
	if m == nil {
		return
	}
	m.HoldingsDrift.Set(float64(n))
}

// OnDraw 实现 gacha.Observer
func (m *GachaMetrics) OnDraw(bannerID int64, item model.Item, pity bool) {
	if m == nil {
		return
	}
	banner := strconv.FormatInt(bannerID, 10)
	m.DrawsTotal.WithLabelValues(banner, item.Rarity.String()).Inc()
	if pity {
		m.PityTotal.WithLabelValues(banner, item.Rarity.String()).Inc()
	}
}

// OnCorrection 实现 gacha.Observer
func (m *GachaMetrics) OnCorrection(bannerID int64, _, _ model.Item) {
	if m == nil {
		return
	}
	m.CorrectionsTotal.WithLabelValues(strconv.FormatInt(bannerID, 10)).Inc()
}

// OnConflictRetry 实现 gacha.Observer
func (m *GachaMetrics) OnConflictRetry(int) {
	if m == nil {
		return
	}
	m.ConflictRetriesTotal.Inc()
}
