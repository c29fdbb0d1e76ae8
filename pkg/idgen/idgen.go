package idgen

import (
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sony/sonyflake"
)

// Generator 唯一 ID 生成器
type Generator interface {
	NextID() (int64, error)
}

// Config ID 生成器配置
type Config struct {
	// MachineID 多实例部署时必须各不相同 (0-65535)
	MachineID uint16 `mapstructure:"machine_id" json:"machine_id" yaml:"machine_id"`
}

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type sonyflakeGenerator struct {
	sf *sonyflake.Sonyflake
}

// NewSonyflake 基于 Sonyflake 的趋势递增 ID
func NewSonyflake(cfg *Config) (Generator, error) {
	var machineID uint16
	if cfg != nil {
		machineID = cfg.MachineID
	}
	sf, err := sonyflake.New(sonyflake.Settings{
		StartTime: epoch,
		MachineID: func() (uint16, error) { return machineID, nil },
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sonyflake generator")
	}
	return &sonyflakeGenerator{sf: sf}, nil
}

func (g *sonyflakeGenerator) NextID() (int64, error) {
	id, err := g.sf.NextID()
	if err != nil {
		return 0, errors.Wrap(err, "failed to generate id")
	}
	return int64(id), nil
}

// Sequence 进程内自增 ID，用于内存存储与测试
type Sequence struct {
	n atomic.Int64
}

// NewSequence 从 start+1 开始发号
func NewSequence(start int64) *Sequence {
	s := &Sequence{}
	s.n.Store(start)
	return s
}

func (s *Sequence) NextID() (int64, error) {
	return s.n.Add(1), nil
}
