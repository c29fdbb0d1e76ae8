package gacha

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// RandomSource 均匀分布的 [0, 1) 随机数源
type RandomSource interface {
	Float64() float64
}

type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// NewRandomSource 创建并发安全的随机数源，seed 为 0 时使用系统熵作为种子
func NewRandomSource(seed uint64) RandomSource {
	s1, s2 := seed, seed^0x9e3779b97f4a7c15
	if seed == 0 {
		var b [16]byte
		_, _ = crand.Read(b[:])
		s1 = binary.LittleEndian.Uint64(b[:8])
		s2 = binary.LittleEndian.Uint64(b[8:])
	}
	return &lockedSource{r: rand.New(rand.NewPCG(s1, s2))}
}
