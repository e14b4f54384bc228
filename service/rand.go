package service

import (
	"math/rand"
	"time"
)

// Rand 随机源抽象
// 所有概率分支都通过注入的随机源抽签，不直接调全局 RNG，测试里换成固定序列即可复现
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// NewRand 生产环境默认随机源
func NewRand() Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
