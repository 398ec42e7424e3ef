package rag

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sync"
)

// EmbeddingCache 以文本指纹为键的嵌入向量持久缓存。
// 不做淘汰；同一指纹重复写入时后写者胜出。
type EmbeddingCache interface {
	// Get 返回缓存的向量；未命中时 ok 为 false 且 err 为 nil
	Get(ctx context.Context, fingerprint string) (vec []float64, ok bool, err error)
	// Put 写入向量
	Put(ctx context.Context, fingerprint string, vec []float64) error
}

// Fingerprint 返回文本 UTF-8 字节的 SHA-256 小写十六进制摘要。
// 不做任何规范化，大小写或空白不同即视为不同文本。
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// EncodeVector 将向量编码为小端 float64 序列，读回时逐位一致
func EncodeVector(vec []float64) []byte {
	buf := make([]byte, 8*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// DecodeVector 是 EncodeVector 的逆操作
func DecodeVector(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("corrupt vector encoding: %d bytes is not a multiple of 8", len(b))
	}
	vec := make([]float64, len(b)/8)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return vec, nil
}

// =============================================================================
// 内存实现
// =============================================================================

// MemoryEmbeddingCache 进程内缓存，读写均复制切片
type MemoryEmbeddingCache struct {
	mu      sync.RWMutex
	entries map[string][]float64
}

// NewMemoryEmbeddingCache 创建内存缓存
func NewMemoryEmbeddingCache() *MemoryEmbeddingCache {
	return &MemoryEmbeddingCache{entries: make(map[string][]float64)}
}

func (c *MemoryEmbeddingCache) Get(_ context.Context, fingerprint string) ([]float64, bool, error) {
	c.mu.RLock()
	vec, ok := c.entries[fingerprint]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return append([]float64(nil), vec...), true, nil
}

func (c *MemoryEmbeddingCache) Put(_ context.Context, fingerprint string, vec []float64) error {
	cp := append([]float64(nil), vec...)
	c.mu.Lock()
	c.entries[fingerprint] = cp
	c.mu.Unlock()
	return nil
}

// Len 返回条目数
func (c *MemoryEmbeddingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
