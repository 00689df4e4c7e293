package index

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// BloomFilter 是布隆过滤器的并发安全包装类
// 用于在查询索引之前快速判断一个 key 是否可能存在
//
// 恢复扫描重建索引时，每个读到的 key 也会同步加入布隆过滤器，
// 这样重启后过滤器仍能过滤掉从未写入过的 key
type BloomFilter struct {
	filter *bloom.BloomFilter
	mu     sync.RWMutex
}

// NewBloomFilter 创建一个新的布隆过滤器
// 参数：
//   - n: 预期存储的元素数量
//   - fp: 期望的误判率
//
// 返回：
//   - *BloomFilter: 布隆过滤器指针
func NewBloomFilter(n uint, fp float64) *BloomFilter {
	// 使用 NewWithEstimates 自动计算最优的 m 和 k
	return &BloomFilter{
		filter: bloom.NewWithEstimates(n, fp),
	}
}

// Add 添加一个 key 到布隆过滤器
// 参数：
//   - key: 要添加的键
func (bf *BloomFilter) Add(key []byte) {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	bf.filter.Add(key)
}

// Test 测试一个 key 是否可能存在于布隆过滤器中
// 参数：
//   - key: 要测试的键
//
// 返回：
//   - bool: true 表示可能存在，false 表示一定不存在
func (bf *BloomFilter) Test(key []byte) bool {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	return bf.filter.Test(key)
}

// K 返回布隆过滤器使用的哈希函数数量
func (bf *BloomFilter) K() uint {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	return bf.filter.K()
}

// Cap 返回布隆过滤器的容量
func (bf *BloomFilter) Cap() uint {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	return bf.filter.Cap()
}
