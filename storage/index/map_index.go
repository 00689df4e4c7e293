package index

import (
	"github.com/forever-free1/EbbKV/storage"
)

// MapIndex 是基于 Go 内置 map 的内存索引实现
// 适合键数量可控、不需要有序遍历的场景
type MapIndex struct {
	data map[string]*storage.Position
}

// NewMapIndex 创建一个新的 Map 索引实例
// 返回：
//   - *MapIndex: Map 索引指针
func NewMapIndex() *MapIndex {
	return &MapIndex{
		data: make(map[string]*storage.Position),
	}
}

// Put 写入或覆盖键的位置
// 参数：
//   - key: 键
//   - pos: 位置指针
func (idx *MapIndex) Put(key []byte, pos *storage.Position) {
	idx.data[string(key)] = pos
}

// Get 根据键从 Map 索引获取位置
// 参数：
//   - key: 键
// 返回：
//   - *storage.Position: 位置指针，不存在返回 nil
func (idx *MapIndex) Get(key []byte) *storage.Position {
	return idx.data[string(key)]
}

// Size 返回 Map 索引中的键数量
// 返回：
//   - int: 键数量
func (idx *MapIndex) Size() int {
	return len(idx.data)
}

// Close 关闭 Map 索引
func (idx *MapIndex) Close() {
	// 清空 map，释放内存
	idx.data = nil
}

// 确保 MapIndex 实现了 Index 接口
var _ Index = (*MapIndex)(nil)
