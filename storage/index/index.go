package index

import "github.com/forever-free1/EbbKV/storage"

// Index 是内存索引的抽象接口
// 负责存储键到日志位置（Position）的映射
//
// 索引只保留每个键最近一次写入的位置（last-write-wins）；
// 引擎是追加写模型，因此接口上没有 Delete
type Index interface {
	// Put 写入或覆盖键的位置
	// 参数：
	//   - key: 键
	//   - pos: 位置指针
	Put(key []byte, pos *storage.Position)

	// Get 根据键获取位置
	// 参数：
	//   - key: 键
	// 返回：
	//   - *storage.Position: 位置指针，不存在返回 nil
	Get(key []byte) *storage.Position

	// Size 返回索引中的键数量
	Size() int

	// Close 关闭索引，释放资源
	Close()
}
