package storage

import "errors"

// ErrKeyNotFound 表示键不存在的错误
var ErrKeyNotFound = errors.New("key not found")

// Position 表示 value 在日志中的位置
// Offset 是紧跟在 key 编码之后的字节偏移量，也就是 value 帧的起始位置；
// 从该偏移量解码一个 value 帧即可取回这个 key 最近一次写入的值
type Position struct {
	Offset uint64 // value 帧的起始偏移量
	Size   uint32 // value 帧的总大小（含帧头）
}

// Engine 是存储引擎的抽象接口
// 实现了追加日志型键值存储的基本操作
// 注意：引擎是追加写模型，没有 Delete 操作（墓碑机制不在设计范围内）
type Engine interface {
	// Put 写入键值对
	// 参数：
	//   - key: 键
	//   - value: 值
	// 返回：
	//   - error: 写入错误
	Put(key []byte, value []byte) error

	// Get 根据键获取值
	// 参数：
	//   - key: 键
	// 返回：
	//   - []byte: 值
	//   - error: 读取错误，如果键不存在返回 ErrKeyNotFound
	Get(key []byte) ([]byte, error)

	// Has 判断键是否存在，只查内存索引，不读取底层日志
	Has(key []byte) bool

	// Len 返回当前索引中的键数量
	Len() int

	// Sync 将缓冲区中的数据同步到磁盘
	Sync() error

	// Close 关闭存储引擎，释放资源
	// 返回：
	//   - error: 关闭错误
	Close() error
}
