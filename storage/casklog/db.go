package casklog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/forever-free1/EbbKV/storage"
	"github.com/forever-free1/EbbKV/storage/codec"
	"github.com/forever-free1/EbbKV/storage/index"
)

// DB 表示单文件追加日志型存储引擎的核心结构体
// 封装了日志句柄、内存索引和配置选项
//
// 日志是唯一的持久化产物：每次写入都是向日志末尾追加一条
// (key 帧, value 帧) 记录，旧记录永不覆盖或删除。
// 索引只存在于内存中，每次打开时通过从偏移量 0 顺序回放日志重建。
type DB struct {
	file    File               // 底层存储句柄，引擎在生命周期内独占
	index   index.Index        // 内存索引：key -> value 帧的位置
	bloom   *index.BloomFilter // 布隆过滤器，用于快速判断 key 是否存在
	codec   *codec.Codec       // 字段帧编解码器
	options *Options           // 配置选项
	mu      sync.RWMutex       // 保护索引与文件游标
	size    int64              // 日志当前末尾偏移量
	closed  bool               // 是否已关闭
}

// File 是引擎要求的底层存储句柄能力：
// 按字节偏移量随机读、顺序追加写、绝对/相对定位
type File interface {
	io.Reader
	io.Writer
	io.Seeker
}

// syncer 是可选能力：支持把缓冲数据刷到磁盘的句柄（如 *os.File）
// io.ReaderAt 同样按可选能力处理：支持定位读的句柄允许 Get 并发执行
type syncer interface {
	Sync() error
}

// IndexType 定义索引类型
type IndexType int

const (
	// IndexTypeART 使用自适应基数树作为索引（默认）
	IndexTypeART IndexType = iota
	// IndexTypeMap 使用内置 Map 作为索引
	IndexTypeMap
)

// Options 定义 DB 的配置选项
type Options struct {
	// IndexType 索引类型：ART (Adaptive Radix Tree) 或 Map
	IndexType IndexType

	// BloomFilterFP 布隆过滤器的期望误判率
	// 值越小，需要的内存越多
	BloomFilterFP float64

	// BloomFilterCap 布隆过滤器的预估容量（key 数量）
	BloomFilterCap uint

	// Compression 是否对落盘负载开启 snappy 压缩
	// 注意：同一份日志必须始终使用相同的压缩配置打开
	Compression bool

	// SyncOnPut 每次 Put 之后是否立即 fsync
	// 默认关闭，由底层句柄的缓冲策略决定持久化时机
	SyncOnPut bool
}

// Option 定义 Options 的配置函数
type Option func(*Options)

// WithIndexType 设置索引类型
func WithIndexType(indexType IndexType) Option {
	return func(o *Options) {
		o.IndexType = indexType
	}
}

// WithBloomFilterFP 设置布隆过滤器的期望误判率
func WithBloomFilterFP(fp float64) Option {
	return func(o *Options) {
		o.BloomFilterFP = fp
	}
}

// WithBloomFilterCap 设置布隆过滤器的预估容量
func WithBloomFilterCap(n uint) Option {
	return func(o *Options) {
		o.BloomFilterCap = n
	}
}

// WithCompression 开启落盘负载的 snappy 压缩
func WithCompression() Option {
	return func(o *Options) {
		o.Compression = true
	}
}

// WithSyncOnPut 开启每次写入后立即 fsync
func WithSyncOnPut() Option {
	return func(o *Options) {
		o.SyncOnPut = true
	}
}

// Open 打开或创建一个日志文件并在其上构建引擎
// 参数：
//   - path: 日志文件路径
//   - opts: 配置选项
//
// 返回：
//   - *DB: 引擎指针，索引已通过回放日志完整重建
//   - error: 打开或恢复错误
func Open(path string, opts ...Option) (*DB, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("打开日志文件失败: %w", err)
	}

	db, err := New(file, opts...)
	if err != nil {
		file.Close()
		return nil, err
	}
	return db, nil
}

// New 在任意可读写、可定位的存储句柄上构建引擎
// 引擎在其生命周期内独占该句柄；打开期间会从偏移量 0 回放全部记录重建索引
//
// 参数：
//   - file: 底层存储句柄
//   - opts: 配置选项
//
// 返回：
//   - *DB: 引擎指针
//   - error: 恢复错误（半截记录、损坏数据或 I/O 失败都会导致打开失败）
func New(file File, opts ...Option) (*DB, error) {
	options := &Options{
		IndexType:      IndexTypeART,
		BloomFilterFP:  0.01,
		BloomFilterCap: 1000000,
	}
	for _, opt := range opts {
		opt(options)
	}

	var idx index.Index
	switch options.IndexType {
	case IndexTypeMap:
		idx = index.NewMapIndex()
	default:
		idx = index.NewARTIndex()
	}

	var codecOpts []codec.Option
	if options.Compression {
		codecOpts = append(codecOpts, codec.WithCompression())
	}

	db := &DB{
		file:    file,
		index:   idx,
		bloom:   index.NewBloomFilter(options.BloomFilterCap, options.BloomFilterFP),
		codec:   codec.New(codecOpts...),
		options: options,
	}

	if err := db.recover(); err != nil {
		db.index.Close()
		return nil, err
	}

	return db, nil
}

// recover 从偏移量 0 顺序回放日志，重建内存索引
//
// 回放循环：尝试解码一个 key 帧。如果流在帧边界处恰好耗尽
// （io.EOF，消耗 0 字节），说明没有更多记录，回放正常结束。
// 其它任何解码失败（半截帧、CRC 不匹配、I/O 错误）都是致命的恢复错误。
// key 解码成功后，当前偏移量就是对应 value 帧的起始位置，
// 写入索引后再解码（并丢弃）一个 value 帧把流推进到下一条记录——
// 这一步失败同样致命：只有 key 没有 value 说明日志被截断或损坏
func (db *DB) recover() error {
	if _, err := db.file.Seek(0, io.SeekStart); err != nil {
		return newError(KindIO, "recover: 定位日志起点", err)
	}

	// 回放是一次线性全量扫描，经过 bufio 读比逐帧直读快得多
	r := bufio.NewReader(db.file)
	var off uint64
	for {
		key, n, err := db.codec.ReadField(r)
		if err == io.EOF {
			// 干净的日志末尾：没有更多记录
			break
		}
		if err != nil {
			return classifyRead("recover: 解码 key", err)
		}
		off += uint64(n)

		pos := &storage.Position{Offset: off}
		_, vn, err := db.codec.ReadField(r)
		if err != nil {
			// key 已落盘但 value 缺失或损坏
			return classifyRead("recover: 解码 value", err)
		}
		pos.Size = uint32(vn)
		off += uint64(vn)

		db.index.Put(key, pos)
		db.bloom.Add(key)
	}

	db.size = int64(off)
	return nil
}

// Put 写入键值对
// 将 key 帧和 value 帧追加到日志末尾，并把索引更新为
// 紧跟在 key 帧之后的偏移量（即 value 帧的起始位置）
//
// 对同一个 key 再次 Put 会追加一条新记录并覆盖索引项，
// 旧记录留在日志中成为不可达的垃圾（不做回收）
//
// 参数：
//   - key: 键
//   - value: 值
//
// 返回：
//   - error: 编码或写入错误；写入中途失败不做回滚，
//     日志可能残留只有 key 没有 value 的半条记录，下次打开会报恢复错误
func (db *DB) Put(key []byte, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return newError(KindIO, "put", os.ErrClosed)
	}

	keyFrame, err := db.codec.EncodeField(key)
	if err != nil {
		return newError(KindEncode, "put: 编码 key", err)
	}
	valueFrame, err := db.codec.EncodeField(value)
	if err != nil {
		return newError(KindEncode, "put: 编码 value", err)
	}

	// 总是显式定位到日志末尾再写，游标状态不跨操作传递
	end, err := db.file.Seek(0, io.SeekEnd)
	if err != nil {
		return newError(KindIO, "put: 定位日志末尾", err)
	}

	record := make([]byte, 0, len(keyFrame)+len(valueFrame))
	record = append(record, keyFrame...)
	record = append(record, valueFrame...)
	if _, err := db.file.Write(record); err != nil {
		return newError(KindIO, "put: 追加写入", err)
	}
	db.size = end + int64(len(record))

	db.index.Put(key, &storage.Position{
		Offset: uint64(end) + uint64(len(keyFrame)),
		Size:   uint32(len(valueFrame)),
	})
	db.bloom.Add(key)

	if db.options.SyncOnPut {
		if s, ok := db.file.(syncer); ok {
			if err := s.Sync(); err != nil {
				return newError(KindIO, "put: 同步到磁盘", err)
			}
		}
	}

	return nil
}

// Get 根据键获取值
// 先用布隆过滤器快速排除一定不存在的 key，再查内存索引；
// 命中后在索引记录的偏移量上解码恰好一个 value 帧返回
//
// 句柄支持定位读（io.ReaderAt）时，读取不触碰共享游标，
// 多个 Get 可以并发执行；只能用共享游标读的句柄退化为独占访问，
// 避免并发读互相挪动游标读到对方的字节
//
// 参数：
//   - key: 键
//
// 返回：
//   - []byte: 值
//   - error: 键不存在返回 storage.ErrKeyNotFound；
//     索引命中但偏移量已失效（如日志被外部截断）是致命错误，不是未命中
func (db *DB) Get(key []byte) ([]byte, error) {
	ra, positional := db.file.(io.ReaderAt)
	if positional {
		db.mu.RLock()
		defer db.mu.RUnlock()
	} else {
		db.mu.Lock()
		defer db.mu.Unlock()
	}

	if db.closed {
		return nil, newError(KindIO, "get", os.ErrClosed)
	}

	// 布隆过滤器返回 false 时 key 一定不存在，不必查索引
	if !db.bloom.Test(key) {
		return nil, storage.ErrKeyNotFound
	}

	pos := db.index.Get(key)
	if pos == nil {
		// 布隆过滤器误判，索引才是权威
		return nil, storage.ErrKeyNotFound
	}

	var r io.Reader
	if positional {
		r = io.NewSectionReader(ra, int64(pos.Offset), int64(pos.Size))
	} else {
		if _, err := db.file.Seek(int64(pos.Offset), io.SeekStart); err != nil {
			return nil, newError(KindIO, "get: 定位 value", err)
		}
		r = db.file
	}
	value, _, err := db.codec.ReadField(r)
	if err != nil {
		// 索引一旦建立引擎就信任它：这里的任何失败都向调用方暴露
		return nil, classifyRead("get: 解码 value", err)
	}

	return value, nil
}

// Has 判断键是否存在，只查内存索引，不读取日志
func (db *DB) Has(key []byte) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if !db.bloom.Test(key) {
		return false
	}
	return db.index.Get(key) != nil
}

// Len 返回当前索引中的键数量
func (db *DB) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.index.Size()
}

// LogSize 返回日志当前的末尾偏移量（字节）
// 包含已被覆盖写入的不可达旧记录
func (db *DB) LogSize() int64 {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.size
}

// Sync 将缓冲区中的数据同步到磁盘
// 底层句柄不支持同步时是空操作
func (db *DB) Sync() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return newError(KindIO, "sync", os.ErrClosed)
	}
	if s, ok := db.file.(syncer); ok {
		if err := s.Sync(); err != nil {
			return newError(KindIO, "sync", err)
		}
	}
	return nil
}

// Close 关闭存储引擎
// 关闭前同步数据；索引随实例销毁，下次打开时重新回放日志重建
// 返回：
//   - error: 关闭错误
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil
	}
	db.closed = true

	if s, ok := db.file.(syncer); ok {
		if err := s.Sync(); err != nil {
			return newError(KindIO, "close: 同步数据", err)
		}
	}
	if c, ok := db.file.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return newError(KindIO, "close", err)
		}
	}

	db.index.Close()
	return nil
}

// 确保 DB 实现了 storage.Engine 接口
var _ storage.Engine = (*DB)(nil)
