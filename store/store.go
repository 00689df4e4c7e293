package store

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-msgpack/v2/codec"

	"github.com/forever-free1/EbbKV/storage"
)

// Store 在字节引擎之上提供带类型的访问层
// 记录以 UUID 为键，value 是任意可 msgpack 序列化的结构
//
// Store 不关心底层引擎如何落盘：它只负责类型与字节之间的转换，
// 未命中语义原样透传引擎的 storage.ErrKeyNotFound
type Store struct {
	engine storage.Engine
}

// New 创建一个新的 Store
// 参数：
//   - engine: 底层存储引擎
//
// 返回：
//   - *Store: Store 实例
func New(engine storage.Engine) *Store {
	return &Store{engine: engine}
}

// Put 写入一条带类型的记录
// 参数：
//   - id: 记录的 UUID 键
//   - value: 任意可 msgpack 序列化的值
//
// 返回：
//   - error: 编码或写入错误
func (s *Store) Put(id uuid.UUID, value interface{}) error {
	data, err := encodeValue(value)
	if err != nil {
		return fmt.Errorf("编码 value 失败: %w", err)
	}
	return s.engine.Put(id[:], data)
}

// Get 读取一条带类型的记录并解码到 out
// 参数：
//   - id: 记录的 UUID 键
//   - out: 解码目标的指针
//
// 返回：
//   - error: 键不存在返回 storage.ErrKeyNotFound，否则为读取或解码错误
func (s *Store) Get(id uuid.UUID, out interface{}) error {
	data, err := s.engine.Get(id[:])
	if err != nil {
		return err
	}
	if err := decodeValue(data, out); err != nil {
		return fmt.Errorf("解码 value 失败: %w", err)
	}
	return nil
}

// Has 判断记录是否存在
func (s *Store) Has(id uuid.UUID) bool {
	return s.engine.Has(id[:])
}

// Len 返回记录数量
func (s *Store) Len() int {
	return s.engine.Len()
}

// encodeValue 将值编码为 msgpack 字节
func encodeValue(value interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, &codec.MsgpackHandle{})
	err := enc.Encode(value)
	return buf.Bytes(), err
}

// decodeValue 从 msgpack 字节解码值
func decodeValue(data []byte, out interface{}) error {
	dec := codec.NewDecoderBytes(data, &codec.MsgpackHandle{})
	return dec.Decode(out)
}
