package casklog

import (
	"errors"
	"fmt"
	"io"

	"github.com/forever-free1/EbbKV/storage/codec"
)

// Kind 划分引擎错误的类别
// 错误分类与具体的序列化实现解耦：调用方只依赖类别，不依赖 codec 的错误值
type Kind int

const (
	// KindIO 底层读/写/定位失败
	KindIO Kind = iota + 1
	// KindEncode 值无法编码为字节
	KindEncode
	// KindDecode 字节无法解码（数据损坏）
	KindDecode
	// KindTruncation 记录只有一部分落盘
	KindTruncation
)

// String 返回类别的可读名称
func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io failure"
	case KindEncode:
		return "encode failure"
	case KindDecode:
		return "decode failure"
	case KindTruncation:
		return "truncation"
	default:
		return "unknown"
	}
}

// Error 是引擎统一的错误类型，携带类别、操作名与底层原因
type Error struct {
	Kind Kind   // 错误类别
	Op   string // 出错的操作
	Err  error  // 底层原因
}

// Error 实现 error 接口
func (e *Error) Error() string {
	return fmt.Sprintf("casklog: %s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap 返回底层原因，支持 errors.Is / errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind 判断 err 是否为指定类别的引擎错误
// 参数：
//   - err: 待判断的错误
//   - k: 期望的类别
//
// 返回：
//   - bool: 是否匹配
func IsKind(err error, k Kind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == k
}

// newError 构造一个带类别的引擎错误
func newError(k Kind, op string, err error) *Error {
	return &Error{Kind: k, Op: op, Err: err}
}

// classifyRead 将 codec 的读取错误映射为引擎错误类别
// 截断归为 KindTruncation，损坏（CRC、帧大小、解压失败）归为 KindDecode，
// 其余视为底层 I/O 失败
func classifyRead(op string, err error) *Error {
	switch {
	case errors.Is(err, codec.ErrTruncated):
		return newError(KindTruncation, op, err)
	case errors.Is(err, codec.ErrChecksum), errors.Is(err, codec.ErrFrameSize),
		errors.Is(err, codec.ErrDecompress):
		return newError(KindDecode, op, err)
	case errors.Is(err, io.EOF):
		// 在不允许干净结束的位置读到 EOF，等同于截断
		return newError(KindTruncation, op, codec.ErrTruncated)
	default:
		return newError(KindIO, op, err)
	}
}
