package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/golang/snappy"
)

// 字段帧格式：| Size (4B) | CRC32 (4B) | Payload (Size B) |
// Size 与 CRC 均为小端序；CRC 覆盖落盘的 Payload 字节（压缩开启时为压缩后的字节）
//
// 帧是自定界的：解码方读取帧头即可确定需要消耗的字节数，
// 恢复扫描可以据此区分"干净的日志末尾"与"被截断的半截记录"

// HeaderSize 固定帧头大小：Size(4) + CRC(4) = 8 字节
const HeaderSize = 8

// MaxPayloadSize 单个字段的最大落盘大小
// 超过该值的 Size 字段一定是损坏的数据，解码时直接拒绝，避免按损坏长度分配内存
const MaxPayloadSize = 1 << 30

// ErrTruncated 表示帧头或负载只有一部分落盘（记录被截断）
var ErrTruncated = errors.New("truncated frame")

// ErrChecksum 表示 CRC 校验失败（记录已损坏）
var ErrChecksum = errors.New("frame checksum mismatch")

// ErrFrameSize 表示帧声明的大小超出允许范围
var ErrFrameSize = errors.New("frame size out of range")

// ErrPayloadTooLarge 表示待编码的负载超过单帧上限
var ErrPayloadTooLarge = errors.New("payload exceeds frame size limit")

// ErrDecompress 表示负载解压失败（压缩数据已损坏）
var ErrDecompress = errors.New("payload decompression failed")

// Codec 负责字段的编码与解码
// 编码是确定性的：EncodeField 产出的字节，ReadField 恰好完整消耗
type Codec struct {
	compress bool
}

// Option 定义 Codec 的配置函数
type Option func(*Codec)

// WithCompression 开启负载的 snappy 压缩
// 注意：写入与读取必须使用相同的压缩配置
func WithCompression() Option {
	return func(c *Codec) {
		c.compress = true
	}
}

// New 创建一个新的 Codec
func New(opts ...Option) *Codec {
	c := &Codec{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EncodeField 将负载编码为一个完整的字段帧
// 参数：
//   - payload: 原始负载字节
//
// 返回：
//   - []byte: 编码后的帧（帧头 + 落盘负载）
//   - error: 负载超限错误
func (c *Codec) EncodeField(payload []byte) ([]byte, error) {
	stored := payload
	if c.compress {
		stored = snappy.Encode(nil, payload)
	}
	if len(stored) > MaxPayloadSize {
		return nil, fmt.Errorf("负载大小 %d 超出单帧上限: %w", len(stored), ErrPayloadTooLarge)
	}

	buf := make([]byte, HeaderSize+len(stored))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(stored)))
	binary.LittleEndian.PutUint32(buf[4:8], crc32.ChecksumIEEE(stored))
	copy(buf[HeaderSize:], stored)
	return buf, nil
}

// ReadField 从 r 读取并解码一个完整的字段帧
//
// 结束条件是显式可测的：
//   - 流在帧边界处恰好耗尽（帧头一个字节都读不到）返回 io.EOF，
//     这是恢复扫描"没有更多记录"的正常信号，不是错误
//   - 帧头或负载只读到一部分返回 ErrTruncated
//   - CRC 不匹配返回 ErrChecksum
//
// 参数：
//   - r: 定位在帧起始处的读取流
//
// 返回：
//   - []byte: 解码后的负载
//   - int: 该帧消耗的总字节数
//   - error: 读取或解码错误
func (c *Codec) ReadField(r io.Reader) ([]byte, int, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF {
			// 帧边界处干净结束
			return nil, 0, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return nil, 0, fmt.Errorf("帧头不完整: %w", ErrTruncated)
		}
		return nil, 0, fmt.Errorf("读取帧头失败: %w", err)
	}

	size := binary.LittleEndian.Uint32(header[0:4])
	sum := binary.LittleEndian.Uint32(header[4:8])
	if size > MaxPayloadSize {
		return nil, 0, fmt.Errorf("帧声明大小 %d 非法: %w", size, ErrFrameSize)
	}

	stored := make([]byte, size)
	if _, err := io.ReadFull(r, stored); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, 0, fmt.Errorf("负载不完整 (声明 %d 字节): %w", size, ErrTruncated)
		}
		return nil, 0, fmt.Errorf("读取负载失败: %w", err)
	}

	if crc32.ChecksumIEEE(stored) != sum {
		return nil, 0, fmt.Errorf("负载校验失败: %w", ErrChecksum)
	}

	payload := stored
	if c.compress {
		var err error
		payload, err = snappy.Decode(nil, stored)
		if err != nil {
			return nil, 0, fmt.Errorf("snappy 解压失败 (%v): %w", err, ErrDecompress)
		}
	}

	return payload, HeaderSize + int(size), nil
}
