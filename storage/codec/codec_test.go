package codec

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestCodec_EncodeDecodeRoundTrip(t *testing.T) {
	c := New()

	payload := []byte("this is a test transmission")
	frame, err := c.EncodeField(payload)
	if err != nil {
		t.Fatalf("编码失败: %v", err)
	}
	if len(frame) != HeaderSize+len(payload) {
		t.Errorf("帧大小不匹配: got %d, want %d", len(frame), HeaderSize+len(payload))
	}

	got, n, err := c.ReadField(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("解码失败: %v", err)
	}
	if n != len(frame) {
		t.Errorf("消耗字节数不匹配: got %d, want %d", n, len(frame))
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("负载不匹配: got %q, want %q", got, payload)
	}
}

func TestCodec_EmptyPayload(t *testing.T) {
	c := New()

	frame, err := c.EncodeField(nil)
	if err != nil {
		t.Fatalf("编码失败: %v", err)
	}

	got, n, err := c.ReadField(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("解码失败: %v", err)
	}
	if n != HeaderSize {
		t.Errorf("消耗字节数不匹配: got %d, want %d", n, HeaderSize)
	}
	if len(got) != 0 {
		t.Errorf("期望空负载, 得到 %d 字节", len(got))
	}
}

func TestCodec_CleanEndOfStream(t *testing.T) {
	c := New()

	// 空流在帧边界处干净结束，必须返回 io.EOF 且消耗 0 字节
	_, n, err := c.ReadField(bytes.NewReader(nil))
	if err != io.EOF {
		t.Fatalf("期望 io.EOF, 得到: %v", err)
	}
	if n != 0 {
		t.Errorf("干净结束不应消耗字节: got %d", n)
	}
}

func TestCodec_TruncatedHeader(t *testing.T) {
	c := New()

	frame, err := c.EncodeField([]byte("value"))
	if err != nil {
		t.Fatalf("编码失败: %v", err)
	}

	// 帧头只有一部分：这是截断，不是干净结束
	_, _, err = c.ReadField(bytes.NewReader(frame[:HeaderSize-3]))
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("期望 ErrTruncated, 得到: %v", err)
	}
}

func TestCodec_TruncatedPayload(t *testing.T) {
	c := New()

	frame, err := c.EncodeField([]byte("this is a test transmission"))
	if err != nil {
		t.Fatalf("编码失败: %v", err)
	}

	// 帧头完整但负载缺了尾部
	_, _, err = c.ReadField(bytes.NewReader(frame[:len(frame)-5]))
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("期望 ErrTruncated, 得到: %v", err)
	}
}

func TestCodec_ChecksumMismatch(t *testing.T) {
	c := New()

	frame, err := c.EncodeField([]byte("this is a test transmission"))
	if err != nil {
		t.Fatalf("编码失败: %v", err)
	}

	// 翻转负载中的一个字节
	frame[HeaderSize] ^= 0xff
	_, _, err = c.ReadField(bytes.NewReader(frame))
	if !errors.Is(err, ErrChecksum) {
		t.Errorf("期望 ErrChecksum, 得到: %v", err)
	}
}

func TestCodec_FrameSizeOutOfRange(t *testing.T) {
	c := New()

	frame, err := c.EncodeField([]byte("value"))
	if err != nil {
		t.Fatalf("编码失败: %v", err)
	}

	// 伪造一个超出上限的声明大小
	frame[0] = 0xff
	frame[1] = 0xff
	frame[2] = 0xff
	frame[3] = 0xff
	_, _, err = c.ReadField(bytes.NewReader(frame))
	if !errors.Is(err, ErrFrameSize) {
		t.Errorf("期望 ErrFrameSize, 得到: %v", err)
	}
}

func TestCodec_CompressionRoundTrip(t *testing.T) {
	c := New(WithCompression())

	// 高重复度的负载，压缩后应明显变小
	payload := bytes.Repeat([]byte("abcdefgh"), 512)
	frame, err := c.EncodeField(payload)
	if err != nil {
		t.Fatalf("编码失败: %v", err)
	}
	if len(frame) >= HeaderSize+len(payload) {
		t.Errorf("压缩未生效: 帧大小 %d, 原始负载 %d", len(frame), len(payload))
	}

	got, n, err := c.ReadField(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("解码失败: %v", err)
	}
	if n != len(frame) {
		t.Errorf("消耗字节数不匹配: got %d, want %d", n, len(frame))
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("解压后负载不匹配")
	}
}

func TestCodec_MultipleFramesSequential(t *testing.T) {
	c := New()

	var buf bytes.Buffer
	payloads := [][]byte{
		[]byte("key1"),
		[]byte("value1"),
		[]byte("key2"),
		[]byte("value2"),
	}
	for _, p := range payloads {
		frame, err := c.EncodeField(p)
		if err != nil {
			t.Fatalf("编码失败: %v", err)
		}
		buf.Write(frame)
	}

	// 顺序解码应逐帧取回全部负载，最后以 io.EOF 结束
	r := bytes.NewReader(buf.Bytes())
	for i, want := range payloads {
		got, _, err := c.ReadField(r)
		if err != nil {
			t.Fatalf("解码第 %d 帧失败: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("第 %d 帧负载不匹配: got %q, want %q", i, got, want)
		}
	}
	if _, _, err := c.ReadField(r); err != io.EOF {
		t.Errorf("期望 io.EOF, 得到: %v", err)
	}
}
