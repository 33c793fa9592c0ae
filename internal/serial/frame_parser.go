package serial

import (
	"bytes"
	"errors"
)

// MaxLineLength bounds a buffered line; longer input without a newline is
// discarded.
const MaxLineLength = 1024

// ErrLineTooLong is returned by SplitLine when no newline shows up within
// MaxLineLength bytes.
var ErrLineTooLong = errors.New("serial line too long")

// SplitLine 从缓冲区中取出一行（以 \n 结尾，去掉 \r）。
// 它返回：
//   - line: 完整的一行（若数据不足以组成完整一行则返回 nil）
//   - rest: 余下未处理的字节（用于下一次解析时继续累积）
//   - err:  缓冲区过长时的错误（此时应丢弃整个缓冲区）
func SplitLine(buf []byte) (line []byte, rest []byte, err error) {
	i := bytes.IndexByte(buf, '\n')
	if i < 0 {
		if len(buf) > MaxLineLength {
			return nil, nil, ErrLineTooLong
		}
		return nil, buf, nil
	}
	line = bytes.TrimRight(buf[:i], "\r")
	if line == nil {
		line = []byte{}
	}
	return line, buf[i+1:], nil
}
