// internal/serial/serial.go

// Package serial talks to the RFM12 base station over a serial port.
package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/linjuya-lu/device_rfm12_go/internal/config"
)

// Port 是整个 serial 包对外暴露的通用串口接口
type Port interface {
	Open() error
	Close() error
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Name() string
	// WriteFrame 直接向串口写入一整帧数据
	WriteFrame(frame []byte) error
}

// FrameWriter is the write side used by the gateway.
type FrameWriter interface {
	WriteFrame(frame []byte) error
}

// NewPort 根据配置创建对应的串口实现（UART / RS-232 / RS-485）
func NewPort(cfg config.SerialConfig) (Port, error) {
	switch cfg.Type {
	case "uart", "rs232":
		return NewUARTPort(cfg), nil
	case "rs485":
		return NewRS485Port(cfg), nil
	default:
		return nil, fmt.Errorf("unknown port type %s", cfg.Type)
	}
}

// ReadLines reads r until it fails or ctx is cancelled, sending every
// complete line (without terminator) to out. io.EOF is treated as an idle
// read timeout. The returned error is never nil: ctx.Err() after
// cancellation, the read error otherwise.
func ReadLines(ctx context.Context, r io.Reader, out chan<- string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	var buf []byte
	tmp := make([]byte, 256)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
			for {
				line, rest, perr := SplitLine(buf)
				if perr != nil {
					// 出错直接丢弃整个缓存，重开
					log.Warn("discarding serial input", zap.Error(perr), zap.Int("bytes", len(buf)))
					buf = nil
					break
				}
				if line == nil {
					break
				}
				select {
				case out <- string(line):
				case <-ctx.Done():
					return ctx.Err()
				}
				buf = rest
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if n == 0 {
					time.Sleep(10 * time.Millisecond)
				}
				continue
			}
			return fmt.Errorf("serial read: %w", err)
		}
	}
}
