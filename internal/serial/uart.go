package serial

import (
	"errors"
	"fmt"

	"github.com/tarm/serial"

	"github.com/linjuya-lu/device_rfm12_go/internal/config"
)

// errNotOpen is returned by I/O on a port that has not been opened.
var errNotOpen = errors.New("serial port not open")

type UARTPort struct {
	cfg    config.SerialConfig
	handle *serial.Port
}

func NewUARTPort(cfg config.SerialConfig) Port {
	return &UARTPort{cfg: cfg}
}

func (u *UARTPort) Open() error {
	sc := &serial.Config{
		Name:        u.cfg.Device,
		Baud:        u.cfg.Baudrate,
		ReadTimeout: u.cfg.ReadTimeout,
	}
	p, err := serial.OpenPort(sc)
	if err != nil {
		return fmt.Errorf("open UART %s failed: %w", u.cfg.Device, err)
	}
	u.handle = p
	return nil
}

func (u *UARTPort) Close() error {
	if u.handle != nil {
		return u.handle.Close()
	}
	return nil
}

func (u *UARTPort) Read(p []byte) (int, error) {
	if u.handle == nil {
		return 0, errNotOpen
	}
	return u.handle.Read(p)
}

func (u *UARTPort) Write(p []byte) (int, error) {
	if u.handle == nil {
		return 0, errNotOpen
	}
	n, err := u.handle.Write(p)
	if err != nil {
		return n, fmt.Errorf("UART write failed: %w", err)
	}
	return n, nil
}

// Name 返回逻辑名称
func (u *UARTPort) Name() string {
	return u.cfg.Name
}

func (u *UARTPort) WriteFrame(frame []byte) error {
	if _, err := u.Write(frame); err != nil {
		return fmt.Errorf("UART WriteFrame failed: %w", err)
	}
	return nil
}
