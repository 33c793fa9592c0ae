package serial

import (
	"fmt"
	"os"
	"time"

	"github.com/tarm/serial"

	"github.com/linjuya-lu/device_rfm12_go/internal/config"
)

// RS485Port 实现了 RS-485 半双工物理层的读写
// - Open/Close 管理串口和 GPIO
// - Read/Write 提供原始字节接口
// - WriteFrame 在发送前后切换 DE/RE
type RS485Port struct {
	cfg    config.SerialConfig // 端口配置
	port   *serial.Port        // 串口句柄
	gpioFD *os.File            // DE/RE 控制 GPIO 节点

	gpioRoot string
}

// 构造 RS485Port 实例
func NewRS485Port(cfg config.SerialConfig) Port {
	return &RS485Port{cfg: cfg, gpioRoot: "/sys/class/gpio"}
}

// Open 导出 GPIO 并打开串口
func (r *RS485Port) Open() error {
	if err := r.openGPIO(); err != nil {
		return err
	}

	serCfg := &serial.Config{
		Name:        r.cfg.Device,
		Baud:        r.cfg.Baudrate,
		ReadTimeout: r.cfg.ReadTimeout,
	}
	p, err := serial.OpenPort(serCfg)
	if err != nil {
		r.gpioFD.Close()
		r.gpioFD = nil
		return fmt.Errorf("open serial %s failed: %w", r.cfg.Device, err)
	}
	r.port = p
	return nil
}

func (r *RS485Port) openGPIO() error {
	if err := exportGPIO(r.gpioRoot, r.cfg.DEPin); err != nil {
		return fmt.Errorf("export GPIO %d failed: %w", r.cfg.DEPin, err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := setGPIODirection(r.gpioRoot, r.cfg.DEPin, "out"); err != nil {
		return fmt.Errorf("set GPIO %d direction: %w", r.cfg.DEPin, err)
	}
	f, err := openGPIOValue(r.gpioRoot, r.cfg.DEPin)
	if err != nil {
		return fmt.Errorf("open GPIO %d value: %w", r.cfg.DEPin, err)
	}
	// 默认低电平 (接收)
	if _, err := f.WriteString("0"); err != nil {
		f.Close()
		return fmt.Errorf("init GPIO %d low: %w", r.cfg.DEPin, err)
	}
	r.gpioFD = f
	return nil
}

// Close 关闭串口和 GPIO
func (r *RS485Port) Close() error {
	var firstErr error
	if r.port != nil {
		if err := r.port.Close(); err != nil {
			firstErr = err
		}
	}
	if r.gpioFD != nil {
		if err := r.gpioFD.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Read 实现 io.Reader
func (r *RS485Port) Read(p []byte) (int, error) {
	if r.port == nil {
		return 0, errNotOpen
	}
	return r.port.Read(p)
}

// Write 实现 io.Writer，注意并不会自动切换 DE/RE
func (r *RS485Port) Write(p []byte) (int, error) {
	if r.port == nil {
		return 0, errNotOpen
	}
	return r.port.Write(p)
}

// WriteFrame 切到发送 → 写整帧 → 切回接收
func (r *RS485Port) WriteFrame(frame []byte) error {
	if r.port == nil || r.gpioFD == nil {
		return errNotOpen
	}
	if _, err := r.gpioFD.WriteString("1"); err != nil {
		return fmt.Errorf("GPIO DE high failed: %w", err)
	}
	time.Sleep(5 * time.Millisecond)

	n, err := r.port.Write(frame)
	if err != nil {
		// 出错切回接收
		r.gpioFD.WriteString("0")
		return fmt.Errorf("serial write failed: %w", err)
	}
	// 等待所有比特发出 (10 bits/byte)
	time.Sleep(txDuration(n, r.cfg.Baudrate))

	if _, err := r.gpioFD.WriteString("0"); err != nil {
		return fmt.Errorf("GPIO DE low failed: %w", err)
	}
	return nil
}

// Name 返回端口名称
func (r *RS485Port) Name() string {
	return r.cfg.Name
}

// txDuration is the time n bytes take on the wire at baud (8N1).
func txDuration(n, baud int) time.Duration {
	if baud <= 0 {
		return 0
	}
	return time.Duration(n*10) * time.Second / time.Duration(baud)
}

// -------- GPIO 辅助函数 --------
func exportGPIO(root string, pin int) error {
	f, err := os.OpenFile(root+"/export", os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	_, _ = f.WriteString(fmt.Sprint(pin)) // 若已导出则忽略错误
	return nil
}

func setGPIODirection(root string, pin int, dir string) error {
	path := fmt.Sprintf("%s/gpio%d/direction", root, pin)
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(dir)
	return err
}

func openGPIOValue(root string, pin int) (*os.File, error) {
	path := fmt.Sprintf("%s/gpio%d/value", root, pin)
	return os.OpenFile(path, os.O_RDWR, 0)
}
