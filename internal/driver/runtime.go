package driver

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/linjuya-lu/device_rfm12_go/internal/command"
	"github.com/linjuya-lu/device_rfm12_go/internal/config"
	"github.com/linjuya-lu/device_rfm12_go/internal/framelog"
	"github.com/linjuya-lu/device_rfm12_go/internal/gateway"
	"github.com/linjuya-lu/device_rfm12_go/internal/logging"
	"github.com/linjuya-lu/device_rfm12_go/internal/nodes"
	"github.com/linjuya-lu/device_rfm12_go/internal/parser"
	"github.com/linjuya-lu/device_rfm12_go/internal/serial"
)

// runtime 是驱动内嵌的网关：串口读循环 + 网关主循环。
// EdgeX 模式下读数经 SDK 上报，命令来自 HandleWriteCommands，不连接 MQTT。
type runtime struct {
	log      *zap.Logger
	registry *nodes.Registry
	port     serial.Port
	frameLog *framelog.Writer
	gateway  *gateway.Gateway

	cancel context.CancelFunc
	done   chan struct{}
}

// newRuntime 负责：
//  1. 加载网关配置
//  2. 加载节点定义
//  3. 创建串口（尚未打开）与帧日志
//  4. 组装网关
func newRuntime(configPath string, sink gateway.ReadingSink) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	reg, err := nodes.LoadFile(cfg.Nodes.File)
	if err != nil {
		return nil, fmt.Errorf("load nodes: %w", err)
	}

	port, err := serial.NewPort(cfg.Serial)
	if err != nil {
		return nil, fmt.Errorf("unsupported port %s: %w", cfg.Serial.Name, err)
	}

	rt := &runtime{log: log, registry: reg, port: port}
	opts := gateway.Options{
		Parser: parser.New(reg, log.Named("parser")),
		Router: command.NewRouter(reg, log.Named("router")),
		Sink:   sink,
		Writer: serial.NewPacedWriter(port, cfg.Serial.WriteInterval),
		Log:    log.Named("gateway"),
	}
	if cfg.FrameLog.Enable {
		rt.frameLog = framelog.New(cfg.FrameLog.Dir, cfg.FrameLog.Prefix,
			framelog.WithHeader(cfg.FrameLog.Header),
			framelog.WithLogger(log.Named("framelog")))
		opts.FrameLog = rt.frameLog
	}
	rt.gateway, err = gateway.New(opts)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// start 打开串口并启动读循环与网关主循环
func (rt *runtime) start() error {
	if err := rt.port.Open(); err != nil {
		return fmt.Errorf("open port %s: %w", rt.port.Name(), err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	rt.cancel = cancel
	rt.done = make(chan struct{})

	lines := make(chan string, 16)
	go func() {
		defer close(lines)
		err := serial.ReadLines(ctx, rt.port, lines, rt.log.Named("serial"))
		if !errors.Is(err, context.Canceled) {
			rt.log.Error("serial read loop stopped", zap.Error(err))
		}
	}()
	go func() {
		defer close(rt.done)
		if err := rt.gateway.Run(ctx, lines); !errors.Is(err, context.Canceled) {
			rt.log.Error("gateway stopped", zap.Error(err))
		}
	}()
	return nil
}

func (rt *runtime) stop() {
	if rt.cancel != nil {
		rt.cancel()
		_ = rt.port.Close()
		<-rt.done
	}
	if rt.frameLog != nil {
		_ = rt.frameLog.Close()
	}
	_ = rt.log.Sync()
}
