// Command rfm12-gateway bridges an RFM12 base station on a serial port to an
// MQTT broker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/linjuya-lu/device_rfm12_go/internal/command"
	"github.com/linjuya-lu/device_rfm12_go/internal/config"
	"github.com/linjuya-lu/device_rfm12_go/internal/framelog"
	"github.com/linjuya-lu/device_rfm12_go/internal/gateway"
	"github.com/linjuya-lu/device_rfm12_go/internal/httpserver"
	"github.com/linjuya-lu/device_rfm12_go/internal/logging"
	"github.com/linjuya-lu/device_rfm12_go/internal/metrics"
	"github.com/linjuya-lu/device_rfm12_go/internal/mqtt"
	"github.com/linjuya-lu/device_rfm12_go/internal/nodes"
	"github.com/linjuya-lu/device_rfm12_go/internal/parser"
	"github.com/linjuya-lu/device_rfm12_go/internal/serial"
)

func main() {
	configPath := flag.String("config", "", "path to gateway.yaml")
	var level string
	flag.StringVar(&level, "L", "", "log level (debug, info, warning, error); overrides logging.level")
	flag.StringVar(&level, "log-level", "", "alias of -L")
	flag.Parse()

	if err := run(*configPath, level); err != nil {
		fmt.Fprintln(os.Stderr, "rfm12-gateway:", err)
		os.Exit(1)
	}
}

func run(configPath, level string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if level != "" {
		if _, ok := logging.ParseLevel(level); !ok {
			return fmt.Errorf("invalid log level: %s", level)
		}
		cfg.Logging.Level = level
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. 节点定义
	reg, err := nodes.LoadFile(cfg.Nodes.File)
	if err != nil {
		return fmt.Errorf("load nodes: %w", err)
	}
	log.Info("loaded node definitions", zap.Int("count", reg.Len()), zap.String("file", cfg.Nodes.File))

	// 2. 指标
	promReg := metrics.NewRegistry()
	m := metrics.NewGatewayMetrics(promReg)

	// 3. MQTT
	mq := mqtt.NewClient(mqtt.OptionsFromConfig(cfg.App.Name, cfg.MQTT), log.Named("mqtt"))
	log.Info("trying to connect to MQTT server", zap.String("broker", cfg.MQTT.Broker))
	if err := mq.Connect(ctx); err != nil {
		return err
	}
	defer mq.Disconnect(250)

	// 4. 串口
	port, err := serial.NewPort(cfg.Serial)
	if err != nil {
		return err
	}
	if err := port.Open(); err != nil {
		return err
	}
	defer port.Close()

	// 5. 网关
	opts := gateway.Options{
		Parser:    parser.New(reg, log.Named("parser")),
		Router:    command.NewRouter(reg, log.Named("router")),
		Sink:      mqtt.NewReadingPublisher(mq, log.Named("publisher")),
		Writer:    serial.NewPacedWriter(port, cfg.Serial.WriteInterval),
		Metrics:   m,
		Log:       log.Named("gateway"),
		Connected: mq.IsConnected,
	}
	if cfg.FrameLog.Enable {
		fl := framelog.New(cfg.FrameLog.Dir, cfg.FrameLog.Prefix,
			framelog.WithHeader(cfg.FrameLog.Header),
			framelog.WithLogger(log.Named("framelog")))
		defer fl.Close()
		opts.FrameLog = fl
	}
	gw, err := gateway.New(opts)
	if err != nil {
		return err
	}
	if err := mq.Subscribe(cfg.MQTT.CommandTopic, gw.HandleCommand); err != nil {
		return err
	}

	// 6. HTTP 健康检查与指标
	if cfg.HTTP.Enable {
		var mh = metrics.Handler(promReg)
		if !cfg.Metrics.Enable {
			mh = nil
		}
		srv := httpserver.New(cfg.HTTP, cfg.Metrics.Path, mh, mq.IsConnected)
		go func() {
			if err := srv.Start(); err != nil {
				log.Error("http server stopped", zap.Error(err))
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	// 7. 串口读循环 + 主循环
	lines := make(chan string, 16)
	go func() {
		defer close(lines)
		if err := serial.ReadLines(ctx, port, lines, log.Named("serial")); !errors.Is(err, context.Canceled) {
			log.Error("serial read loop stopped", zap.Error(err))
		}
	}()

	err = gw.Run(ctx, lines)
	if errors.Is(err, context.Canceled) {
		log.Info("shutting down")
		return nil
	}
	return err
}
