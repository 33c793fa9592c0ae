// Package gateway runs the loop that connects the serial base station, the
// node schemas and the MQTT side.
package gateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/linjuya-lu/device_rfm12_go/internal/command"
	"github.com/linjuya-lu/device_rfm12_go/internal/metrics"
	"github.com/linjuya-lu/device_rfm12_go/internal/nodes"
	"github.com/linjuya-lu/device_rfm12_go/internal/parser"
	"github.com/linjuya-lu/device_rfm12_go/internal/serial"
)

var (
	// ErrSerialClosed is returned by Run when the line channel is closed.
	ErrSerialClosed = errors.New("serial line stream closed")
	// ErrQueueFull is returned when a command cannot be queued.
	ErrQueueFull = errors.New("command queue full")
)

// ReadingSink receives every decoded frame.
type ReadingSink interface {
	Deliver(r nodes.Reading) error
}

// LineLogger records raw received lines.
type LineLogger interface {
	WriteLine(line string) error
}

// Options 网关依赖，全部由调用方注入
type Options struct {
	Parser *parser.FrameParser
	Router *command.Router
	Sink   ReadingSink
	Writer serial.FrameWriter

	FrameLog  LineLogger              // 可选
	Metrics   *metrics.GatewayMetrics // 可选
	Log       *zap.Logger
	Now       func() time.Time
	Connected func() bool // MQTT 连接状态，可选

	TickInterval time.Duration // 默认 1s
	QueueSize    int           // 默认 16
}

type job struct {
	req  command.Request
	done chan error // 可为 nil
}

// Gateway owns the parser, router and serial writer. Lines and commands are
// handled one at a time on the goroutine running Run.
type Gateway struct {
	opts Options
	log  *zap.Logger
	m    *metrics.GatewayMetrics
	jobs chan job

	connected bool
}

// New checks the required options and fills in defaults.
func New(opts Options) (*Gateway, error) {
	if opts.Parser == nil || opts.Router == nil || opts.Sink == nil || opts.Writer == nil {
		return nil, errors.New("gateway: parser, router, sink and writer are required")
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.NewGatewayMetrics(prometheus.NewRegistry())
	}
	return &Gateway{
		opts: opts,
		log:  opts.Log,
		m:    m,
		jobs: make(chan job, opts.QueueSize),
	}, nil
}

// Run processes lines and queued commands until ctx is done or lines is
// closed.
func (g *Gateway) Run(ctx context.Context, lines <-chan string) error {
	ticker := time.NewTicker(g.opts.TickInterval)
	defer ticker.Stop()
	g.tick()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return ErrSerialClosed
			}
			g.HandleLine(line)
		case j := <-g.jobs:
			err := g.execute(j.req)
			if j.done != nil {
				j.done <- err
			}
		case <-ticker.C:
			g.tick()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// HandleLine logs, decodes and publishes one received line. Errors are
// logged; nothing here stops the gateway.
func (g *Gateway) HandleLine(line string) {
	at := g.opts.Now().UTC().Truncate(time.Second)
	g.m.LinesReceived.Inc()
	g.log.Debug("received line", zap.String("line", line))

	if g.opts.FrameLog != nil {
		if err := g.opts.FrameLog.WriteLine(at.Format("2006-01-02T15:04:05") + " " + strings.TrimSpace(line)); err != nil {
			g.log.Error("frame log write failed", zap.Error(err))
		}
	}

	res, err := g.opts.Parser.ProcessFrame(line)
	if err != nil {
		g.m.Frames.WithLabelValues("error").Inc()
		g.log.Warn("dropping frame", zap.String("line", line), zap.Error(err))
		return
	}
	g.m.Frames.WithLabelValues(res.Kind.String()).Inc()
	if res.Kind != parser.Decoded {
		return
	}

	g.log.Debug("processed frame", zap.Stringer("node", res.Node), zap.Any("values", res.Values))
	if err := g.opts.Sink.Deliver(nodes.Reading{Node: res.Node, Values: res.Values, At: at}); err != nil {
		g.m.ChannelsPublish.WithLabelValues("error").Inc()
		g.log.Error("publish failed", zap.Stringer("node", res.Node), zap.Error(err))
		return
	}
	g.m.ChannelsPublish.WithLabelValues("ok").Add(float64(len(res.Values)))
}

// HandleCommand is the MQTT message callback. It parses the message and
// queues it without waiting for the result.
func (g *Gateway) HandleCommand(topic string, payload []byte) {
	g.log.Info("received MQTT message", zap.String("topic", topic), zap.ByteString("payload", payload))
	req, err := command.Parse(topic, payload)
	if err != nil {
		if errors.Is(err, command.ErrNotCommandTopic) {
			return
		}
		g.m.Commands.WithLabelValues("dropped").Inc()
		g.log.Error("bad command message", zap.String("topic", topic), zap.Error(err))
		return
	}
	select {
	case g.jobs <- job{req: req}:
	default:
		g.m.Commands.WithLabelValues("dropped").Inc()
		g.log.Warn("dropping command", zap.String("node", req.Node), zap.Error(ErrQueueFull))
	}
}

// Submit queues req and waits for it to be written to the serial port.
func (g *Gateway) Submit(ctx context.Context, req command.Request) error {
	done := make(chan error, 1)
	select {
	case g.jobs <- job{req: req, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gateway) execute(req command.Request) error {
	frame, err := g.opts.Router.Route(req)
	if err != nil {
		g.m.Commands.WithLabelValues("dropped").Inc()
		fields := []zap.Field{zap.String("node", req.Node), zap.String("command", req.Command), zap.Error(err)}
		if errors.Is(err, nodes.ErrUnknownNodeName) || errors.Is(err, nodes.ErrUnknownCommand) {
			g.log.Warn("dropping command", fields...)
		} else {
			g.log.Error("error encoding command", fields...)
		}
		return err
	}
	if err := g.opts.Writer.WriteFrame(frame); err != nil {
		g.m.Commands.WithLabelValues("dropped").Inc()
		g.log.Error("serial write failed", zap.ByteString("frame", frame), zap.Error(err))
		return err
	}
	g.m.Commands.WithLabelValues("sent").Inc()
	g.m.SerialBytesOut.Add(float64(len(frame)))
	return nil
}

// tick 每秒采样 MQTT 连接状态
func (g *Gateway) tick() {
	if g.opts.Connected == nil {
		return
	}
	up := g.opts.Connected()
	if up != g.connected {
		if up {
			g.log.Info("connected to MQTT server")
		} else {
			g.log.Warn("MQTT server not connected")
		}
		g.connected = up
	}
	if up {
		g.m.MQTTConnected.Set(1)
	} else {
		g.m.MQTTConnected.Set(0)
	}
}
