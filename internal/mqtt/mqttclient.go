// Package mqtt connects the gateway to the MQTT broker.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linjuya-lu/device_rfm12_go/internal/config"
)

// ErrPublishTimeout is returned when the broker does not acknowledge a
// publish in time.
var ErrPublishTimeout = errors.New("mqtt publish timeout")

// ClientOptions 配置 MQTT 客户端行为
// Broker: tcp://host:port
// ClientID: 客户端标识
// Username/Password: 可选认证
// KeepAlive: 心跳间隔
// ConnectTimeout: 连接超时，同时用作发布等待上限
// DefaultQos/DefaultRetain: 默认发布参数
type ClientOptions struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	DefaultQos     byte
	DefaultRetain  bool
}

// OptionsFromConfig converts the mqtt config section. An empty client id
// becomes "<app>-<random>".
func OptionsFromConfig(app string, cfg config.MQTTConfig) ClientOptions {
	id := cfg.ClientID
	if id == "" {
		id = app + "-" + uuid.NewString()[:8]
	}
	return ClientOptions{
		Broker:         cfg.Broker,
		ClientID:       id,
		Username:       cfg.Username,
		Password:       cfg.Password,
		KeepAlive:      cfg.KeepAlive,
		ConnectTimeout: cfg.ConnectTimeout,
		DefaultQos:     cfg.Qos,
		DefaultRetain:  cfg.Retain,
	}
}

// MessageHandler receives the topic and raw payload of a message.
type MessageHandler func(topic string, payload []byte)

// Client 封装 Paho MQTT 客户端：发布读数，订阅命令主题。
// 断线后由 paho 自动重连，重连成功时重新订阅。
type Client struct {
	inner paho.Client
	opts  ClientOptions
	log   *zap.Logger

	mu   sync.Mutex
	subs map[string]MessageHandler
}

// NewClient 创建客户端，不连接
func NewClient(opts ClientOptions, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{opts: opts, log: log, subs: make(map[string]MessageHandler)}
	c.inner = paho.NewClient(c.pahoOptions())
	return c
}

func (c *Client) pahoOptions() *paho.ClientOptions {
	p := paho.NewClientOptions().
		AddBroker(c.opts.Broker).
		SetClientID(c.opts.ClientID).
		SetKeepAlive(c.opts.KeepAlive).
		SetConnectTimeout(c.opts.ConnectTimeout).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(30 * time.Second).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			c.log.Warn("mqtt connection lost", zap.Error(err))
		})
	if c.opts.Username != "" {
		p.SetUsername(c.opts.Username)
	}
	if c.opts.Password != "" {
		p.SetPassword(c.opts.Password)
	}
	return p
}

// Connect 连接 Broker，等待至 ConnectTimeout 或 ctx 结束
func (c *Client) Connect(ctx context.Context) error {
	tok := c.inner.Connect()
	if err := c.wait(ctx, tok); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", c.opts.Broker, err)
	}
	c.log.Info("mqtt connected", zap.String("broker", c.opts.Broker), zap.String("client_id", c.opts.ClientID))
	return nil
}

func (c *Client) wait(ctx context.Context, tok paho.Token) error {
	timeout := c.opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-tok.Done():
		return tok.Error()
	case <-timer.C:
		return fmt.Errorf("timeout after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// onConnect 在 paho 的独立 goroutine 中执行（首次连接和每次重连）
func (c *Client) onConnect(cl paho.Client) {
	c.mu.Lock()
	subs := make(map[string]MessageHandler, len(c.subs))
	for t, h := range c.subs {
		subs[t] = h
	}
	c.mu.Unlock()

	for topic, h := range subs {
		tok := cl.Subscribe(topic, c.opts.DefaultQos, wrap(h))
		tok.Wait()
		if err := tok.Error(); err != nil {
			c.log.Error("mqtt subscribe failed", zap.String("topic", topic), zap.Error(err))
			continue
		}
		c.log.Info("subscribed", zap.String("topic", topic))
	}
}

func wrap(h MessageHandler) paho.MessageHandler {
	return func(_ paho.Client, m paho.Message) {
		h(m.Topic(), m.Payload())
	}
}

// Subscribe 记录订阅；已连接时立即订阅，重连后自动恢复
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	c.mu.Lock()
	c.subs[topic] = handler
	c.mu.Unlock()

	if !c.inner.IsConnected() {
		return nil
	}
	tok := c.inner.Subscribe(topic, c.opts.DefaultQos, wrap(handler))
	if err := c.wait(context.Background(), tok); err != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", topic, err)
	}
	return nil
}

// Publish 以默认 QoS/Retain 发布
func (c *Client) Publish(topic string, payload []byte) error {
	tok := c.inner.Publish(topic, c.opts.DefaultQos, c.opts.DefaultRetain, payload)
	timeout := c.opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if !tok.WaitTimeout(timeout) {
		return fmt.Errorf("%w: %s", ErrPublishTimeout, topic)
	}
	return tok.Error()
}

// IsConnected reports whether the client currently has a broker connection.
func (c *Client) IsConnected() bool {
	return c.inner.IsConnectionOpen()
}

// Disconnect 断开与 Broker 的连接
func (c *Client) Disconnect(quiesce uint) {
	c.inner.Disconnect(quiesce)
}
