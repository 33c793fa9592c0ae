package config

import "time"

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name"`
}

// SerialConfig 描述连接 RFM12 基站的串口
type SerialConfig struct {
	Name          string        `mapstructure:"name"`          // 逻辑名称
	Type          string        `mapstructure:"type"`          // uart/rs485
	Device        string        `mapstructure:"device"`        // 串口设备节点
	Baudrate      int           `mapstructure:"baudrate"`      // 波特率
	DEPin         int           `mapstructure:"dePin"`         // RS-485 DE/RE 控制 GPIO 编号
	ReadTimeout   time.Duration `mapstructure:"readTimeout"`   // 0 = 阻塞读
	WriteInterval time.Duration `mapstructure:"writeInterval"` // 两次下行写之间的最小间隔
}

// MQTTConfig broker 连接参数与主题
type MQTTConfig struct {
	Broker         string        `mapstructure:"broker"`
	ClientID       string        `mapstructure:"clientID"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	KeepAlive      time.Duration `mapstructure:"keepAlive"`
	ConnectTimeout time.Duration `mapstructure:"connectTimeout"`
	Qos            byte          `mapstructure:"qos"`
	Retain         bool          `mapstructure:"retain"`
	CommandTopic   string        `mapstructure:"commandTopic"`
}

// NodesConfig points at the node schema file.
type NodesConfig struct {
	File string `mapstructure:"file"`
}

// FrameLogConfig 原始帧日志（按天分文件）
type FrameLogConfig struct {
	Enable bool   `mapstructure:"enable"`
	Dir    string `mapstructure:"dir"`
	Prefix string `mapstructure:"prefix"`
	Header string `mapstructure:"header"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// HTTPConfig health and metrics endpoint.
type HTTPConfig struct {
	Enable       bool          `mapstructure:"enable"`
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// Config 顶层配置结构
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Serial   SerialConfig   `mapstructure:"serial"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Nodes    NodesConfig    `mapstructure:"nodes"`
	FrameLog FrameLogConfig `mapstructure:"frameLog"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}
