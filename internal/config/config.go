// Package config loads the gateway settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀：RFM12_MQTT_BROKER 覆盖 mqtt.broker
const EnvPrefix = "RFM12"

// Load 从 YAML 文件与环境变量加载配置。
// 若 path 为空，则尝试环境变量 RFM12_CONFIG；否则在 . / ./res / /etc/rfm12-gateway
// 中查找 gateway.yaml，找不到时仅使用默认值与环境变量。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./res")
		v.AddConfigPath("/etc/rfm12-gateway")
		v.SetConfigName("gateway")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the gateway cannot start with.
func (c *Config) Validate() error {
	switch c.Serial.Type {
	case "uart", "rs232", "rs485":
	default:
		return fmt.Errorf("serial.type: unknown port type %q", c.Serial.Type)
	}
	if c.Serial.Device == "" {
		return errors.New("serial.device is required")
	}
	if c.Serial.Baudrate <= 0 {
		return fmt.Errorf("serial.baudrate: must be positive, got %d", c.Serial.Baudrate)
	}
	if c.MQTT.Qos > 2 {
		return fmt.Errorf("mqtt.qos: must be 0, 1 or 2, got %d", c.MQTT.Qos)
	}
	if c.Nodes.File == "" {
		return errors.New("nodes.file is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "rfm12-gateway")

	v.SetDefault("serial.name", "rfm12")
	v.SetDefault("serial.type", "uart")
	v.SetDefault("serial.device", "/dev/ttyAMA0")
	v.SetDefault("serial.baudrate", 9600)
	v.SetDefault("serial.dePin", 0)
	v.SetDefault("serial.readTimeout", "0s")
	v.SetDefault("serial.writeInterval", "0s")

	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.clientID", "")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.keepAlive", "60s")
	v.SetDefault("mqtt.connectTimeout", "10s")
	v.SetDefault("mqtt.qos", 0)
	v.SetDefault("mqtt.retain", false)
	v.SetDefault("mqtt.commandTopic", "/send_command/#")

	v.SetDefault("nodes.file", "nodes.yaml")

	v.SetDefault("frameLog.enable", true)
	v.SetDefault("frameLog.dir", "/mnt/stick/frame_log")
	v.SetDefault("frameLog.prefix", "frames")
	v.SetDefault("frameLog.header", "")

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 10)
	v.SetDefault("logging.file.maxBackups", 5)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("http.enable", false)
	v.SetDefault("http.addr", ":9108")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")
}
