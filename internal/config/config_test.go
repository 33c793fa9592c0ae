package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RFM12_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyAMA0", cfg.Serial.Device)
	assert.Equal(t, 9600, cfg.Serial.Baudrate)
	assert.Equal(t, "uart", cfg.Serial.Type)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, "/send_command/#", cfg.MQTT.CommandTopic)
	assert.Equal(t, 10*time.Second, cfg.MQTT.ConnectTimeout)
	assert.Equal(t, "nodes.yaml", cfg.Nodes.File)
	assert.Equal(t, "frames", cfg.FrameLog.Prefix)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
serial:
  device: /dev/ttyUSB0
  baudrate: 57600
  writeInterval: 250ms
mqtt:
  qos: 1
nodes:
  file: /etc/rfm12/nodes.yaml
logging:
  level: debug
`), 0o644))
	t.Setenv("RFM12_MQTT_BROKER", "tcp://broker:1883")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Device)
	assert.Equal(t, 57600, cfg.Serial.Baudrate)
	assert.Equal(t, 250*time.Millisecond, cfg.Serial.WriteInterval)
	assert.Equal(t, byte(1), cfg.MQTT.Qos)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "/etc/rfm12/nodes.yaml", cfg.Nodes.File)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Serial: SerialConfig{Type: "uart", Device: "/dev/ttyAMA0", Baudrate: 9600},
		Nodes:  NodesConfig{File: "nodes.yaml"},
	}
	require.NoError(t, valid.Validate())

	bad := valid
	bad.Serial.Type = "usb"
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Serial.Baudrate = 0
	assert.Error(t, bad.Validate())

	bad = valid
	bad.MQTT.Qos = 3
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Nodes.File = ""
	assert.Error(t, bad.Validate())
}
