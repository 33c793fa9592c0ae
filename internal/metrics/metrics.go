// Package metrics exposes gateway counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// GatewayMetrics 网关业务指标
type GatewayMetrics struct {
	LinesReceived   prometheus.Counter
	Frames          *prometheus.CounterVec // labels: result=decoded|echo|unknown_node|error
	ChannelsPublish *prometheus.CounterVec // labels: result=ok|error
	Commands        *prometheus.CounterVec // labels: result=sent|dropped
	SerialBytesOut  prometheus.Counter
	MQTTConnected   prometheus.Gauge
}

// NewGatewayMetrics 注册并返回业务指标
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	m := &GatewayMetrics{
		LinesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rfm12_serial_lines_total",
			Help: "Lines received from the base station.",
		}),
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rfm12_frames_total",
			Help: "Processed serial lines by outcome.",
		}, []string{"result"}),
		ChannelsPublish: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rfm12_channel_publish_total",
			Help: "Channel values delivered to the reading sink.",
		}, []string{"result"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rfm12_commands_total",
			Help: "Command requests by outcome.",
		}, []string{"result"}),
		SerialBytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rfm12_serial_bytes_written_total",
			Help: "Bytes written to the base station.",
		}),
		MQTTConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rfm12_mqtt_connected",
			Help: "1 while the MQTT client is connected.",
		}),
	}
	reg.MustRegister(m.LinesReceived, m.Frames, m.ChannelsPublish, m.Commands, m.SerialBytesOut, m.MQTTConnected)
	return m
}
