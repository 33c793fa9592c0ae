// Command send-time sets the clock of a display node to the local time by
// publishing a set_time command.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/linjuya-lu/device_rfm12_go/internal/command"
	"github.com/linjuya-lu/device_rfm12_go/internal/config"
	"github.com/linjuya-lu/device_rfm12_go/internal/logging"
	"github.com/linjuya-lu/device_rfm12_go/internal/mqtt"
)

// TimeArgs is the argument object of the set_time command.
type TimeArgs struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

func timeArgs(t time.Time) TimeArgs {
	return TimeArgs{Hours: t.Hour(), Minutes: t.Minute(), Seconds: t.Second()}
}

func main() {
	broker := flag.String("broker", "tcp://localhost:1883", "MQTT broker URL")
	node := flag.String("node", "/home/livingroom", "target node name")
	cmd := flag.String("command", "set_time", "command name")
	flag.Parse()

	log, err := logging.New(config.LoggingConfig{Level: "info"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := send(log, *broker, *node, *cmd, time.Now()); err != nil {
		log.Error("send-time failed", zap.Error(err))
		os.Exit(1)
	}
}

func send(log *zap.Logger, broker, node, cmd string, now time.Time) error {
	payload, err := json.Marshal(timeArgs(now))
	if err != nil {
		return err
	}
	cl := mqtt.NewClient(mqtt.OptionsFromConfig("send-time", config.MQTTConfig{
		Broker:         broker,
		ConnectTimeout: 10 * time.Second,
	}), log)
	if err := cl.Connect(context.Background()); err != nil {
		return err
	}
	defer cl.Disconnect(250)

	topic := command.Topic(node, cmd)
	if err := cl.Publish(topic, payload); err != nil {
		return err
	}
	log.Info("published", zap.String("topic", topic), zap.ByteString("payload", payload))
	return nil
}
