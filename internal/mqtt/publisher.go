package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/linjuya-lu/device_rfm12_go/internal/nodes"
)

// TimeFormat renders the "at" field: UTC, second precision, no zone suffix.
const TimeFormat = "2006-01-02T15:04:05"

// Publisher is the publish side of Client.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// ChannelMessage is the JSON body published for one channel value.
type ChannelMessage struct {
	At          string  `json:"at"`
	Value       float64 `json:"value"`
	Units       string  `json:"units"`
	Description string  `json:"description"`
}

// ChannelTopic is the topic a channel value is published on:
// "/home/electricity" + "power" -> "/home/electricity/power".
func ChannelTopic(node, channel string) string {
	return node + "/" + channel
}

// ReadingPublisher publishes every channel of a reading as its own message.
type ReadingPublisher struct {
	pub Publisher
	log *zap.Logger
}

func NewReadingPublisher(pub Publisher, log *zap.Logger) *ReadingPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReadingPublisher{pub: pub, log: log}
}

// Deliver publishes the channels in name order. A failed channel does not
// stop the others; all failures are returned joined.
func (p *ReadingPublisher) Deliver(r nodes.Reading) error {
	at := r.At.UTC().Format(TimeFormat)
	var errs []error
	for _, name := range r.Node.ChannelNames() {
		v, ok := r.Values[name]
		if !ok {
			continue
		}
		ch := r.Node.Channels[name]
		body, err := json.Marshal(ChannelMessage{
			At:          at,
			Value:       v,
			Units:       ch.Units,
			Description: ch.Description,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("channel %s: %w", name, err))
			continue
		}
		topic := ChannelTopic(r.Node.Name, name)
		p.log.Debug("publish", zap.String("topic", topic), zap.ByteString("payload", body))
		if err := p.pub.Publish(topic, body); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", topic, err))
		}
	}
	return errors.Join(errs...)
}
