// Package command routes MQTT command requests to node schemas and produces
// the line the RFM12 base station firmware expects on its serial input.
package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/linjuya-lu/device_rfm12_go/internal/nodes"
)

// TopicPrefix is the first topic segment of every command topic.
const TopicPrefix = "/send_command/"

// SubscribeTopic covers every command topic.
const SubscribeTopic = TopicPrefix + "#"

var (
	ErrNotCommandTopic = errors.New("not a command topic")
	ErrBadTopic        = errors.New("bad send_command topic")
	ErrInvalidArgument = errors.New("invalid command argument")
)

// InvalidArgumentError reports a command payload that is not a JSON object of
// numbers.
type InvalidArgumentError struct {
	Name   string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	if e.Name == "" {
		return "invalid command arguments: " + e.Reason
	}
	return fmt.Sprintf("invalid command argument %q: %s", e.Name, e.Reason)
}

func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }

// Request is one command addressed to a node by name.
type Request struct {
	Node    string
	Command string
	Args    map[string]float64
}

// Router turns requests into transmit frames.
type Router struct {
	nodes *nodes.Registry
	log   *zap.Logger
}

// NewRouter returns a router over reg. A nil logger disables logging.
func NewRouter(reg *nodes.Registry, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{nodes: reg, log: log}
}

// Route resolves the node and command, encodes the arguments and returns the
// complete frame to write to the serial port. On error nothing is returned,
// so a partial frame can never reach the transport.
func (r *Router) Route(req Request) ([]byte, error) {
	node, err := r.nodes.ByName(req.Node)
	if err != nil {
		return nil, err
	}
	r.log.Info("sending command",
		zap.String("command", req.Command),
		zap.String("node", req.Node))

	payload, err := node.EncodeCommand(req.Command, req.Args)
	if err != nil {
		return nil, err
	}
	frame := FormatFrame(node.ID, payload)
	r.log.Debug("writing line", zap.ByteString("frame", frame))
	return frame, nil
}

// FormatFrame renders payload in the base station's input syntax: every byte
// as two-digit decimal, comma separated, followed by ",<node id>s".
// FormatFrame(10, []byte{0, 12, 21, 59}) == "00,12,21,59,10s".
func FormatFrame(nodeID uint8, payload []byte) []byte {
	var b bytes.Buffer
	for _, v := range payload {
		fmt.Fprintf(&b, "%02d,", v)
	}
	b.WriteString(strconv.Itoa(int(nodeID)))
	b.WriteByte('s')
	return b.Bytes()
}

// ParseTopic splits "/send_command/home/livingroom/set_time" into the node
// name "/home/livingroom" and the command "set_time".
func ParseTopic(topic string) (node, command string, err error) {
	if !strings.HasPrefix(topic, "/") {
		return "", "", ErrNotCommandTopic
	}
	parts := strings.Split(topic[1:], "/")
	if parts[0] != strings.Trim(TopicPrefix, "/") {
		return "", "", ErrNotCommandTopic
	}
	if len(parts) < 3 {
		return "", "", fmt.Errorf("%w: %q", ErrBadTopic, topic)
	}
	node = "/" + strings.Join(parts[1:len(parts)-1], "/")
	return node, parts[len(parts)-1], nil
}

// Topic builds the command topic for a node name and command.
func Topic(node, command string) string {
	return TopicPrefix + strings.TrimPrefix(node, "/") + "/" + command
}

// DecodeArguments parses a JSON object of argument values. Booleans count as
// 1 and 0; any other non-number is rejected.
func DecodeArguments(payload []byte) (map[string]float64, error) {
	var raw map[string]any
	if len(bytes.TrimSpace(payload)) == 0 {
		return map[string]float64{}, nil
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &InvalidArgumentError{Reason: fmt.Sprintf("error parsing JSON: %v", err)}
	}
	args := make(map[string]float64, len(raw))
	for k, v := range raw {
		switch x := v.(type) {
		case float64:
			args[k] = x
		case bool:
			if x {
				args[k] = 1
			} else {
				args[k] = 0
			}
		default:
			return nil, &InvalidArgumentError{Name: k, Reason: fmt.Sprintf("%T is not a number", v)}
		}
	}
	return args, nil
}

// Parse builds a Request from an MQTT message.
func Parse(topic string, payload []byte) (Request, error) {
	node, cmd, err := ParseTopic(topic)
	if err != nil {
		return Request{}, err
	}
	args, err := DecodeArguments(payload)
	if err != nil {
		return Request{}, err
	}
	return Request{Node: node, Command: cmd, Args: args}, nil
}
