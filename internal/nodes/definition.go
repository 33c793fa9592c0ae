// Package nodes holds the per-node schema: how a node's payload is laid out,
// how each published channel is derived from it, and how each command's
// arguments are packed back into a payload.
package nodes

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/linjuya-lu/device_rfm12_go/internal/codec"
	"github.com/linjuya-lu/device_rfm12_go/internal/expr"
)

var (
	ErrUnknownNodeName = errors.New("unknown node name")
	ErrUnknownCommand  = errors.New("unknown command")
)

// UnknownNodeNameError is returned when no definition carries the name.
type UnknownNodeNameError struct {
	Name string
}

func (e *UnknownNodeNameError) Error() string {
	return fmt.Sprintf("unknown node name '%s'", e.Name)
}

func (e *UnknownNodeNameError) Unwrap() error { return ErrUnknownNodeName }

// UnknownCommandError is returned when a node has no command of that name.
type UnknownCommandError struct {
	Node    string
	Command string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command '%s' for node '%s'", e.Command, e.Node)
}

func (e *UnknownCommandError) Unwrap() error { return ErrUnknownCommand }

// Channel 一个发布通道：由载荷计算出的一个数值
type Channel struct {
	Value       string `yaml:"value"`
	Units       string `yaml:"units"`
	Description string `yaml:"description"`

	program *expr.Program
}

// Command 一个下行命令：参数表达式 + 打包格式
type Command struct {
	Payload string `yaml:"payload"`
	Values  string `yaml:"values"`

	layout  codec.Layout
	program *expr.Program
}

// Definition describes one physical node. It is immutable once built by
// NewDefinition.
type Definition struct {
	ID            uint8
	Name          string
	PayloadFormat string
	Channels      map[string]Channel
	Commands      map[string]Command

	layout codec.Layout
}

// NewDefinition validates the layouts and compiles every expression of a
// node. Errors here are configuration errors.
func NewDefinition(id uint8, name, payloadFormat string, channels map[string]Channel, commands map[string]Command) (*Definition, error) {
	layout, err := codec.ParseLayout(payloadFormat)
	if err != nil {
		return nil, fmt.Errorf("node %d: %w", id, err)
	}
	d := &Definition{
		ID:            id,
		Name:          name,
		PayloadFormat: payloadFormat,
		Channels:      make(map[string]Channel, len(channels)),
		Commands:      make(map[string]Command, len(commands)),
		layout:        layout,
	}

	for k, ch := range channels {
		p, err := expr.Compile(ch.Value)
		if err != nil {
			return nil, fmt.Errorf("node %d channel %q: %w", id, k, err)
		}
		ch.program = p
		d.Channels[k] = ch
	}

	for k, cmd := range commands {
		l, err := codec.ParseLayout(cmd.Payload)
		if err != nil {
			return nil, fmt.Errorf("node %d command %q: %w", id, k, err)
		}
		p, err := expr.Compile(cmd.Values)
		if err != nil {
			return nil, fmt.Errorf("node %d command %q: %w", id, k, err)
		}
		cmd.layout, cmd.program = l, p
		d.Commands[k] = cmd
	}
	return d, nil
}

// Layout is the compiled payload format.
func (d *Definition) Layout() codec.Layout { return d.layout }

// ChannelNames returns the channel names in sorted order.
func (d *Definition) ChannelNames() []string {
	return slices.Sorted(maps.Keys(d.Channels))
}

// CommandNames returns the command names in sorted order.
func (d *Definition) CommandNames() []string {
	return slices.Sorted(maps.Keys(d.Commands))
}

// ParsePayload decodes a payload (node-id byte already removed) and evaluates
// every channel against it.
func (d *Definition) ParsePayload(payload []byte) (map[string]float64, error) {
	data, err := codec.Decode(d.layout, payload)
	if err != nil {
		return nil, err
	}
	return d.ParseValues(data)
}

// ParseValues evaluates every channel expression against decoded values.
// The first failing channel (in name order) aborts the whole reading.
func (d *Definition) ParseValues(values []float64) (map[string]float64, error) {
	result := make(map[string]float64, len(d.Channels))
	for _, k := range d.ChannelNames() {
		v, err := d.Channels[k].program.Eval(expr.Values(values))
		if err != nil {
			return nil, err
		}
		result[k] = v
	}
	return result, nil
}

// EncodeCommand evaluates the command expression against args and packs the
// result with the command's payload format.
func (d *Definition) EncodeCommand(name string, args map[string]float64) ([]byte, error) {
	cmd, ok := d.Commands[name]
	if !ok {
		return nil, &UnknownCommandError{Node: d.Name, Command: name}
	}
	values, err := cmd.program.EvalList(expr.Args(args))
	if err != nil {
		return nil, err
	}
	return codec.Encode(cmd.layout, values)
}

// Equal compares the declarative fields of two definitions.
func (d *Definition) Equal(o *Definition) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.ID != o.ID || d.Name != o.Name || d.PayloadFormat != o.PayloadFormat {
		return false
	}
	return maps.EqualFunc(d.Channels, o.Channels, func(a, b Channel) bool {
		return a.Value == b.Value && a.Units == b.Units && a.Description == b.Description
	}) && maps.EqualFunc(d.Commands, o.Commands, func(a, b Command) bool {
		return a.Payload == b.Payload && a.Values == b.Values
	})
}

func (d *Definition) String() string {
	return fmt.Sprintf("<NodeDefinition #%d %s>", d.ID, d.Name)
}

// Reading is one decoded frame: a value per channel of Node.
type Reading struct {
	Node   *Definition
	Values map[string]float64
	At     time.Time
}
