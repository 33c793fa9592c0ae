package command

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linjuya-lu/device_rfm12_go/internal/codec"
	"github.com/linjuya-lu/device_rfm12_go/internal/expr"
	"github.com/linjuya-lu/device_rfm12_go/internal/nodes"
)

func newTestRouter(t *testing.T) (*Router, *nodes.Registry) {
	t.Helper()
	living, err := nodes.NewDefinition(10, "/home/livingroom", "hh", nil, map[string]nodes.Command{
		"set_time": {Payload: "BBBB", Values: "[0, x['hours'], x['minutes'], x['seconds']]"},
		"too_few":  {Payload: "BBBB", Values: "[x['hours'], x['minutes']]"},
		"echo":     {Payload: "hH", Values: "x.a, x.b"},
	})
	require.NoError(t, err)
	reg, err := nodes.NewRegistry(living)
	require.NoError(t, err)
	return NewRouter(reg, nil), reg
}

func TestRoute(t *testing.T) {
	r, _ := newTestRouter(t)
	frame, err := r.Route(Request{
		Node:    "/home/livingroom",
		Command: "set_time",
		Args:    map[string]float64{"hours": 12, "minutes": 21, "seconds": 59},
	})
	require.NoError(t, err)
	assert.Equal(t, "00,12,21,59,10s", string(frame))
}

func TestRoute_Errors(t *testing.T) {
	r, _ := newTestRouter(t)

	frame, err := r.Route(Request{Node: "/home/attic", Command: "set_time"})
	assert.ErrorIs(t, err, nodes.ErrUnknownNodeName)
	assert.Nil(t, frame)

	frame, err = r.Route(Request{Node: "/home/livingroom", Command: "reboot"})
	assert.ErrorIs(t, err, nodes.ErrUnknownCommand)
	assert.Nil(t, frame)

	frame, err = r.Route(Request{Node: "/home/livingroom", Command: "set_time", Args: map[string]float64{"hours": 1}})
	assert.ErrorIs(t, err, expr.ErrMissingArgument)
	assert.Nil(t, frame)

	frame, err = r.Route(Request{Node: "/home/livingroom", Command: "set_time",
		Args: map[string]float64{"hours": 1000, "minutes": 0, "seconds": 0}})
	assert.ErrorIs(t, err, codec.ErrFrameEncode)
	assert.Nil(t, frame)
}

func TestRoute_WrongArityProperty(t *testing.T) {
	r, _ := newTestRouter(t)
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("wrong argument count never yields a frame", prop.ForAll(
		func(h, m uint8) bool {
			frame, err := r.Route(Request{
				Node:    "/home/livingroom",
				Command: "too_few",
				Args:    map[string]float64{"hours": float64(h), "minutes": float64(m)},
			})
			var fe *codec.FrameEncodeError
			return frame == nil && assert.ErrorAs(t, err, &fe)
		},
		gen.UInt8(), gen.UInt8(),
	))

	properties.TestingRun(t)
}

func TestRoute_RoundTripProperty(t *testing.T) {
	_, reg := newTestRouter(t)
	node, err := reg.ByName("/home/livingroom")
	require.NoError(t, err)
	layout := codec.MustParseLayout(node.Commands["echo"].Payload)
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("identity command decodes to its arguments", prop.ForAll(
		func(a int16, b uint16) bool {
			payload, err := node.EncodeCommand("echo", map[string]float64{"a": float64(a), "b": float64(b)})
			if err != nil {
				return false
			}
			values, err := codec.Decode(layout, payload)
			return err == nil && values[0] == float64(a) && values[1] == float64(b)
		},
		gen.Int16(), gen.UInt16(),
	))

	properties.TestingRun(t)
}

func TestFormatFrame(t *testing.T) {
	assert.Equal(t, "00,12,21,59,10s", string(FormatFrame(10, []byte{0, 12, 21, 59})))
	assert.Equal(t, "05,255,3s", string(FormatFrame(3, []byte{5, 255})))
	assert.Equal(t, "7s", string(FormatFrame(7, nil)))
}

func TestParseTopic(t *testing.T) {
	node, cmd, err := ParseTopic("/send_command/home/livingroom/set_time")
	require.NoError(t, err)
	assert.Equal(t, "/home/livingroom", node)
	assert.Equal(t, "set_time", cmd)

	node, cmd, err = ParseTopic("/send_command/pump/on")
	require.NoError(t, err)
	assert.Equal(t, "/pump", node)
	assert.Equal(t, "on", cmd)

	_, _, err = ParseTopic("/send_command/on")
	assert.ErrorIs(t, err, ErrBadTopic)

	for _, topic := range []string{"send_command/a/b", "/home/electricity/power", "/"} {
		_, _, err = ParseTopic(topic)
		assert.ErrorIs(t, err, ErrNotCommandTopic, topic)
	}

	assert.Equal(t, "/send_command/home/livingroom/set_time", Topic("/home/livingroom", "set_time"))
}

func TestDecodeArguments(t *testing.T) {
	args, err := DecodeArguments([]byte(`{"hours": 12, "minutes": 21.5, "on": true, "off": false}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"hours": 12, "minutes": 21.5, "on": 1, "off": 0}, args)

	args, err = DecodeArguments(nil)
	require.NoError(t, err)
	assert.Empty(t, args)

	_, err = DecodeArguments([]byte(`{"hours": "12"}`))
	var ie *InvalidArgumentError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "hours", ie.Name)

	_, err = DecodeArguments([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestParse(t *testing.T) {
	req, err := Parse("/send_command/home/livingroom/set_time", []byte(`{"hours": 1}`))
	require.NoError(t, err)
	assert.Equal(t, Request{Node: "/home/livingroom", Command: "set_time", Args: map[string]float64{"hours": 1}}, req)
}
