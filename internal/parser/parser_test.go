package parser

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/linjuya-lu/device_rfm12_go/internal/codec"
	"github.com/linjuya-lu/device_rfm12_go/internal/expr"
	"github.com/linjuya-lu/device_rfm12_go/internal/nodes"
)

func newTestParser(t *testing.T, log *zap.Logger) *FrameParser {
	t.Helper()
	mk := func(id uint8, name, format string, channels map[string]nodes.Channel) *nodes.Definition {
		d, err := nodes.NewDefinition(id, name, format, channels, nil)
		require.NoError(t, err)
		return d
	}
	reg, err := nodes.NewRegistry(
		mk(10, "bob", "hh", map[string]nodes.Channel{"a": {Value: "x[0]"}, "b": {Value: "3.0"}}),
		mk(20, "joe", "hh", map[string]nodes.Channel{"sum": {Value: "x[0] + x[1]"}}),
		mk(30, "fred", "bl", map[string]nodes.Channel{"missing": {Value: "x[2]"}}),
	)
	require.NoError(t, err)
	return New(reg, log)
}

func TestProcessFrame_Decoded(t *testing.T) {
	p := newTestParser(t, nil)

	res, err := p.ProcessFrame("10 34 0 23 0")
	require.NoError(t, err)
	assert.Equal(t, Decoded, res.Kind)
	assert.Equal(t, uint8(10), res.Node.ID)
	assert.Equal(t, map[string]float64{"a": 34, "b": 3.0}, res.Values)

	res, err = p.ProcessFrame("20 12 0 17 1\r\n")
	require.NoError(t, err)
	assert.Equal(t, "joe", res.Node.Name)
	assert.Equal(t, map[string]float64{"sum": 12 + 17 + 256}, res.Values)
}

func TestProcessFrame_Echo(t *testing.T) {
	p := newTestParser(t, nil)
	tests := []struct {
		line string
		text string
	}{
		{"> msg", "msg"},
		{"-> another msg", "another msg"},
		{"  > 10 34 0  ", "10 34 0"},
		{">", ""},
	}
	for _, tt := range tests {
		res, err := p.ProcessFrame(tt.line)
		require.NoError(t, err)
		assert.Equal(t, Result{Kind: Echo, Text: tt.text}, res)
	}
}

func TestProcessFrame_EchoProperty(t *testing.T) {
	p := newTestParser(t, nil)
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("echo lines are never decoded", prop.ForAll(
		func(prefix bool, rest string) bool {
			marker := ">"
			if prefix {
				marker = "->"
			}
			res, err := p.ProcessFrame(marker + rest)
			return err == nil && res.Kind == Echo && res.Node == nil && res.Values == nil
		},
		gen.Bool(), gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestProcessFrame_Malformed(t *testing.T) {
	p := newTestParser(t, nil)
	for _, line := range []string{"10 21 aa", "", "   ", "10 256", "10 -1", "1.5 2"} {
		_, err := p.ProcessFrame(line)
		var me *MalformedFrameError
		require.ErrorAs(t, err, &me, line)
		assert.ErrorIs(t, err, ErrMalformedFrame)
	}
}

func TestProcessFrame_UnknownNode(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := newTestParser(t, zap.New(core))

	res, err := p.ProcessFrame("15 34 0 23 0")
	require.NoError(t, err)
	assert.Equal(t, UnknownNode, res.Kind)
	assert.Nil(t, res.Node)
	assert.Empty(t, res.Values)

	entries := logs.FilterMessage("unknown node id").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 15, entries[0].ContextMap()["node_id"])
}

func TestProcessFrame_DecodeErrorsPropagate(t *testing.T) {
	p := newTestParser(t, nil)

	_, err := p.ProcessFrame("10 34 0 23")
	var le *codec.FrameLengthError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 4, le.Expected)
	assert.Equal(t, 3, le.Actual)

	_, err = p.ProcessFrame("30 1 0 0 0 0")
	assert.ErrorIs(t, err, expr.ErrInsufficientValues)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "echo", Echo.String())
	assert.Equal(t, "unknown_node", UnknownNode.String())
	assert.Equal(t, "decoded", Decoded.String())
}
