// Package parser turns lines received from the RFM12 base station into node
// readings.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/linjuya-lu/device_rfm12_go/internal/nodes"
)

// ErrMalformedFrame is the sentinel behind every *MalformedFrameError.
var ErrMalformedFrame = errors.New("malformed frame")

// MalformedFrameError reports a line that is neither an echo nor a sequence
// of byte values.
type MalformedFrameError struct {
	Line   string
	Reason string
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("misformed frame %q: %s", e.Line, e.Reason)
}

func (e *MalformedFrameError) Unwrap() error { return ErrMalformedFrame }

// Kind classifies a processed line.
type Kind int

const (
	// Echo is a command echo or informational line from the base station.
	Echo Kind = iota
	// UnknownNode is a well-formed frame from a node missing in the registry.
	UnknownNode
	// Decoded is a fully decoded frame.
	Decoded
)

func (k Kind) String() string {
	switch k {
	case Echo:
		return "echo"
	case UnknownNode:
		return "unknown_node"
	case Decoded:
		return "decoded"
	default:
		return "unknown"
	}
}

// Result is the outcome of ProcessFrame. Node and Values are set only for
// Decoded; Text only for Echo; NodeID for UnknownNode and Decoded.
type Result struct {
	Kind   Kind
	NodeID uint8
	Node   *nodes.Definition
	Values map[string]float64
	Text   string
}

// FrameParser dispatches inbound lines to the node schema they belong to.
type FrameParser struct {
	nodes *nodes.Registry
	log   *zap.Logger
}

// New returns a parser over reg. A nil logger disables logging.
func New(reg *nodes.Registry, log *zap.Logger) *FrameParser {
	if log == nil {
		log = zap.NewNop()
	}
	return &FrameParser{nodes: reg, log: log}
}

// ProcessFrame handles one line: whitespace separated decimal byte values,
// the first of which is the node id, or an echo line starting with ">" or
// "->". Decode errors are returned unchanged; unknown nodes are not errors.
func (p *FrameParser) ProcessFrame(line string) (Result, error) {
	p.log.Debug("frame", zap.String("line", line))

	f := strings.TrimSpace(line)
	if strings.HasPrefix(f, ">") || strings.HasPrefix(f, "->") {
		return Result{Kind: Echo, Text: strings.TrimLeft(f, ">- ")}, nil
	}

	buf, err := parseBytes(f)
	if err != nil {
		return Result{}, err
	}

	nodeID := buf[0]
	node, ok := p.nodes.Lookup(nodeID)
	if !ok {
		p.log.Warn("unknown node id", zap.Uint8("node_id", nodeID))
		return Result{Kind: UnknownNode, NodeID: nodeID, Values: map[string]float64{}}, nil
	}

	values, err := node.ParsePayload(buf[1:])
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: Decoded, NodeID: nodeID, Node: node, Values: values}, nil
}

// parseBytes 把空格分隔的十进制整数转成字节
func parseBytes(f string) ([]byte, error) {
	fields := strings.Fields(f)
	if len(fields) == 0 {
		return nil, &MalformedFrameError{Line: f, Reason: "empty frame"}
	}
	buf := make([]byte, len(fields))
	for i, tok := range fields {
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, &MalformedFrameError{Line: f, Reason: fmt.Sprintf("%q is not an integer", tok)}
		}
		if n < 0 || n > 255 {
			return nil, &MalformedFrameError{Line: f, Reason: fmt.Sprintf("%d is not a byte value", n)}
		}
		buf[i] = byte(n)
	}
	return buf, nil
}
