package nodes

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Registry indexes node definitions by id and by name. It is built once and
// only read afterwards, so it needs no locking.
type Registry struct {
	defs   []*Definition
	byID   map[uint8]*Definition
	byName map[string]*Definition
}

// NewRegistry rejects duplicate ids and duplicate names.
func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{
		defs:   make([]*Definition, 0, len(defs)),
		byID:   make(map[uint8]*Definition, len(defs)),
		byName: make(map[string]*Definition, len(defs)),
	}
	for _, d := range defs {
		if prev, ok := r.byID[d.ID]; ok {
			return nil, fmt.Errorf("duplicate node id %d (%s and %s)", d.ID, prev.Name, d.Name)
		}
		if _, ok := r.byName[d.Name]; ok {
			return nil, fmt.Errorf("duplicate node name %q", d.Name)
		}
		r.defs = append(r.defs, d)
		r.byID[d.ID] = d
		r.byName[d.Name] = d
	}
	return r, nil
}

// Lookup returns the definition for a node id.
func (r *Registry) Lookup(id uint8) (*Definition, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// ByName returns the definition carrying name or an *UnknownNodeNameError.
func (r *Registry) ByName(name string) (*Definition, error) {
	d, ok := r.byName[name]
	if !ok {
		return nil, &UnknownNodeNameError{Name: name}
	}
	return d, nil
}

// Definitions returns the definitions in load order.
func (r *Registry) Definitions() []*Definition {
	return append([]*Definition(nil), r.defs...)
}

// Len is the number of loaded nodes.
func (r *Registry) Len() int { return len(r.defs) }

// nodeRecord 对应 nodes.yaml 中的一个节点
type nodeRecord struct {
	NodeID   *int               `yaml:"node_id"`
	Name     string             `yaml:"name"`
	Payload  string             `yaml:"payload"`
	Channels map[string]Channel `yaml:"channels"`
	Commands map[string]Command `yaml:"commands"`
}

// LoadYAML parses a schema document: a list of node records. Scalar
// expressions such as `value: 3.0` are kept in their textual form.
func LoadYAML(data []byte) ([]*Definition, error) {
	var records []nodeRecord
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse node definitions: %w", err)
	}
	defs := make([]*Definition, 0, len(records))
	for i, rec := range records {
		if rec.NodeID == nil {
			return nil, fmt.Errorf("node definition %d: missing node_id", i)
		}
		if *rec.NodeID < 0 || *rec.NodeID > 255 {
			return nil, fmt.Errorf("node definition %d: node_id %d out of range", i, *rec.NodeID)
		}
		d, err := NewDefinition(uint8(*rec.NodeID), rec.Name, rec.Payload, rec.Channels, rec.Commands)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// LoadFile reads a schema file and builds the registry from it.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read node definitions %s: %w", path, err)
	}
	defs, err := LoadYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewRegistry(defs...)
}
