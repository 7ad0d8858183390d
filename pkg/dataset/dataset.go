// Package dataset reads graph datasets from JSON and normalizes them into
// graph.Dataset records.
//
// Nodes may carry their position as flat x/y/z fields or as a nested
// position object or array. Edge endpoints may name a node by ID or by its
// index in the node list. Fields a record leaves out get the default
// styling in defaults.go. A record that cannot be decoded or fails
// validation is skipped and reported; only a malformed document fails the
// load.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chazu/nodescope/pkg/cache"
	"github.com/chazu/nodescope/pkg/graph"
	"github.com/chazu/nodescope/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrInvalidRecord marks a record that could not be decoded or validated.
var ErrInvalidRecord = errors.New("dataset: invalid record")

type document struct {
	Name  string            `json:"name"`
	Nodes []json.RawMessage `json:"nodes"`
	Edges []json.RawMessage `json:"edges"`
}

type rawNode struct {
	ID       flexString     `json:"id"`
	Name     string         `json:"name"`
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	Z        float64        `json:"z"`
	Position *vec           `json:"position"`
	Shape    string         `json:"shape" validate:"omitempty,shape"`
	Size     *float64       `json:"size" validate:"omitempty,gt=0"`
	Color    *Color         `json:"color"`
	Metadata map[string]any `json:"metadata"`
}

type rawEdge struct {
	ID          flexString     `json:"id"`
	Start       endpoint       `json:"start"`
	End         endpoint       `json:"end"`
	Name        string         `json:"name"`
	Type        string         `json:"type" validate:"max=64"`
	Style       string         `json:"style" validate:"omitempty,style"`
	Color       *Color         `json:"color"`
	CurveHeight *float64       `json:"curveHeight" validate:"omitempty,gte=0"`
	Offset      float64        `json:"offset"`
	Metadata    map[string]any `json:"metadata"`
}

// Keys consumed by the loader. Anything else on a record without an
// explicit metadata object becomes metadata.
var (
	nodeKeys = []string{"id", "name", "x", "y", "z", "position", "shape", "size", "color", "metadata"}
	edgeKeys = []string{"id", "start", "end", "name", "type", "style", "color", "curveHeight", "offset", "metadata"}
)

// LoadFile reads a dataset from a JSON file.
func LoadFile(path string) (graph.Dataset, []*graph.RecordError, error) {
	f, err := os.Open(path)
	if err != nil {
		return graph.Dataset{}, nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load reads a dataset from JSON.
func Load(r io.Reader) (graph.Dataset, []*graph.RecordError, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return graph.Dataset{}, nil, fmt.Errorf("dataset: decode: %w", err)
	}

	ds := graph.Dataset{Name: doc.Name}
	var recErrs []*graph.RecordError
	reject := func(kind string, i int, id string, err error) {
		recErrs = append(recErrs, &graph.RecordError{
			Kind: kind, Index: i, ID: id, Skipped: true,
			Err: fmt.Errorf("%w: %v", ErrInvalidRecord, err),
		})
	}

	// Index references resolve through nodeIDs, which also covers skipped
	// records so an edge to one of them is reported as a bad reference.
	nodeIDs := make([]string, len(doc.Nodes))
	for i, msg := range doc.Nodes {
		nodeIDs[i] = NodeID(i)
		var raw rawNode
		err := json.Unmarshal(msg, &raw)
		if raw.ID != "" {
			nodeIDs[i] = string(raw.ID)
		}
		if err != nil {
			reject("node", i, nodeIDs[i], err)
			continue
		}
		if err := validateRecord(&raw); err != nil {
			reject("node", i, nodeIDs[i], err)
			continue
		}
		spec, err := raw.spec(i, nodeIDs[i], msg)
		if err != nil {
			reject("node", i, nodeIDs[i], err)
			continue
		}
		ds.Nodes = append(ds.Nodes, spec)
	}

	for i, msg := range doc.Edges {
		id := EdgeID(i)
		var raw rawEdge
		err := json.Unmarshal(msg, &raw)
		if raw.ID != "" {
			id = string(raw.ID)
		}
		if err != nil {
			reject("edge", i, id, err)
			continue
		}
		if err := validateRecord(&raw); err != nil {
			reject("edge", i, id, err)
			continue
		}
		spec, err := raw.spec(i, id, nodeIDs, msg)
		if err != nil {
			reject("edge", i, id, err)
			continue
		}
		ds.Edges = append(ds.Edges, spec)
	}
	return ds, recErrs, nil
}

func (r *rawNode) spec(i int, id string, msg json.RawMessage) (graph.NodeSpec, error) {
	spec := graph.NodeSpec{
		ID:       id,
		Name:     r.Name,
		Position: v3.Vec{X: r.X, Y: r.Y, Z: r.Z},
		Shape:    DefaultShape(i),
		Size:     DefaultNodeSize,
		Color:    DefaultNodeColor,
		Metadata: r.Metadata,
	}
	if r.Position != nil {
		spec.Position = v3.Vec(*r.Position)
	}
	if r.Shape != "" {
		kind, err := kernel.ParseShapeKind(r.Shape)
		if err != nil {
			return spec, err
		}
		spec.Shape = kind
	}
	if r.Size != nil {
		spec.Size = *r.Size
	}
	if r.Color != nil {
		spec.Color = uint32(*r.Color)
	}
	if spec.Metadata == nil {
		md, err := extraFields(msg, nodeKeys)
		if err != nil {
			return spec, err
		}
		spec.Metadata = md
	}
	return spec, nil
}

func (r *rawEdge) spec(i int, id string, nodeIDs []string, msg json.RawMessage) (graph.EdgeSpec, error) {
	spec := graph.EdgeSpec{
		ID:          id,
		Start:       r.Start.resolve(nodeIDs),
		End:         r.End.resolve(nodeIDs),
		Name:        r.Name,
		Type:        r.Type,
		Style:       DefaultEdgeStyle(i),
		Color:       DefaultEdgeColor(i),
		CurveHeight: DefaultCurveHeight(r.Offset),
		Offset:      r.Offset,
		Metadata:    r.Metadata,
	}
	if r.Style != "" {
		style, err := cache.ParseStyle(r.Style)
		if err != nil {
			return spec, err
		}
		spec.Style = style
	}
	if r.Color != nil {
		spec.Color = uint32(*r.Color)
	}
	if r.CurveHeight != nil {
		spec.CurveHeight = *r.CurveHeight
	}
	if spec.Metadata == nil {
		md, err := extraFields(msg, edgeKeys)
		if err != nil {
			return spec, err
		}
		spec.Metadata = md
	}
	return spec, nil
}

// extraFields returns the record's fields outside known, or nil when there
// are none.
func extraFields(msg json.RawMessage, known []string) (map[string]any, error) {
	var all map[string]any
	if err := json.Unmarshal(msg, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}
