package graph

import (
	"fmt"

	"github.com/chazu/nodescope/pkg/cache"
	"github.com/chazu/nodescope/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// NodeID identifies a node within a Model.
type NodeID string

// EdgeID identifies an edge within a Model.
type EdgeID string

// Node is a positioned, shaped vertex of the graph.
type Node struct {
	ID       NodeID           `json:"id"`
	Name     string           `json:"name"`
	Position v3.Vec           `json:"position"`
	Shape    kernel.ShapeKind `json:"shape"`
	Size     float64          `json:"size"`
	Color    uint32           `json:"color"`
	Metadata map[string]any   `json:"metadata,omitempty"`
}

// Edge connects two nodes with a curved tube.
type Edge struct {
	ID          EdgeID      `json:"id"`
	Start       NodeID      `json:"start"`
	End         NodeID      `json:"end"`
	Name        string      `json:"name"`
	Type        string      `json:"type,omitempty"`
	Style       cache.Style `json:"style"`
	Color       uint32      `json:"color"`
	CurveHeight float64     `json:"curveHeight"`

	// Offset is the lateral offset actually used, clamped to a third of the
	// endpoint distance. RequestedOffset is the value from the dataset.
	Offset          float64 `json:"offset"`
	RequestedOffset float64 `json:"requestedOffset"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// Title returns the node's display name, falling back to its ID.
func (n *Node) Title() string {
	if n.Name != "" {
		return n.Name
	}
	return string(n.ID)
}

// Fields returns the node's details as display strings.
func (n *Node) Fields() map[string]string {
	f := metadataFields(n.Metadata)
	f["id"] = string(n.ID)
	f["position"] = fmt.Sprintf("(%.2f, %.2f, %.2f)", n.Position.X, n.Position.Y, n.Position.Z)
	f["shape"] = n.Shape.String()
	return f
}

// Title returns the edge's display name, falling back to its ID.
func (e *Edge) Title() string {
	if e.Name != "" {
		return e.Name
	}
	return string(e.ID)
}

// Fields returns the edge's details as display strings.
func (e *Edge) Fields() map[string]string {
	f := metadataFields(e.Metadata)
	f["id"] = string(e.ID)
	f["start"] = string(e.Start)
	f["end"] = string(e.End)
	f["style"] = string(e.Style)
	if e.Type != "" {
		f["type"] = e.Type
	}
	return f
}

func metadataFields(md map[string]any) map[string]string {
	f := make(map[string]string, len(md)+4)
	for k, v := range md {
		f[k] = fmt.Sprint(v)
	}
	return f
}

// NodeSpec is a normalized node record, as produced by dataset loaders.
type NodeSpec struct {
	ID       string
	Name     string
	Position v3.Vec
	Shape    kernel.ShapeKind
	Size     float64
	Color    uint32
	Metadata map[string]any
}

// EdgeSpec is a normalized edge record. Start and End are node IDs.
type EdgeSpec struct {
	ID          string
	Start       string
	End         string
	Name        string
	Type        string
	Style       cache.Style
	Color       uint32
	CurveHeight float64
	Offset      float64
	Metadata    map[string]any
}

// Dataset is a complete normalized input for Build.
type Dataset struct {
	Name  string
	Nodes []NodeSpec
	Edges []EdgeSpec
}
