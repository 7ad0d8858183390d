// Package scene holds the visual proxies that stand in for graph entities
// on screen, and the camera that views them.
package scene

import (
	"sync/atomic"

	"github.com/chazu/nodescope/pkg/cache"
	"github.com/chazu/nodescope/pkg/graph"
	"github.com/chazu/nodescope/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"
)

// Kind distinguishes node proxies from edge proxies.
type Kind int

const (
	KindNode Kind = iota
	KindEdge
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindEdge:
		return "edge"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Appearance is the mutable part of a proxy's look.
type Appearance struct {
	Color             uint32  `json:"color"`
	Emissive          uint32  `json:"emissive"`
	EmissiveIntensity float64 `json:"emissiveIntensity"`
	Opacity           float64 `json:"opacity"`
	WidthScale        float64 `json:"widthScale"`
}

// Proxy is the renderable, pickable stand-in for one node or edge.
type Proxy struct {
	ID   uuid.UUID
	Kind Kind
	Node *graph.Node // set for KindNode
	Edge *graph.Edge // set for KindEdge

	// Solid is in world space and is what rays are cast against.
	Solid    kernel.Solid
	Geometry *cache.Geometry
	Material *cache.Material

	// Position anchors the proxy: the node position, or the midpoint of the
	// edge curve.
	Position v3.Vec

	// Original is captured at construction; Current is what highlighting
	// changes.
	Original Appearance
	Current  Appearance

	release  func()
	disposed atomic.Bool
}

// ProxySpec carries everything NewProxy needs.
type ProxySpec struct {
	Kind       Kind
	Node       *graph.Node
	Edge       *graph.Edge
	Solid      kernel.Solid
	Geometry   *cache.Geometry
	Material   *cache.Material
	Position   v3.Vec
	Appearance Appearance

	// Release returns the proxy's shared resources. It runs once, on
	// Dispose.
	Release func()
}

// NewProxy creates a proxy with a fresh identity.
func NewProxy(spec ProxySpec) *Proxy {
	return &Proxy{
		ID:       uuid.New(),
		Kind:     spec.Kind,
		Node:     spec.Node,
		Edge:     spec.Edge,
		Solid:    spec.Solid,
		Geometry: spec.Geometry,
		Material: spec.Material,
		Position: spec.Position,
		Original: spec.Appearance,
		Current:  spec.Appearance,
		release:  spec.Release,
	}
}

// EntityID returns the ID of the node or edge behind the proxy.
func (p *Proxy) EntityID() string {
	if p.Kind == KindEdge && p.Edge != nil {
		return string(p.Edge.ID)
	}
	if p.Node != nil {
		return string(p.Node.ID)
	}
	return ""
}

// Title returns the display name of the entity.
func (p *Proxy) Title() string {
	if p.Kind == KindEdge && p.Edge != nil {
		return p.Edge.Title()
	}
	if p.Node != nil {
		return p.Node.Title()
	}
	return ""
}

// Fields returns the entity's details for the info panel.
func (p *Proxy) Fields() map[string]string {
	if p.Kind == KindEdge && p.Edge != nil {
		return p.Edge.Fields()
	}
	if p.Node != nil {
		return p.Node.Fields()
	}
	return map[string]string{}
}

// Dispose releases shared resources. Calling it again does nothing.
func (p *Proxy) Dispose() {
	if !p.disposed.CompareAndSwap(false, true) {
		return
	}
	if p.release != nil {
		p.release()
	}
}

// Disposed reports whether Dispose was called. Disposed proxies are never
// picked or highlighted.
func (p *Proxy) Disposed() bool {
	return p == nil || p.disposed.Load()
}
