// Package tessellate walks a graph model and produces one visual proxy per
// node and edge, using a geometry kernel for shapes and the curve builder
// for edge tubes. Geometry and materials come from the shared cache.
package tessellate

import (
	"fmt"
	"log/slog"

	"github.com/chazu/nodescope/pkg/cache"
	"github.com/chazu/nodescope/pkg/config"
	"github.com/chazu/nodescope/pkg/curve"
	"github.com/chazu/nodescope/pkg/graph"
	"github.com/chazu/nodescope/pkg/kernel"
	"github.com/chazu/nodescope/pkg/scene"
)

// Tessellator builds proxies for a model.
type Tessellator struct {
	kernel kernel.Kernel
	cache  *cache.GeometryCache
	curves *curve.Builder
	logger *slog.Logger
}

// New returns a Tessellator. A nil logger uses slog.Default().
func New(k kernel.Kernel, gc *cache.GeometryCache, cfg config.GeometryConfig, logger *slog.Logger) *Tessellator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tessellator{
		kernel: k,
		cache:  gc,
		curves: curve.NewBuilder(k, gc, cfg),
		logger: logger,
	}
}

// Tessellate walks the model and returns a scene holding one proxy per node
// and edge. The tessellator is read-only and never mutates the model. On
// error every proxy built so far is disposed.
func (t *Tessellator) Tessellate(m *graph.Model) (*scene.Scene, error) {
	sc := scene.New()
	if m == nil {
		return sc, nil
	}

	for _, n := range m.Nodes() {
		p, err := t.NodeProxy(n)
		if err != nil {
			sc.Clear()
			return nil, err
		}
		sc.Add(p)
	}

	for _, e := range m.Edges() {
		p, err := t.EdgeProxy(m, e)
		if err != nil {
			sc.Clear()
			return nil, err
		}
		sc.Add(p)
	}

	t.logger.Debug("tessellated model", "dataset", m.Name(), "proxies", sc.Len())
	return sc, nil
}

// NodeProxy builds the proxy for a node: the shared shape translated to the
// node's position.
func (t *Tessellator) NodeProxy(n *graph.Node) (*scene.Proxy, error) {
	shapeKey := cache.ShapeKey{Kind: n.Shape, Size: n.Size}
	geo, err := t.cache.AcquireShape(t.kernel, shapeKey)
	if err != nil {
		return nil, fmt.Errorf("tessellate: node %s: %w", n.ID, err)
	}
	matKey := cache.MaterialKey{Color: n.Color, Style: cache.StyleSolid}
	mat := t.cache.AcquireMaterial(matKey)

	return scene.NewProxy(scene.ProxySpec{
		Kind:     scene.KindNode,
		Node:     n,
		Solid:    t.kernel.Translate(geo.Solid, n.Position),
		Geometry: geo,
		Material: mat,
		Position: n.Position,
		Appearance: scene.Appearance{
			Color:      n.Color,
			Opacity:    mat.Opacity,
			WidthScale: 1,
		},
		Release: func() {
			t.cache.Shapes.Release(shapeKey)
			t.cache.Materials.Release(matKey)
		},
	}), nil
}

// EdgeProxy builds the proxy for an edge from its endpoints' positions.
func (t *Tessellator) EdgeProxy(m *graph.Model, e *graph.Edge) (*scene.Proxy, error) {
	start, ok := m.Node(e.Start)
	if !ok {
		return nil, fmt.Errorf("tessellate: edge %s start %s: %w", e.ID, e.Start, graph.ErrStaleEntity)
	}
	end, ok := m.Node(e.End)
	if !ok {
		return nil, fmt.Errorf("tessellate: edge %s end %s: %w", e.ID, e.End, graph.ErrStaleEntity)
	}

	geo, tubeKey, c, err := t.curves.Build(start.Position, end.Position, e.CurveHeight, e.Offset)
	if err != nil {
		return nil, fmt.Errorf("tessellate: edge %s: %w", e.ID, err)
	}
	if c.Degenerate {
		t.logger.Warn("edge renders as a point", "edge", e.ID, "error", graph.ErrDegenerateGeometry)
	}
	matKey := cache.MaterialKey{Color: e.Color, Style: e.Style}
	mat := t.cache.AcquireMaterial(matKey)

	return scene.NewProxy(scene.ProxySpec{
		Kind:     scene.KindEdge,
		Edge:     e,
		Solid:    geo.Solid,
		Geometry: geo,
		Material: mat,
		Position: c.Mid,
		Appearance: scene.Appearance{
			Color:      e.Color,
			Opacity:    mat.Opacity,
			WidthScale: 1,
		},
		Release: func() {
			t.cache.Tubes.Release(tubeKey)
			t.cache.Materials.Release(matKey)
		},
	}), nil
}
