package cache

import (
	"fmt"
	"strings"

	"github.com/chazu/nodescope/pkg/kernel"
	"github.com/google/uuid"
)

// Style is an edge line style.
type Style string

const (
	StyleSolid  Style = "solid"
	StyleDashed Style = "dashed"
	StyleDotted Style = "dotted"
)

// Styles lists the edge styles in the order datasets rotate through them.
var Styles = []Style{StyleSolid, StyleDashed, StyleDotted}

// ParseStyle normalizes a style name. The empty string is solid.
func ParseStyle(s string) (Style, error) {
	switch st := Style(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StyleSolid, nil
	case StyleSolid, StyleDashed, StyleDotted:
		return st, nil
	default:
		return StyleSolid, fmt.Errorf("cache: unknown style %q", s)
	}
}

// ShapeKey identifies a node shape geometry.
type ShapeKey struct {
	Kind kernel.ShapeKind
	Size float64
}

func (k ShapeKey) String() string {
	return fmt.Sprintf("shape:%s:%g", k.Kind, k.Size)
}

// MaterialKey identifies a material.
type MaterialKey struct {
	Color uint32
	Style Style
}

// TubeKey identifies an edge tube geometry. Curve is a content-addressed
// identity of the curve's control points.
type TubeKey struct {
	Curve    uuid.UUID
	Segments int
	Height   float64
	Offset   float64
}

func (k TubeKey) String() string {
	return fmt.Sprintf("tube:%s:%d", k.Curve, k.Segments)
}

// Geometry is a shared solid together with its render mesh.
type Geometry struct {
	ID    string
	Solid kernel.Solid
	Mesh  *kernel.Mesh
}

// Material describes how a surface is shaded.
type Material struct {
	Color       uint32  `json:"color"`
	Style       Style   `json:"style"`
	Opacity     float64 `json:"opacity"`
	Transparent bool    `json:"transparent"`
	Shininess   float64 `json:"shininess"`
	DashSize    float64 `json:"dashSize,omitempty"`
	GapSize     float64 `json:"gapSize,omitempty"`
}

// NewMaterial derives a material from colour and style. Dashed and dotted
// edges are half transparent.
func NewMaterial(color uint32, style Style) *Material {
	m := &Material{Color: color, Style: style, Opacity: 1, Shininess: 30}
	switch style {
	case StyleDashed:
		m.Opacity, m.Transparent = 0.5, true
		m.DashSize, m.GapSize = 0.5, 0.25
	case StyleDotted:
		m.Opacity, m.Transparent = 0.5, true
		m.DashSize, m.GapSize = 0.1, 0.1
	}
	return m
}

// GeometryCache groups the caches shared by all proxies of a session.
type GeometryCache struct {
	Shapes    *Cache[ShapeKey, *Geometry]
	Tubes     *Cache[TubeKey, *Geometry]
	Materials *Cache[MaterialKey, *Material]
}

// NewGeometryCache returns empty caches.
func NewGeometryCache() *GeometryCache {
	return &GeometryCache{
		Shapes:    New[ShapeKey, *Geometry]("shapes"),
		Tubes:     New[TubeKey, *Geometry]("tubes"),
		Materials: New[MaterialKey, *Material]("materials"),
	}
}

// AcquireShape returns the shared geometry for a node shape, building the
// solid and its mesh through k on a miss.
func (g *GeometryCache) AcquireShape(k kernel.Kernel, key ShapeKey) (*Geometry, error) {
	return g.Shapes.Acquire(key, func() (*Geometry, error) {
		s, err := k.Shape(key.Kind, key.Size)
		if err != nil {
			return nil, err
		}
		m, err := k.ToMesh(s)
		if err != nil {
			return nil, fmt.Errorf("cache: mesh %s: %w", key, err)
		}
		if m.IsEmpty() {
			return nil, fmt.Errorf("cache: mesh %s: no triangles", key)
		}
		return &Geometry{ID: key.String(), Solid: s, Mesh: m}, nil
	})
}

// AcquireMaterial returns the shared material for key.
func (g *GeometryCache) AcquireMaterial(key MaterialKey) *Material {
	m, _ := g.Materials.Acquire(key, func() (*Material, error) {
		return NewMaterial(key.Color, key.Style), nil
	})
	return m
}

// Meshes returns every cached mesh by geometry ID.
func (g *GeometryCache) Meshes() map[string]*kernel.Mesh {
	out := make(map[string]*kernel.Mesh, g.Shapes.Len()+g.Tubes.Len())
	collect := func(geo *Geometry) {
		if geo.Mesh != nil {
			out[geo.ID] = geo.Mesh
		}
	}
	g.Shapes.Each(func(_ ShapeKey, geo *Geometry) { collect(geo) })
	g.Tubes.Each(func(_ TubeKey, geo *Geometry) { collect(geo) })
	return out
}

// Close disposes every cache.
func (g *GeometryCache) Close() {
	g.Shapes.Dispose(nil)
	g.Tubes.Dispose(nil)
	g.Materials.Dispose(nil)
}
