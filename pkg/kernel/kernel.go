// Package kernel defines the abstract geometry kernel interface.
// Implementations build the solids behind node shapes and edge tubes and
// turn them into triangle meshes for the renderer. Picking only needs the
// Solid interface, so backends can be swapped without touching the rest of
// the system.
package kernel

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max v3.Vec)

	// Distance returns the signed distance from p to the surface, negative
	// inside. It may underestimate the true distance but never overestimate
	// it, which keeps ray marching conservative.
	Distance(p v3.Vec) float64
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Shape builds a node shape of the given kind, centred at the origin.
	// size is the overall extent; polyhedra use size/2 as circumradius.
	Shape(kind ShapeKind, size float64) (Solid, error)

	// Tube builds a tube of the given radius along a polyline. A single
	// point yields a sphere.
	Tube(path []v3.Vec, radius float64, radialSegments int) (Solid, error)

	// Translate moves a solid by offset.
	Translate(s Solid, offset v3.Vec) Solid

	// ToMesh converts a solid to a triangle mesh.
	ToMesh(s Solid) (*Mesh, error)
}
