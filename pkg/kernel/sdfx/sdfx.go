// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"

	"github.com/chazu/nodescope/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution. Node
// shapes are small, so a coarse grid is enough.
const DefaultMeshCells = 32

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid. Tubes also keep
// their polyline so they can be meshed as rings instead of marched.
type sdfxSolid struct {
	s    sdf.SDF3
	tube *tubeSDF
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max v3.Vec) {
	bb := s.s.BoundingBox()
	return bb.Min, bb.Max
}

// Distance evaluates the signed distance field.
func (s *sdfxSolid) Distance(p v3.Vec) float64 {
	return s.s.Evaluate(p)
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	meshCells int
}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{meshCells: DefaultMeshCells}
}

// WithMeshCells sets the marching cubes resolution. Non-positive values
// keep the current setting.
func (k *SdfxKernel) WithMeshCells(cells int) *SdfxKernel {
	if cells > 0 {
		k.meshCells = cells
	}
	return k
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) *sdfxSolid {
	return s.(*sdfxSolid)
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Shape builds a node shape centred at the origin.
func (k *SdfxKernel) Shape(kind kernel.ShapeKind, size float64) (kernel.Solid, error) {
	if size <= 0 {
		return nil, fmt.Errorf("sdfx: shape %s: size must be positive, got %g", kind, size)
	}
	r := size / 2
	switch kind {
	case kernel.ShapeCube:
		s, err := sdf.Box3D(v3.Vec{X: size, Y: size, Z: size}, 0)
		if err != nil {
			return nil, fmt.Errorf("sdfx: cube: %w", err)
		}
		return wrap(s), nil
	case kernel.ShapeIcosahedron:
		return wrap(icosahedron(r)), nil
	case kernel.ShapeDodecahedron:
		return wrap(dodecahedron(r)), nil
	case kernel.ShapeOctahedron:
		return wrap(octahedron(r)), nil
	case kernel.ShapeTetrahedron:
		return wrap(tetrahedron(r)), nil
	case kernel.ShapeMaleIcon, kernel.ShapeFemaleIcon:
		return wrap(personIcon(size)), nil
	case kernel.ShapeDiverseIcon:
		s, err := sdf.Cylinder3D(size/4, r, 0)
		if err != nil {
			return nil, fmt.Errorf("sdfx: diverse icon: %w", err)
		}
		return wrap(s), nil
	default:
		return nil, fmt.Errorf("sdfx: unknown shape kind %d", int(kind))
	}
}

// Tube builds a tube of the given radius along path. radialSegments only
// affects meshing.
func (k *SdfxKernel) Tube(path []v3.Vec, radius float64, radialSegments int) (kernel.Solid, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("sdfx: tube: empty path")
	}
	if radius <= 0 {
		return nil, fmt.Errorf("sdfx: tube: radius must be positive, got %g", radius)
	}
	if radialSegments < 3 {
		radialSegments = 3
	}
	t := newTube(path, radius, radialSegments)
	return &sdfxSolid{s: t, tube: t}, nil
}

// Translate moves a solid by offset.
func (k *SdfxKernel) Translate(s kernel.Solid, offset v3.Vec) kernel.Solid {
	src := unwrap(s)
	if src.tube != nil {
		t := src.tube.translate(offset)
		return &sdfxSolid{s: t, tube: t}
	}
	m := sdf.Translate3d(offset)
	return wrap(sdf.Transform3D(src.s, m))
}

// ToMesh converts a solid to a triangle mesh. Tubes are extruded as rings
// along their polyline; everything else goes through marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	src := unwrap(s)
	if src.tube != nil && len(src.tube.points) >= 2 {
		return src.tube.mesh(), nil
	}

	renderer := render.NewMarchingCubesUniform(k.meshCells)
	triangles := render.ToTriangles(src.s, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	if numTri == 0 {
		return nil, fmt.Errorf("sdfx: marching cubes produced no triangles")
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
