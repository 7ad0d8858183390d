package sdfx

import (
	"math"

	"github.com/chazu/nodescope/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// coincident is the distance under which consecutive path points merge.
const coincident = 1e-9

// tubeSDF is a swept sphere along a polyline.
type tubeSDF struct {
	points         []v3.Vec
	radius         float64
	radialSegments int
	bb             sdf.Box3
}

func newTube(path []v3.Vec, radius float64, radialSegments int) *tubeSDF {
	pts := make([]v3.Vec, 0, len(path))
	for _, p := range path {
		if len(pts) > 0 && p.Sub(pts[len(pts)-1]).Length() < coincident {
			continue
		}
		pts = append(pts, p)
	}
	t := &tubeSDF{points: pts, radius: radius, radialSegments: radialSegments}
	min, max := pts[0], pts[0]
	for _, p := range pts[1:] {
		min = min.Min(p)
		max = max.Max(p)
	}
	pad := v3.Vec{X: radius, Y: radius, Z: radius}
	t.bb = sdf.Box3{Min: min.Sub(pad), Max: max.Add(pad)}
	return t
}

func (t *tubeSDF) translate(offset v3.Vec) *tubeSDF {
	moved := make([]v3.Vec, len(t.points))
	for i, p := range t.points {
		moved[i] = p.Add(offset)
	}
	return newTube(moved, t.radius, t.radialSegments)
}

func segmentDistance(p, a, b v3.Vec) float64 {
	ab := b.Sub(a)
	h := p.Sub(a).Dot(ab) / ab.Dot(ab)
	h = math.Max(0, math.Min(1, h))
	return p.Sub(a.Add(ab.MulScalar(h))).Length()
}

func (t *tubeSDF) Evaluate(p v3.Vec) float64 {
	if len(t.points) == 1 {
		return p.Sub(t.points[0]).Length() - t.radius
	}
	d := math.Inf(1)
	for i := 1; i < len(t.points); i++ {
		d = math.Min(d, segmentDistance(p, t.points[i-1], t.points[i]))
	}
	return d - t.radius
}

func (t *tubeSDF) BoundingBox() sdf.Box3 {
	return t.bb
}

// perpendicular returns a unit vector orthogonal to v.
func perpendicular(v v3.Vec) v3.Vec {
	ref := v3.Vec{Y: 1}
	if math.Abs(v.Y) > 0.9 {
		ref = v3.Vec{X: 1}
	}
	return ref.Cross(v).Normalize()
}

// mesh extrudes a ring of radialSegments vertices around every path point,
// carrying the ring frame along the path by parallel transport.
func (t *tubeSDF) mesh() *kernel.Mesh {
	n, rs := len(t.points), t.radialSegments
	vertices := make([]float32, 0, n*rs*3)
	normals := make([]float32, 0, n*rs*3)
	indices := make([]uint32, 0, (n-1)*rs*6)

	var normal v3.Vec
	for i, p := range t.points {
		var tangent v3.Vec
		switch i {
		case 0:
			tangent = t.points[1].Sub(p)
		case n - 1:
			tangent = p.Sub(t.points[i-1])
		default:
			tangent = t.points[i+1].Sub(t.points[i-1])
		}
		tangent = tangent.Normalize()
		if i == 0 {
			normal = perpendicular(tangent)
		} else {
			normal = normal.Sub(tangent.MulScalar(normal.Dot(tangent)))
			if normal.Length() < coincident {
				normal = perpendicular(tangent)
			}
			normal = normal.Normalize()
		}
		binormal := tangent.Cross(normal)

		for j := 0; j < rs; j++ {
			theta := 2 * math.Pi * float64(j) / float64(rs)
			dir := normal.MulScalar(math.Cos(theta)).Add(binormal.MulScalar(math.Sin(theta)))
			v := p.Add(dir.MulScalar(t.radius))
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, float32(dir.X), float32(dir.Y), float32(dir.Z))
		}
	}

	for i := 0; i < n-1; i++ {
		for j := 0; j < rs; j++ {
			a := uint32(i*rs + j)
			b := uint32(i*rs + (j+1)%rs)
			c := uint32((i+1)*rs + j)
			d := uint32((i+1)*rs + (j+1)%rs)
			indices = append(indices, a, c, b, b, c, d)
		}
	}

	return &kernel.Mesh{Vertices: vertices, Normals: normals, Indices: indices}
}
