package sdfx

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Ratio of inradius to circumradius shared by the dodecahedron and the
// icosahedron.
const dualInradiusRatio = 0.7946544722917661

var phi = (1 + math.Sqrt(5)) / 2

// planeSDF is a convex polyhedron given by its face normals. When symmetric
// is set each normal stands for a pair of opposite faces.
type planeSDF struct {
	normals   []v3.Vec
	inradius  float64
	symmetric bool
	bb        sdf.Box3
}

func newPlaneSDF(normals []v3.Vec, inradius, circumradius float64, symmetric bool) *planeSDF {
	unit := make([]v3.Vec, len(normals))
	for i, n := range normals {
		unit[i] = n.Normalize()
	}
	r := v3.Vec{X: circumradius, Y: circumradius, Z: circumradius}
	return &planeSDF{
		normals:   unit,
		inradius:  inradius,
		symmetric: symmetric,
		bb:        sdf.Box3{Min: r.MulScalar(-1), Max: r},
	}
}

// Evaluate returns the largest signed plane distance. This is exact inside
// and a lower bound outside.
func (s *planeSDF) Evaluate(p v3.Vec) float64 {
	d := math.Inf(-1)
	for _, n := range s.normals {
		v := n.Dot(p)
		if s.symmetric {
			v = math.Abs(v)
		}
		d = math.Max(d, v)
	}
	return d - s.inradius
}

func (s *planeSDF) BoundingBox() sdf.Box3 {
	return s.bb
}

func octahedron(r float64) sdf.SDF3 {
	normals := []v3.Vec{
		{X: 1, Y: 1, Z: 1}, {X: -1, Y: 1, Z: 1}, {X: 1, Y: -1, Z: 1}, {X: 1, Y: 1, Z: -1},
	}
	return newPlaneSDF(normals, r/math.Sqrt(3), r, true)
}

func tetrahedron(r float64) sdf.SDF3 {
	normals := []v3.Vec{
		{X: -1, Y: -1, Z: -1}, {X: 1, Y: 1, Z: -1}, {X: 1, Y: -1, Z: 1}, {X: -1, Y: 1, Z: 1},
	}
	return newPlaneSDF(normals, r/3, r, false)
}

// cyclic returns the three cyclic permutations of (0, a, b) with both signs
// of a.
func cyclic(a, b float64) []v3.Vec {
	return []v3.Vec{
		{X: 0, Y: a, Z: b}, {X: 0, Y: -a, Z: b},
		{X: a, Y: b, Z: 0}, {X: -a, Y: b, Z: 0},
		{X: b, Y: 0, Z: a}, {X: b, Y: 0, Z: -a},
	}
}

// anticyclic is cyclic with the opposite handedness: (a, 0, b) and its
// rotations.
func anticyclic(a, b float64) []v3.Vec {
	return []v3.Vec{
		{X: a, Y: 0, Z: b}, {X: -a, Y: 0, Z: b},
		{X: 0, Y: b, Z: a}, {X: 0, Y: b, Z: -a},
		{X: b, Y: a, Z: 0}, {X: b, Y: -a, Z: 0},
	}
}

// The dodecahedron's face normals point at the vertices of the icosahedron
// below, so the two are duals.
func dodecahedron(r float64) sdf.SDF3 {
	return newPlaneSDF(cyclic(1, phi), dualInradiusRatio*r, r, true)
}

func icosahedron(r float64) sdf.SDF3 {
	normals := []v3.Vec{
		{X: 1, Y: 1, Z: 1}, {X: -1, Y: 1, Z: 1}, {X: 1, Y: -1, Z: 1}, {X: 1, Y: 1, Z: -1},
	}
	normals = append(normals, anticyclic(1/phi, phi)...)
	return newPlaneSDF(normals, dualInradiusRatio*r, r, true)
}

// iconSDF is the person silhouette: a body rectangle and a head circle in
// the XY plane, extruded symmetrically along Z.
type iconSDF struct {
	size float64
	bb   sdf.Box3
}

func personIcon(size float64) sdf.SDF3 {
	s := size
	return &iconSDF{
		size: s,
		bb: sdf.Box3{
			Min: v3.Vec{X: -s / 4, Y: -s / 2, Z: -s / 8},
			Max: v3.Vec{X: s / 4, Y: 3 * s / 4, Z: s / 8},
		},
	}
}

func (s *iconSDF) profile(x, y float64) float64 {
	sz := s.size
	// body: (-s/4,-s/2) .. (s/4,s/4)
	cx, cy := 0.0, -sz/8
	hx, hy := sz/4, 3*sz/8
	qx, qy := math.Abs(x-cx)-hx, math.Abs(y-cy)-hy
	body := math.Hypot(math.Max(qx, 0), math.Max(qy, 0)) + math.Min(math.Max(qx, qy), 0)
	head := math.Hypot(x, y-sz/2) - sz/4
	return math.Min(body, head)
}

func (s *iconSDF) Evaluate(p v3.Vec) float64 {
	d := s.profile(p.X, p.Y)
	w := math.Abs(p.Z) - s.size/8
	return math.Min(math.Max(d, w), 0) + math.Hypot(math.Max(d, 0), math.Max(w, 0))
}

func (s *iconSDF) BoundingBox() sdf.Box3 {
	return s.bb
}
