package kernel

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

const (
	// hitEpsilon is the surface distance at which a march counts as a hit.
	hitEpsilon = 1e-4
	// maxMarchSteps bounds sphere tracing for grazing rays.
	maxMarchSteps = 512
)

// Ray is a half-line with a unit direction.
type Ray struct {
	Origin v3.Vec
	Dir    v3.Vec
}

// NewRay returns a ray from origin towards dir. dir is normalized.
func NewRay(origin, dir v3.Vec) Ray {
	return Ray{Origin: origin, Dir: dir.Normalize()}
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float64) v3.Vec {
	return r.Origin.Add(r.Dir.MulScalar(t))
}

// IntersectBox runs the slab test against an axis-aligned box and returns
// the entry and exit parameters. ok is false when the ray misses or the box
// lies entirely behind the origin.
func IntersectBox(r Ray, min, max v3.Vec) (tEnter, tExit float64, ok bool) {
	tEnter, tExit = math.Inf(-1), math.Inf(1)
	o := [3]float64{r.Origin.X, r.Origin.Y, r.Origin.Z}
	d := [3]float64{r.Dir.X, r.Dir.Y, r.Dir.Z}
	lo := [3]float64{min.X, min.Y, min.Z}
	hi := [3]float64{max.X, max.Y, max.Z}
	for i := 0; i < 3; i++ {
		if d[i] == 0 {
			if o[i] < lo[i] || o[i] > hi[i] {
				return 0, 0, false
			}
			continue
		}
		t0 := (lo[i] - o[i]) / d[i]
		t1 := (hi[i] - o[i]) / d[i]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tEnter = math.Max(tEnter, t0)
		tExit = math.Min(tExit, t1)
		if tEnter > tExit {
			return 0, 0, false
		}
	}
	if tExit < 0 {
		return 0, 0, false
	}
	return tEnter, tExit, true
}

// Intersect returns the distance along r to the first surface point of s
// within [near, far]. The bounding box clips the march before the signed
// distance is sampled.
func Intersect(s Solid, r Ray, near, far float64) (float64, bool) {
	min, max := s.BoundingBox()
	tEnter, tExit, ok := IntersectBox(r, min, max)
	if !ok {
		return 0, false
	}
	t := math.Max(tEnter, near)
	end := math.Min(tExit, far)
	if t > end {
		return 0, false
	}
	for i := 0; i < maxMarchSteps && t <= end; i++ {
		d := s.Distance(r.At(t))
		if d < hitEpsilon {
			return t, true
		}
		t += d
	}
	return 0, false
}

// Center returns the centre of the solid's bounding box.
func Center(s Solid) v3.Vec {
	min, max := s.BoundingBox()
	return min.Add(max).MulScalar(0.5)
}
