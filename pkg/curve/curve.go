// Package curve derives the curved path of an edge between two node
// positions and builds the tube geometry that renders it.
//
// An edge rises by its curve height at the midpoint and, when it carries an
// offset, bows sideways in the horizontal plane so parallel edges between
// the same pair of nodes stay apart.
package curve

import (
	"encoding/binary"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"
)

const (
	DefaultSegments       = 50
	DefaultRadius         = 0.1
	DefaultRadialSegments = 3

	// degenerateEpsilon is the endpoint separation below which an edge has
	// no direction.
	degenerateEpsilon = 1e-9
)

// curveNamespace scopes content-addressed curve identities.
var curveNamespace = uuid.MustParse("6f1c7d0e-2b1a-4f4e-9a57-1d3c5e9b8a20")

// ClampOffset limits offset to a third of the distance between start and
// end, keeping its sign.
func ClampOffset(start, end v3.Vec, offset float64) float64 {
	limit := end.Sub(start).Length() / 3
	if math.Abs(offset) > limit {
		return math.Copysign(limit, offset)
	}
	return offset
}

// Curve is a quadratic Bézier from Start to End that passes through Mid at
// t = 0.5.
type Curve struct {
	Start   v3.Vec
	Control v3.Vec
	End     v3.Vec
	Mid     v3.Vec

	// Degenerate is set when Start and End coincide. Every point of a
	// degenerate curve is Start.
	Degenerate bool
}

// New builds the curve for an edge. height lifts the midpoint along +Y and
// offset moves it along the horizontal perpendicular of the edge direction.
// offset is used as given; callers clamp it with ClampOffset first. A
// vertical edge has no horizontal direction and ignores offset.
func New(start, end v3.Vec, height, offset float64) Curve {
	if end.Sub(start).Length() < degenerateEpsilon {
		return Curve{Start: start, Control: start, End: start, Mid: start, Degenerate: true}
	}

	mid := start.Add(end).MulScalar(0.5)
	mid.Y += height

	if offset != 0 {
		dir := end.Sub(start)
		horiz := v3.Vec{X: dir.X, Z: dir.Z}
		if horiz.Length() > degenerateEpsilon {
			h := horiz.Normalize()
			lateral := v3.Vec{X: -h.Z, Y: 0, Z: h.X}
			mid = mid.Add(lateral.MulScalar(offset))
		}
	}

	control := mid.MulScalar(2).Sub(start.Add(end).MulScalar(0.5))
	return Curve{Start: start, Control: control, End: end, Mid: mid}
}

// Point evaluates the curve at t in [0, 1].
func (c Curve) Point(t float64) v3.Vec {
	if c.Degenerate {
		return c.Start
	}
	u := 1 - t
	return c.Start.MulScalar(u * u).
		Add(c.Control.MulScalar(2 * u * t)).
		Add(c.End.MulScalar(t * t))
}

// Sample returns segments+1 evenly spaced points from Start to End.
func (c Curve) Sample(segments int) []v3.Vec {
	if segments < 1 {
		segments = 1
	}
	pts := make([]v3.Vec, segments+1)
	for i := range pts {
		pts[i] = c.Point(float64(i) / float64(segments))
	}
	pts[0] = c.Start
	pts[segments] = c.End
	return pts
}

// ID returns a content-addressed identity for the curve's control points.
// Equal curves share an ID.
func (c Curve) ID() uuid.UUID {
	buf := make([]byte, 0, 9*8)
	for _, v := range []v3.Vec{c.Start, c.Control, c.End} {
		for _, f := range []float64{v.X, v.Y, v.Z} {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f))
		}
	}
	return uuid.NewSHA1(curveNamespace, buf)
}
