package curve

import (
	"math"
	"testing"

	"github.com/chazu/nodescope/pkg/cache"
	"github.com/chazu/nodescope/pkg/config"
	"github.com/chazu/nodescope/pkg/kernel/sdfx"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-9

func vecNear(t *testing.T, want, got v3.Vec) {
	t.Helper()
	assert.InDelta(t, 0, want.Sub(got).Length(), tol, "want %v, got %v", want, got)
}

func TestClampOffset(t *testing.T) {
	a, b := v3.Vec{}, v3.Vec{X: 6}
	tests := []struct {
		name   string
		offset float64
		want   float64
	}{
		{"within", 1.5, 1.5},
		{"at limit", 2, 2},
		{"positive over", 5, 2},
		{"negative over", -5, -2},
		{"zero", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ClampOffset(a, b, tt.offset), tol)
		})
	}
}

func TestClampOffsetNeverExceedsThird(t *testing.T) {
	pts := []v3.Vec{{}, {X: 1, Y: 2, Z: 3}, {X: -4, Z: 7}, {Y: 10}}
	for _, s := range pts {
		for _, e := range pts {
			limit := e.Sub(s).Length() / 3
			for _, off := range []float64{-100, -1, 0.3, 100} {
				got := ClampOffset(s, e, off)
				assert.LessOrEqual(t, math.Abs(got), limit+tol)
				if got != 0 {
					assert.Equal(t, math.Signbit(off), math.Signbit(got))
				}
			}
		}
	}
}

func TestCurvePassesThroughEndpoints(t *testing.T) {
	start, end := v3.Vec{X: -2, Y: 1, Z: 3}, v3.Vec{X: 5, Y: -1, Z: 0.5}
	c := New(start, end, 2, ClampOffset(start, end, 1))
	assert.Equal(t, start, c.Point(0))
	assert.Equal(t, end, c.Point(1))

	pts := c.Sample(DefaultSegments)
	require.Len(t, pts, DefaultSegments+1)
	assert.Equal(t, start, pts[0])
	assert.Equal(t, end, pts[DefaultSegments])
}

func TestCurveMidpointLiftAndOffset(t *testing.T) {
	start, end := v3.Vec{}, v3.Vec{X: 6}
	offset := ClampOffset(start, end, 5)
	require.InDelta(t, 2, offset, tol)

	c := New(start, end, 3, offset)
	vecNear(t, v3.Vec{X: 3, Y: 3, Z: 2}, c.Mid)
	vecNear(t, c.Mid, c.Point(0.5))

	// Lateral displacement from the straight midpoint, ignoring lift.
	straight := v3.Vec{X: 3}
	lateral := c.Point(0.5).Sub(straight)
	lateral.Y = 0
	assert.InDelta(t, 2, lateral.Length(), tol)
}

func TestCurveNegativeOffsetBowsOtherSide(t *testing.T) {
	c := New(v3.Vec{}, v3.Vec{X: 6}, 0, -2)
	vecNear(t, v3.Vec{X: 3, Z: -2}, c.Mid)
}

func TestCurveDegenerate(t *testing.T) {
	p := v3.Vec{X: 1, Y: 2, Z: 3}
	c := New(p, p, 5, 1)
	assert.True(t, c.Degenerate)
	for _, q := range c.Sample(4) {
		assert.Equal(t, p, q)
	}
}

func TestCurveVerticalEdgeSkipsOffset(t *testing.T) {
	c := New(v3.Vec{}, v3.Vec{Y: 6}, 1, 2)
	assert.False(t, c.Degenerate)
	vecNear(t, v3.Vec{Y: 4}, c.Mid)
}

func TestCurveID(t *testing.T) {
	a := New(v3.Vec{}, v3.Vec{X: 6}, 2, 1)
	b := New(v3.Vec{}, v3.Vec{X: 6}, 2, 1)
	c := New(v3.Vec{}, v3.Vec{X: 6}, 2, -1)
	assert.Equal(t, a.ID(), b.ID())
	assert.NotEqual(t, a.ID(), c.ID())
}

func TestBuilderSharesTubes(t *testing.T) {
	gc := cache.NewGeometryCache()
	b := NewBuilder(sdfx.New(), gc, config.Default().Geometry)
	start, end := v3.Vec{}, v3.Vec{X: 6, Z: 2}

	g1, k1, _, err := b.Build(start, end, 2, 1)
	require.NoError(t, err)
	g2, k2, _, err := b.Build(start, end, 2, 1)
	require.NoError(t, err)
	assert.Same(t, g1, g2)
	assert.Equal(t, k1, k2)
	assert.Equal(t, 2, gc.Tubes.Refs(k1))

	g3, _, _, err := b.Build(start, end, 2, -1)
	require.NoError(t, err)
	assert.NotSame(t, g1, g3)

	// 51 rings of 3 vertices.
	assert.Equal(t, (DefaultSegments+1)*DefaultRadialSegments, g1.Mesh.VertexCount())
}

func TestBuilderDegenerateEdgeIsPoint(t *testing.T) {
	gc := cache.NewGeometryCache()
	b := NewBuilder(sdfx.New().WithMeshCells(8), gc, config.Default().Geometry)
	p := v3.Vec{X: 1, Y: 1, Z: 1}
	g, _, c, err := b.Build(p, p, 2, 0)
	require.NoError(t, err)
	assert.True(t, c.Degenerate)
	assert.InDelta(t, -DefaultRadius, g.Solid.Distance(p), tol)
}
