package cache

import (
	"errors"
	"testing"

	"github.com/chazu/nodescope/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateCallsFactoryOnce(t *testing.T) {
	c := New[string, *int]("test")
	calls := 0
	factory := func() (*int, error) {
		calls++
		v := calls
		return &v, nil
	}

	a, err := c.GetOrCreate("k", factory)
	require.NoError(t, err)
	b, err := c.GetOrCreate("k", factory)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Same(t, a, b)
	assert.Equal(t, Stats{Hits: 1, Misses: 1}, c.Stats())
}

func TestGetOrCreateDoesNotCacheErrors(t *testing.T) {
	c := New[string, int]("test")
	boom := errors.New("boom")

	_, err := c.GetOrCreate("k", func() (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)
	assert.Zero(t, c.Len())

	v, err := c.GetOrCreate("k", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestAcquireRelease(t *testing.T) {
	c := New[int, string]("test")
	mk := func() (string, error) { return "v", nil }

	_, err := c.Acquire(1, mk)
	require.NoError(t, err)
	_, err = c.Acquire(1, mk)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Refs(1))

	assert.Equal(t, 1, c.Release(1))
	assert.Equal(t, 0, c.Release(1))
	assert.Equal(t, 0, c.Release(1))
	assert.Equal(t, -1, c.Release(2))

	// Entries survive at zero references.
	v, ok := c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestDispose(t *testing.T) {
	c := New[int, string]("test")
	for i := 0; i < 3; i++ {
		_, err := c.GetOrCreate(i, func() (string, error) { return "x", nil })
		require.NoError(t, err)
	}
	var disposed []int
	c.Dispose(func(k int, _ string) { disposed = append(disposed, k) })
	assert.ElementsMatch(t, []int{0, 1, 2}, disposed)
	assert.Zero(t, c.Len())
}

func TestNewMaterial(t *testing.T) {
	solid := NewMaterial(0xff0000, StyleSolid)
	assert.Equal(t, 1.0, solid.Opacity)
	assert.False(t, solid.Transparent)
	assert.Equal(t, 30.0, solid.Shininess)

	for _, st := range []Style{StyleDashed, StyleDotted} {
		m := NewMaterial(0x00ff00, st)
		assert.Equal(t, 0.5, m.Opacity, st)
		assert.True(t, m.Transparent, st)
		assert.Positive(t, m.DashSize, st)
	}
}

func TestParseStyle(t *testing.T) {
	s, err := ParseStyle("")
	require.NoError(t, err)
	assert.Equal(t, StyleSolid, s)

	s, err = ParseStyle("Dashed")
	require.NoError(t, err)
	assert.Equal(t, StyleDashed, s)

	_, err = ParseStyle("wavy")
	assert.Error(t, err)
}

type fakeSolid struct{}

func (fakeSolid) BoundingBox() (min, max v3.Vec) { return v3.Vec{}, v3.Vec{X: 1, Y: 1, Z: 1} }
func (fakeSolid) Distance(v3.Vec) float64        { return 0 }

type countingKernel struct{ shapes int }

func (k *countingKernel) Shape(kernel.ShapeKind, float64) (kernel.Solid, error) {
	k.shapes++
	return fakeSolid{}, nil
}

func (k *countingKernel) Tube([]v3.Vec, float64, int) (kernel.Solid, error) {
	return fakeSolid{}, nil
}

func (k *countingKernel) Translate(s kernel.Solid, _ v3.Vec) kernel.Solid { return s }

func (k *countingKernel) ToMesh(kernel.Solid) (*kernel.Mesh, error) {
	return &kernel.Mesh{Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, Indices: []uint32{0, 1, 2}}, nil
}

func TestGeometryCacheSharesShapesAndMaterials(t *testing.T) {
	g := NewGeometryCache()
	k := &countingKernel{}
	key := ShapeKey{Kind: kernel.ShapeOctahedron, Size: 1.2}

	a, err := g.AcquireShape(k, key)
	require.NoError(t, err)
	b, err := g.AcquireShape(k, key)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, k.shapes)
	assert.Equal(t, "shape:octahedron:1.2", a.ID)

	m1 := g.AcquireMaterial(MaterialKey{Color: 0xff4500, Style: StyleSolid})
	m2 := g.AcquireMaterial(MaterialKey{Color: 0xff4500, Style: StyleSolid})
	assert.Same(t, m1, m2)
	assert.Equal(t, 2, g.Materials.Refs(MaterialKey{Color: 0xff4500, Style: StyleSolid}))

	assert.Contains(t, g.Meshes(), a.ID)

	g.Close()
	assert.Zero(t, g.Shapes.Len())
	assert.Zero(t, g.Materials.Len())
}
