package curve

import (
	"fmt"

	"github.com/chazu/nodescope/pkg/cache"
	"github.com/chazu/nodescope/pkg/config"
	"github.com/chazu/nodescope/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Builder turns edge endpoints into shared tube geometry.
type Builder struct {
	kernel         kernel.Kernel
	cache          *cache.GeometryCache
	segments       int
	radius         float64
	radialSegments int
}

// NewBuilder returns a Builder using the tube settings in cfg.
func NewBuilder(k kernel.Kernel, gc *cache.GeometryCache, cfg config.GeometryConfig) *Builder {
	b := &Builder{
		kernel:         k,
		cache:          gc,
		segments:       cfg.Segments,
		radius:         cfg.TubeRadius,
		radialSegments: cfg.RadialSegments,
	}
	if b.segments <= 0 {
		b.segments = DefaultSegments
	}
	if b.radius <= 0 {
		b.radius = DefaultRadius
	}
	if b.radialSegments < 3 {
		b.radialSegments = DefaultRadialSegments
	}
	return b
}

// Build returns the tube for an edge and the key holding the reference the
// caller now owns. offset is not clamped here.
func (b *Builder) Build(start, end v3.Vec, height, offset float64) (*cache.Geometry, cache.TubeKey, Curve, error) {
	c := New(start, end, height, offset)
	key := cache.TubeKey{Curve: c.ID(), Segments: b.segments, Height: height, Offset: offset}
	geo, err := b.cache.Tubes.Acquire(key, func() (*cache.Geometry, error) {
		s, err := b.kernel.Tube(c.Sample(b.segments), b.radius, b.radialSegments)
		if err != nil {
			return nil, err
		}
		m, err := b.kernel.ToMesh(s)
		if err != nil {
			return nil, err
		}
		return &cache.Geometry{ID: key.String(), Solid: s, Mesh: m}, nil
	})
	if err != nil {
		return nil, key, c, fmt.Errorf("curve: build tube: %w", err)
	}
	return geo, key, c, nil
}
