package scene

import (
	"math"

	"github.com/chazu/nodescope/pkg/config"
	"github.com/chazu/nodescope/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Camera is a perspective camera looking from Position at Target.
type Camera struct {
	Position v3.Vec  `json:"position"`
	Target   v3.Vec  `json:"target"`
	Up       v3.Vec  `json:"up"`
	FOV      float64 `json:"fov"` // vertical, degrees
	Aspect   float64 `json:"aspect"`
	Near     float64 `json:"near"`
	Far      float64 `json:"far"`
}

// NewCamera returns a camera posed by cfg with a square aspect.
func NewCamera(cfg config.CameraConfig) *Camera {
	return &Camera{
		Position: v3.Vec{X: cfg.Position[0], Y: cfg.Position[1], Z: cfg.Position[2]},
		Target:   v3.Vec{X: cfg.Target[0], Y: cfg.Target[1], Z: cfg.Target[2]},
		Up:       v3.Vec{Y: 1},
		FOV:      cfg.FOV,
		Aspect:   1,
		Near:     cfg.Near,
		Far:      cfg.Far,
	}
}

// SetViewport updates the aspect ratio. Non-positive sizes are ignored.
func (c *Camera) SetViewport(width, height float64) {
	if width > 0 && height > 0 {
		c.Aspect = width / height
	}
}

// basis returns the camera's forward, right and up unit vectors.
// When the view direction is parallel to Up, another axis stands in for Up
// so the basis stays finite.
func (c *Camera) basis() (forward, right, up v3.Vec) {
	forward = c.Target.Sub(c.Position)
	if forward.Length() < 1e-12 {
		forward = v3.Vec{Z: -1}
	}
	forward = forward.Normalize()
	right = forward.Cross(c.Up)
	if right.Length() < 1e-9 {
		alt := v3.Vec{Z: 1}
		if math.Abs(forward.Z) > 0.9 {
			alt = v3.Vec{X: 1}
		}
		right = forward.Cross(alt)
	}
	right = right.Normalize()
	up = right.Cross(forward)
	return forward, right, up
}

// Ray returns the world-space ray through a point in normalized device
// coordinates.
func (c *Camera) Ray(ndcX, ndcY float64) kernel.Ray {
	forward, right, up := c.basis()
	tanHalf := math.Tan(c.FOV * math.Pi / 360)
	dir := forward.
		Add(right.MulScalar(ndcX * tanHalf * c.Aspect)).
		Add(up.MulScalar(ndcY * tanHalf))
	return kernel.NewRay(c.Position, dir)
}

// Project maps a world point to normalized device coordinates. ok is false
// for points behind the camera.
func (c *Camera) Project(p v3.Vec) (ndcX, ndcY float64, ok bool) {
	forward, right, up := c.basis()
	d := p.Sub(c.Position)
	z := d.Dot(forward)
	if z <= 0 {
		return 0, 0, false
	}
	tanHalf := math.Tan(c.FOV * math.Pi / 360)
	return d.Dot(right) / (z * tanHalf * c.Aspect), d.Dot(up) / (z * tanHalf), true
}
