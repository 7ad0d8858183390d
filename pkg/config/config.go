// Package config loads nodescope settings from YAML. Every field has a
// default so an absent or partial file is valid.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Pick policies accepted by PickingConfig.Policy.
const (
	PolicyNodeFirst = "node-first"
	PolicyClosest   = "closest"
)

// Config holds all nodescope configuration.
type Config struct {
	Picking   PickingConfig   `yaml:"picking"`
	Highlight HighlightConfig `yaml:"highlight"`
	Geometry  GeometryConfig  `yaml:"geometry"`
	Camera    CameraConfig    `yaml:"camera"`
}

// PickingConfig controls the picking engine.
type PickingConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	Policy          string        `yaml:"policy"` // "node-first" or "closest"
}

// HighlightConfig controls hover/selection treatments and panel timing.
type HighlightConfig struct {
	HoverDelay            time.Duration `yaml:"hover_delay"`
	PanelCloseDelay       time.Duration `yaml:"panel_close_delay"`
	NodeEmissive          uint32        `yaml:"node_emissive"`
	NodeEmissiveIntensity float64       `yaml:"node_emissive_intensity"`
	EdgeColor             uint32        `yaml:"edge_color"`
	EdgeWidthScale        float64       `yaml:"edge_width_scale"`
	PathColor             uint32        `yaml:"path_color"`
}

// GeometryConfig controls edge tubes and node tessellation.
type GeometryConfig struct {
	Segments       int     `yaml:"segments"`
	TubeRadius     float64 `yaml:"tube_radius"`
	RadialSegments int     `yaml:"radial_segments"`
	MeshCells      int     `yaml:"mesh_cells"` // marching cubes resolution for node shapes
}

// CameraConfig is the initial camera pose. The frontend may override it.
type CameraConfig struct {
	FOV      float64    `yaml:"fov"` // vertical, degrees
	Near     float64    `yaml:"near"`
	Far      float64    `yaml:"far"`
	Position [3]float64 `yaml:"position"`
	Target   [3]float64 `yaml:"target"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Picking: PickingConfig{
			RefreshInterval: time.Second,
			Policy:          PolicyNodeFirst,
		},
		Highlight: HighlightConfig{
			HoverDelay:            200 * time.Millisecond,
			PanelCloseDelay:       300 * time.Millisecond,
			NodeEmissive:          0xffa500,
			NodeEmissiveIntensity: 0.8,
			EdgeColor:             0x4444ff,
			EdgeWidthScale:        2,
			PathColor:             0x00ffff,
		},
		Geometry: GeometryConfig{
			Segments:       50,
			TubeRadius:     0.1,
			RadialSegments: 3,
			MeshCells:      32,
		},
		Camera: CameraConfig{
			FOV:      75,
			Near:     0.1,
			Far:      1000,
			Position: [3]float64{15, 15, 15},
		},
	}
}

// Load reads a YAML file on top of the defaults. A missing file yields the
// defaults unchanged.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Picking.Policy {
	case PolicyNodeFirst, PolicyClosest:
	default:
		return fmt.Errorf("config: picking.policy %q, expected %q or %q", c.Picking.Policy, PolicyNodeFirst, PolicyClosest)
	}
	if c.Picking.RefreshInterval < 0 {
		return fmt.Errorf("config: picking.refresh_interval must not be negative")
	}
	if c.Highlight.HoverDelay < 0 || c.Highlight.PanelCloseDelay < 0 {
		return fmt.Errorf("config: highlight delays must not be negative")
	}
	if c.Geometry.Segments <= 0 {
		return fmt.Errorf("config: geometry.segments must be positive, got %d", c.Geometry.Segments)
	}
	if c.Geometry.TubeRadius <= 0 {
		return fmt.Errorf("config: geometry.tube_radius must be positive")
	}
	if c.Geometry.RadialSegments < 3 {
		return fmt.Errorf("config: geometry.radial_segments must be at least 3, got %d", c.Geometry.RadialSegments)
	}
	if c.Geometry.MeshCells <= 0 {
		return fmt.Errorf("config: geometry.mesh_cells must be positive")
	}
	if c.Camera.FOV <= 0 || c.Camera.FOV >= 180 {
		return fmt.Errorf("config: camera.fov must be in (0, 180), got %v", c.Camera.FOV)
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return fmt.Errorf("config: camera near/far must satisfy 0 < near < far")
	}
	return nil
}
