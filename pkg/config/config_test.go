package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, time.Second, cfg.Picking.RefreshInterval)
	assert.Equal(t, PolicyNodeFirst, cfg.Picking.Policy)
	assert.Equal(t, 50, cfg.Geometry.Segments)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
picking:
  refresh_interval: 250ms
  policy: closest
highlight:
  hover_delay: 1s
  edge_color: 0x00ff00
`))
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Picking.RefreshInterval)
	assert.Equal(t, PolicyClosest, cfg.Picking.Policy)
	assert.Equal(t, time.Second, cfg.Highlight.HoverDelay)
	assert.Equal(t, uint32(0x00ff00), cfg.Highlight.EdgeColor)
	// untouched sections keep their defaults
	assert.Equal(t, 300*time.Millisecond, cfg.Highlight.PanelCloseDelay)
	assert.Equal(t, 0.1, cfg.Geometry.TubeRadius)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown policy", "picking:\n  policy: random\n"},
		{"zero segments", "geometry:\n  segments: 0\n"},
		{"two radial segments", "geometry:\n  radial_segments: 2\n"},
		{"far before near", "camera:\n  near: 10\n  far: 1\n"},
		{"negative delay", "highlight:\n  hover_delay: -1s\n"},
		{"malformed yaml", "picking: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodescope.yaml")
	require.NoError(t, os.WriteFile(path, []byte("geometry:\n  mesh_cells: 12\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Geometry.MeshCells)
}
