package viewer

import (
	"github.com/chazu/nodescope/pkg/cache"
	"github.com/chazu/nodescope/pkg/kernel"
	"github.com/chazu/nodescope/pkg/scene"
	"github.com/google/uuid"
)

// ProxyView is the renderer's view of one proxy. Node geometry is centred
// on the origin and placed by Translate; edge tubes are already in world
// space and have a zero Translate.
type ProxyView struct {
	ID         uuid.UUID        `json:"id"`
	Kind       scene.Kind       `json:"kind"`
	EntityID   string           `json:"entityId"`
	Title      string           `json:"title"`
	Position   [3]float64       `json:"position"`
	Translate  [3]float64       `json:"translate"`
	Geometry   string           `json:"geometry"`
	Material   *cache.Material  `json:"material"`
	Appearance scene.Appearance `json:"appearance"`
}

// Snapshot is everything the renderer needs to draw the current scene.
type Snapshot struct {
	Dataset string                  `json:"dataset"`
	Camera  scene.Camera            `json:"camera"`
	Proxies []ProxyView             `json:"proxies"`
	Meshes  map[string]*kernel.Mesh `json:"meshes"`
}

// Snapshot returns the live proxies and the meshes they use.
func (v *Viewer) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	snap := Snapshot{
		Camera:  *v.camera,
		Proxies: []ProxyView{},
		Meshes:  map[string]*kernel.Mesh{},
	}
	if v.model != nil {
		snap.Dataset = v.model.Name()
	}
	if v.closed {
		return snap
	}

	all := v.cache.Meshes()
	for _, p := range v.scene.Proxies() {
		pv := ProxyView{
			ID:         p.ID,
			Kind:       p.Kind,
			EntityID:   p.EntityID(),
			Title:      p.Title(),
			Position:   [3]float64{p.Position.X, p.Position.Y, p.Position.Z},
			Material:   p.Material,
			Appearance: p.Current,
		}
		if p.Kind == scene.KindNode {
			pv.Translate = pv.Position
		}
		if p.Geometry != nil {
			pv.Geometry = p.Geometry.ID
			if m, ok := all[p.Geometry.ID]; ok {
				snap.Meshes[p.Geometry.ID] = m
			}
		}
		snap.Proxies = append(snap.Proxies, pv)
	}
	return snap
}
