package viewer

import (
	"errors"
	"fmt"

	"github.com/chazu/nodescope/pkg/config"
	"github.com/chazu/nodescope/pkg/graph"
	"github.com/chazu/nodescope/pkg/scene"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

var (
	// ErrNothingSelected is returned by Navigate when there is no hovered
	// or selected entity to move from.
	ErrNothingSelected = errors.New("viewer: nothing selected")
	// ErrNoPath is returned by HighlightPath when the nodes are not
	// connected.
	ErrNoPath = errors.New("viewer: no path")
)

// Change is the new appearance of one proxy.
type Change struct {
	ProxyID    uuid.UUID        `json:"proxyId"`
	EntityID   string           `json:"entityId"`
	Kind       scene.Kind       `json:"kind"`
	Appearance scene.Appearance `json:"appearance"`
}

// Update is what an interaction changed, plus the resulting hover and
// selection.
type Update struct {
	Changes  []Change `json:"changes"`
	Hovered  string   `json:"hovered,omitempty"`
	Selected string   `json:"selected,omitempty"`
}

// update drains the pending appearance changes. Callers hold v.mu.
func (v *Viewer) update() Update {
	u := Update{Changes: []Change{}}
	for _, p := range v.drainChanges() {
		u.Changes = append(u.Changes, Change{
			ProxyID:    p.ID,
			EntityID:   p.EntityID(),
			Kind:       p.Kind,
			Appearance: p.Current,
		})
	}
	if h := v.machine.Hovered(); h != nil {
		u.Hovered = h.EntityID()
	}
	if s := v.machine.Selected(); s != nil {
		u.Selected = s.EntityID()
	}
	return u
}

// PointerMove picks at the given screen position in a width×height
// viewport and hovers the result. A viewport with no area is ignored.
func (v *Viewer) PointerMove(x, y, width, height float64) Update {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return Update{}
	}
	if !v.picker.UpdatePointer(x, y, width, height) {
		return v.update()
	}
	hit, ok := v.picker.Pick()
	var p *scene.Proxy
	if ok {
		p = hit.Proxy
	}
	v.machine.Hover(p, x, y)
	return v.update()
}

// PointerLeave ends hovering, as when the pointer leaves the canvas.
func (v *Viewer) PointerLeave() Update {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return Update{}
	}
	v.picker.ClearPointer()
	v.machine.Hover(nil, 0, 0)
	return v.update()
}

// Click selects the hovered entity, or clears the selection on empty
// space.
func (v *Viewer) Click() Update {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return Update{}
	}
	v.machine.Click()
	return v.update()
}

// SelectNode selects a node by ID as if it had been clicked.
func (v *Viewer) SelectNode(id graph.NodeID) (Update, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return Update{}, ErrClosed
	}
	p, ok := v.scene.ForNode(id)
	if !ok {
		return v.update(), fmt.Errorf("viewer: select %q: %w", id, graph.ErrStaleEntity)
	}
	v.machine.Select(p)
	return v.update(), nil
}

// Navigate selects the nearest entity within 45 degrees of dir as seen
// from the selected entity, or the hovered one when nothing is selected.
// Finding nothing in that direction leaves the selection as it is.
func (v *Viewer) Navigate(dir v3.Vec) (Update, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return Update{}, ErrClosed
	}
	from := v.machine.Selected()
	if from == nil {
		from = v.machine.Hovered()
	}
	if from == nil {
		return v.update(), ErrNothingSelected
	}
	if next, ok := v.picker.NextInDirection(from, dir); ok {
		v.machine.Select(next)
	}
	return v.update(), nil
}

// HighlightPath highlights the nodes and edges of a shortest path between
// two nodes in the configured path colour, replacing any group highlight.
func (v *Viewer) HighlightPath(from, to graph.NodeID) (Update, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return Update{}, ErrClosed
	}
	if v.model == nil {
		return v.update(), fmt.Errorf("viewer: path %q-%q: %w", from, to, graph.ErrStaleEntity)
	}
	for _, id := range []graph.NodeID{from, to} {
		if _, ok := v.model.Node(id); !ok {
			return v.update(), fmt.Errorf("viewer: path endpoint %q: %w", id, graph.ErrStaleEntity)
		}
	}
	path, ok := v.model.Path(from, to)
	if !ok {
		return v.update(), fmt.Errorf("viewer: path %q-%q: %w", from, to, ErrNoPath)
	}

	var ps []*scene.Proxy
	for _, id := range path {
		if p, ok := v.scene.ForNode(id); ok {
			ps = append(ps, p)
		}
	}
	for _, e := range v.model.PathEdges(path) {
		if p, ok := v.scene.ForEdge(e.ID); ok {
			ps = append(ps, p)
		}
	}
	v.machine.HighlightGroup(ps, v.cfg.Highlight.PathColor)
	return v.update(), nil
}

// HighlightComponent highlights every node reachable from id, and the
// edges between them, in color.
func (v *Viewer) HighlightComponent(id graph.NodeID, color uint32) (Update, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return Update{}, ErrClosed
	}
	p, ok := v.scene.ForNode(id)
	if !ok {
		return v.update(), fmt.Errorf("viewer: component %q: %w", id, graph.ErrStaleEntity)
	}
	nodes := v.picker.Connected(p)
	ps := append([]*scene.Proxy{}, nodes...)
	edgeIDs := lo.Uniq(lo.FlatMap(nodes, func(n *scene.Proxy, _ int) []graph.EdgeID {
		return lo.Map(v.model.EdgesOf(n.Node.ID), func(e *graph.Edge, _ int) graph.EdgeID { return e.ID })
	}))
	for _, eid := range edgeIDs {
		if ep, ok := v.scene.ForEdge(eid); ok {
			ps = append(ps, ep)
		}
	}
	v.machine.HighlightGroup(ps, color)
	return v.update(), nil
}

// ClearHighlights removes path and group highlighting. Hover and
// selection are kept.
func (v *Viewer) ClearHighlights() Update {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return Update{}
	}
	v.machine.ClearGroup()
	return v.update()
}

// RemoveNode deletes a node and its incident edges from the model and
// disposes their proxies. Highlight state that referred to them is
// dropped.
func (v *Viewer) RemoveNode(id graph.NodeID) (Update, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return Update{}, ErrClosed
	}
	if v.model == nil {
		return v.update(), fmt.Errorf("viewer: remove %q: %w", id, graph.ErrStaleEntity)
	}
	edges, err := v.model.RemoveNode(id)
	if err != nil {
		return v.update(), fmt.Errorf("viewer: %w", err)
	}
	var gone []*scene.Proxy
	for _, e := range edges {
		if p, ok := v.scene.ForEdge(e.ID); ok {
			gone = append(gone, p)
		}
	}
	if p, ok := v.scene.ForNode(id); ok {
		gone = append(gone, p)
	}
	v.machine.Forget(gone...)
	for _, p := range gone {
		v.scene.Remove(p)
	}
	v.picker.Invalidate()
	v.logger.Info("node removed", "node", id, "edges", len(edges))
	return v.update(), nil
}

// SetCamera moves the camera. A non-positive fov keeps the current one.
func (v *Viewer) SetCamera(position, target [3]float64, fov float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.camera.Position = v3.Vec{X: position[0], Y: position[1], Z: position[2]}
	v.camera.Target = v3.Vec{X: target[0], Y: target[1], Z: target[2]}
	if fov > 0 {
		v.camera.FOV = fov
	}
}

// SetPolicy switches the pick policy.
func (v *Viewer) SetPolicy(policy string) error {
	switch policy {
	case config.PolicyNodeFirst, config.PolicyClosest:
	default:
		return fmt.Errorf("viewer: unknown pick policy %q", policy)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.picker.SetPolicy(policy)
	v.cfg.Picking.Policy = policy
	return nil
}
