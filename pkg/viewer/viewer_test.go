package viewer_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chazu/nodescope/pkg/cache"
	"github.com/chazu/nodescope/pkg/config"
	"github.com/chazu/nodescope/pkg/graph"
	"github.com/chazu/nodescope/pkg/highlight"
	"github.com/chazu/nodescope/pkg/kernel"
	"github.com/chazu/nodescope/pkg/scene"
	"github.com/chazu/nodescope/pkg/timer"
	"github.com/chazu/nodescope/pkg/viewer"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const viewport = 1000.0

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type panels struct {
	shown  []highlight.Panel
	hidden int
}

func (p *panels) Show(panel highlight.Panel) { p.shown = append(p.shown, panel) }
func (p *panels) Hide()                      { p.hidden++ }

type fixture struct {
	cfg    config.Config
	clock  *timer.ManualClock
	panels *panels
	v      *viewer.Viewer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Geometry.MeshCells = 8
	cfg.Camera.Position = [3]float64{0, 0, 10}

	f := &fixture{cfg: cfg, clock: timer.NewManualClock(epoch), panels: &panels{}}
	v, err := viewer.New(viewer.Options{Config: cfg, Clock: f.clock, Presenter: f.panels})
	require.NoError(t, err)
	t.Cleanup(v.Close)
	f.v = v
	return f
}

// screen returns the screen position of a world point as seen by the
// fixture's initial camera.
func (f *fixture) screen(t *testing.T, p v3.Vec) (float64, float64) {
	t.Helper()
	cam := scene.NewCamera(f.cfg.Camera)
	cam.SetViewport(viewport, viewport)
	x, y, ok := cam.Project(p)
	require.True(t, ok)
	return (x + 1) / 2 * viewport, (1 - y) / 2 * viewport
}

func (f *fixture) pointAt(t *testing.T, p v3.Vec) viewer.Update {
	t.Helper()
	x, y := f.screen(t, p)
	return f.v.PointerMove(x, y, viewport, viewport)
}

func node(id string, x, y, z float64) graph.NodeSpec {
	return graph.NodeSpec{
		ID: id, Name: strings.ToUpper(id), Position: v3.Vec{X: x, Y: y, Z: z},
		Shape: kernel.ShapeCube, Size: 1.2, Color: 0xff4500,
	}
}

func edge(id, a, b string) graph.EdgeSpec {
	return graph.EdgeSpec{ID: id, Start: a, End: b, Style: cache.StyleSolid, Color: 0x0000ff, CurveHeight: 2}
}

// chain is a-b-c along X plus an unconnected d.
func chain() graph.Dataset {
	return graph.Dataset{
		Name: "chain",
		Nodes: []graph.NodeSpec{
			node("a", 0, 0, 0), node("b", 4, 0, 0), node("c", 8, 0, 0), node("d", 0, -5, 0),
		},
		Edges: []graph.EdgeSpec{edge("e1", "a", "b"), edge("e2", "b", "c")},
	}
}

func changed(u viewer.Update) map[string]scene.Appearance {
	out := make(map[string]scene.Appearance, len(u.Changes))
	for _, c := range u.Changes {
		out[c.EntityID] = c.Appearance
	}
	return out
}

func TestLoadDataset(t *testing.T) {
	f := newFixture(t)
	ds := chain()
	ds.Edges = append(ds.Edges, edge("bad", "a", "ghost"))

	rep, err := f.v.LoadDataset(ds)
	require.NoError(t, err)
	assert.Equal(t, "chain", rep.Name)
	assert.Equal(t, 4, rep.Nodes)
	assert.Equal(t, 2, rep.Edges)
	require.Len(t, rep.Rejected, 1)
	assert.ErrorIs(t, rep.Rejected[0], graph.ErrMalformedReference)
	assert.Len(t, rep.Warnings, 1)

	snap := f.v.Snapshot()
	assert.Equal(t, "chain", snap.Dataset)
	require.Len(t, snap.Proxies, 6)
	for _, p := range snap.Proxies {
		assert.Contains(t, snap.Meshes, p.Geometry, "mesh for %s", p.EntityID)
		if p.Kind == scene.KindNode {
			assert.Equal(t, p.Position, p.Translate)
		} else {
			assert.Equal(t, [3]float64{}, p.Translate)
		}
	}
}

func TestLoadFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	_, err := f.v.LoadDataset(chain())
	require.NoError(t, err)
	_, err = f.v.SelectNode("a")
	require.NoError(t, err)
	before := f.v.Model()

	bad := graph.Dataset{Name: "broken", Nodes: []graph.NodeSpec{node("", 0, 0, 0)}}
	_, err = f.v.LoadDataset(bad)
	require.ErrorIs(t, err, graph.ErrMissingID)

	assert.Same(t, before, f.v.Model())
	u := f.v.Click()
	assert.Empty(t, u.Selected, "click on nothing hovered clears the selection")
	assert.Empty(t, f.panels.shown[1:], "no extra panel from the failed load")
	assert.Equal(t, "chain", f.v.Snapshot().Dataset)
}

func TestSwapClearsHighlight(t *testing.T) {
	f := newFixture(t)
	_, err := f.v.LoadDataset(chain())
	require.NoError(t, err)
	u, err := f.v.SelectNode("b")
	require.NoError(t, err)
	assert.Equal(t, "b", u.Selected)
	require.Len(t, f.panels.shown, 1)

	_, err = f.v.LoadDataset(graph.Dataset{Name: "solo", Nodes: []graph.NodeSpec{node("b", 0, 0, 0)}})
	require.NoError(t, err)
	assert.Equal(t, 1, f.panels.hidden)

	u = f.v.ClearHighlights()
	assert.Empty(t, u.Selected)
	assert.Empty(t, u.Changes)
	assert.Zero(t, f.clock.Pending())
}

func TestHoverAndClick(t *testing.T) {
	f := newFixture(t)
	_, err := f.v.LoadDataset(chain())
	require.NoError(t, err)

	u := f.pointAt(t, v3.Vec{})
	assert.Equal(t, "a", u.Hovered)
	require.Len(t, u.Changes, 1)
	a := changed(u)["a"]
	assert.Equal(t, uint32(0xffa500), a.Emissive)
	assert.InDelta(t, 0.8, a.EmissiveIntensity, 1e-9)

	// Moving within the same node changes nothing.
	x, y := f.screen(t, v3.Vec{X: 0.1, Y: 0.1})
	u = f.v.PointerMove(x, y, viewport, viewport)
	assert.Empty(t, u.Changes)

	assert.Empty(t, f.panels.shown)
	f.clock.Advance(200 * time.Millisecond)
	require.Len(t, f.panels.shown, 1)
	assert.Equal(t, "A", f.panels.shown[0].Title)

	u = f.v.Click()
	assert.Equal(t, "a", u.Selected)
	assert.Empty(t, u.Changes, "selecting the hovered node keeps its glow")

	// Leaving keeps the selected node glowing.
	u = f.v.PointerMove(1, 1, viewport, viewport)
	assert.Empty(t, u.Hovered)
	assert.Equal(t, "a", u.Selected)
	assert.Empty(t, u.Changes)

	u = f.v.Click()
	assert.Empty(t, u.Selected)
	assert.Equal(t, scene.Appearance{Color: 0xff4500, Opacity: 1, WidthScale: 1}, changed(u)["a"])
	f.clock.Advance(300 * time.Millisecond)
	assert.Equal(t, 1, f.panels.hidden)
}

func TestHoverEdge(t *testing.T) {
	f := newFixture(t)
	_, err := f.v.LoadDataset(chain())
	require.NoError(t, err)

	var mid [3]float64
	for _, p := range f.v.Snapshot().Proxies {
		if p.EntityID == "e1" {
			mid = p.Position
		}
	}
	u := f.pointAt(t, v3.Vec{X: mid[0], Y: mid[1], Z: mid[2]})
	assert.Equal(t, "e1", u.Hovered)
	e := changed(u)["e1"]
	assert.Equal(t, uint32(0x4444ff), e.Color)
	assert.InDelta(t, 2.0, e.WidthScale, 1e-9)

	u = f.v.PointerLeave()
	assert.Empty(t, u.Hovered)
	assert.Equal(t, uint32(0x0000ff), changed(u)["e1"].Color)
}

func TestIgnoresEmptyViewport(t *testing.T) {
	f := newFixture(t)
	_, err := f.v.LoadDataset(chain())
	require.NoError(t, err)

	u := f.v.PointerMove(500, 500, 0, 0)
	assert.Empty(t, u.Hovered)
	assert.Empty(t, u.Changes)
}

func TestNavigate(t *testing.T) {
	f := newFixture(t)
	_, err := f.v.LoadDataset(graph.Dataset{
		Name:  "row",
		Nodes: []graph.NodeSpec{node("a", 0, 0, 0), node("b", 4, 0, 0), node("c", -4, 0, 0)},
	})
	require.NoError(t, err)

	_, err = f.v.Navigate(v3.Vec{X: 1})
	require.ErrorIs(t, err, viewer.ErrNothingSelected)

	_, err = f.v.SelectNode("a")
	require.NoError(t, err)
	u, err := f.v.Navigate(v3.Vec{X: 1})
	require.NoError(t, err)
	assert.Equal(t, "b", u.Selected)
	assert.Len(t, u.Changes, 2)

	u, err = f.v.Navigate(v3.Vec{X: 1})
	require.NoError(t, err)
	assert.Equal(t, "b", u.Selected, "nothing further along keeps the selection")
	assert.Empty(t, u.Changes)

	u, err = f.v.Navigate(v3.Vec{X: -1})
	require.NoError(t, err)
	assert.Equal(t, "a", u.Selected)
}

func TestHighlightPath(t *testing.T) {
	f := newFixture(t)
	_, err := f.v.LoadDataset(chain())
	require.NoError(t, err)

	u, err := f.v.HighlightPath("a", "c")
	require.NoError(t, err)
	got := changed(u)
	require.Len(t, got, 5)
	for _, id := range []string{"a", "b", "c", "e1", "e2"} {
		assert.Equal(t, uint32(0x00ffff), got[id].Color, id)
	}
	assert.Equal(t, uint32(0x00ffff), got["b"].Emissive)

	_, err = f.v.HighlightPath("a", "d")
	assert.ErrorIs(t, err, viewer.ErrNoPath)
	_, err = f.v.HighlightPath("a", "zz")
	assert.ErrorIs(t, err, graph.ErrStaleEntity)

	u = f.v.ClearHighlights()
	got = changed(u)
	require.Len(t, got, 5)
	assert.Equal(t, uint32(0xff4500), got["a"].Color)
	assert.Equal(t, uint32(0x0000ff), got["e2"].Color)
}

func TestHighlightComponent(t *testing.T) {
	f := newFixture(t)
	_, err := f.v.LoadDataset(chain())
	require.NoError(t, err)

	u, err := f.v.HighlightComponent("c", 0x00ff00)
	require.NoError(t, err)
	got := changed(u)
	assert.Len(t, got, 5)
	assert.NotContains(t, got, "d")

	u, err = f.v.HighlightComponent("d", 0x00ff00)
	require.NoError(t, err)
	got = changed(u)
	assert.Len(t, got, 6, "five reverted plus d")
	assert.Equal(t, uint32(0x00ff00), got["d"].Color)

	_, err = f.v.HighlightComponent("zz", 0x00ff00)
	assert.ErrorIs(t, err, graph.ErrStaleEntity)
}

func TestRemoveNode(t *testing.T) {
	f := newFixture(t)
	_, err := f.v.LoadDataset(chain())
	require.NoError(t, err)
	_, err = f.v.SelectNode("b")
	require.NoError(t, err)

	u, err := f.v.RemoveNode("b")
	require.NoError(t, err)
	assert.Empty(t, u.Selected)
	assert.Empty(t, u.Changes)
	assert.Equal(t, 1, f.panels.hidden)

	m := f.v.Model()
	assert.Equal(t, 3, m.NodeCount())
	assert.Zero(t, m.EdgeCount())
	assert.Len(t, f.v.Snapshot().Proxies, 3)

	// The removed node is never picked again.
	u = f.pointAt(t, v3.Vec{X: 4})
	assert.Empty(t, u.Hovered)

	_, err = f.v.RemoveNode("b")
	assert.ErrorIs(t, err, graph.ErrStaleEntity)
	_, err = f.v.SelectNode("b")
	assert.ErrorIs(t, err, graph.ErrStaleEntity)
}

// livePanel tracks panel visibility from timer goroutines.
type livePanel struct {
	mu      sync.Mutex
	visible bool
}

func (p *livePanel) Show(highlight.Panel) { p.set(true) }
func (p *livePanel) Hide()                { p.set(false) }

func (p *livePanel) set(visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = visible
}

func (p *livePanel) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}

// Hover-show timers fire on their own goroutines with the system clock;
// removing the hovered node must not race with them. Run with -race.
func TestRemoveHoveredNodeWithSystemClock(t *testing.T) {
	f := &fixture{cfg: config.Default()}
	f.cfg.Geometry.MeshCells = 8
	f.cfg.Camera.Position = [3]float64{0, 0, 10}
	f.cfg.Highlight.HoverDelay = time.Millisecond

	panel := &livePanel{}
	v, err := viewer.New(viewer.Options{Config: f.cfg, Presenter: panel})
	require.NoError(t, err)
	t.Cleanup(v.Close)
	f.v = v

	for i := range 8 {
		_, err := v.LoadDataset(chain())
		require.NoError(t, err)
		u := f.pointAt(t, v3.Vec{})
		require.Equal(t, "a", u.Hovered)

		time.Sleep(time.Duration(i) * 250 * time.Microsecond)
		u, err = v.RemoveNode("a")
		require.NoError(t, err)
		assert.Empty(t, u.Hovered)
		assert.False(t, panel.Visible(), "iteration %d", i)
	}

	time.Sleep(5 * time.Millisecond)
	assert.False(t, panel.Visible(), "no panel for a removed node")
}

func TestPickWithTopDownCamera(t *testing.T) {
	f := newFixture(t)
	_, err := f.v.LoadDataset(graph.Dataset{Name: "one", Nodes: []graph.NodeSpec{node("a", 0, 0, 0)}})
	require.NoError(t, err)

	u := f.v.PointerMove(viewport/2, viewport/2, viewport, viewport)
	require.Equal(t, "a", u.Hovered)
	f.v.PointerLeave()

	f.v.SetCamera([3]float64{0, 20, 0}, [3]float64{0, 0, 0}, 75)
	u = f.v.PointerMove(viewport/2, viewport/2, viewport, viewport)
	assert.Equal(t, "a", u.Hovered, "view direction parallel to up")

	f.v.PointerLeave()
	f.v.SetCamera([3]float64{0, -20, 0}, [3]float64{0, 0, 0}, 75)
	u = f.v.PointerMove(viewport/2, viewport/2, viewport, viewport)
	assert.Equal(t, "a", u.Hovered, "bottom-up view")
}

func TestSetPolicy(t *testing.T) {
	f := newFixture(t)
	require.Error(t, f.v.SetPolicy("farthest"))
	require.NoError(t, f.v.SetPolicy(config.PolicyClosest))
	assert.Equal(t, config.PolicyClosest, f.v.Config().Picking.Policy)
}

func TestSetCamera(t *testing.T) {
	f := newFixture(t)
	f.v.SetCamera([3]float64{1, 2, 3}, [3]float64{0, 1, 0}, 0)
	cam := f.v.Snapshot().Camera
	assert.Equal(t, v3.Vec{X: 1, Y: 2, Z: 3}, cam.Position)
	assert.Equal(t, v3.Vec{Y: 1}, cam.Target)
	assert.Equal(t, 75.0, cam.FOV)
}

func TestLoadJSON(t *testing.T) {
	f := newFixture(t)
	rep, err := f.v.LoadJSON(strings.NewReader(`{
		"name": "json",
		"nodes": [{"id": "a"}, {"id": "b", "x": 3}],
		"edges": [{"start": 0, "end": 1}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Nodes)
	assert.Equal(t, 1, rep.Edges)

	_, err = f.v.LoadJSON(strings.NewReader(`{"nodes": [`))
	require.Error(t, err)
	assert.Equal(t, "json", f.v.Snapshot().Dataset)
}

func TestLoadScript(t *testing.T) {
	f := newFixture(t)
	rep, err := f.v.LoadScript(`
(dataset "scripted")
(def hub (node "hub"))
(node "leaf" :at (vec3 4 0 0))
(node "leaf")
(edge hub "leaf")
`)
	require.NoError(t, err)
	assert.Equal(t, "scripted", rep.Name)
	assert.Equal(t, 2, rep.Nodes)
	assert.Equal(t, 1, rep.Edges)
	assert.NotEmpty(t, rep.Warnings)

	_, err = f.v.LoadScript(`(node "a" :shape :sphere)`)
	var se *viewer.ScriptError
	require.True(t, errors.As(err, &se))
	assert.NotEmpty(t, se.Errors)
	assert.Equal(t, "scripted", f.v.Snapshot().Dataset)
}

func TestClose(t *testing.T) {
	f := newFixture(t)
	_, err := f.v.LoadDataset(chain())
	require.NoError(t, err)
	f.v.Close()

	_, err = f.v.LoadDataset(chain())
	assert.ErrorIs(t, err, viewer.ErrClosed)
	_, err = f.v.SelectNode("a")
	assert.ErrorIs(t, err, viewer.ErrClosed)
	assert.Empty(t, f.v.PointerMove(500, 500, viewport, viewport).Hovered)
	assert.Empty(t, f.v.Snapshot().Proxies)
}

func TestLoadPath(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	script := filepath.Join(dir, "pair.lisp")
	require.NoError(t, os.WriteFile(script, []byte(`(dataset "pair") (node "a") (node "b" :at (vec3 3 0 0)) (edge 0 1)`), 0o644))
	doc := filepath.Join(dir, "one.json")
	require.NoError(t, os.WriteFile(doc, []byte(`{"name": "one", "nodes": [{"id": "a"}]}`), 0o644))

	assert.True(t, viewer.IsScript(script))
	assert.False(t, viewer.IsScript(doc))

	rep, err := f.v.LoadPath(script)
	require.NoError(t, err)
	assert.Equal(t, "pair", rep.Name)
	assert.Equal(t, 1, rep.Edges)

	rep, err = f.v.LoadPath(doc)
	require.NoError(t, err)
	assert.Equal(t, "one", rep.Name)

	_, err = f.v.LoadPath(filepath.Join(dir, "missing.lisp"))
	require.Error(t, err)
	assert.Equal(t, "one", f.v.Snapshot().Dataset)
}

func TestWatchReloads(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "live.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "v1", "nodes": [{"id": "a"}]}`), 0o644))
	_, err := f.v.LoadPath(path)
	require.NoError(t, err)

	var mu sync.Mutex
	var reloaded []string
	w, err := f.v.Watch(context.Background(), path, func(_ string, rep *viewer.LoadReport, err error) {
		if err == nil {
			mu.Lock()
			reloaded = append(reloaded, rep.Name)
			mu.Unlock()
		}
	})
	require.NoError(t, err)
	defer w.Stop()
	assert.Equal(t, path, w.Path())

	require.NoError(t, os.WriteFile(path, []byte(`{"name": "v2", "nodes": [{"id": "a"}, {"id": "b", "x": 3}]}`), 0o644))
	require.Eventually(t, func() bool {
		f.clock.Advance(viewer.WatchDebounce)
		return f.v.Snapshot().Dataset == "v2"
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, reloaded, "v2")
}
