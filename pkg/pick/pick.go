// Package pick resolves the pointer to the scene entity under it.
//
// The engine keeps a snapshot of the interactive proxies and rebuilds it
// when the refresh interval has elapsed or after Invalidate. Disposed
// proxies are filtered on every read, so an entity removed between
// refreshes is never returned.
package pick

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/chazu/nodescope/pkg/config"
	"github.com/chazu/nodescope/pkg/graph"
	"github.com/chazu/nodescope/pkg/kernel"
	"github.com/chazu/nodescope/pkg/metrics"
	"github.com/chazu/nodescope/pkg/scene"
	"github.com/chazu/nodescope/pkg/timer"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/dhconnelly/rtreego"
	"github.com/samber/lo"
)

// directionCone is the half-angle within which NextInDirection looks.
const directionCone = math.Pi / 4

// Hit is one ray intersection.
type Hit struct {
	Proxy    *scene.Proxy
	Distance float64
	Point    v3.Vec
}

// Engine casts pointer rays against the interactive set. It is not safe
// for concurrent use.
type Engine struct {
	interval time.Duration
	policy   string
	clock    timer.Clock
	logger   *slog.Logger

	scene  *scene.Scene
	model  *graph.Model
	camera *scene.Camera

	pointerX, pointerY float64
	pointerSet         bool

	interactive []*scene.Proxy
	index       *rtreego.Rtree
	lastRefresh time.Time
	stale       bool
}

// New returns an engine with no scene attached.
func New(cfg config.PickingConfig, clock timer.Clock, logger *slog.Logger) *Engine {
	if clock == nil {
		clock = timer.System()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		interval: cfg.RefreshInterval,
		policy:   cfg.Policy,
		clock:    clock,
		logger:   logger,
		stale:    true,
	}
}

// Attach points the engine at a scene, its model and the camera, and
// forces a refresh on the next read.
func (e *Engine) Attach(sc *scene.Scene, m *graph.Model, cam *scene.Camera) {
	e.scene, e.model, e.camera = sc, m, cam
	e.Invalidate()
}

// SetPolicy switches between node-first and closest picking.
func (e *Engine) SetPolicy(policy string) {
	e.policy = policy
}

// Invalidate forces the interactive set to be rebuilt on the next read.
func (e *Engine) Invalidate() {
	e.stale = true
}

// UpdatePointer converts a screen position to normalized device
// coordinates. A viewport with no area leaves the pointer unchanged and
// returns false.
func (e *Engine) UpdatePointer(screenX, screenY, width, height float64) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	e.pointerX = screenX/width*2 - 1
	e.pointerY = -(screenY/height*2 - 1)
	e.pointerSet = true
	if e.camera != nil {
		e.camera.SetViewport(width, height)
	}
	return true
}

// ClearPointer forgets the pointer, as when it leaves the canvas.
func (e *Engine) ClearPointer() {
	e.pointerSet = false
}

// Pointer returns the pointer in normalized device coordinates.
func (e *Engine) Pointer() (x, y float64, ok bool) {
	return e.pointerX, e.pointerY, e.pointerSet
}

// refresh rebuilds the interactive set when it is due.
func (e *Engine) refresh() {
	now := e.clock.Now()
	if !e.stale && now.Sub(e.lastRefresh) < e.interval {
		return
	}
	var set []*scene.Proxy
	if e.scene != nil {
		set = lo.Reject(e.scene.Proxies(), func(p *scene.Proxy, _ int) bool { return p.Disposed() })
	}
	idx, err := buildIndex(set)
	if err != nil {
		e.logger.Error("interactive index rebuild failed", "error", err)
		return
	}
	e.interactive, e.index = set, idx
	e.lastRefresh = now
	e.stale = false
	metrics.InteractiveRefreshes.Inc()
	e.logger.Debug("interactive set refreshed", "proxies", len(set))
}

// live returns the current interactive set without disposed proxies.
func (e *Engine) live() []*scene.Proxy {
	e.refresh()
	return lo.Reject(e.interactive, func(p *scene.Proxy, _ int) bool { return p.Disposed() })
}

// Interactive returns the live interactive set.
func (e *Engine) Interactive() []*scene.Proxy {
	return e.live()
}

// PickAll returns every proxy under the pointer, nearest first.
func (e *Engine) PickAll() []Hit {
	x, y, ok := e.Pointer()
	if !ok || e.camera == nil {
		return nil
	}
	return e.cast(e.camera.Ray(x, y))
}

func (e *Engine) cast(r kernel.Ray) []Hit {
	var hits []Hit
	for _, p := range e.live() {
		if p.Solid == nil {
			continue
		}
		d, ok := kernel.Intersect(p.Solid, r, e.camera.Near, e.camera.Far)
		if !ok {
			continue
		}
		hits = append(hits, Hit{Proxy: p, Distance: d, Point: r.At(d)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return hits
}

// Pick returns the proxy under the pointer. With the node-first policy a
// node anywhere along the ray wins over a nearer edge.
func (e *Engine) Pick() (Hit, bool) {
	start := time.Now()
	defer func() { metrics.PickDuration.Observe(time.Since(start).Seconds()) }()

	hits := e.PickAll()
	hit, ok := choose(hits, e.policy)
	outcome := "miss"
	if ok {
		outcome = hit.Proxy.Kind.String()
	}
	metrics.Picks.WithLabelValues(outcome).Inc()
	return hit, ok
}

func choose(hits []Hit, policy string) (Hit, bool) {
	if len(hits) == 0 {
		return Hit{}, false
	}
	if policy == config.PolicyNodeFirst {
		if h, ok := lo.Find(hits, func(h Hit) bool { return h.Proxy.Kind == scene.KindNode }); ok {
			return h, true
		}
	}
	return hits[0], true
}

// Nearest returns the proxy whose anchor is closest to point, skipping
// exclude.
func (e *Engine) Nearest(point v3.Vec, exclude *scene.Proxy) (*scene.Proxy, bool) {
	e.refresh()
	if e.index == nil {
		return nil, false
	}
	return lo.Find(nearest(e.index, point), func(p *scene.Proxy) bool {
		return p != exclude && !p.Disposed()
	})
}

// WithinRadius returns the proxies whose anchors lie within r of center.
func (e *Engine) WithinRadius(center v3.Vec, r float64) []*scene.Proxy {
	e.refresh()
	if e.index == nil || r < 0 {
		return nil
	}
	candidates, err := searchBox(e.index, center, r)
	if err != nil {
		e.logger.Error("radius search failed", "error", err)
		return nil
	}
	return lo.Filter(candidates, func(p *scene.Proxy, _ int) bool {
		return !p.Disposed() && p.Position.Sub(center).Length() <= r
	})
}

// NextInDirection returns the nearest proxy within 45 degrees of dir as
// seen from current.
func (e *Engine) NextInDirection(current *scene.Proxy, dir v3.Vec) (*scene.Proxy, bool) {
	if current == nil || dir.Length() == 0 {
		return nil, false
	}
	dir = dir.Normalize()
	var best *scene.Proxy
	bestDist := math.Inf(1)
	for _, p := range e.live() {
		if p == current {
			continue
		}
		to := p.Position.Sub(current.Position)
		dist := to.Length()
		if dist == 0 {
			continue
		}
		angle := math.Acos(math.Max(-1, math.Min(1, to.MulScalar(1/dist).Dot(dir))))
		if angle < directionCone && dist < bestDist {
			best, bestDist = p, dist
		}
	}
	return best, best != nil
}

// ByKind returns the live proxies of one kind.
func (e *Engine) ByKind(kind scene.Kind) []*scene.Proxy {
	return lo.Filter(e.live(), func(p *scene.Proxy, _ int) bool { return p.Kind == kind })
}

// Connected returns the node proxies in the same connected component as p.
// For an edge the component of its start node is used.
func (e *Engine) Connected(p *scene.Proxy) []*scene.Proxy {
	if p.Disposed() || e.model == nil || e.scene == nil {
		return nil
	}
	var from graph.NodeID
	switch {
	case p.Kind == scene.KindNode && p.Node != nil:
		from = p.Node.ID
	case p.Kind == scene.KindEdge && p.Edge != nil:
		from = p.Edge.Start
	default:
		return nil
	}
	ids, err := e.model.ConnectedComponent(from)
	if err != nil {
		return nil
	}
	return lo.FilterMap(ids, func(id graph.NodeID, _ int) (*scene.Proxy, bool) {
		return e.scene.ForNode(id)
	})
}
