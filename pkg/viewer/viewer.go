// Package viewer is the application root. It owns the configuration, the
// geometry cache, the current model and scene, the camera, the picking
// engine and the highlight state machine, and serializes every operation
// on them.
//
// Loading a dataset builds the new model and scene off to the side and
// swaps them in only when both succeed, so a failed load leaves the
// current view untouched.
package viewer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/chazu/nodescope/pkg/cache"
	"github.com/chazu/nodescope/pkg/config"
	"github.com/chazu/nodescope/pkg/dataset"
	"github.com/chazu/nodescope/pkg/engine"
	"github.com/chazu/nodescope/pkg/graph"
	"github.com/chazu/nodescope/pkg/highlight"
	"github.com/chazu/nodescope/pkg/kernel"
	"github.com/chazu/nodescope/pkg/kernel/sdfx"
	"github.com/chazu/nodescope/pkg/metrics"
	"github.com/chazu/nodescope/pkg/pick"
	"github.com/chazu/nodescope/pkg/scene"
	"github.com/chazu/nodescope/pkg/tessellate"
	"github.com/chazu/nodescope/pkg/timer"
)

// ErrClosed is returned by operations on a closed viewer.
var ErrClosed = errors.New("viewer: closed")

// Options configures a Viewer. Zero values get defaults.
type Options struct {
	Config    config.Config
	Kernel    kernel.Kernel
	Clock     timer.Clock
	Presenter highlight.Presenter
	Logger    *slog.Logger
}

// Viewer is safe for concurrent use.
type Viewer struct {
	mu     sync.Mutex
	closed bool

	cfg     config.Config
	logger  *slog.Logger
	clock   timer.Clock
	cache   *cache.GeometryCache
	tess    *tessellate.Tessellator
	scripts *engine.Engine
	camera  *scene.Camera
	picker  *pick.Engine
	machine *highlight.Machine

	model *graph.Model
	scene *scene.Scene

	// changes collects proxies whose appearance changed since the last
	// drain. The machine reports them under its own lock.
	changesMu sync.Mutex
	changes   []*scene.Proxy
	changed   map[*scene.Proxy]bool
}

// New returns a viewer showing an empty dataset. A zero Options.Config is
// replaced by config.Default().
func New(opts Options) (*Viewer, error) {
	cfg := opts.Config
	if cfg == (config.Config{}) {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = timer.System()
	}
	k := opts.Kernel
	if k == nil {
		k = sdfx.New().WithMeshCells(cfg.Geometry.MeshCells)
	}

	gc := cache.NewGeometryCache()
	v := &Viewer{
		cfg:     cfg,
		logger:  logger,
		clock:   clock,
		cache:   gc,
		tess:    tessellate.New(k, gc, cfg.Geometry, logger),
		scripts: engine.NewEngine().WithLogger(logger),
		camera:  scene.NewCamera(cfg.Camera),
		picker:  pick.New(cfg.Picking, clock, logger),
		scene:   scene.New(),
		changed: make(map[*scene.Proxy]bool),
	}
	v.machine = highlight.New(cfg.Highlight, clock, highlight.NewGlow(cfg.Highlight), opts.Presenter, logger)
	v.machine.OnChange(v.noteChange)
	v.picker.Attach(v.scene, nil, v.camera)
	return v, nil
}

// LoadReport summarizes a successful load.
type LoadReport struct {
	Name     string               `json:"name"`
	Nodes    int                  `json:"nodes"`
	Edges    int                  `json:"edges"`
	Rejected []*graph.RecordError `json:"-"`
	Warnings []string             `json:"warnings"`
}

// ScriptError carries the errors of a script that failed to evaluate.
type ScriptError struct {
	Errors []engine.EvalError
}

func (e *ScriptError) Error() string {
	if len(e.Errors) == 0 {
		return "viewer: script failed"
	}
	return fmt.Sprintf("viewer: script failed: %v", e.Errors[0])
}

// LoadDataset replaces the current dataset with ds.
func (v *Viewer) LoadDataset(ds graph.Dataset) (*LoadReport, error) {
	return v.load("records", ds, nil)
}

// LoadJSON reads a JSON dataset and replaces the current one with it.
func (v *Viewer) LoadJSON(r io.Reader) (*LoadReport, error) {
	ds, recErrs, err := dataset.Load(r)
	if err != nil {
		metrics.DatasetLoads.WithLabelValues("json", "error").Inc()
		return nil, err
	}
	return v.load("json", ds, recErrs)
}

// LoadFile reads a JSON dataset file and replaces the current dataset.
func (v *Viewer) LoadFile(path string) (*LoadReport, error) {
	ds, recErrs, err := dataset.LoadFile(path)
	if err != nil {
		metrics.DatasetLoads.WithLabelValues("json", "error").Inc()
		return nil, err
	}
	return v.load("json", ds, recErrs)
}

// LoadScript evaluates a dataset script and replaces the current dataset
// with its output. Script errors are returned as a *ScriptError.
func (v *Viewer) LoadScript(source string) (*LoadReport, error) {
	out, evalErrs, err := v.scripts.Evaluate(source)
	if err == nil && len(evalErrs) > 0 {
		err = &ScriptError{Errors: evalErrs}
	}
	if err != nil {
		metrics.DatasetLoads.WithLabelValues("script", "error").Inc()
		return nil, err
	}
	rep, err := v.load("script", out.Dataset, nil)
	if rep != nil {
		for _, w := range out.Warnings {
			rep.Warnings = append(rep.Warnings, w.Message)
		}
	}
	return rep, err
}

func (v *Viewer) load(source string, ds graph.Dataset, loadErrs []*graph.RecordError) (*LoadReport, error) {
	rep, err := v.swap(ds, loadErrs)
	result := "ok"
	if err != nil {
		result = "error"
		v.logger.Error("dataset load failed", "source", source, "dataset", ds.Name, "error", err)
	}
	metrics.DatasetLoads.WithLabelValues(source, result).Inc()
	return rep, err
}

// swap builds the model and scene for ds and installs them. Nothing
// changes unless both succeed.
func (v *Viewer) swap(ds graph.Dataset, loadErrs []*graph.RecordError) (*LoadReport, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil, ErrClosed
	}

	m, buildErrs, err := graph.Build(ds, v.logger)
	if err != nil {
		return nil, fmt.Errorf("viewer: build %q: %w", ds.Name, err)
	}
	sc, err := v.tess.Tessellate(m)
	if err != nil {
		return nil, fmt.Errorf("viewer: tessellate %q: %w", ds.Name, err)
	}

	// Highlight state refers to the old proxies; revert and forget it
	// before they are disposed.
	v.machine.Clear()
	v.scene.Clear()
	v.drainChanges()

	v.model, v.scene = m, sc
	v.picker.Attach(sc, m, v.camera)

	rep := &LoadReport{
		Name:     ds.Name,
		Nodes:    m.NodeCount(),
		Edges:    m.EdgeCount(),
		Rejected: append(loadErrs, buildErrs...),
	}
	for _, re := range rep.Rejected {
		rep.Warnings = append(rep.Warnings, re.Error())
	}
	v.logger.Info("dataset loaded",
		"dataset", ds.Name, "nodes", rep.Nodes, "edges", rep.Edges,
		"rejected", len(rep.Rejected), "proxies", sc.Len())
	return rep, nil
}

// Model returns the current model, or nil before the first load.
func (v *Viewer) Model() *graph.Model {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.model
}

// Config returns the configuration the viewer runs with.
func (v *Viewer) Config() config.Config {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cfg
}

// Close reverts all highlighting, disposes the scene and the geometry
// cache. Later operations return ErrClosed or do nothing.
func (v *Viewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	v.machine.Clear()
	v.scene.Clear()
	v.cache.Close()
	v.drainChanges()
	v.logger.Info("viewer closed")
}

func (v *Viewer) noteChange(p *scene.Proxy) {
	v.changesMu.Lock()
	defer v.changesMu.Unlock()
	if !v.changed[p] {
		v.changed[p] = true
		v.changes = append(v.changes, p)
	}
}

// drainChanges returns the proxies changed since the last drain, skipping
// disposed ones.
func (v *Viewer) drainChanges() []*scene.Proxy {
	v.changesMu.Lock()
	defer v.changesMu.Unlock()
	out := make([]*scene.Proxy, 0, len(v.changes))
	for _, p := range v.changes {
		if !p.Disposed() {
			out = append(out, p)
		}
	}
	v.changes = nil
	v.changed = make(map[*scene.Proxy]bool)
	return out
}
