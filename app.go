package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/chazu/nodescope/pkg/config"
	"github.com/chazu/nodescope/pkg/dataset"
	"github.com/chazu/nodescope/pkg/graph"
	"github.com/chazu/nodescope/pkg/highlight"
	"github.com/chazu/nodescope/pkg/viewer"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// Frontend event names.
const (
	EventPanelShow     = "panel:show"
	EventPanelHide     = "panel:hide"
	EventDatasetReload = "dataset:reload"
)

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx    context.Context
	viewer *viewer.Viewer
	panel  *eventPresenter
	logger *slog.Logger

	watchMu sync.Mutex
	watcher *viewer.Watcher
}

// EvalErrorData is a JSON-serializable error or warning for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// LoadResult is the full result of a load returned to the frontend. Scene
// is the new scene on success and the unchanged current one on failure.
type LoadResult struct {
	Scene    viewer.Snapshot `json:"scene"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// eventPresenter forwards the info panel and dataset reloads to the
// frontend as runtime events. Events are dropped until the app has started.
type eventPresenter struct {
	mu     sync.Mutex
	emit   func(name string, data ...interface{})
	logger *slog.Logger
}

func (p *eventPresenter) send(name string, data ...interface{}) {
	p.mu.Lock()
	emit := p.emit
	p.mu.Unlock()
	if emit == nil {
		p.logger.Debug("event dropped before startup", "event", name)
		return
	}
	emit(name, data...)
}

func (p *eventPresenter) Show(panel highlight.Panel) { p.send(EventPanelShow, panel) }
func (p *eventPresenter) Hide()                      { p.send(EventPanelHide) }

// NewApp creates an App with the default configuration.
func NewApp() *App {
	a, err := newApp(config.Default(), slog.Default())
	if err != nil {
		// The defaults always validate.
		panic(err)
	}
	return a
}

func newApp(cfg config.Config, logger *slog.Logger) (*App, error) {
	panel := &eventPresenter{logger: logger}
	v, err := viewer.New(viewer.Options{Config: cfg, Presenter: panel, Logger: logger})
	if err != nil {
		return nil, err
	}
	return &App{viewer: v, panel: panel, logger: logger}, nil
}

// startup is called by Wails on app startup. The context is saved so
// panel events can be emitted through the runtime.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.panel.mu.Lock()
	a.panel.emit = func(name string, data ...interface{}) {
		runtime.EventsEmit(ctx, name, data...)
	}
	a.panel.mu.Unlock()
	a.logger.Info("nodescope started")
}

// shutdown is called by Wails when the window closes.
func (a *App) shutdown(ctx context.Context) {
	a.stopWatching()
	a.panel.mu.Lock()
	a.panel.emit = nil
	a.panel.mu.Unlock()
	a.viewer.Close()
}

// Evaluate takes dataset script source and replaces the current dataset
// with its output. This is the primary binding called by the frontend
// editor.
func (a *App) Evaluate(source string) LoadResult {
	rep, err := a.viewer.LoadScript(source)
	return a.result(rep, err)
}

// LoadJSON replaces the current dataset with a JSON document.
func (a *App) LoadJSON(doc string) LoadResult {
	rep, err := a.viewer.LoadJSON(strings.NewReader(doc))
	return a.result(rep, err)
}

// OpenDataset replaces the current dataset with a JSON file or a script
// on disk, and reloads it whenever the file changes. Reloads are pushed to
// the frontend as dataset:reload events.
func (a *App) OpenDataset(path string) LoadResult {
	rep, err := a.viewer.LoadPath(path)
	res := a.result(rep, err)
	if err != nil {
		return res
	}

	a.stopWatching()
	ctx := a.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	w, err := a.viewer.Watch(ctx, path, func(_ string, rep *viewer.LoadReport, err error) {
		a.panel.send(EventDatasetReload, a.result(rep, err))
	})
	if err != nil {
		a.logger.Warn("dataset will not reload on change", "path", path, "error", err)
		return res
	}
	a.watchMu.Lock()
	a.watcher = w
	a.watchMu.Unlock()
	return res
}

func (a *App) stopWatching() {
	a.watchMu.Lock()
	defer a.watchMu.Unlock()
	if a.watcher != nil {
		a.watcher.Stop()
		a.watcher = nil
	}
}

func (a *App) result(rep *viewer.LoadReport, err error) LoadResult {
	res := LoadResult{
		Scene:    a.viewer.Snapshot(),
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}
	if err != nil {
		var se *viewer.ScriptError
		if errors.As(err, &se) {
			for _, e := range se.Errors {
				res.Errors = append(res.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
			}
		} else {
			a.logger.Error("load failed", "error", err)
			res.Errors = append(res.Errors, EvalErrorData{Message: err.Error()})
		}
		return res
	}
	for _, w := range rep.Warnings {
		res.Warnings = append(res.Warnings, EvalErrorData{Message: w})
	}
	return res
}

// Scene returns the current scene.
func (a *App) Scene() viewer.Snapshot {
	return a.viewer.Snapshot()
}

// PointerMove hovers whatever is under the pointer.
func (a *App) PointerMove(x, y, width, height float64) viewer.Update {
	return a.viewer.PointerMove(x, y, width, height)
}

// PointerLeave ends hovering.
func (a *App) PointerLeave() viewer.Update {
	return a.viewer.PointerLeave()
}

// Click selects the hovered entity.
func (a *App) Click() viewer.Update {
	return a.viewer.Click()
}

// SelectNode selects a node by ID.
func (a *App) SelectNode(id string) (viewer.Update, error) {
	return a.viewer.SelectNode(graph.NodeID(id))
}

// Navigate moves the selection in a direction, for keyboard navigation.
func (a *App) Navigate(dx, dy, dz float64) (viewer.Update, error) {
	return a.viewer.Navigate(v3.Vec{X: dx, Y: dy, Z: dz})
}

// HighlightPath highlights a shortest path between two nodes.
func (a *App) HighlightPath(from, to string) (viewer.Update, error) {
	return a.viewer.HighlightPath(graph.NodeID(from), graph.NodeID(to))
}

// HighlightComponent highlights the component containing a node. color is
// a hex colour such as "#00ff00".
func (a *App) HighlightComponent(id, color string) (viewer.Update, error) {
	c, err := dataset.ParseColor(color)
	if err != nil {
		return viewer.Update{}, err
	}
	return a.viewer.HighlightComponent(graph.NodeID(id), uint32(c))
}

// ClearHighlights removes path and group highlighting.
func (a *App) ClearHighlights() viewer.Update {
	return a.viewer.ClearHighlights()
}

// RemoveNode deletes a node and its edges.
func (a *App) RemoveNode(id string) (viewer.Update, error) {
	return a.viewer.RemoveNode(graph.NodeID(id))
}

// SetCamera keeps picking in step with the frontend camera.
func (a *App) SetCamera(position, target [3]float64, fov float64) {
	a.viewer.SetCamera(position, target, fov)
}

// SetPickPolicy switches between "node-first" and "closest" picking.
func (a *App) SetPickPolicy(policy string) error {
	return a.viewer.SetPolicy(policy)
}

// assetHandler serves requests the embedded assets do not cover.
func assetHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
