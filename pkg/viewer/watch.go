package viewer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chazu/nodescope/pkg/timer"
	"github.com/fsnotify/fsnotify"
)

// WatchDebounce is how long a watched file must be quiet before it is
// reloaded. Editors often write a file in several steps.
const WatchDebounce = 100 * time.Millisecond

// IsScript reports whether path names a dataset script rather than a JSON
// document.
func IsScript(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lisp", ".zy":
		return true
	}
	return false
}

// LoadPath loads a JSON dataset or a dataset script, chosen by extension.
func (v *Viewer) LoadPath(path string) (*LoadReport, error) {
	if !IsScript(path) {
		return v.LoadFile(path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("viewer: read %s: %w", path, err)
	}
	return v.LoadScript(string(src))
}

// ReloadFunc receives the outcome of every reload.
type ReloadFunc func(path string, rep *LoadReport, err error)

// Watcher reloads one dataset file when it changes on disk.
type Watcher struct {
	v        *Viewer
	path     string
	fsw      *fsnotify.Watcher
	onReload ReloadFunc

	mu       sync.Mutex
	debounce *timer.Timer

	done     chan struct{}
	stopOnce sync.Once
}

// Watch starts reloading path into the viewer whenever it is written,
// created or replaced. The parent directory is watched so that editors
// which save by renaming are followed. The watcher stops when ctx is done
// or Stop is called.
func (v *Viewer) Watch(ctx context.Context, path string, onReload ReloadFunc) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("viewer: watch %s: %w", path, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("viewer: watch %s: %w", path, err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("viewer: watch %s: %w", path, err)
	}

	w := &Watcher{
		v:        v,
		path:     abs,
		fsw:      fsw,
		onReload: onReload,
		done:     make(chan struct{}),
	}
	w.debounce = timer.New(v.clock, &w.mu)
	go w.run(ctx)
	v.logger.Info("watching dataset", "path", abs)
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Stop ends watching. Pending reloads are dropped.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.fsw.Close()
		w.mu.Lock()
		w.debounce.Cancel()
		w.mu.Unlock()
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer w.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.mu.Lock()
			w.debounce.Schedule(WatchDebounce, func() { go w.reload() })
			w.mu.Unlock()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.v.logger.Warn("dataset watch error", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) reload() {
	select {
	case <-w.done:
		return
	default:
	}
	if _, err := os.Stat(w.path); err != nil {
		// Mid-rename; the create that follows schedules another reload.
		return
	}
	rep, err := w.v.LoadPath(w.path)
	if err == nil {
		w.v.logger.Info("dataset reloaded", "path", w.path, "nodes", rep.Nodes, "edges", rep.Edges)
	}
	if w.onReload != nil {
		w.onReload(w.path, rep, err)
	}
}
