// Package highlight tracks which entity is hovered and which is selected,
// keeps their visual treatments in step with that state, and drives the
// info panel with debounced show and hide.
//
// Every treatment is derived from the current state, so applying a
// treatment that is already in place is a no-op and each transition makes
// the minimum number of appearance changes.
package highlight

import (
	"log/slog"
	"sync"

	"github.com/chazu/nodescope/pkg/config"
	"github.com/chazu/nodescope/pkg/metrics"
	"github.com/chazu/nodescope/pkg/scene"
	"github.com/chazu/nodescope/pkg/timer"
)

// Panel is the info panel content for one entity.
type Panel struct {
	Title   string            `json:"title"`
	Fields  map[string]string `json:"fields"`
	AnchorX float64           `json:"anchorX"`
	AnchorY float64           `json:"anchorY"`
}

// Presenter renders the info panel.
type Presenter interface {
	Show(Panel)
	Hide()
}

// Machine is the hover/selection state machine. It is safe for concurrent
// use; debounce callbacks run under the same lock.
type Machine struct {
	mu sync.Mutex

	cfg       config.HighlightConfig
	hl        Highlighter
	presenter Presenter
	logger    *slog.Logger
	onChange  func(*scene.Proxy)

	hovered  *scene.Proxy
	selected *scene.Proxy
	group    map[*scene.Proxy]uint32
	applied  map[*scene.Proxy]Treatment

	anchorX, anchorY float64
	panelFor         *scene.Proxy

	showTimer *timer.Timer
	hideTimer *timer.Timer
}

// New returns an idle machine.
func New(cfg config.HighlightConfig, clock timer.Clock, hl Highlighter, presenter Presenter, logger *slog.Logger) *Machine {
	if clock == nil {
		clock = timer.System()
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Machine{
		cfg:       cfg,
		hl:        hl,
		presenter: presenter,
		logger:    logger,
		group:     make(map[*scene.Proxy]uint32),
		applied:   make(map[*scene.Proxy]Treatment),
	}
	m.showTimer = timer.New(clock, &m.mu)
	m.hideTimer = timer.New(clock, &m.mu)
	return m
}

// OnChange registers fn to be called with every proxy whose appearance
// changes. fn runs with the machine's lock held.
func (m *Machine) OnChange(fn func(*scene.Proxy)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Hover moves the hover state to p, or to nothing when p is nil. The anchor
// positions the panel.
func (m *Machine) Hover(p *scene.Proxy, anchorX, anchorY float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropStale()
	if p.Disposed() {
		p = nil
	}

	if p != nil && p == m.hovered {
		m.anchorX, m.anchorY = anchorX, anchorY
		return
	}
	if p == nil && m.hovered == nil {
		return
	}

	prev := m.hovered
	m.hovered = p
	m.showTimer.Cancel()
	if prev != nil {
		m.reconcile(prev)
	}

	if p == nil {
		m.hideTimer.Schedule(m.cfg.PanelCloseDelay, m.hide)
		return
	}
	m.reconcile(p)
	m.hideTimer.Cancel()
	if prev != nil && m.panelFor == prev && prev != m.selected {
		m.hide()
	}
	m.anchorX, m.anchorY = anchorX, anchorY
	m.showTimer.Schedule(m.cfg.HoverDelay, func() {
		if m.hovered == p {
			m.show(p)
		}
	})
}

// Click selects the hovered entity and shows its panel at once. A click on
// empty space clears the selection and schedules the panel hide.
func (m *Machine) Click() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropStale()
	m.selectLocked(m.hovered)
}

// Select selects p as if it had been clicked. A nil p clears the selection.
func (m *Machine) Select(p *scene.Proxy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropStale()
	if p.Disposed() {
		p = nil
	}
	m.selectLocked(p)
}

func (m *Machine) selectLocked(p *scene.Proxy) {
	prev := m.selected
	m.selected = p
	if prev != nil && prev != p {
		m.reconcile(prev)
	}
	m.showTimer.Cancel()

	if p == nil {
		m.hideTimer.Schedule(m.cfg.PanelCloseDelay, m.hide)
		return
	}
	m.reconcile(p)
	m.hideTimer.Cancel()
	m.show(p)
}

// HighlightGroup gives every proxy in ps the group treatment in color,
// replacing any previous group. Hover and selection glow take precedence.
func (m *Machine) HighlightGroup(ps []*scene.Proxy, color uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropStale()
	old := m.group
	m.group = make(map[*scene.Proxy]uint32, len(ps))
	for _, p := range ps {
		if !p.Disposed() {
			m.group[p] = color
		}
	}
	for p := range old {
		if _, still := m.group[p]; !still {
			m.reconcile(p)
		}
	}
	for p := range m.group {
		m.reconcile(p)
	}
}

// ClearGroup removes the group treatment.
func (m *Machine) ClearGroup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropStale()
	old := m.group
	m.group = make(map[*scene.Proxy]uint32)
	for p := range old {
		m.reconcile(p)
	}
}

// Clear cancels pending timers, reverts every treatment, forgets all state
// and hides the panel. It must be called before the scene's proxies are
// disposed.
func (m *Machine) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.showTimer.Cancel()
	m.hideTimer.Cancel()
	m.hovered, m.selected = nil, nil
	m.group = make(map[*scene.Proxy]uint32)
	for p := range m.applied {
		if !p.Disposed() {
			m.reconcile(p)
		}
	}
	m.applied = make(map[*scene.Proxy]Treatment)
	if m.panelFor != nil {
		m.hide()
	}
}

// Forget drops every reference to ps without reverting their treatments,
// cancelling a pending show and hiding the panel if it belongs to one of
// them. Call it before disposing proxies that are still live.
func (m *Machine) Forget(ps ...*scene.Proxy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range ps {
		if p == nil {
			continue
		}
		if m.hovered == p {
			m.hovered = nil
			m.showTimer.Cancel()
		}
		if m.selected == p {
			m.selected = nil
		}
		delete(m.group, p)
		delete(m.applied, p)
		if m.panelFor == p {
			m.hide()
		}
	}
}

// Hovered returns the hovered proxy, or nil.
func (m *Machine) Hovered() *scene.Proxy {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropStale()
	return m.hovered
}

// Selected returns the selected proxy, or nil.
func (m *Machine) Selected() *scene.Proxy {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropStale()
	return m.selected
}

// PanelVisible reports whether the panel is showing.
func (m *Machine) PanelVisible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropStale()
	return m.panelFor != nil
}

// Treatment returns the treatment currently applied to p.
func (m *Machine) Treatment(p *scene.Proxy) Treatment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applied[p]
}

// dropStale forgets references to disposed proxies without reverting them.
func (m *Machine) dropStale() {
	if m.hovered != nil && m.hovered.Disposed() {
		m.logger.Debug("dropping stale hover", "entity", m.hovered.EntityID())
		m.hovered = nil
		m.showTimer.Cancel()
	}
	if m.selected != nil && m.selected.Disposed() {
		m.logger.Debug("dropping stale selection", "entity", m.selected.EntityID())
		m.selected = nil
	}
	for p := range m.group {
		if p.Disposed() {
			delete(m.group, p)
		}
	}
	for p := range m.applied {
		if p.Disposed() {
			delete(m.applied, p)
		}
	}
	if m.panelFor != nil && m.panelFor.Disposed() {
		m.hide()
	}
}

// desired derives p's treatment from the state.
func (m *Machine) desired(p *scene.Proxy) Treatment {
	if p == m.hovered || p == m.selected {
		return Treatment{Kind: TreatmentGlow}
	}
	if c, ok := m.group[p]; ok {
		return Treatment{Kind: TreatmentGroup, Color: c}
	}
	return Treatment{}
}

// reconcile brings p's applied treatment in line with the state, making at
// most one appearance change.
func (m *Machine) reconcile(p *scene.Proxy) {
	want := m.desired(p)
	if want == m.applied[p] {
		return
	}
	if want.Kind == TreatmentNone {
		m.hl.Revert(p)
		delete(m.applied, p)
		metrics.HighlightMutations.WithLabelValues("revert").Inc()
	} else {
		m.hl.Apply(p, want)
		m.applied[p] = want
		metrics.HighlightMutations.WithLabelValues("apply").Inc()
	}
	if m.onChange != nil {
		m.onChange(p)
	}
}

func (m *Machine) show(p *scene.Proxy) {
	if p.Disposed() {
		return
	}
	m.panelFor = p
	if m.presenter != nil {
		m.presenter.Show(Panel{
			Title:   p.Title(),
			Fields:  p.Fields(),
			AnchorX: m.anchorX,
			AnchorY: m.anchorY,
		})
	}
}

func (m *Machine) hide() {
	if m.panelFor == nil {
		return
	}
	m.panelFor = nil
	if m.presenter != nil {
		m.presenter.Hide()
	}
}
