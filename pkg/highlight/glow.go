package highlight

import (
	"github.com/chazu/nodescope/pkg/config"
	"github.com/chazu/nodescope/pkg/scene"
)

// TreatmentKind is the kind of visual treatment applied to a proxy.
type TreatmentKind int

const (
	TreatmentNone TreatmentKind = iota
	TreatmentGlow
	TreatmentGroup
)

// Treatment is a visual treatment. Color is used by group treatments.
type Treatment struct {
	Kind  TreatmentKind
	Color uint32
}

// Highlighter changes and restores a proxy's appearance.
type Highlighter interface {
	// Apply sets the proxy's current appearance for t, starting from its
	// original appearance.
	Apply(p *scene.Proxy, t Treatment)
	// Revert restores the proxy's original appearance.
	Revert(p *scene.Proxy)
}

// Glow highlights nodes with an emissive glow and edges with a colour and
// width override.
type Glow struct {
	cfg config.HighlightConfig
}

var _ Highlighter = (*Glow)(nil)

// NewGlow returns a Glow using the colours in cfg.
func NewGlow(cfg config.HighlightConfig) *Glow {
	return &Glow{cfg: cfg}
}

func (g *Glow) Apply(p *scene.Proxy, t Treatment) {
	a := p.Original
	switch t.Kind {
	case TreatmentGlow:
		if p.Kind == scene.KindNode {
			a.Emissive = g.cfg.NodeEmissive
			a.EmissiveIntensity = g.cfg.NodeEmissiveIntensity
		} else {
			a.Color = g.cfg.EdgeColor
			a.WidthScale = p.Original.WidthScale * g.cfg.EdgeWidthScale
		}
	case TreatmentGroup:
		a.Color = t.Color
		if p.Kind == scene.KindNode {
			a.Emissive = t.Color
			a.EmissiveIntensity = g.cfg.NodeEmissiveIntensity / 2
		}
	}
	p.Current = a
}

func (g *Glow) Revert(p *scene.Proxy) {
	p.Current = p.Original
}
