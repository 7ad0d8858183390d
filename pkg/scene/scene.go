package scene

import (
	"github.com/chazu/nodescope/pkg/graph"
	"github.com/chazu/nodescope/pkg/metrics"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Scene is the set of live proxies. It is not safe for concurrent use; the
// viewer serializes access.
type Scene struct {
	proxies []*Proxy
	byID    map[uuid.UUID]*Proxy
	byNode  map[graph.NodeID]*Proxy
	byEdge  map[graph.EdgeID]*Proxy
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{
		byID:   make(map[uuid.UUID]*Proxy),
		byNode: make(map[graph.NodeID]*Proxy),
		byEdge: make(map[graph.EdgeID]*Proxy),
	}
}

// Add inserts a proxy.
func (s *Scene) Add(p *Proxy) {
	s.proxies = append(s.proxies, p)
	s.byID[p.ID] = p
	switch {
	case p.Kind == KindNode && p.Node != nil:
		s.byNode[p.Node.ID] = p
	case p.Kind == KindEdge && p.Edge != nil:
		s.byEdge[p.Edge.ID] = p
	}
	metrics.SceneProxies.WithLabelValues(p.Kind.String()).Inc()
}

// Remove disposes a proxy and takes it out of the scene.
func (s *Scene) Remove(p *Proxy) {
	if _, ok := s.byID[p.ID]; !ok {
		return
	}
	p.Dispose()
	delete(s.byID, p.ID)
	if p.Node != nil && s.byNode[p.Node.ID] == p {
		delete(s.byNode, p.Node.ID)
	}
	if p.Edge != nil && s.byEdge[p.Edge.ID] == p {
		delete(s.byEdge, p.Edge.ID)
	}
	s.proxies = lo.Without(s.proxies, p)
	metrics.SceneProxies.WithLabelValues(p.Kind.String()).Dec()
}

// Proxies returns the live proxies in insertion order.
func (s *Scene) Proxies() []*Proxy {
	return lo.Reject(s.proxies, func(p *Proxy, _ int) bool { return p.Disposed() })
}

// Len returns the number of proxies, disposed ones included until removed.
func (s *Scene) Len() int {
	return len(s.proxies)
}

// Get looks up a proxy by ID.
func (s *Scene) Get(id uuid.UUID) (*Proxy, bool) {
	p, ok := s.byID[id]
	return p, ok && !p.Disposed()
}

// ForNode returns the proxy of a node.
func (s *Scene) ForNode(id graph.NodeID) (*Proxy, bool) {
	p, ok := s.byNode[id]
	return p, ok && !p.Disposed()
}

// ForEdge returns the proxy of an edge.
func (s *Scene) ForEdge(id graph.EdgeID) (*Proxy, bool) {
	p, ok := s.byEdge[id]
	return p, ok && !p.Disposed()
}

// Clear disposes and removes every proxy.
func (s *Scene) Clear() {
	for _, p := range s.proxies {
		p.Dispose()
		metrics.SceneProxies.WithLabelValues(p.Kind.String()).Dec()
	}
	s.proxies = nil
	s.byID = make(map[uuid.UUID]*Proxy)
	s.byNode = make(map[graph.NodeID]*Proxy)
	s.byEdge = make(map[graph.EdgeID]*Proxy)
}
