package graph

import (
	"fmt"

	"github.com/samber/lo"
	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// Neighbors returns the nodes sharing an edge with id.
func (m *Model) Neighbors(id NodeID) []NodeID {
	gid, ok := m.gid[id]
	if !ok {
		return nil
	}
	return m.toIDs(gonum.NodesOf(m.g.From(gid)))
}

// ConnectedComponent returns every node reachable from id, id included, in
// breadth-first order.
func (m *Model) ConnectedComponent(id NodeID) ([]NodeID, error) {
	gid, ok := m.gid[id]
	if !ok {
		return nil, fmt.Errorf("graph: component of %q: %w", id, ErrStaleEntity)
	}
	var out []NodeID
	bf := traverse.BreadthFirst{
		Visit: func(n gonum.Node) {
			out = append(out, m.nodeOf[n.ID()])
		},
	}
	bf.Walk(m.g, m.g.Node(gid), nil)
	return out, nil
}

// Components returns the connected components of the model.
func (m *Model) Components() [][]NodeID {
	return lo.Map(topo.ConnectedComponents(m.g), func(c []gonum.Node, _ int) []NodeID {
		return m.toIDs(c)
	})
}

// Path returns a shortest path by hop count from one node to another.
func (m *Model) Path(from, to NodeID) ([]NodeID, bool) {
	a, okA := m.gid[from]
	b, okB := m.gid[to]
	if !okA || !okB {
		return nil, false
	}
	if a == b {
		return []NodeID{from}, true
	}
	nodes, _ := path.DijkstraFrom(m.g.Node(a), m.g).To(b)
	if len(nodes) == 0 {
		return nil, false
	}
	return m.toIDs(nodes), true
}

// PathEdges returns one edge between each consecutive pair of nodes in p.
func (m *Model) PathEdges(p []NodeID) []*Edge {
	var out []*Edge
	for i := 1; i < len(p); i++ {
		prev, next := p[i-1], p[i]
		e, ok := lo.Find(m.EdgesOf(prev), func(e *Edge) bool {
			return (e.Start == prev && e.End == next) || (e.Start == next && e.End == prev)
		})
		if ok {
			out = append(out, e)
		}
	}
	return out
}

func (m *Model) toIDs(nodes []gonum.Node) []NodeID {
	return lo.Map(nodes, func(n gonum.Node, _ int) NodeID { return m.nodeOf[n.ID()] })
}
