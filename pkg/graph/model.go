package graph

import (
	"fmt"
	"log/slog"

	"github.com/chazu/nodescope/pkg/curve"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/graph/simple"
)

// degenerateEpsilon matches the curve package's coincidence threshold.
const degenerateEpsilon = 1e-9

// Model is an immutable-identity graph of nodes and edges. Node and edge
// pointers stay valid for the Model's lifetime; RemoveNode only detaches
// them.
type Model struct {
	name      string
	nodes     map[NodeID]*Node
	edges     map[EdgeID]*Edge
	nodeOrder []NodeID
	edgeOrder []EdgeID

	// incident lists edge IDs per node in insertion order.
	incident map[NodeID][]EdgeID

	// connectivity mirrors the model for traversal queries.
	g      *simple.UndirectedGraph
	gid    map[NodeID]int64
	nodeOf map[int64]NodeID
}

func newModel(name string) *Model {
	return &Model{
		name:     name,
		nodes:    make(map[NodeID]*Node),
		edges:    make(map[EdgeID]*Edge),
		incident: make(map[NodeID][]EdgeID),
		g:        simple.NewUndirectedGraph(),
		gid:      make(map[NodeID]int64),
		nodeOf:   make(map[int64]NodeID),
	}
}

// Build validates ds and builds a Model. Unusable records are skipped and
// returned as RecordErrors; the build fails only when a record has no ID.
func Build(ds Dataset, logger *slog.Logger) (*Model, []*RecordError, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := newModel(ds.Name)
	var recErrs []*RecordError
	report := func(re *RecordError) {
		recErrs = append(recErrs, re)
		logger.Warn("dataset record rejected",
			"kind", re.Kind, "index", re.Index, "id", re.ID, "skipped", re.Skipped, "error", re.Err)
	}

	for i, spec := range ds.Nodes {
		if spec.ID == "" {
			return nil, recErrs, fmt.Errorf("graph: node %d: %w", i, ErrMissingID)
		}
		id := NodeID(spec.ID)
		if _, dup := m.nodes[id]; dup {
			report(&RecordError{Kind: "node", Index: i, ID: spec.ID, Err: ErrDuplicateID, Skipped: true})
			continue
		}
		m.addNode(&Node{
			ID:       id,
			Name:     spec.Name,
			Position: spec.Position,
			Shape:    spec.Shape,
			Size:     spec.Size,
			Color:    spec.Color,
			Metadata: spec.Metadata,
		})
	}

	for i, spec := range ds.Edges {
		if spec.ID == "" {
			return nil, recErrs, fmt.Errorf("graph: edge %d: %w", i, ErrMissingID)
		}
		id := EdgeID(spec.ID)
		if _, dup := m.edges[id]; dup {
			report(&RecordError{Kind: "edge", Index: i, ID: spec.ID, Err: ErrDuplicateID, Skipped: true})
			continue
		}
		start, okStart := m.nodes[NodeID(spec.Start)]
		end, okEnd := m.nodes[NodeID(spec.End)]
		if !okStart || !okEnd {
			missing := spec.Start
			if okStart {
				missing = spec.End
			}
			report(&RecordError{
				Kind: "edge", Index: i, ID: spec.ID, Skipped: true,
				Err: fmt.Errorf("%w %q", ErrMalformedReference, missing),
			})
			continue
		}

		e := &Edge{
			ID:              id,
			Start:           start.ID,
			End:             end.ID,
			Name:            spec.Name,
			Type:            spec.Type,
			Style:           spec.Style,
			Color:           spec.Color,
			CurveHeight:     max(spec.CurveHeight, 0),
			Offset:          curve.ClampOffset(start.Position, end.Position, spec.Offset),
			RequestedOffset: spec.Offset,
			Metadata:        spec.Metadata,
		}
		if end.Position.Sub(start.Position).Length() < degenerateEpsilon {
			report(&RecordError{Kind: "edge", Index: i, ID: spec.ID, Err: ErrDegenerateGeometry})
		}
		m.addEdge(e)
	}

	logger.Info("graph built", "dataset", ds.Name, "nodes", len(m.nodes), "edges", len(m.edges), "rejected", len(recErrs))
	return m, recErrs, nil
}

func (m *Model) addNode(n *Node) {
	m.nodes[n.ID] = n
	m.nodeOrder = append(m.nodeOrder, n.ID)
	gn := m.g.NewNode()
	m.g.AddNode(gn)
	m.gid[n.ID] = gn.ID()
	m.nodeOf[gn.ID()] = n.ID
}

func (m *Model) addEdge(e *Edge) {
	m.edges[e.ID] = e
	m.edgeOrder = append(m.edgeOrder, e.ID)
	m.incident[e.Start] = append(m.incident[e.Start], e.ID)
	if e.End != e.Start {
		m.incident[e.End] = append(m.incident[e.End], e.ID)
		m.g.SetEdge(m.g.NewEdge(m.g.Node(m.gid[e.Start]), m.g.Node(m.gid[e.End])))
	}
}

// Name returns the dataset name the model was built from.
func (m *Model) Name() string { return m.name }

// Node looks up a node by ID.
func (m *Model) Node(id NodeID) (*Node, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

// Edge looks up an edge by ID.
func (m *Model) Edge(id EdgeID) (*Edge, bool) {
	e, ok := m.edges[id]
	return e, ok
}

// Nodes returns all nodes in dataset order.
func (m *Model) Nodes() []*Node {
	return lo.FilterMap(m.nodeOrder, func(id NodeID, _ int) (*Node, bool) {
		n, ok := m.nodes[id]
		return n, ok
	})
}

// Edges returns all edges in dataset order.
func (m *Model) Edges() []*Edge {
	return lo.FilterMap(m.edgeOrder, func(id EdgeID, _ int) (*Edge, bool) {
		e, ok := m.edges[id]
		return e, ok
	})
}

// NodeCount returns the number of nodes.
func (m *Model) NodeCount() int { return len(m.nodes) }

// EdgeCount returns the number of edges.
func (m *Model) EdgeCount() int { return len(m.edges) }

// EdgesOf returns the edges incident to a node.
func (m *Model) EdgesOf(id NodeID) []*Edge {
	return lo.FilterMap(m.incident[id], func(eid EdgeID, _ int) (*Edge, bool) {
		e, ok := m.edges[eid]
		return e, ok
	})
}

// RemoveNode detaches a node and its incident edges from the model and
// returns the removed edges. It reports ErrStaleEntity for unknown nodes.
func (m *Model) RemoveNode(id NodeID) ([]*Edge, error) {
	if _, ok := m.nodes[id]; !ok {
		return nil, fmt.Errorf("graph: remove %q: %w", id, ErrStaleEntity)
	}
	removed := m.EdgesOf(id)
	for _, e := range removed {
		delete(m.edges, e.ID)
		other := e.End
		if other == id {
			other = e.Start
		}
		m.incident[other] = lo.Without(m.incident[other], e.ID)
	}
	delete(m.incident, id)
	delete(m.nodes, id)
	m.g.RemoveNode(m.gid[id])
	delete(m.nodeOf, m.gid[id])
	delete(m.gid, id)
	m.nodeOrder = lo.Without(m.nodeOrder, id)
	removedIDs := lo.Map(removed, func(e *Edge, _ int) EdgeID { return e.ID })
	m.edgeOrder = lo.Without(m.edgeOrder, removedIDs...)
	return removed, nil
}
