package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/nodescope/pkg/cache"
	"github.com/chazu/nodescope/pkg/dataset"
	"github.com/chazu/nodescope/pkg/graph"
	"github.com/chazu/nodescope/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpNodeRef is returned by `node` and `node-ref` and accepted as an edge
// endpoint.
type sexpNodeRef struct {
	id string
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(node-ref %q)", n.id)
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// sexpEdgeRef is returned by `edge`.
type sexpEdgeRef struct {
	id string
}

func (e *sexpEdgeRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(edge-ref %q)", e.id)
}
func (e *sexpEdgeRef) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a v3.Vec.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpMeta carries a metadata map built by `meta`.
type sexpMeta struct {
	fields map[string]any
}

func (m *sexpMeta) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(meta %d fields)", len(m.fields))
}
func (m *sexpMeta) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i += 2
		} else {
			// Keyword at end with no value: treat as flag with nil.
			result.kw[name] = zygo.SexpNull
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_dashed) and plain strings ("dashed").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toColor accepts an integer or a hex string.
func toColor(s zygo.Sexp) (uint32, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		if v.Val < 0 || v.Val > 0xffffff {
			return 0, fmt.Errorf("color %d out of range", v.Val)
		}
		return uint32(v.Val), nil
	case *zygo.SexpStr:
		c, err := dataset.ParseColor(v.S)
		return uint32(c), err
	}
	return 0, fmt.Errorf("expected color, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a v3.Vec from a sexpVec3.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toMeta extracts the map from a sexpMeta.
func toMeta(s zygo.Sexp) (map[string]any, error) {
	if m, ok := s.(*sexpMeta); ok {
		return m.fields, nil
	}
	return nil, fmt.Errorf("expected meta, got %T (%s)", s, s.SexpString(nil))
}

// toMetaValue converts a scalar Sexp to a Go value for metadata.
func toMetaValue(s zygo.Sexp) (any, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return v.Val, nil
	case *zygo.SexpFloat:
		return v.Val, nil
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpStr:
		return strings.TrimPrefix(v.S, kwPrefix), nil
	}
	return nil, fmt.Errorf("unsupported metadata value %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Dataset builder
// ---------------------------------------------------------------------------

// builder accumulates the records a script declares.
type builder struct {
	ds       graph.Dataset
	nodes    map[string]bool
	edges    map[string]bool
	warnings []EvalWarning
}

func newBuilder() *builder {
	return &builder{nodes: make(map[string]bool), edges: make(map[string]bool)}
}

func (b *builder) warn(id, format string, args ...any) {
	b.warnings = append(b.warnings, EvalWarning{ID: id, Message: fmt.Sprintf(format, args...)})
}

// endpoint resolves an edge end given as a node reference, a node ID
// string or a node index.
func (b *builder) endpoint(s zygo.Sexp) (string, error) {
	switch v := s.(type) {
	case *sexpNodeRef:
		return v.id, nil
	case *zygo.SexpStr:
		return v.S, nil
	case *zygo.SexpInt:
		if v.Val < 0 || int(v.Val) >= len(b.ds.Nodes) {
			return "", fmt.Errorf("node index %d out of range (%d nodes)", v.Val, len(b.ds.Nodes))
		}
		return b.ds.Nodes[v.Val].ID, nil
	}
	return "", fmt.Errorf("expected node reference, id or index, got %T (%s)", s, s.SexpString(nil))
}

// nodeOpts applies keyword options to a node spec.
func nodeOpts(spec *graph.NodeSpec, kw map[string]zygo.Sexp) error {
	if v, ok := kw["at"]; ok {
		p, err := toVec3(v)
		if err != nil {
			return fmt.Errorf("at: %w", err)
		}
		spec.Position = p
	}
	if v, ok := kw["name"]; ok {
		s, err := toString(v)
		if err != nil {
			return fmt.Errorf("name: %w", err)
		}
		spec.Name = s
	}
	if v, ok := kw["shape"]; ok {
		s, err := toKeywordString(v)
		if err != nil {
			return fmt.Errorf("shape: %w", err)
		}
		kind, err := kernel.ParseShapeKind(s)
		if err != nil {
			return err
		}
		spec.Shape = kind
	}
	if v, ok := kw["size"]; ok {
		f, err := toFloat64(v)
		if err != nil {
			return fmt.Errorf("size: %w", err)
		}
		if f <= 0 {
			return fmt.Errorf("size must be positive, got %g", f)
		}
		spec.Size = f
	}
	if v, ok := kw["color"]; ok {
		c, err := toColor(v)
		if err != nil {
			return fmt.Errorf("color: %w", err)
		}
		spec.Color = c
	}
	if v, ok := kw["meta"]; ok {
		md, err := toMeta(v)
		if err != nil {
			return fmt.Errorf("meta: %w", err)
		}
		spec.Metadata = md
	}
	return nil
}

// edgeOpts applies keyword options to an edge spec.
func edgeOpts(spec *graph.EdgeSpec, kw map[string]zygo.Sexp) error {
	if v, ok := kw["name"]; ok {
		s, err := toString(v)
		if err != nil {
			return fmt.Errorf("name: %w", err)
		}
		spec.Name = s
	}
	if v, ok := kw["type"]; ok {
		s, err := toKeywordString(v)
		if err != nil {
			return fmt.Errorf("type: %w", err)
		}
		spec.Type = s
	}
	if v, ok := kw["style"]; ok {
		s, err := toKeywordString(v)
		if err != nil {
			return fmt.Errorf("style: %w", err)
		}
		style, err := cache.ParseStyle(s)
		if err != nil {
			return err
		}
		spec.Style = style
	}
	if v, ok := kw["color"]; ok {
		c, err := toColor(v)
		if err != nil {
			return fmt.Errorf("color: %w", err)
		}
		spec.Color = c
	}
	if v, ok := kw["offset"]; ok {
		f, err := toFloat64(v)
		if err != nil {
			return fmt.Errorf("offset: %w", err)
		}
		spec.Offset = f
		spec.CurveHeight = dataset.DefaultCurveHeight(f)
	}
	if v, ok := kw["height"]; ok {
		f, err := toFloat64(v)
		if err != nil {
			return fmt.Errorf("height: %w", err)
		}
		spec.CurveHeight = f
	}
	if v, ok := kw["meta"]; ok {
		md, err := toMeta(v)
		if err != nil {
			return fmt.Errorf("meta: %w", err)
		}
		spec.Metadata = md
	}
	return nil
}

// addEdge builds one edge with the default styling for its index.
func (b *builder) addEdge(id, start, end string, kw map[string]zygo.Sexp) (string, error) {
	i := len(b.ds.Edges)
	if id == "" {
		id = dataset.EdgeID(i)
	}
	spec := graph.EdgeSpec{
		ID:          id,
		Start:       start,
		End:         end,
		Style:       dataset.DefaultEdgeStyle(i),
		Color:       dataset.DefaultEdgeColor(i),
		CurveHeight: dataset.DefaultCurveHeight(0),
	}
	if err := edgeOpts(&spec, kw); err != nil {
		return "", err
	}
	if b.edges[id] {
		b.warn(id, "edge %q declared twice; the later one is ignored", id)
	}
	for _, end := range []string{start, end} {
		if !b.nodes[end] {
			b.warn(id, "edge %q references unknown node %q", id, end)
		}
	}
	b.edges[id] = true
	b.ds.Edges = append(b.ds.Edges, spec)
	return id, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the dataset builtins into a zygomys environment.
// Source code must be preprocessed with preprocessSource() first so that
// :keyword tokens arrive as recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// -----------------------------------------------------------------------
	// (dataset "name")
	// -----------------------------------------------------------------------
	env.AddFunction("dataset", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("dataset requires a name")
		}
		s, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("dataset: name: %w", err)
		}
		b.ds.Name = s
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var xyz [3]float64
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			xyz[i] = f
		}
		return &sexpVec3{vec: v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (meta :team "red" :weight 2)
	// -----------------------------------------------------------------------
	env.AddFunction("meta", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("meta takes only keyword arguments")
		}
		fields := make(map[string]any, len(pa.kw))
		for k, v := range pa.kw {
			val, err := toMetaValue(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("meta: %s: %w", k, err)
			}
			fields[k] = val
		}
		return &sexpMeta{fields: fields}, nil
	})

	// -----------------------------------------------------------------------
	// (node "id" :at (vec3 0 0 0) :shape :icosahedron :size 1.5
	//            :color "#ff4500" :name "Hub" :meta (meta ...))
	// -----------------------------------------------------------------------
	env.AddFunction("node", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		i := len(b.ds.Nodes)
		id := dataset.NodeID(i)
		if len(pa.positional) > 0 {
			s, err := toString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("node: id: %w", err)
			}
			id = s
		}
		spec := graph.NodeSpec{
			ID:    id,
			Shape: dataset.DefaultShape(i),
			Size:  dataset.DefaultNodeSize,
			Color: dataset.DefaultNodeColor,
		}
		if err := nodeOpts(&spec, pa.kw); err != nil {
			return zygo.SexpNull, fmt.Errorf("node %q: %w", id, err)
		}
		if b.nodes[id] {
			b.warn(id, "node %q declared twice; the later one is ignored", id)
		}
		b.nodes[id] = true
		b.ds.Nodes = append(b.ds.Nodes, spec)
		return &sexpNodeRef{id: id}, nil
	})

	// -----------------------------------------------------------------------
	// (node-ref "id")
	//
	// Registered as "node_ref"; the preprocessor rewrites node-ref.
	// -----------------------------------------------------------------------
	env.AddFunction("node_ref", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("node-ref requires an id argument")
		}
		id, err := b.endpoint(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node-ref: %w", err)
		}
		if !b.nodes[id] {
			return zygo.SexpNull, fmt.Errorf("node-ref: no node %q", id)
		}
		return &sexpNodeRef{id: id}, nil
	})

	// -----------------------------------------------------------------------
	// (edge a b :id "ab" :offset 0.5 :style :dashed :color "#00ff00"
	//           :height 3 :type "friend" :name "A to B" :meta (meta ...))
	// -----------------------------------------------------------------------
	env.AddFunction("edge", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("edge requires a start and an end node")
		}
		start, err := b.endpoint(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("edge: start: %w", err)
		}
		end, err := b.endpoint(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("edge: end: %w", err)
		}
		var id string
		if v, ok := pa.kw["id"]; ok {
			if id, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("edge: id: %w", err)
			}
		}
		id, err = b.addEdge(id, start, end, pa.kw)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("edge: %w", err)
		}
		return &sexpEdgeRef{id: id}, nil
	})

	// -----------------------------------------------------------------------
	// (chain (list a b c) :style :dotted)
	//
	// Connects consecutive nodes; options apply to every edge.
	// -----------------------------------------------------------------------
	env.AddFunction("chain", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("chain requires a list of nodes")
		}
		if _, ok := pa.kw["id"]; ok {
			return zygo.SexpNull, fmt.Errorf("chain: :id is not allowed, edges are numbered")
		}
		items, err := sexpListToSlice(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("chain: %w", err)
		}
		ids := make([]string, len(items))
		for i, item := range items {
			if ids[i], err = b.endpoint(item); err != nil {
				return zygo.SexpNull, fmt.Errorf("chain: entry %d: %w", i, err)
			}
		}
		refs := make([]zygo.Sexp, 0, len(ids))
		for i := 1; i < len(ids); i++ {
			id, err := b.addEdge("", ids[i-1], ids[i], pa.kw)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("chain: %w", err)
			}
			refs = append(refs, &sexpEdgeRef{id: id})
		}
		return zygo.MakeList(refs), nil
	})
}
