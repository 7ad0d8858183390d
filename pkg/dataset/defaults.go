package dataset

import (
	"strconv"

	"github.com/chazu/nodescope/pkg/cache"
	"github.com/chazu/nodescope/pkg/kernel"
)

// Styling applied to records that leave a field out.
const (
	DefaultNodeSize  = 1.2
	DefaultNodeColor = 0xff4500
	// CurveHeightBase is added to an edge's offset when no curve height is
	// given.
	CurveHeightBase = 2.0
)

var edgeColors = []uint32{0x0000ff, 0x00ff00, 0xff0000}

// DefaultShape rotates through the polyhedra by record index.
func DefaultShape(i int) kernel.ShapeKind {
	return kernel.Polyhedra[i%len(kernel.Polyhedra)]
}

// DefaultEdgeStyle rotates through the line styles by record index.
func DefaultEdgeStyle(i int) cache.Style {
	return cache.Styles[i%len(cache.Styles)]
}

// DefaultEdgeColor changes colour every three edges, so each colour is
// seen in every style.
func DefaultEdgeColor(i int) uint32 {
	return edgeColors[(i/len(cache.Styles))%len(edgeColors)]
}

// DefaultCurveHeight derives an edge's lift from its offset.
func DefaultCurveHeight(offset float64) float64 {
	return offset + CurveHeightBase
}

// NodeID is the ID given to the i-th node when the record has none.
func NodeID(i int) string {
	return "n" + strconv.Itoa(i)
}

// EdgeID is the ID given to the i-th edge when the record has none.
func EdgeID(i int) string {
	return "e" + strconv.Itoa(i)
}
