package kernel

import "math"

// Mesh is indexed triangle geometry in the layout WebGL buffers expect.
// Vertices and Normals hold one xyz triple per vertex; Indices holds one
// triple per triangle, counter-clockwise when seen from outside.
type Mesh struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
}

func (m *Mesh) VertexCount() int   { return len(m.Vertices) / 3 }
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// IsEmpty reports whether there is nothing to draw.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0 || len(m.Indices) == 0
}

// Bounds returns the axis-aligned box enclosing every vertex. ok is false
// for an empty mesh.
func (m *Mesh) Bounds() (lo, hi [3]float32, ok bool) {
	if len(m.Vertices) < 3 {
		return lo, hi, false
	}
	for i := range 3 {
		lo[i], hi[i] = math.MaxFloat32, -math.MaxFloat32
	}
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		for j := range 3 {
			v := m.Vertices[i+j]
			lo[j] = min(lo[j], v)
			hi[j] = max(hi[j], v)
		}
	}
	return lo, hi, true
}
