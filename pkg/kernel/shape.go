package kernel

import (
	"fmt"
	"strings"
)

// ShapeKind enumerates the node shapes.
type ShapeKind int

const (
	ShapeCube ShapeKind = iota
	ShapeIcosahedron
	ShapeDodecahedron
	ShapeOctahedron
	ShapeTetrahedron
	ShapeMaleIcon
	ShapeFemaleIcon
	ShapeDiverseIcon
)

var shapeNames = map[ShapeKind]string{
	ShapeCube:         "cube",
	ShapeIcosahedron:  "icosahedron",
	ShapeDodecahedron: "dodecahedron",
	ShapeOctahedron:   "octahedron",
	ShapeTetrahedron:  "tetrahedron",
	ShapeMaleIcon:     "male_icon",
	ShapeFemaleIcon:   "female_icon",
	ShapeDiverseIcon:  "diverse_icon",
}

func (k ShapeKind) String() string {
	if name, ok := shapeNames[k]; ok {
		return name
	}
	return "unknown"
}

// Polyhedra lists the solid shapes in the order datasets rotate through
// them when no shape is given.
var Polyhedra = []ShapeKind{
	ShapeCube, ShapeIcosahedron, ShapeDodecahedron, ShapeOctahedron, ShapeTetrahedron,
}

// ParseShapeKind converts a shape name to a ShapeKind. Matching is case
// insensitive and accepts hyphens for underscores. The empty string is a
// cube.
func ParseShapeKind(name string) (ShapeKind, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	if n == "" {
		return ShapeCube, nil
	}
	for kind, s := range shapeNames {
		if s == n {
			return kind, nil
		}
	}
	return ShapeCube, fmt.Errorf("kernel: unknown shape %q", name)
}

// MarshalText encodes the kind by name.
func (k ShapeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a shape name.
func (k *ShapeKind) UnmarshalText(text []byte) error {
	kind, err := ParseShapeKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}
