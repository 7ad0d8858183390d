package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedReference marks an edge whose endpoint is not a node.
	ErrMalformedReference = errors.New("graph: edge references unknown node")
	// ErrDuplicateID marks a record whose ID was already used.
	ErrDuplicateID = errors.New("graph: duplicate id")
	// ErrDegenerateGeometry marks an edge whose endpoints coincide. The
	// edge is kept and renders as a point.
	ErrDegenerateGeometry = errors.New("graph: degenerate edge geometry")
	// ErrStaleEntity marks a reference to an entity that no longer exists.
	ErrStaleEntity = errors.New("graph: stale entity")
	// ErrMissingID marks a record without an ID. It fails the whole build.
	ErrMissingID = errors.New("graph: missing id")
)

// RecordError describes a problem with one dataset record.
type RecordError struct {
	Kind    string // "node" or "edge"
	Index   int    // position in the dataset
	ID      string
	Err     error
	Skipped bool // the record was left out of the model
}

func (e *RecordError) Error() string {
	verb := "kept"
	if e.Skipped {
		verb = "skipped"
	}
	return fmt.Sprintf("%s %d (%q) %s: %v", e.Kind, e.Index, e.ID, verb, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
