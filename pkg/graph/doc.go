// Package graph defines the viewer's graph model: nodes placed in 3D space
// and the curved edges between them.
//
// A Model is built once from a normalized Dataset. Records that cannot be
// used are skipped and reported as RecordErrors; the rest of the dataset
// still loads. Entity identity is stable for the lifetime of the Model.
package graph
