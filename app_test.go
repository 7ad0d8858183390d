package main

import (
	"context"
	"os"
	"testing"

	"github.com/chazu/nodescope/pkg/scene"
)

// TestE2EStarExample exercises the full pipeline: Lisp source → engine →
// dataset → graph → tessellate → scene snapshot. This is the same path that
// the Wails Evaluate binding takes, but without the Wails runtime.
func TestE2EStarExample(t *testing.T) {
	app := NewApp()

	source, err := os.ReadFile("examples/star.lisp")
	if err != nil {
		t.Fatalf("failed to read star.lisp: %v", err)
	}

	result := app.Evaluate(string(source))

	// No errors expected.
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}
	if result.Scene.Dataset != "star" {
		t.Errorf("expected dataset 'star', got %q", result.Scene.Dataset)
	}

	// Expect 5 nodes and 8 edges: four spokes plus the ring.
	var nodes, edges int
	for _, p := range result.Scene.Proxies {
		switch p.Kind {
		case scene.KindNode:
			nodes++
		case scene.KindEdge:
			edges++
		}

		// Each proxy must reference a mesh with non-empty geometry.
		m, ok := result.Scene.Meshes[p.Geometry]
		if !ok {
			t.Errorf("%s: no mesh for geometry %q", p.EntityID, p.Geometry)
			continue
		}
		if len(m.Vertices) == 0 {
			t.Errorf("%s: no vertices", p.EntityID)
		}
		if len(m.Normals) == 0 {
			t.Errorf("%s: no normals", p.EntityID)
		}
		if len(m.Indices) == 0 {
			t.Errorf("%s: no indices", p.EntityID)
		}

		// Must have a material assigned.
		if p.Material == nil {
			t.Errorf("%s: no material assigned", p.EntityID)
		}
	}
	if nodes != 5 || edges != 8 {
		t.Fatalf("expected 5 nodes and 8 edges, got %d and %d", nodes, edges)
	}
}

// TestE2EMiniDataset loads the JSON example from disk.
func TestE2EMiniDataset(t *testing.T) {
	app := NewApp()
	defer app.shutdown(context.Background())
	result := app.OpenDataset("examples/mini.json")

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Warnings) > 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
	if len(result.Scene.Proxies) != 8 {
		t.Fatalf("expected 8 proxies, got %d", len(result.Scene.Proxies))
	}

	u, err := app.SelectNode("alice")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if u.Selected != "alice" {
		t.Errorf("expected alice selected, got %q", u.Selected)
	}
}

// TestE2EEmptySource ensures the pipeline handles empty input gracefully.
func TestE2EEmptySource(t *testing.T) {
	app := NewApp()
	result := app.Evaluate("")

	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors for empty source: %v", result.Errors)
	}
	if len(result.Scene.Proxies) != 0 {
		t.Errorf("expected 0 proxies for empty source, got %d", len(result.Scene.Proxies))
	}
}

// TestE2ESyntaxError ensures eval errors are reported, not fatal errors.
func TestE2ESyntaxError(t *testing.T) {
	app := NewApp()
	result := app.Evaluate("(node \"test\"")

	if len(result.Errors) == 0 {
		t.Fatal("expected eval errors for syntax error")
	}
	if len(result.Scene.Proxies) != 0 {
		t.Errorf("expected 0 proxies on error, got %d", len(result.Scene.Proxies))
	}
}

// TestE2ESingleNode ensures a minimal single-node source renders one proxy.
func TestE2ESingleNode(t *testing.T) {
	app := NewApp()
	result := app.Evaluate(`(node "shelf" :shape :cube :size 2)`)

	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error: %s", e.Message)
		}
		t.FailNow()
	}
	if len(result.Scene.Proxies) != 1 {
		t.Fatalf("expected 1 proxy, got %d", len(result.Scene.Proxies))
	}
	if result.Scene.Proxies[0].EntityID != "shelf" {
		t.Errorf("expected entity 'shelf', got %q", result.Scene.Proxies[0].EntityID)
	}
}
