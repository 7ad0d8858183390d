package pick

import (
	"github.com/chazu/nodescope/pkg/scene"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/dhconnelly/rtreego"
)

const (
	// pointExtent is the side of the box indexed for each proxy anchor.
	// rtreego rejects zero-length rectangles.
	pointExtent = 1e-6

	treeMinChildren = 2
	treeMaxChildren = 8
)

// indexEntry places a proxy's anchor in the R-tree.
type indexEntry struct {
	proxy *scene.Proxy
	rect  rtreego.Rect
}

func (e *indexEntry) Bounds() rtreego.Rect {
	return e.rect
}

func point(v v3.Vec) rtreego.Point {
	return rtreego.Point{v.X, v.Y, v.Z}
}

// buildIndex indexes proxies by anchor position.
func buildIndex(proxies []*scene.Proxy) (*rtreego.Rtree, error) {
	objs := make([]rtreego.Spatial, 0, len(proxies))
	for _, p := range proxies {
		r, err := rtreego.NewRect(point(p.Position), []float64{pointExtent, pointExtent, pointExtent})
		if err != nil {
			return nil, err
		}
		objs = append(objs, &indexEntry{proxy: p, rect: r})
	}
	return rtreego.NewTree(3, treeMinChildren, treeMaxChildren, objs...), nil
}

// searchBox returns the proxies whose anchors fall in the cube of half-size
// r around center.
func searchBox(tree *rtreego.Rtree, center v3.Vec, r float64) ([]*scene.Proxy, error) {
	corner := center.Sub(v3.Vec{X: r, Y: r, Z: r})
	side := 2*r + pointExtent
	box, err := rtreego.NewRect(point(corner), []float64{side, side, side})
	if err != nil {
		return nil, err
	}
	return proxiesOf(tree.SearchIntersect(box)), nil
}

// nearest returns every indexed proxy ordered by anchor distance to p.
func nearest(tree *rtreego.Rtree, p v3.Vec) []*scene.Proxy {
	if tree.Size() == 0 {
		return nil
	}
	return proxiesOf(tree.NearestNeighbors(tree.Size(), point(p)))
}

func proxiesOf(objs []rtreego.Spatial) []*scene.Proxy {
	out := make([]*scene.Proxy, 0, len(objs))
	for _, o := range objs {
		if e, ok := o.(*indexEntry); ok && e != nil {
			out = append(out, e.proxy)
		}
	}
	return out
}
