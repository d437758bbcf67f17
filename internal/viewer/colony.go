package viewer

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"starviewcore/internal/catalog"
	"starviewcore/internal/geom"
	"starviewcore/internal/scene"
	"starviewcore/pkg/viewapi"
)

// DefaultSearchBoxSize is the edge length of the search box.
const DefaultSearchBoxSize = 100

// colonyIndex holds the metadata co-indexed with the colony cloud's points:
// meta[i] describes the i-th point across the cloud's point nodes in
// traversal order.
type colonyIndex struct {
	meta []viewapi.ColonyMeta
}

func pointCount(node *scene.Node) int {
	n := 0
	points(node, func(p *scene.Node) { n += p.Geometry.Count() })
	return n
}

// activateColonyCloud fetches the metadata table and the cloud together on
// first use; the layer loads only if both arrive and agree in length.
func (e *Engine) activateColonyCloud(l *layer) {
	switch l.state {
	case viewapi.Loading:
		return
	case viewapi.Loaded:
		l.node.Visible = !l.node.Visible
		size := float64(colonyPointSizeHidden)
		if l.node.Visible {
			size = colonyPointSizeShown
		}
		setPointSize(l.node, size)
		e.notify(l)
		return
	}
	if e.meta == nil {
		e.fail(l, l.def.MetaURL, errors.New("no colony metadata source configured"))
		return
	}

	l.state = viewapi.Loading
	l.err = nil
	e.notify(l)
	metaURL, url := l.def.MetaURL, l.def.URL
	e.spawn(func(ctx context.Context) completion {
		var (
			meta []viewapi.ColonyMeta
			node *scene.Node
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			m, err := e.meta.ColonyMetadata(gctx, metaURL)
			if err != nil {
				return &LoadError{Layer: l.def.ID, URL: metaURL, Err: err}
			}
			meta = m
			return nil
		})
		g.Go(func() error {
			n, err := e.loader.Load(gctx, url)
			if err != nil {
				return &LoadError{Layer: l.def.ID, URL: url, Err: err}
			}
			node = n
			return nil
		})
		err := g.Wait()
		return func() { e.finishColonyCloud(l, meta, node, err) }
	})
}

func (e *Engine) finishColonyCloud(l *layer, meta []viewapi.ColonyMeta, node *scene.Node, err error) {
	if err == nil {
		if n := pointCount(node); n != len(meta) {
			err = &LoadError{Layer: l.def.ID, URL: l.def.URL, Err: fmt.Errorf("%w: %d points, %d records", ErrCoIndexMismatch, n, len(meta))}
		}
	}
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			e.fail(l, le.URL, le.Err)
		} else {
			e.fail(l, l.def.URL, err)
		}
		return
	}
	e.colony.meta = meta
	styleColonyCloud(node)
	e.attach(l, node)
}

func (e *Engine) colonyNode() *scene.Node {
	for _, id := range e.order {
		l := e.layers[id]
		if l.def.Kind == catalog.KindColonyCloud && l.loaded() {
			return l.node
		}
	}
	return nil
}

// eachColonyPoint visits every colony point in world space with its running
// index across point nodes.
func (e *Engine) eachColonyPoint(fn func(i int, p mgl32.Vec3)) {
	root := e.colonyNode()
	if root == nil {
		return
	}
	i := 0
	points(root, func(n *scene.Node) {
		world := n.WorldMatrix()
		for v := 0; v < n.Geometry.Count(); v++ {
			fn(i, world.Mul4x1(n.Geometry.Position(v).Vec4(1)).Vec3())
			i++
		}
	})
}

func (e *Engine) hit(i int, p mgl32.Vec3) viewapi.ColonyHit {
	h := viewapi.ColonyHit{Index: i, X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}
	if i < len(e.colony.meta) {
		h.SystemID = e.colony.meta[i].SystemID
	}
	return h
}

// QueryBox returns every colony point inside the box spanned by the two
// corners, with its metadata. The result is freshly allocated and empty,
// never nil, when the cloud is not loaded.
func (e *Engine) QueryBox(a, b mgl32.Vec3) []viewapi.ColonyHit {
	box := geom.NewBox(a, b)
	out := []viewapi.ColonyHit{}
	e.eachColonyPoint(func(i int, p mgl32.Vec3) {
		if box.Contains(p) {
			out = append(out, e.hit(i, p))
		}
	})
	return out
}

// SearchBox returns the cube of edge size centred on center. A non-positive
// size selects DefaultSearchBoxSize.
func (e *Engine) SearchBox(center mgl32.Vec3, size float32) geom.Box {
	if size <= 0 {
		size = DefaultSearchBoxSize
	}
	return geom.BoxFromCenter(center, size)
}

// QueryAround runs QueryBox over the search box at center.
func (e *Engine) QueryAround(center mgl32.Vec3, size float32) []viewapi.ColonyHit {
	box := e.SearchBox(center, size)
	return e.QueryBox(box.Min, box.Max)
}

// Pick returns the colony point within the pick threshold of the ray whose
// projection onto the ray lies nearest the origin.
func (e *Engine) Pick(origin, direction mgl32.Vec3) (viewapi.ColonyHit, bool) {
	ray := geom.NewRay(origin, direction)
	limit := float32(e.pickThreshold * e.pickThreshold)
	best := float32(math.Inf(1))
	var found viewapi.ColonyHit
	ok := false
	e.eachColonyPoint(func(i int, p mgl32.Vec3) {
		if p.Sub(ray.Origin).Dot(ray.Direction) < 0 {
			return
		}
		closest, along := ray.ClosestPoint(p)
		if d := closest.Sub(p); d.Dot(d) > limit {
			return
		}
		if along < best {
			best = along
			found = e.hit(i, p)
			ok = true
		}
	})
	return found, ok
}
