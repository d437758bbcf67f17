package viewer

import (
	"context"

	"starviewcore/internal/scene"
	"starviewcore/pkg/viewapi"
)

// isoStack tracks the ordered density levels. meshes is indexed by rank;
// nil entries have not arrived (or failed).
type isoStack struct {
	layer   *layer
	n       int
	meshes  []*scene.Node
	settled int
	failed  []*LoadError
	slider  int
}

func newIsoStack(l *layer, n int) *isoStack {
	return &isoStack{layer: l, n: n, meshes: make([]*scene.Node, n)}
}

func (s *isoStack) eachMaterial(fn func(*scene.Material)) {
	for _, m := range s.meshes {
		if m == nil {
			continue
		}
		for _, mat := range m.Materials() {
			fn(mat)
		}
	}
}

// position is the child index that keeps the container in rank order.
func (s *isoStack) position(rank int) int {
	i := 0
	for r := 0; r < rank; r++ {
		if s.meshes[r] != nil {
			i++
		}
	}
	return i
}

func (s *isoStack) arrived() int {
	n := 0
	for _, m := range s.meshes {
		if m != nil {
			n++
		}
	}
	return n
}

// activateIsoStack creates the container and issues one load per level on
// first use. Levels are styled and placed by rank as they arrive, in any
// order. Once every level has settled the container toggles as a whole.
func (e *Engine) activateIsoStack() {
	s := e.iso
	l := s.layer
	switch l.state {
	case viewapi.Loading:
		return
	case viewapi.Loaded:
		l.node.Visible = !l.node.Visible
		e.notify(l)
		return
	}

	if l.node != nil {
		e.root.Remove(l.node)
	}
	l.node = scene.NewGroup("iso_stack")
	e.root.Add(l.node)
	l.state = viewapi.Loading
	l.err = nil
	s.meshes = make([]*scene.Node, s.n)
	s.settled = 0
	s.failed = nil
	e.notify(l)

	for rank, url := range l.def.URLs {
		e.spawn(func(ctx context.Context) completion {
			node, err := e.loader.Load(ctx, url)
			return func() { e.finishIsoLevel(rank, url, node, err) }
		})
	}
}

func (e *Engine) finishIsoLevel(rank int, url string, node *scene.Node, err error) {
	s := e.iso
	l := s.layer
	s.settled++
	if err != nil {
		s.failed = append(s.failed, &LoadError{Layer: l.def.ID, URL: url, Err: err})
		e.logger.Warn("iso level load failed", "layer", l.def.ID, "url", url, "rank", rank, "err", err)
	} else {
		styleIsoLevel(node, rank, s.n)
		node.Visible = rank < s.slider
		l.node.Insert(s.position(rank), node)
		s.meshes[rank] = node
		e.applyClip()
	}
	if s.settled < s.n {
		return
	}

	if len(s.failed) > 0 {
		l.err = &PartialLoadError{Group: l.def.ID, Failed: s.failed}
	}
	if s.arrived() == 0 {
		e.root.Remove(l.node)
		l.node = nil
		l.state = viewapi.Failed
		e.logger.Error("layer load failed", "layer", l.def.ID, "err", l.err)
		e.notify(l)
		return
	}
	l.state = viewapi.Loaded
	e.applyClip()
	e.logger.Info("layer loaded", "layer", l.def.ID, "levels", s.arrived())
	e.notify(l)
}

// SetIsoVisibilityCount shows the first n levels by rank. n is clamped to
// [0, number of levels]; levels that have not arrived pick it up on arrival.
func (e *Engine) SetIsoVisibilityCount(n int) {
	if e.iso == nil {
		return
	}
	s := e.iso
	if n < 0 {
		n = 0
	}
	if n > s.n {
		n = s.n
	}
	s.slider = n
	for rank, m := range s.meshes {
		if m != nil {
			m.Visible = rank < n
		}
	}
}

// IsoVisibilityCount returns the level slider value.
func (e *Engine) IsoVisibilityCount() int {
	if e.iso == nil {
		return 0
	}
	return e.iso.slider
}

// IsoLevels returns the loaded level nodes indexed by rank; entries for
// levels that have not arrived are nil.
func (e *Engine) IsoLevels() []*scene.Node {
	if e.iso == nil {
		return nil
	}
	return append([]*scene.Node(nil), e.iso.meshes...)
}
