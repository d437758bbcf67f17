package viewer

import (
	"context"
	"fmt"
	"sort"

	"starviewcore/internal/catalog"
	"starviewcore/internal/scene"
	"starviewcore/pkg/viewapi"
)

// colonies tracks the allegiance bubbles loaded at bootstrap. They share one
// group node and one opacity.
type colonies struct {
	bubbles []catalog.Bubble
	nodes   map[string]*scene.Node
	group   *scene.Node
	visible bool
	started bool
	settled int
	failed  []*LoadError
}

func newColonies(bubbles []catalog.Bubble) colonies {
	return colonies{
		bubbles: append([]catalog.Bubble(nil), bubbles...),
		nodes:   make(map[string]*scene.Node, len(bubbles)),
		visible: true,
	}
}

func (c *colonies) ready() bool { return c.started && c.settled == len(c.bubbles) }

func (e *Engine) coloniesLayer() *layer {
	for _, id := range e.order {
		if l := e.layers[id]; l.def.Kind == catalog.KindColonies {
			return l
		}
	}
	return nil
}

// Bootstrap starts loading every allegiance bubble. Bubbles marked Skip count
// as settled immediately. A failed bubble is logged and counted; the rest
// still load. Once every bubble has settled the colonies layer becomes
// Loaded and the galactic map is brought into view. Later calls do nothing.
func (e *Engine) Bootstrap() {
	c := &e.colonies
	if c.started {
		return
	}
	c.started = true
	c.group = scene.NewGroup("colonized_systems")
	e.root.Add(c.group)

	l := e.coloniesLayer()
	if l != nil {
		l.state = viewapi.Loading
		l.node = c.group
		e.notify(l)
	}
	for _, b := range c.bubbles {
		if b.Skip {
			c.settled++
			continue
		}
		e.spawn(func(ctx context.Context) completion {
			node, err := e.loader.Load(ctx, b.URL)
			return func() { e.finishBubble(b, node, err) }
		})
	}
	if c.ready() {
		e.coloniesReady()
	}
}

func (e *Engine) finishBubble(b catalog.Bubble, node *scene.Node, err error) {
	c := &e.colonies
	c.settled++
	if err != nil {
		c.failed = append(c.failed, &LoadError{Layer: viewapi.ColonizedSystems, URL: b.URL, Err: err})
		e.logger.Warn("colony bubble load failed", "allegiance", b.Allegiance, "url", b.URL, "err", err)
	} else {
		styleBubble(node)
		node.Name = "bubble_" + b.Allegiance
		node.Visible = c.visible
		c.group.Add(node)
		c.nodes[b.Allegiance] = node
	}
	if c.ready() {
		e.coloniesReady()
	}
}

func (e *Engine) coloniesReady() {
	c := &e.colonies
	opacity := e.cat.ColoniesOpacity
	l := e.coloniesLayer()
	if l != nil {
		l.state = viewapi.Loaded
		if len(c.failed) > 0 {
			l.err = &PartialLoadError{Group: l.def.ID, Failed: c.failed}
		}
		opacity = l.opacity
	}
	c.group.Visible = true
	for _, n := range c.nodes {
		n.Visible = c.visible
	}
	e.SetColoniesOpacity(opacity)

	if g := e.galacticLayer(); g != nil && !g.visible() {
		if g.loaded() {
			g.node.Visible = true
			e.notify(g)
		} else {
			e.activateGalacticPlane(g)
		}
	}
	e.logger.Info("colonies ready", "bubbles", len(c.nodes), "failed", len(c.failed))
	if l != nil {
		e.notify(l)
	}
}

func (e *Engine) galacticLayer() *layer {
	for _, id := range e.order {
		if l := e.layers[id]; l.def.Kind == catalog.KindGalacticPlane {
			return l
		}
	}
	return nil
}

// activateColonies flips every bubble at once. It does nothing until the
// bubbles have settled.
func (e *Engine) activateColonies(l *layer) {
	c := &e.colonies
	if !c.ready() {
		return
	}
	c.visible = !c.visible
	for _, n := range c.nodes {
		n.Visible = c.visible
	}
	e.notify(l)
}

// SetColoniesOpacity sets the shared bubble opacity, clamped to [0,1]. Bubbles
// become transparent only below full opacity.
func (e *Engine) SetColoniesOpacity(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	l := e.coloniesLayer()
	if l != nil {
		l.opacity = v
	}
	for _, n := range e.colonies.nodes {
		eachMaterial(n, func(m *scene.Material) {
			m.Opacity = v
			m.Transparent = v < 1
		})
	}
	if l != nil && e.colonies.ready() {
		e.notify(l)
	}
}

// SetAllegianceVisible shows or hides a single loaded bubble.
func (e *Engine) SetAllegianceVisible(allegiance string, visible bool) error {
	n, ok := e.colonies.nodes[allegiance]
	if !ok {
		return fmt.Errorf("%w: bubble %q", ErrLayerNotLoaded, allegiance)
	}
	n.Visible = visible
	return nil
}

// Allegiances lists the loaded bubbles, sorted.
func (e *Engine) Allegiances() []string {
	out := make([]string, 0, len(e.colonies.nodes))
	for a := range e.colonies.nodes {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Ready reports whether every bubble has settled.
func (e *Engine) Ready() bool { return e.colonies.ready() }
