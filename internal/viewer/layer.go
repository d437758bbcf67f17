package viewer

import (
	"context"

	"starviewcore/internal/catalog"
	"starviewcore/internal/scene"
	"starviewcore/pkg/viewapi"
)

// layer is the mutable record behind one catalog entry.
type layer struct {
	def         catalog.Layer
	state       viewapi.LoadState
	node        *scene.Node
	opacity     float64
	temperature float64
	err         error

	// originalColors snapshots vertex colors for layers whose colors are
	// remapped from the originals (helium).
	originalColors map[*scene.Node][]float32
}

func (l *layer) loaded() bool { return l.state == viewapi.Loaded && l.node != nil }

func (l *layer) visible() bool { return l.loaded() && l.node.Visible }

func (e *Engine) visible(l *layer) bool {
	switch l.def.Kind {
	case catalog.KindGuardianGroup:
		return l.state == viewapi.Loaded && e.anyGuardianVisible(l)
	case catalog.KindColonies:
		return e.colonies.visible
	case catalog.KindIsoStack:
		return l.node != nil && l.node.Visible
	}
	return l.visible()
}

func (e *Engine) view(l *layer) viewapi.LayerView {
	visible := e.visible(l)
	v := viewapi.LayerView{
		ID:             l.def.ID,
		State:          l.state,
		Visible:        visible,
		Loading:        l.state == viewapi.Loading,
		ControlEnabled: l.state != viewapi.Loading,
		Opacity:        l.opacity,
	}
	switch l.def.Kind {
	case catalog.KindColonies:
		v.Label = l.def.Label(visible)
		v.ControlsVisible = visible
	case catalog.KindIsoStack:
		// the level slider is usable while levels are still arriving
		v.Label = l.def.Label(l.state == viewapi.Loaded && visible)
		v.ControlsVisible = visible && l.state != viewapi.Failed
	default:
		v.Label = l.def.Label(l.state == viewapi.Loaded && visible)
		v.ControlsVisible = l.state == viewapi.Loaded && visible
	}
	switch l.state {
	case viewapi.Loading:
		v.Hint = l.def.LoadingHint()
	case viewapi.Failed:
		v.Hint = catalog.FailedHint
	}
	if l.def.ColorTemperature != nil {
		v.ColorTemperature = l.temperature
		v.HasColorTemperature = true
	}
	return v
}

// Activate is the single entry point for a layer's toggle control. The first
// activation starts the load; later ones flip visibility. Activations while
// a load is in flight are ignored, and a Failed layer retries. Load failures
// never surface here; they are reported through the layer state.
func (e *Engine) Activate(id viewapi.LayerID) error {
	l, err := e.layer(id)
	if err != nil {
		return err
	}
	switch l.def.Kind {
	case catalog.KindGuardianGroup:
		e.activateGuardian(l)
	case catalog.KindGuardianSite:
		e.activateGuardianSite(l)
	case catalog.KindIsoStack:
		e.activateIsoStack()
	case catalog.KindColonyCloud:
		e.activateColonyCloud(l)
	case catalog.KindColonies:
		e.activateColonies(l)
	case catalog.KindGalacticPlane:
		e.activateGalacticPlane(l)
	default:
		e.activateLoadOnce(l)
	}
	return nil
}

// activateLoadOnce drives the common lifecycle for single-asset layers.
func (e *Engine) activateLoadOnce(l *layer) {
	switch l.state {
	case viewapi.Loading:
		return
	case viewapi.Loaded:
		l.node.Visible = !l.node.Visible
		e.notify(l)
		return
	}
	l.state = viewapi.Loading
	l.err = nil
	e.notify(l)
	url := l.def.URL
	e.spawn(func(ctx context.Context) completion {
		node, err := e.loader.Load(ctx, url)
		return func() { e.finishLoad(l, url, node, err) }
	})
}

func (e *Engine) finishLoad(l *layer, url string, node *scene.Node, err error) {
	if err != nil {
		if l.def.Kind != catalog.KindDensityScan {
			e.fail(l, url, err)
			return
		}
		e.logger.Warn("density scan asset unavailable, using placeholder", "layer", l.def.ID, "url", url, "err", err)
		node = densityPlaceholder()
	}
	node = e.style(l, node)
	e.attach(l, node)
}

// attach makes node the layer's visible subgraph and marks it Loaded.
func (e *Engine) attach(l *layer, node *scene.Node) {
	node.Visible = true
	e.root.Add(node)
	l.node = node
	l.state = viewapi.Loaded
	l.err = nil
	e.logger.Info("layer loaded", "layer", l.def.ID)
	e.notify(l)
}

func (e *Engine) fail(l *layer, url string, err error) {
	l.state = viewapi.Failed
	l.err = &LoadError{Layer: l.def.ID, URL: url, Err: err}
	e.logger.Error("layer load failed", "layer", l.def.ID, "url", url, "err", err)
	e.notify(l)
}

// style prepares a freshly loaded subgraph with the layer's current
// parameters. It runs on the driving goroutine so it sees the latest slider
// values.
func (e *Engine) style(l *layer, node *scene.Node) *scene.Node {
	switch l.def.Kind {
	case catalog.KindStarCloud:
		styleStarCloud(node, e.starCloudOpacity)
	case catalog.KindHelium:
		node = heliumGroup(node)
		l.originalColors = snapshotColors(node)
		styleHelium(node, l.opacity)
		if e.heliumIntensity != 1 {
			remapHelium(l.originalColors, e.heliumIntensity)
		}
	case catalog.KindStellarClass:
		styleStellar(node, l.opacity, l.temperature, l.def.EmissiveIntensity)
	case catalog.KindGuardianSite:
		styleTranslucent(node, l.opacity)
	}
	return node
}
