package viewer

import (
	"fmt"

	"starviewcore/internal/catalog"
	"starviewcore/internal/geom"
	"starviewcore/pkg/viewapi"
)

// SetOpacity sets the opacity slider of id, clamped to [0,1]. The value is
// kept when the layer is not loaded yet and applied when it arrives. For the
// star cloud the value scales the depth-attenuated base opacities.
func (e *Engine) SetOpacity(id viewapi.LayerID, v float64) error {
	l, err := e.layer(id)
	if err != nil {
		return err
	}
	v = geom.Clamp(v, 0, 1)
	switch l.def.Kind {
	case catalog.KindStarCloud:
		e.starCloudOpacity = v
		l.opacity = v
		if l.loaded() {
			scaleStarCloud(l.node, v)
		}
	case catalog.KindColonies:
		e.SetColoniesOpacity(v)
		return nil
	case catalog.KindGalacticPlane, catalog.KindHelium, catalog.KindGuardianSite, catalog.KindStellarClass:
		l.opacity = v
		if l.loaded() {
			setOpacity(l.node, v)
		}
	default:
		return fmt.Errorf("%w: %s opacity", ErrNoControl, id)
	}
	e.notify(l)
	return nil
}

// SetColorTemperature recolors a stellar class layer. t is clamped to [0,1].
func (e *Engine) SetColorTemperature(id viewapi.LayerID, t float64) error {
	l, err := e.layer(id)
	if err != nil {
		return err
	}
	if l.def.ColorTemperature == nil {
		return fmt.Errorf("%w: %s color temperature", ErrNoControl, id)
	}
	l.temperature = geom.Clamp(t, 0, 1)
	if l.loaded() {
		recolorStellar(l.node, l.temperature)
	}
	e.notify(l)
	return nil
}

// SetHeliumIntensity remaps the helium vertex colors from their snapshot.
// f is clamped to [1,2]; 1 restores the original colors.
func (e *Engine) SetHeliumIntensity(f float64) {
	e.heliumIntensity = geom.Clamp(f, 1, 2)
	for _, l := range e.layers {
		if l.def.Kind == catalog.KindHelium && l.loaded() {
			remapHelium(l.originalColors, e.heliumIntensity)
		}
	}
}

// HeliumIntensity returns the current helium color intensity.
func (e *Engine) HeliumIntensity() float64 { return e.heliumIntensity }

// SetGalacticPlaneY moves the galactic map vertically, clamped to
// GalacticPlaneYRange.
func (e *Engine) SetGalacticPlaneY(y float64) {
	e.galacticY = geom.Clamp(y, GalacticPlaneYRange[0], GalacticPlaneYRange[1])
	for _, l := range e.layers {
		if l.def.Kind == catalog.KindGalacticPlane && l.loaded() {
			l.node.Position[1] = float32(e.galacticY)
		}
	}
}

// GalacticPlaneY returns the galactic map's vertical offset.
func (e *Engine) GalacticPlaneY() float64 { return e.galacticY }

// activateGalacticPlane builds the map synchronously; it has no asset to
// fetch beyond its texture, which the renderer resolves.
func (e *Engine) activateGalacticPlane(l *layer) {
	if l.loaded() {
		l.node.Visible = !l.node.Visible
		e.notify(l)
		return
	}
	e.attach(l, galacticPlane(e.cat.GalacticTexture, l.opacity, e.galacticY))
}
