package viewer

import (
	"fmt"

	"starviewcore/internal/geom"
	"starviewcore/internal/scene"
	"starviewcore/pkg/viewapi"
)

// ThicknessSteps are the selectable slab thicknesses, ascending.
var ThicknessSteps = []float64{10, 20, 40, 80, 150, 300, 600, 1200, 2500, 5000, 10000, 20000, 40000, 90000}

// AxisRanges bounds the slab center per axis.
var AxisRanges = map[geom.Axis]viewapi.Range{
	geom.AxisX: {Min: -20000, Max: 70000},
	geom.AxisY: {Min: -10000, Max: 10000},
	geom.AxisZ: {Min: -45000, Max: 45000},
}

type clipSlab struct {
	axis           geom.Axis
	center         float64
	thicknessIndex int
	enabled        bool
	// localClipping mirrors the renderer switch that makes per-material
	// clip planes take effect.
	localClipping bool
}

func newClipSlab() clipSlab { return clipSlab{axis: geom.AxisX} }

func (c clipSlab) thickness() float64 {
	return ThicknessSteps[clampIndex(c.thicknessIndex, len(ThicknessSteps))]
}

func (c clipSlab) planes() []geom.Plane {
	p := geom.SlabPlanes(c.axis, c.center, c.thickness())
	return p[:]
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// EnableClipping turns on clip support and applies the slab to every loaded
// iso level.
func (e *Engine) EnableClipping() {
	if e.clip.enabled {
		return
	}
	e.clip.enabled = true
	e.clip.localClipping = true
	e.applyClip()
	e.notifyClip()
}

// DisableClipping removes the slab from every iso level and turns clip
// support off.
func (e *Engine) DisableClipping() {
	if !e.clip.enabled {
		return
	}
	e.clip.enabled = false
	e.clip.localClipping = false
	if e.iso != nil {
		e.iso.eachMaterial(func(m *scene.Material) {
			m.ClipPlanes = nil
			m.ClipShadows = false
		})
	}
	e.notifyClip()
}

// ToggleClipping flips between enabled and disabled.
func (e *Engine) ToggleClipping() {
	if e.clip.enabled {
		e.DisableClipping()
		return
	}
	e.EnableClipping()
}

// SetClipAxis switches the slab axis. The center moves to the middle of the
// new axis range and the thickness resets to the thinnest step.
func (e *Engine) SetClipAxis(axis string) error {
	a, err := geom.ParseAxis(axis)
	if err != nil {
		return fmt.Errorf("clip axis: %w", err)
	}
	e.clip.axis = a
	e.clip.center = AxisRanges[a].Mid()
	e.clip.thicknessIndex = 0
	e.applyClip()
	e.notifyClip()
	return nil
}

// SetClipCenter moves the slab center, clamped to the axis range.
func (e *Engine) SetClipCenter(center float64) {
	r := AxisRanges[e.clip.axis]
	e.clip.center = geom.Clamp(center, r.Min, r.Max)
	e.applyClip()
	e.notifyClip()
}

// SetClipThicknessIndex selects a ThicknessSteps entry, clamped to the table.
func (e *Engine) SetClipThicknessIndex(i int) {
	e.clip.thicknessIndex = clampIndex(i, len(ThicknessSteps))
	e.applyClip()
	e.notifyClip()
}

// ClipPlanes returns the active slab planes, or nil when clipping is off.
func (e *Engine) ClipPlanes() []geom.Plane {
	if !e.clip.enabled {
		return nil
	}
	return e.clip.planes()
}

// LocalClipping reports whether the renderer should honor material clip
// planes.
func (e *Engine) LocalClipping() bool { return e.clip.localClipping }

// Clip returns the slab state for slider binding.
func (e *Engine) Clip() viewapi.ClipView {
	label := "Enable Clipping Slab"
	if e.clip.enabled {
		label = "Disable Clipping Slab"
	}
	return viewapi.ClipView{
		Enabled:        e.clip.enabled,
		Axis:           string(e.clip.axis),
		Center:         e.clip.center,
		CenterRange:    AxisRanges[e.clip.axis],
		ThicknessIndex: e.clip.thicknessIndex,
		Thickness:      e.clip.thickness(),
		Label:          label,
		ThicknessLabel: fmt.Sprintf("Slice Thickness: %v", e.clip.thickness()),
	}
}

// applyClip assigns the current planes to every loaded iso material. Levels
// that arrive later pick the planes up on arrival.
func (e *Engine) applyClip() {
	if !e.clip.enabled || e.iso == nil {
		return
	}
	planes := e.clip.planes()
	e.iso.eachMaterial(func(m *scene.Material) {
		m.ClipPlanes = append([]geom.Plane(nil), planes...)
		m.ClipShadows = true
	})
}

func (e *Engine) notifyClip() {
	c := e.Clip()
	e.observer.LayerStateChanged(viewapi.ClipSlab, viewapi.LayerView{
		ID:              viewapi.ClipSlab,
		Label:           c.Label,
		State:           viewapi.Loaded,
		Visible:         c.Enabled,
		ControlEnabled:  true,
		ControlsVisible: c.Enabled,
		Opacity:         1,
	})
}
