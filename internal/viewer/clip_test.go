package viewer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"starviewcore/internal/geom"
	"starviewcore/internal/scene"
	"starviewcore/pkg/viewapi"
)

func TestClipSlabBounds(t *testing.T) {
	e := newTestEngine(t, newFakeLoader(), Options{})
	if e.ClipPlanes() != nil || e.LocalClipping() {
		t.Fatalf("expected clipping off by default")
	}
	e.EnableClipping()
	c := e.Clip()
	if c.Axis != "x" || c.Center != 0 || c.ThicknessIndex != 0 || c.Thickness != 10 {
		t.Fatalf("unexpected default slab %+v", c)
	}
	planes := e.ClipPlanes()
	if len(planes) != 2 || !e.LocalClipping() {
		t.Fatalf("expected two planes with local clipping on")
	}
	cases := []struct {
		x    float32
		kept bool
	}{
		{-5.5, false},
		{-5, true},
		{0, true},
		{5, true},
		{5.5, false},
	}
	for _, tc := range cases {
		if got := geom.KeptByAll(planes, mgl32.Vec3{tc.x, 1000, -1000}); got != tc.kept {
			t.Fatalf("x=%v: expected kept=%v", tc.x, tc.kept)
		}
	}
	if c.Label != "Disable Clipping Slab" || c.ThicknessLabel != "Slice Thickness: 10" {
		t.Fatalf("unexpected labels %q %q", c.Label, c.ThicknessLabel)
	}
}

func TestClipAxisChangeRecenters(t *testing.T) {
	e := newTestEngine(t, newFakeLoader(), Options{})
	e.EnableClipping()
	e.SetClipThicknessIndex(5)
	e.SetClipCenter(1234)

	if err := e.SetClipAxis("y"); err != nil {
		t.Fatalf("set axis: %v", err)
	}
	c := e.Clip()
	if c.Axis != "y" || c.Center != AxisRanges[geom.AxisY].Mid() || c.ThicknessIndex != 0 {
		t.Fatalf("expected y slab recentred, got %+v", c)
	}
	if err := e.SetClipAxis("x"); err != nil {
		t.Fatalf("set axis: %v", err)
	}
	if c := e.Clip(); c.Center != 25000 {
		t.Fatalf("expected x midpoint 25000, got %v", c.Center)
	}
	if err := e.SetClipAxis("w"); err == nil {
		t.Fatalf("expected unknown axis to be rejected")
	}
	if c := e.Clip(); c.Axis != "x" {
		t.Fatalf("expected axis unchanged after bad input, got %s", c.Axis)
	}
}

func TestClipClamps(t *testing.T) {
	e := newTestEngine(t, newFakeLoader(), Options{})
	e.SetClipCenter(1e9)
	if c := e.Clip(); c.Center != AxisRanges[geom.AxisX].Max {
		t.Fatalf("expected center clamped, got %v", c.Center)
	}
	e.SetClipThicknessIndex(99)
	if c := e.Clip(); c.ThicknessIndex != len(ThicknessSteps)-1 || c.Thickness != 90000 {
		t.Fatalf("expected thickest step, got %+v", c)
	}
	e.SetClipThicknessIndex(-1)
	if c := e.Clip(); c.ThicknessIndex != 0 {
		t.Fatalf("expected thinnest step, got %+v", c)
	}
}

func isoMaterials(e *Engine) []*scene.Material {
	var out []*scene.Material
	e.iso.eachMaterial(func(m *scene.Material) { out = append(out, m) })
	return out
}

func TestClipFollowsIsoLevels(t *testing.T) {
	loader := newFakeLoader()
	urls := isoURLs(t)
	late := loader.gate(urls[6])
	rec := &recorder{}
	e := newTestEngine(t, loader, Options{Observer: rec})
	activate(t, e, viewapi.IsoStack)
	tickUntil(t, e, 6)

	e.EnableClipping()
	mats := isoMaterials(e)
	if len(mats) != 6 {
		t.Fatalf("expected 6 materials, got %d", len(mats))
	}
	for _, m := range mats {
		if len(m.ClipPlanes) != 2 || !m.ClipShadows {
			t.Fatalf("expected slab on every loaded level")
		}
	}

	close(late)
	settle(t, e)
	for _, m := range isoMaterials(e) {
		if len(m.ClipPlanes) != 2 {
			t.Fatalf("expected late level to pick up the slab")
		}
	}

	e.SetClipCenter(100)
	for _, m := range isoMaterials(e) {
		if m.ClipPlanes[0].Constant != -95 {
			t.Fatalf("expected planes moved with the center, got %v", m.ClipPlanes[0].Constant)
		}
	}

	e.ToggleClipping()
	for _, m := range isoMaterials(e) {
		if m.ClipPlanes != nil || m.ClipShadows {
			t.Fatalf("expected planes cleared")
		}
	}
	if e.LocalClipping() || e.Clip().Label != "Enable Clipping Slab" {
		t.Fatalf("expected clipping disabled")
	}
	last := rec.views[len(rec.views)-1]
	if last.ID != viewapi.ClipSlab || last.Visible {
		t.Fatalf("expected clip slab notification, got %+v", last)
	}
}
