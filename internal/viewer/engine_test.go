package viewer

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"starviewcore/internal/catalog"
	"starviewcore/pkg/viewapi"
	"starviewcore/testutil"
)

func TestEngineStaysBehindFacades(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InfraImportForbidden, "the engine loads through AssetLoader and MetadataSource")
}

func TestNewStartsUnloaded(t *testing.T) {
	e := newTestEngine(t, newFakeLoader(), Options{})
	views := e.Layers()
	if len(views) != len(catalog.Default().Layers) {
		t.Fatalf("expected %d layers, got %d", len(catalog.Default().Layers), len(views))
	}
	for _, v := range views {
		if v.State != viewapi.Unloaded {
			t.Fatalf("expected %s unloaded, got %s", v.ID, v.State)
		}
		if !v.ControlEnabled {
			t.Fatalf("expected %s control enabled", v.ID)
		}
	}
	if len(e.Root().Children) != 0 {
		t.Fatalf("expected empty scene, got %d children", len(e.Root().Children))
	}
	if got := view(t, e, viewapi.StarCloud).Label; got != "Show Star Cloud" {
		t.Fatalf("expected show label, got %q", got)
	}
}

func TestNewDefaultsToDiscardLogger(t *testing.T) {
	e := newTestEngine(t, newFakeLoader(), Options{})
	if e.logger.Handler() != slog.DiscardHandler {
		t.Fatalf("expected discard handler, got %T", e.logger.Handler())
	}
}

func TestNewRejectsInvalidCatalog(t *testing.T) {
	cat := catalog.Default()
	cat.Layers = append(cat.Layers, cat.Layers[0])
	if _, err := New(newFakeLoader(), Options{Catalog: cat}); err == nil {
		t.Fatalf("expected duplicate layer to be rejected")
	}
	if _, err := New(nil, Options{}); err == nil {
		t.Fatalf("expected nil loader to be rejected")
	}
}

func TestUnknownLayer(t *testing.T) {
	e := newTestEngine(t, newFakeLoader(), Options{})
	if err := e.Activate("nope"); !errors.Is(err, ErrUnknownLayer) {
		t.Fatalf("expected ErrUnknownLayer from Activate, got %v", err)
	}
	if _, err := e.Layer("nope"); !errors.Is(err, ErrUnknownLayer) {
		t.Fatalf("expected ErrUnknownLayer from Layer, got %v", err)
	}
	if err := e.SetOpacity("nope", 1); !errors.Is(err, ErrUnknownLayer) {
		t.Fatalf("expected ErrUnknownLayer from SetOpacity, got %v", err)
	}
	if _, err := e.Node(viewapi.StarCloud); !errors.Is(err, ErrLayerNotLoaded) {
		t.Fatalf("expected ErrLayerNotLoaded, got %v", err)
	}
}

func TestActivateWhileLoadingIssuesOneLoad(t *testing.T) {
	loader := newFakeLoader()
	url := urlOf(t, viewapi.StarCloud)
	gate := loader.gate(url)
	e := newTestEngine(t, loader, Options{})

	activate(t, e, viewapi.StarCloud)
	activate(t, e, viewapi.StarCloud)

	v := view(t, e, viewapi.StarCloud)
	if v.State != viewapi.Loading || !v.Loading {
		t.Fatalf("expected loading, got %+v", v)
	}
	if v.ControlEnabled {
		t.Fatalf("expected control disabled while loading")
	}
	if v.Hint != "Loading Star Cloud..." {
		t.Fatalf("expected loading hint, got %q", v.Hint)
	}

	close(gate)
	settle(t, e)
	if n := loader.count(url); n != 1 {
		t.Fatalf("expected 1 load, got %d", n)
	}
	v = view(t, e, viewapi.StarCloud)
	if v.State != viewapi.Loaded || !v.Visible || !v.ControlsVisible {
		t.Fatalf("expected loaded and visible, got %+v", v)
	}
	if v.Label != "Hide Star Cloud" {
		t.Fatalf("expected hide label, got %q", v.Label)
	}
}

func TestActivateIsItsOwnInverse(t *testing.T) {
	ids := []viewapi.LayerID{
		viewapi.StarCloud, viewapi.Helium, viewapi.HMass, viewapi.FMass,
		viewapi.WolfRayet, viewapi.DensityScan, viewapi.GalacticPlane,
	}
	for _, id := range ids {
		t.Run(string(id), func(t *testing.T) {
			e := newTestEngine(t, newFakeLoader(), Options{})
			activate(t, e, id)
			settle(t, e)
			if !view(t, e, id).Visible {
				t.Fatalf("expected visible after load")
			}
			activate(t, e, id)
			v := view(t, e, id)
			if v.Visible || v.ControlsVisible {
				t.Fatalf("expected hidden with controls hidden, got %+v", v)
			}
			activate(t, e, id)
			if !view(t, e, id).Visible {
				t.Fatalf("expected visible again")
			}
		})
	}
}

func TestFailedLoadRetries(t *testing.T) {
	loader := newFakeLoader()
	url := urlOf(t, viewapi.Helium)
	loader.setFail(url, errUnavailable)
	e := newTestEngine(t, loader, Options{})

	activate(t, e, viewapi.Helium)
	settle(t, e)
	v := view(t, e, viewapi.Helium)
	if v.State != viewapi.Failed || v.Hint != catalog.FailedHint || !v.ControlEnabled {
		t.Fatalf("expected failed with hint, got %+v", v)
	}
	var le *LoadError
	if err := e.LastError(viewapi.Helium); !errors.As(err, &le) || le.URL != url || !errors.Is(err, errUnavailable) {
		t.Fatalf("expected LoadError for %s, got %v", url, err)
	}
	if _, err := e.Node(viewapi.Helium); !errors.Is(err, ErrLayerNotLoaded) {
		t.Fatalf("expected failed layer absent from the scene, got %v", err)
	}

	loader.setFail(url, nil)
	activate(t, e, viewapi.Helium)
	settle(t, e)
	if v := view(t, e, viewapi.Helium); v.State != viewapi.Loaded || !v.Visible {
		t.Fatalf("expected retry to load, got %+v", v)
	}
	if err := e.LastError(viewapi.Helium); err != nil {
		t.Fatalf("expected error cleared, got %v", err)
	}
	if n := loader.count(url); n != 2 {
		t.Fatalf("expected 2 loads, got %d", n)
	}
}

func TestDensityScanFallsBackToPlaceholder(t *testing.T) {
	loader := newFakeLoader()
	loader.setFail(urlOf(t, viewapi.DensityScan), errUnavailable)
	e := newTestEngine(t, loader, Options{})

	activate(t, e, viewapi.DensityScan)
	settle(t, e)
	node, err := e.Node(viewapi.DensityScan)
	if err != nil {
		t.Fatalf("expected placeholder to load: %v", err)
	}
	if node.Find("density_placeholder") == nil {
		t.Fatalf("expected placeholder sphere")
	}
}

func TestObserverSeesTransitions(t *testing.T) {
	rec := &recorder{}
	e := newTestEngine(t, newFakeLoader(), Options{Observer: rec})
	activate(t, e, viewapi.StarCloud)
	settle(t, e)
	activate(t, e, viewapi.StarCloud)

	got := rec.states(viewapi.StarCloud)
	want := []viewapi.LoadState{viewapi.Loading, viewapi.Loaded, viewapi.Loaded}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	last := rec.views[len(rec.views)-1]
	if last.Visible || last.Label != "Show Star Cloud" {
		t.Fatalf("expected final view hidden, got %+v", last)
	}
}

func TestTickAppliesReadyCompletions(t *testing.T) {
	e := newTestEngine(t, newFakeLoader(), Options{})
	activate(t, e, viewapi.StarCloud)
	if e.Pending() != 1 {
		t.Fatalf("expected 1 pending, got %d", e.Pending())
	}
	tickUntil(t, e, 1)
	if e.Pending() != 0 {
		t.Fatalf("expected nothing pending, got %d", e.Pending())
	}
	if e.Tick() != 0 {
		t.Fatalf("expected idle tick")
	}
}

func TestSettleHonorsContext(t *testing.T) {
	loader := newFakeLoader()
	gate := loader.gate(urlOf(t, viewapi.StarCloud))
	e := newTestEngine(t, loader, Options{})
	activate(t, e, viewapi.StarCloud)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Settle(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	close(gate)
	settle(t, e)
}

func TestCloseCancelsInflightLoads(t *testing.T) {
	loader := newFakeLoader()
	loader.gate(urlOf(t, viewapi.StarCloud))
	e, err := New(loader, Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	activate(t, e, viewapi.StarCloud)
	if err := e.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	// the completion may or may not have been queued before cancellation
	if err := e.Settle(context.Background()); err != nil && !errors.Is(err, ErrClosed) {
		t.Fatalf("expected nil or ErrClosed, got %v", err)
	}
}
