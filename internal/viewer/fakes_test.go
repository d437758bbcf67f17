package viewer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"starviewcore/internal/catalog"
	"starviewcore/internal/scene"
	"starviewcore/pkg/viewapi"
)

var errUnavailable = errors.New("asset unavailable")

// fakeLoader serves a fresh single-mesh scene per URL unless told to fail,
// block or build something else.
type fakeLoader struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
	gates map[string]chan struct{}
	build map[string]func() *scene.Node
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		calls: make(map[string]int),
		fail:  make(map[string]error),
		gates: make(map[string]chan struct{}),
		build: make(map[string]func() *scene.Node),
	}
}

func (f *fakeLoader) Load(ctx context.Context, url string) (*scene.Node, error) {
	f.mu.Lock()
	f.calls[url]++
	gate := f.gates[url]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	err := f.fail[url]
	build := f.build[url]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if build != nil {
		return build(), nil
	}
	return meshScene(url), nil
}

func (f *fakeLoader) setFail(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, url)
		return
	}
	f.fail[url] = err
}

func (f *fakeLoader) gate(url string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[url] = ch
	return ch
}

func (f *fakeLoader) setBuild(url string, fn func() *scene.Node) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.build[url] = fn
}

func (f *fakeLoader) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func meshScene(name string) *scene.Node {
	root := scene.NewGroup(name)
	root.Add(scene.NewDrawable("mesh", scene.KindMesh, &scene.Geometry{Positions: []float32{0, 0, 0}}, scene.NewMaterial()))
	return root
}

func pointScene(name string, positions ...float32) *scene.Node {
	root := scene.NewGroup(name)
	root.Add(scene.NewDrawable("points", scene.KindPoints, &scene.Geometry{Positions: positions}, scene.NewMaterial()))
	return root
}

type fakeMeta struct {
	mu      sync.Mutex
	entries []viewapi.ColonyMeta
	err     error
	calls   int
}

func (f *fakeMeta) ColonyMetadata(context.Context, string) ([]viewapi.ColonyMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]viewapi.ColonyMeta(nil), f.entries...), nil
}

type recorder struct {
	views []viewapi.LayerView
}

func (r *recorder) LayerStateChanged(_ viewapi.LayerID, v viewapi.LayerView) {
	r.views = append(r.views, v)
}

func (r *recorder) states(id viewapi.LayerID) []viewapi.LoadState {
	var out []viewapi.LoadState
	for _, v := range r.views {
		if v.ID == id {
			out = append(out, v.State)
		}
	}
	return out
}

func newTestEngine(t *testing.T, loader *fakeLoader, opts Options) *Engine {
	t.Helper()
	e, err := New(loader, opts)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := e.Close(ctx); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return e
}

func settle(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.Settle(ctx); err != nil {
		t.Fatalf("settle: %v", err)
	}
}

// tickUntil applies completions until n have been applied.
func tickUntil(t *testing.T, e *Engine, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	applied := 0
	for applied < n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d completions, got %d", n, applied)
		}
		applied += e.Tick()
		if applied < n {
			time.Sleep(time.Millisecond)
		}
	}
}

func activate(t *testing.T, e *Engine, id viewapi.LayerID) {
	t.Helper()
	if err := e.Activate(id); err != nil {
		t.Fatalf("activate %s: %v", id, err)
	}
}

func view(t *testing.T, e *Engine, id viewapi.LayerID) viewapi.LayerView {
	t.Helper()
	v, err := e.Layer(id)
	if err != nil {
		t.Fatalf("layer %s: %v", id, err)
	}
	return v
}

func urlOf(t *testing.T, id viewapi.LayerID) string {
	t.Helper()
	l, ok := catalog.Default().Layer(id)
	if !ok {
		t.Fatalf("no catalog layer %s", id)
	}
	return l.URL
}
