package assets

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"starviewcore/internal/config"
	"starviewcore/internal/observability"
	"starviewcore/internal/scene"
)

func TestKeyFromURL(t *testing.T) {
	cases := map[string]string{
		"./star_cloud.glb":              "star_cloud.glb",
		"./glbdata/vis_bubbleIGAU.gltf": "glbdata/vis_bubbleIGAU.gltf",
		"/KDEglb/iso_1e-05_draco.glb":   "KDEglb/iso_1e-05_draco.glb",
		"DW3/scans.glb":                 "DW3/scans.glb",
		"  ":                            "",
	}
	for in, want := range cases {
		if got := KeyFromURL(in); got != want {
			t.Fatalf("KeyFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func sampleScene() *scene.Node {
	root := scene.NewGroup("Scene")
	pts := scene.NewDrawable("mesh0", scene.KindPoints, &scene.Geometry{
		Positions: []float32{0, 0, 0, 100, 0, 0},
		Colors:    []float32{1, 0, 0, 0, 0, 1},
	}, scene.NewMaterial())
	pts.Position = mgl32.Vec3{5, 0, 0}
	root.Add(pts)
	return root
}

func seed(t *testing.T, store Store, key string, payload []byte) {
	t.Helper()
	if _, err := store.Put(context.Background(), key, bytes.NewReader(payload), PutOptions{}); err != nil {
		t.Fatalf("seed %s: %v", key, err)
	}
}

func TestLoaderDecodesSceneDocuments(t *testing.T) {
	store := NewMemory()
	doc, err := MarshalScene(sampleScene())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// baked under a .glb name: no decoder is registered for it so the
	// payload is sniffed
	seed(t, store, "helium_levels.glb", doc)
	seed(t, store, "cloud.json", doc)

	rec := observability.NewExpvarMetricsRecorder("")
	tracer := observability.NewJSONTracer(nil)
	l := NewLoader(store, LoaderOptions{Metrics: rec, Tracer: tracer})
	for _, url := range []string{"./helium_levels.glb", "cloud.json"} {
		node, err := l.Load(context.Background(), url)
		if err != nil {
			t.Fatalf("load %s: %v", url, err)
		}
		pts := node.Find("mesh0")
		if pts == nil || pts.Kind != scene.KindPoints || pts.Geometry.Count() != 2 || !pts.Material.VertexColors {
			t.Fatalf("unexpected decoded points %+v", pts)
		}
		if pts.Position != (mgl32.Vec3{5, 0, 0}) {
			t.Fatalf("expected translation to survive, got %v", pts.Position)
		}
	}
	if got := rec.Snapshot().Results[opLoad]["success"]; got != 2 {
		t.Fatalf("expected 2 successful loads recorded, got %d", got)
	}
	if len(tracer.Entries()) != 2 {
		t.Fatalf("expected 2 spans")
	}
}

func TestLoaderErrors(t *testing.T) {
	store := NewMemory()
	seed(t, store, "star_cloud.glb", []byte("glTF\x02\x00\x00\x00"))
	seed(t, store, "Star_Type_Glb/mass_code_7.gltf", []byte(`{"asset":{"version":"2.0"}}`))
	seed(t, store, "noise.bin", []byte{0x00, 0x01})
	seed(t, store, "bad.json", []byte(`{"format":"starview.scene/v1","root":{"name":"x","kind":"points","positions":[1,2]}}`))
	rec := observability.NewExpvarMetricsRecorder("")
	l := NewLoader(store, LoaderOptions{Metrics: rec})
	ctx := context.Background()

	for _, url := range []string{"star_cloud.glb", "Star_Type_Glb/mass_code_7.gltf", "noise.bin"} {
		if _, err := l.Load(ctx, url); !errors.Is(err, ErrUnsupportedFormat) {
			t.Fatalf("%s: expected ErrUnsupportedFormat, got %v", url, err)
		}
	}
	if _, err := l.Load(ctx, "bad.json"); err == nil || errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if _, err := l.Load(ctx, "missing.glb"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := l.Load(ctx, ""); err == nil {
		t.Fatalf("expected empty url error")
	}
	if got := rec.Snapshot().Results[opLoad]["error"]; got != 1 {
		t.Fatalf("expected only the missing asset as a fetch failure, got %d", got)
	}
}

func TestLoaderRegisteredDecoderWins(t *testing.T) {
	store := NewMemory()
	seed(t, store, "DW3/scans.glb", []byte("glTF...."))
	l := NewLoader(store, LoaderOptions{})
	l.RegisterDecoder(".GLB", DecoderFunc(func(key string, data []byte) (*scene.Node, error) {
		return scene.NewGroup(""), nil
	}))
	node, err := l.Load(context.Background(), "./DW3/scans.glb")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if node.Name != "DW3/scans.glb" {
		t.Fatalf("expected unnamed roots to take the key, got %q", node.Name)
	}
}

func TestLoaderFetch(t *testing.T) {
	store := NewMemory()
	seed(t, store, "colonytargetCloud_meta.json", []byte(`[{"systemId":"A"}]`))
	l := NewLoader(store, LoaderOptions{})
	b, err := l.Fetch(context.Background(), "./colonytargetCloud_meta.json")
	if err != nil || !strings.Contains(string(b), "systemId") {
		t.Fatalf("fetch: %v %s", err, b)
	}
}

type gatedStore struct {
	Store
	gate     chan struct{}
	inflight atomic.Int32
	max      atomic.Int32
}

func (g *gatedStore) Get(ctx context.Context, key string) (Info, io.ReadCloser, error) {
	n := g.inflight.Add(1)
	for {
		m := g.max.Load()
		if n <= m || g.max.CompareAndSwap(m, n) {
			break
		}
	}
	<-g.gate
	g.inflight.Add(-1)
	return g.Store.Get(ctx, key)
}

func TestLoaderBoundsConcurrency(t *testing.T) {
	mem := NewMemory()
	doc, _ := MarshalScene(sampleScene())
	for _, k := range []string{"a.json", "b.json", "c.json", "d.json", "e.json"} {
		seed(t, mem, k, doc)
	}
	gs := &gatedStore{Store: mem, gate: make(chan struct{})}
	l := NewLoader(gs, LoaderOptions{MaxConcurrent: 2})
	var wg sync.WaitGroup
	for _, k := range []string{"a.json", "b.json", "c.json", "d.json", "e.json"} {
		wg.Add(1)
		go func(k string) {
			defer wg.Done()
			if _, err := l.Load(context.Background(), k); err != nil {
				t.Errorf("load %s: %v", k, err)
			}
		}(k)
	}
	time.Sleep(50 * time.Millisecond)
	close(gs.gate)
	wg.Wait()
	if got := gs.max.Load(); got > 2 || got < 1 {
		t.Fatalf("expected at most 2 concurrent fetches, saw %d", got)
	}
}

func TestLoaderHonoursCancellation(t *testing.T) {
	gs := &gatedStore{Store: NewMemory(), gate: make(chan struct{})}
	l := NewLoader(gs, LoaderOptions{MaxConcurrent: 1})
	done := make(chan struct{})
	go func() {
		_, _ = l.Load(context.Background(), "blocker.json")
		close(done)
	}()
	for gs.inflight.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Load(ctx, "other.json"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation while waiting for a slot, got %v", err)
	}
	close(gs.gate)
	<-done
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.AssetDriver = "memory"
	s, err := Open(ctx, cfg)
	if err != nil || s.Driver() != DriverMemory {
		t.Fatalf("memory open: %v", err)
	}
	cfg.AssetDriver = "fs"
	cfg.AssetRoot = t.TempDir()
	s, err = Open(ctx, cfg)
	if err != nil || s.Driver() != DriverFilesystem {
		t.Fatalf("fs open: %v", err)
	}
	cfg.AssetDriver = "tape"
	if _, err := Open(ctx, cfg); err == nil {
		t.Fatalf("expected unknown driver error")
	}
	if NewMockS3ForTests("").Driver() != DriverS3 {
		t.Fatalf("expected s3 mock")
	}
}

func TestNewLoaderDefaultsToDiscardLogger(t *testing.T) {
	l := NewLoader(NewMemory(), LoaderOptions{})
	if l.logger.Handler() != slog.DiscardHandler {
		t.Fatalf("expected discard handler, got %T", l.logger.Handler())
	}
}
