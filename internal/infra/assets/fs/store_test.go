package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"starviewcore/internal/assets/core"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestStore_PutGetHeadListDelete(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	info, err := store.Put(ctx, "KDEglb/iso_0.1_draco.glb", bytes.NewReader([]byte("hello")), core.PutOptions{ContentType: "model/gltf-binary", Metadata: map[string]string{"k": "v"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "KDEglb/iso_0.1_draco.glb" || info.Size != 5 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "KDEglb/iso_0.1_draco.glb", bytes.NewReader([]byte("x")), core.PutOptions{}); err == nil {
		t.Fatalf("expected duplicate failure")
	}
	h, err := store.Head(ctx, "KDEglb/iso_0.1_draco.glb")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if h.ContentType != "model/gltf-binary" || h.Metadata["k"] != "v" {
		t.Fatalf("expected sidecar metadata, got %+v", h)
	}
	g, rc, err := store.Get(ctx, "KDEglb/iso_0.1_draco.glb")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	if err := rc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if string(b) != "hello" || g.ETag != h.ETag {
		t.Fatalf("unexpected get artifacts")
	}
	list, err := store.List(ctx, "KDEglb/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Key != "KDEglb/iso_0.1_draco.glb" {
		t.Fatalf("unexpected list %+v", list)
	}
	url, err := store.PresignURL(ctx, "KDEglb/iso_0.1_draco.glb", core.SignedURLOptions{})
	if err != nil || !strings.HasPrefix(url, "file://") {
		t.Fatalf("presign url: %v %s", err, url)
	}
	ok, err := store.Delete(ctx, "KDEglb/iso_0.1_draco.glb")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = store.Delete(ctx, "KDEglb/iso_0.1_draco.glb")
	if err != nil || ok {
		t.Fatalf("second delete should be false")
	}
}

func TestStore_ServesBakedFilesWithoutSidecar(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	dir := filepath.Join(store.Root(), "GuardianGLB")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "guardian_ruins.glb"), []byte("glTF...."), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	info, rc, err := store.Get(ctx, "GuardianGLB/guardian_ruins.glb")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = rc.Close()
	if info.Size != 8 || info.ETag != "" {
		t.Fatalf("unexpected info for baked file %+v", info)
	}
	list, err := store.List(ctx, "")
	if err != nil || len(list) != 1 {
		t.Fatalf("expected the baked file in listing, got %+v %v", list, err)
	}
}

func TestStore_MissingKeyIsNotFound(t *testing.T) {
	store := newTempStore(t)
	if _, _, err := store.Get(context.Background(), "nope.glb"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Head(context.Background(), "nope.glb"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
}

func TestStore_PathTraversal(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	for _, key := range []string{"../escape.txt", "/abs.glb", "  "} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte("x")), core.PutOptions{}); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
		if _, _, err := store.Get(ctx, key); err == nil {
			t.Fatalf("expected get error for key %q", key)
		}
	}
}

func TestStore_CorruptSidecar(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Put(ctx, "a.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := os.WriteFile(filepath.Join(store.Root(), "a.json.meta"), []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.Head(ctx, "a.json"); err == nil {
		t.Fatalf("expected sidecar decode error")
	}
}
