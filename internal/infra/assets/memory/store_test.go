package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"starviewcore/internal/assets/core"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	if s.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	if _, err := s.Put(ctx, "DW3/scans.glb", strings.NewReader("abc"), core.PutOptions{ContentType: "model/gltf-binary", Metadata: map[string]string{"a": "b"}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "DW3/scans.glb", strings.NewReader("x"), core.PutOptions{}); err == nil {
		t.Fatalf("expected duplicate error")
	}
	info, rc, err := s.Get(ctx, "DW3/scans.glb")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	if string(b) != "abc" || info.Size != 3 {
		t.Fatalf("unexpected body %q size %d", b, info.Size)
	}
	info.Metadata["a"] = "mutated"
	h, _ := s.Head(ctx, "DW3/scans.glb")
	if h.Metadata["a"] != "b" {
		t.Fatalf("expected metadata to be copied")
	}
	list, _ := s.List(ctx, "DW3/")
	if len(list) != 1 {
		t.Fatalf("expected one listed asset")
	}
	if s.Gets("DW3/scans.glb") != 1 {
		t.Fatalf("expected one recorded get")
	}
	if ok, _ := s.Delete(ctx, "DW3/scans.glb"); !ok {
		t.Fatalf("expected delete true")
	}
	if ok, _ := s.Delete(ctx, "DW3/scans.glb"); ok {
		t.Fatalf("expected second delete false")
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := New()
	if _, _, err := s.Get(context.Background(), "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Head(context.Background(), "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
	if s.Gets("missing") != 1 {
		t.Fatalf("expected failed gets to be counted")
	}
}
