package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPredicates(t *testing.T) {
	cases := []struct {
		in       string
		internal bool
		infra    bool
	}{
		{"starviewcore/internal/viewer", true, false},
		{"starviewcore/internal/infra/assets/s3", true, true},
		{"starviewcore/internal/infra", true, true},
		{"starviewcore/infra", false, false},
		{"starviewcore/pkg/viewapi", false, false},
		{"internal", false, false},
		{"", false, false},
	}
	for _, c := range cases {
		if got := InternalImportForbidden(c.in); got != c.internal {
			t.Fatalf("InternalImportForbidden(%q) = %v, want %v", c.in, got, c.internal)
		}
		if got := InfraImportForbidden(c.in); got != c.infra {
			t.Fatalf("InfraImportForbidden(%q) = %v, want %v", c.in, got, c.infra)
		}
	}
	either := AnyOf(InfraImportForbidden, func(p string) bool { return p == "os/exec" })
	if !either("os/exec") || !either("x/internal/infra/y") || either("fmt") {
		t.Fatalf("expected AnyOf to match either predicate")
	}
}

func writeFile(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirectImportsScansOnlyPackageSources(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package tmp\nimport (\n\t\"fmt\"\n\tx \"example.com/m/internal/infra/s3\"\n)\nvar _ = fmt.Sprint\nvar _ = x.Y\n")
	writeFile(t, dir, "b.go", "package tmp\nimport \"example.com/m/internal/infra/fs\"\n")
	writeFile(t, dir, "a_test.go", "package tmp\nimport \"example.com/m/internal/infra/pg\"\n")
	writeFile(t, dir, "notes.txt", "import \"example.com/m/internal/infra/txt\"")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(dir, "sub"), "c.go", "package sub\nimport \"example.com/m/internal/infra/sub\"\n")

	got, err := DirectImports(dir, InfraImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	want := []string{
		"example.com/m/internal/infra/fs (in b.go)",
		"example.com/m/internal/infra/s3 (in a.go)",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestDirectImportsErrors(t *testing.T) {
	if _, err := DirectImports(filepath.Join(t.TempDir(), "missing"), InfraImportForbidden); err == nil {
		t.Fatalf("expected missing dir error")
	}
	dir := t.TempDir()
	writeFile(t, dir, "bad.go", "package\n")
	if _, err := DirectImports(dir, InfraImportForbidden); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestAssertNoDirectImportsPasses(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ok.go", "package tmp\nimport \"fmt\"\nvar _ = fmt.Sprint\n")
	AssertNoDirectImports(t, dir, InternalImportForbidden, "stdlib only")
}

type captured struct{ msg string }

func (c *captured) Fatalf(format string, args ...any) { c.msg = fmt.Sprintf(format, args...) }

func TestReport(t *testing.T) {
	var c captured
	report(&c, "forbidden direct imports", "layering", nil)
	if c.msg != "" {
		t.Fatalf("expected no failure, got %q", c.msg)
	}
	report(&c, "forbidden direct imports", "layering", []string{"a", "b"})
	if !strings.Contains(c.msg, "(layering)") || !strings.Contains(c.msg, "a\nb") {
		t.Fatalf("expected violations listed, got %q", c.msg)
	}
}

func TestMatchingUsesGoListOutput(t *testing.T) {
	orig := goListDeps
	defer func() { goListDeps = orig }()
	goListDeps = func(string) ([]byte, error) {
		return []byte("fmt\nstarviewcore/pkg/viewapi\n\n"), nil
	}
	AssertNoTransitiveDependency(t, ".", InternalImportForbidden, "fake deps")

	goListDeps = func(string) ([]byte, error) {
		return []byte("fmt\nstarviewcore/internal/scene\n"), nil
	}
	out, _ := goListDeps(".")
	got := matching(strings.Split(string(out), "\n"), InternalImportForbidden)
	if len(got) != 1 || got[0] != "starviewcore/internal/scene" {
		t.Fatalf("expected internal dep flagged, got %v", got)
	}
}
