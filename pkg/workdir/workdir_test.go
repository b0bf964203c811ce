package workdir_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/releasekit/releasectl/pkg/workdir"
)

func sameDir(t *testing.T, a, b string) bool {
	t.Helper()
	ra, err := filepath.EvalSymlinks(a)
	if err != nil {
		t.Fatal(err)
	}
	rb, err := filepath.EvalSymlinks(b)
	if err != nil {
		t.Fatal(err)
	}
	return ra == rb
}

func TestEnterRestore(t *testing.T) {
	start, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	target := t.TempDir()

	scope, err := workdir.Enter(target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = scope.Restore() })

	now, _ := os.Getwd()
	if !sameDir(t, now, target) {
		t.Errorf("expected to be in %s, got %s", target, now)
	}

	if err := scope.Restore(); err != nil {
		t.Fatalf("unexpected restore error: %v", err)
	}
	if err := scope.Restore(); err != nil {
		t.Fatalf("second restore should be a no-op: %v", err)
	}

	now, _ = os.Getwd()
	if !sameDir(t, now, start) {
		t.Errorf("expected to be back in %s, got %s", start, now)
	}
	if scope.Original() != start {
		t.Errorf("unexpected original %s", scope.Original())
	}
}

func TestEnter_MissingDirectory(t *testing.T) {
	start, _ := os.Getwd()

	if _, err := workdir.Enter(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error")
	}

	now, _ := os.Getwd()
	if now != start {
		t.Errorf("failed enter must not move the process, now in %s", now)
	}
}

func TestRestore_NilScope(t *testing.T) {
	var scope *workdir.Scope
	if err := scope.Restore(); err != nil {
		t.Errorf("nil scope restore should be a no-op, got %v", err)
	}
}
