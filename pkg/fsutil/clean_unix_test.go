//go:build unix

package fsutil_test

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/releasekit/releasectl/pkg/fsutil"
)

func TestCleanDir_BrokenEntry(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "game.bin"), "x")

	fifo := filepath.Join(dir, "sub", "pipe")
	if err := os.MkdirAll(filepath.Dir(fifo), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := syscall.Mkfifo(fifo, 0o644); err != nil {
		t.Skipf("mkfifo unsupported: %v", err)
	}

	_, err := fsutil.CleanDir(dir, ".itch", 8)
	if !errors.Is(err, fsutil.ErrBrokenEntry) {
		t.Fatalf("expected broken entry error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "game.bin")); err != nil {
		t.Error("nothing should be removed when the scan fails")
	}
}
