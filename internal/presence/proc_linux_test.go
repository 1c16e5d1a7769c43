//go:build linux

package presence

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeProc(t *testing.T, root, pid string, args ...string) {
	t.Helper()
	dir := filepath.Join(root, pid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	var raw []byte
	for _, a := range args {
		raw = append(raw, a...)
		raw = append(raw, 0)
	}
	if err := os.WriteFile(filepath.Join(dir, "cmdline"), raw, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestProcSignal(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeProc(t, root, "1", "/sbin/init")
	writeProc(t, root, "200", "/usr/lib/libreoffice/program/soffice.bin", "--writer")
	if err := os.MkdirAll(filepath.Join(root, "self"), 0o755); err != nil {
		t.Fatal(err)
	}
	p := &procSignal{root: root, patterns: normalizePatterns([]string{"soffice.bin --show"})}

	active, err := p.FullscreenActive(context.Background())
	if err != nil || active {
		t.Fatalf("active=%v err=%v, want inactive", active, err)
	}
	writeProc(t, root, "201", "/usr/lib/libreoffice/program/soffice.bin", "--show", "deck.odp")
	active, err = p.FullscreenActive(context.Background())
	if err != nil || !active {
		t.Fatalf("active=%v err=%v, want active", active, err)
	}
}
