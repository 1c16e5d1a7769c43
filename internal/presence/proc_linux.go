//go:build linux

package presence

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
)

// procSignal scans /proc/<pid>/cmdline for configured patterns.
type procSignal struct {
	root     string
	patterns []string
}

func newProcessSignal(patterns []string) Signal {
	return &procSignal{root: "/proc", patterns: normalizePatterns(patterns)}
}

func (p *procSignal) FullscreenActive(ctx context.Context) (bool, error) {
	if len(p.patterns) == 0 {
		return false, nil
	}
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if !e.IsDir() || !isPID(e.Name()) {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(p.root, e.Name(), "cmdline"))
		if err != nil || len(raw) == 0 {
			// Processes exit while we scan.
			continue
		}
		if matchCmdline(raw, p.patterns) {
			return true, nil
		}
	}
	return false, nil
}

func isPID(name string) bool {
	for i := 0; i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			return false
		}
	}
	return name != ""
}

func matchCmdline(raw []byte, patterns []string) bool {
	cmd := strings.ToLower(string(bytes.TrimRight(bytes.ReplaceAll(raw, []byte{0}, []byte{' '}), " ")))
	// Match on the executable basename so "/usr/lib/libreoffice/program/soffice.bin --show" hits.
	if i := strings.IndexByte(cmd, ' '); i >= 0 {
		cmd = filepath.Base(cmd[:i]) + cmd[i:]
	} else {
		cmd = filepath.Base(cmd)
	}
	for _, p := range patterns {
		if strings.Contains(cmd, p) {
			return true
		}
	}
	return false
}
