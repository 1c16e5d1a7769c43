package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// Lock is an advisory single-writer lock beside the state file
// (<path>.lock). The daemon holds it for its lifetime; CLI commands hold it
// for one load-mutate-save cycle.
type Lock struct {
	fl *flock.Flock
}

// LockPath derives the lock file path for a state path.
func LockPath(statePath string) string {
	return strings.TrimSpace(statePath) + ".lock"
}

// AcquireLock takes the lock without waiting. It returns ErrLocked when
// another process owns the state.
func AcquireLock(statePath string) (*Lock, error) {
	path := LockPath(statePath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, path)
	}
	return &Lock{fl: fl}, nil
}

func (l *Lock) Path() string {
	if l == nil || l.fl == nil {
		return ""
	}
	return l.fl.Path()
}

// Release unlocks; safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil || !l.fl.Locked() {
		return nil
	}
	return l.fl.Unlock()
}
