package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	logx "dutyroster/pkg/logx"
)

// DefaultFileName is the state file looked up next to the executable.
const DefaultFileName = "duty_config.ini"

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = "ini"
	}
	if strings.TrimSpace(cfg.Path) == "" {
		cfg.Path = DefaultPath(driver)
	}

	switch driver {
	case "ini", "file":
		return openINI(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + cfg.Driver)
	}
}

// DefaultPath places the state file in the executable's directory, falling
// back to the working directory when the executable path is unknown.
func DefaultPath(driver string) string {
	name := DefaultFileName
	if driver == "sqlite" || driver == "sqlite3" {
		name = "duty_state.db"
	}
	exe, err := os.Executable()
	if err != nil {
		return name
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), name)
}
