package storage

import (
	"context"
	"errors"
	"time"

	"dutyroster/internal/roster"
)

var (
	ErrLocked = errors.New("state is owned by another running instance")
	ErrClosed = errors.New("storage closed")
)

// Store is the persistence API used by the roster host and the CLI.
type Store interface {
	// Load returns the persisted state. ok is false when nothing was stored
	// yet, in which case st is roster.DefaultState().
	Load(ctx context.Context) (st roster.State, ok bool, err error)
	Save(ctx context.Context, st roster.State) error
	AppendAudit(ctx context.Context, e AuditEntry) error
	// RecentAudit returns up to n entries, newest last.
	RecentAudit(ctx context.Context, n int) ([]AuditEntry, error)
	Close() error
}

// Config configures storage.
//
// Driver values:
//   - "ini" (default): INI file at Path
//   - "sqlite": SQLite database file at Path
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// AuditEntry records one roster change. Keep it compact and schema-stable.
type AuditEntry struct {
	ID      string    `json:"id"`
	At      time.Time `json:"at"`
	Action  string    `json:"action"`
	Actor   string    `json:"actor"`
	Date    string    `json:"date,omitempty"`
	Before1 int       `json:"before1"`
	Before2 int       `json:"before2"`
	After1  int       `json:"after1"`
	After2  int       `json:"after2"`
}

// AuditFromChange converts a roster change into an audit row (1-based slots).
func AuditFromChange(c roster.Change) AuditEntry {
	b1, b2 := c.Before.Pair()
	a1, a2 := c.After.Pair()
	return AuditEntry{
		At:      c.At,
		Action:  c.Action,
		Actor:   c.Actor,
		Date:    c.Date,
		Before1: b1,
		Before2: b2,
		After1:  a1,
		After2:  a2,
	}
}
