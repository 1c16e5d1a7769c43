// Package storage persists the duty roster state and an audit trail of
// every change.
//
// Drivers:
//   - "ini": the classic duty_config.ini layout next to the executable,
//     plus a JSON-lines audit file alongside it
//   - "sqlite": a single SQLite database file (state row + audit table)
//
// Only one process may own a state file at a time; see Lock.
package storage
